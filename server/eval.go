//
// Tencent is pleased to support the open source community by making whisky-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// whisky-agent-go is licensed under the Apache License Version 2.0.
//
//

package server

import (
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/gorilla/mux"
	"trpc.group/trpc-go/whisky-agent-go/evaluation"
	"trpc.group/trpc-go/whisky-agent-go/evaluation/errs"
	"trpc.group/trpc-go/whisky-agent-go/evaluation/evalset"
	"trpc.group/trpc-go/whisky-agent-go/log"
	"trpc.group/trpc-go/whisky-agent-go/session"
)

func (s *Server) handleListEvalSets(w http.ResponseWriter, r *http.Request) {
	ids, err := s.evalSetManager.List(r.Context(), mux.Vars(r)["appName"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, ids)
}

func (s *Server) handleCreateEvalSet(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	set, err := s.evalSetManager.Create(r.Context(), vars["appName"], vars["evalSetId"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, set)
}

func (s *Server) handleGetEvalSet(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	set, err := s.evalSetManager.Get(r.Context(), vars["appName"], vars["evalSetId"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, set)
}

func (s *Server) handleListEvalsInSet(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	set, err := s.evalSetManager.Get(r.Context(), vars["appName"], vars["evalSetId"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	ids := make([]string, 0, len(set.EvalCases))
	for _, c := range set.EvalCases {
		ids = append(ids, c.EvalID)
	}
	sort.Strings(ids)
	s.writeJSON(w, ids)
}

// handleAddSessionToEvalSet records an existing session as a new eval case.
func (s *Server) handleAddSessionToEvalSet(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	appName := vars["appName"]
	evalSetID := vars["evalSetId"]

	var req addSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := evalset.ValidateID(req.EvalID); err != nil {
		s.writeError(w, err)
		return
	}
	key := session.Key{AppName: appName, UserID: req.UserID, SessionID: req.SessionID}
	sess, err := s.sessions.GetSession(r.Context(), key, session.WithEvalSessions())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if sess == nil {
		s.writeError(w, fmt.Errorf("session %s: %w", req.SessionID, errs.ErrNotFound))
		return
	}
	evalCase := evaluation.CaseFromSession(req.EvalID, sess)
	if err := s.evalSetManager.AddCase(r.Context(), appName, evalSetID, evalCase); err != nil {
		s.writeError(w, err)
		return
	}
	log.Infof("server: session %s added to eval set %s as %s", req.SessionID, evalSetID, req.EvalID)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleRunEval(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	appName := vars["appName"]
	evalSetID := vars["evalSetId"]
	if s.evaluator == nil {
		s.writeError(w, errors.New("eval runs are not enabled on this server"))
		return
	}

	var req runEvalRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	result, err := s.evaluator.Run(r.Context(), appName, evalSetID, req.EvalIDs, req.EvalMetrics...)
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]*runEvalResult, 0, len(result.EvalCaseResults))
	for _, cr := range result.EvalCaseResults {
		out = append(out, &runEvalResult{
			EvalSetFile:                   evalSetID,
			EvalSetID:                     evalSetID,
			EvalID:                        cr.EvalID,
			FinalEvalStatus:               cr.FinalEvalStatus,
			OverallEvalMetricResults:      cr.OverallEvalMetricResults,
			EvalMetricResultPerInvocation: cr.EvalMetricResultPerInvocation,
			ErrorMessage:                  cr.ErrorMessage,
			UserID:                        cr.UserID,
			SessionID:                     cr.SessionID,
		})
	}
	s.writeJSON(w, out)
}

func (s *Server) handleListEvalResults(w http.ResponseWriter, r *http.Request) {
	ids, err := s.evalResultManager.List(r.Context(), mux.Vars(r)["appName"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, ids)
}

func (s *Server) handleGetEvalResult(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	result, err := s.evalResultManager.Get(r.Context(), vars["appName"], vars["evalResultId"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, result)
}
