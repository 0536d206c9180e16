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
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"trpc.group/trpc-go/whisky-agent-go/evaluation/errs"
	"trpc.group/trpc-go/whisky-agent-go/session"
)

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	userKey := session.UserKey{AppName: vars["appName"], UserID: vars["userId"]}
	sessions, err := s.sessions.ListSessions(r.Context(), userKey)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, sessions)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var req createSessionRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, err)
		return
	}
	state := session.StateMap(req.State)
	if state == nil {
		state = session.StateMap{}
	}
	key := session.Key{AppName: vars["appName"], UserID: vars["userId"], SessionID: req.SessionID}
	sess, err := s.sessions.CreateSession(r.Context(), key, state)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, sess)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	key := sessionKey(r)
	sess, err := s.sessions.GetSession(r.Context(), key, session.WithEvalSessions())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if sess == nil {
		s.writeError(w, fmt.Errorf("session %s: %w", key.SessionID, errs.ErrNotFound))
		return
	}
	s.writeJSON(w, sess)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.DeleteSession(r.Context(), sessionKey(r)); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func sessionKey(r *http.Request) session.Key {
	vars := mux.Vars(r)
	return session.Key{AppName: vars["appName"], UserID: vars["userId"], SessionID: vars["sessionId"]}
}
