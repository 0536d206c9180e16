//
// Tencent is pleased to support the open source community by making whisky-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// whisky-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package server exposes the whisky assistant and the eval tooling over
// HTTP and WebSocket.
package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"trpc.group/trpc-go/whisky-agent-go/assistant"
	"trpc.group/trpc-go/whisky-agent-go/evaluation"
	"trpc.group/trpc-go/whisky-agent-go/evaluation/errs"
	"trpc.group/trpc-go/whisky-agent-go/evaluation/evalresult"
	resultlocal "trpc.group/trpc-go/whisky-agent-go/evaluation/evalresult/local"
	"trpc.group/trpc-go/whisky-agent-go/evaluation/evalset"
	setlocal "trpc.group/trpc-go/whisky-agent-go/evaluation/evalset/local"
	"trpc.group/trpc-go/whisky-agent-go/log"
	"trpc.group/trpc-go/whisky-agent-go/session"
)

// Server serves the chat, session, eval and record endpoints.
type Server struct {
	router    *mux.Router
	handler   http.Handler
	assistant *assistant.Assistant
	sessions  session.Service

	evalSetManager    evalset.Manager
	evalResultManager evalresult.Manager
	evaluator         *evaluation.Evaluator

	upgrader websocket.Upgrader
}

// Option configures the Server instance.
type Option func(*Server)

// WithEvalSetManager overrides the default eval set manager.
func WithEvalSetManager(m evalset.Manager) Option {
	return func(s *Server) {
		if m != nil {
			s.evalSetManager = m
		}
	}
}

// WithEvalResultManager overrides the default eval result manager.
func WithEvalResultManager(m evalresult.Manager) Option {
	return func(s *Server) {
		if m != nil {
			s.evalResultManager = m
		}
	}
}

// WithEvaluator enables the run_eval endpoint.
func WithEvaluator(e *evaluation.Evaluator) Option {
	return func(s *Server) { s.evaluator = e }
}

// New creates the server. Eval sets and results default to files under the
// working directory.
func New(a *assistant.Assistant, sessions session.Service, opts ...Option) *Server {
	s := &Server{
		router:            mux.NewRouter(),
		assistant:         a,
		sessions:          sessions,
		evalSetManager:    setlocal.New(),
		evalResultManager: resultlocal.New(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Content-Length", "Content-Type"},
	})
	s.registerRoutes()
	s.handler = c.Handler(s.router)
	return s
}

// Handler returns the http.Handler of the server.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) registerRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/chat", s.handleChat).Methods(http.MethodPost)
	s.router.HandleFunc("/history", s.handleGetHistory).Methods(http.MethodGet)
	s.router.HandleFunc("/history", s.handleClearHistory).Methods(http.MethodDelete)
	s.router.HandleFunc("/ws", s.handleWebSocket).Methods(http.MethodGet)

	s.router.HandleFunc("/apps/{appName}/users/{userId}/sessions", s.handleListSessions).Methods(http.MethodGet)
	s.router.HandleFunc("/apps/{appName}/users/{userId}/sessions", s.handleCreateSession).Methods(http.MethodPost)
	s.router.HandleFunc("/apps/{appName}/users/{userId}/sessions/{sessionId}", s.handleGetSession).
		Methods(http.MethodGet)
	s.router.HandleFunc("/apps/{appName}/users/{userId}/sessions/{sessionId}", s.handleDeleteSession).
		Methods(http.MethodDelete)

	s.router.HandleFunc("/apps/{appName}/eval_sets", s.handleListEvalSets).Methods(http.MethodGet)
	s.router.HandleFunc("/apps/{appName}/eval_sets/{evalSetId}", s.handleCreateEvalSet).Methods(http.MethodPost)
	s.router.HandleFunc("/apps/{appName}/eval_sets/{evalSetId}", s.handleGetEvalSet).Methods(http.MethodGet)
	s.router.HandleFunc("/apps/{appName}/eval_sets/{evalSetId}/evals", s.handleListEvalsInSet).
		Methods(http.MethodGet)
	s.router.HandleFunc("/apps/{appName}/eval_sets/{evalSetId}/add_session", s.handleAddSessionToEvalSet).
		Methods(http.MethodPost)
	s.router.HandleFunc("/apps/{appName}/eval_sets/{evalSetId}/run_eval", s.handleRunEval).
		Methods(http.MethodPost)
	s.router.HandleFunc("/apps/{appName}/eval_results", s.handleListEvalResults).Methods(http.MethodGet)
	s.router.HandleFunc("/apps/{appName}/eval_results/{evalResultId}", s.handleGetEvalResult).
		Methods(http.MethodGet)

	s.router.HandleFunc("/users/{userId}/records", s.handleListRecords).Methods(http.MethodGet)
	s.router.HandleFunc("/users/{userId}/records/{recordId}", s.handleSaveRecord).Methods(http.MethodPut)
	s.router.HandleFunc("/users/{userId}/recommendations", s.handleRecommendations).Methods(http.MethodGet)
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warnf("server: encode response failed: %v", err)
	}
}

// writeError maps err onto a status code: unknown resources are 404, bad
// identifiers and unreadable content are 400, everything else is 500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := statusCode(err)
	if code == http.StatusInternalServerError {
		log.Errorf("server: %v", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(errorResponse{Detail: err.Error()})
}

func statusCode(err error) int {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrInvalidIdentifier),
		errors.Is(err, errs.ErrDuplicateIdentifier),
		errors.Is(err, errs.ErrSchemaMismatch),
		errors.Is(err, errBadRequest),
		errors.Is(err, assistant.ErrEmptyMessage),
		errors.Is(err, session.ErrAppNameRequired),
		errors.Is(err, session.ErrUserIDRequired),
		errors.Is(err, session.ErrSessionIDRequired):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

var errBadRequest = errors.New("bad request")

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Join(errBadRequest, err)
	}
	return nil
}
