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
	"net/http"

	"github.com/gorilla/mux"
	"trpc.group/trpc-go/whisky-agent-go/mirror"
)

func (s *Server) handleSaveRecord(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var payload map[string]any
	if err := decodeJSON(r, &payload); err != nil {
		s.writeError(w, err)
		return
	}
	s.assistant.SaveRecord(r.Context(), vars["userId"], vars["recordId"], payload)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	records := s.assistant.Records(r.Context(), mux.Vars(r)["userId"])
	if records == nil {
		records = []mirror.Record{}
	}
	s.writeJSON(w, records)
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	peer, records := s.assistant.PeerRecommendationSource(r.Context(), mux.Vars(r)["userId"])
	if records == nil {
		records = []mirror.Record{}
	}
	s.writeJSON(w, recommendationsResponse{PeerUserID: peer, Records: records})
}
