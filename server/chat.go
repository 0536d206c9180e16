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
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	"trpc.group/trpc-go/whisky-agent-go/assistant"
	"trpc.group/trpc-go/whisky-agent-go/log"
	"trpc.group/trpc-go/whisky-agent-go/session"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, healthResponse{Status: "ok", Message: "Whisky AI Assistant API is running"})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	msg, err := toMessage(req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	reply, err := s.assistant.Chat(r.Context(), req.UserID, msg)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, reply)
}

func toMessage(req chatRequest) (assistant.Message, error) {
	msg := assistant.Message{Text: req.Message, MimeType: req.MimeType}
	if req.Image == "" {
		return msg, nil
	}
	data, err := base64.StdEncoding.DecodeString(req.Image)
	if err != nil {
		return msg, errors.Join(errBadRequest, fmt.Errorf("decode image %q: %w", req.ImageName, err))
	}
	log.Debugf("server: image %q (%d bytes, %s) attached to message", req.ImageName, len(data), req.MimeType)
	msg.Image = data
	return msg, nil
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := s.assistant.History(r.Context(), r.URL.Query().Get("user_id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, historyResponse{History: entries})
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	id, err := s.assistant.Reset(r.Context(), r.URL.Query().Get("user_id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, clearHistoryResponse{Message: "history cleared", NewSessionID: id})
}

// handleWebSocket runs one chat turn per JSON message received on the
// connection until the client goes away.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		s.writeError(w, session.ErrUserIDRequired)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("server: websocket upgrade for user %s failed: %v", userID, err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	for {
		var req chatRequest
		if err := conn.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debugf("server: websocket of user %s closed: %v", userID, err)
			}
			return
		}
		var out any
		msg, err := toMessage(req)
		if err == nil {
			out, err = s.assistant.Chat(ctx, userID, msg)
		}
		if err != nil {
			out = wsError{Error: err.Error()}
		}
		if err := conn.WriteJSON(out); err != nil {
			log.Warnf("server: websocket write to user %s failed: %v", userID, err)
			return
		}
	}
}
