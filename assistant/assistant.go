//
// Tencent is pleased to support the open source community by making whisky-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// whisky-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package assistant keeps one conversation per user and drives the agent
// runner turn by turn.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/genai"
	"trpc.group/trpc-go/whisky-agent-go/history"
	"trpc.group/trpc-go/whisky-agent-go/internal/keylock"
	"trpc.group/trpc-go/whisky-agent-go/log"
	"trpc.group/trpc-go/whisky-agent-go/mirror"
	"trpc.group/trpc-go/whisky-agent-go/runner"
	"trpc.group/trpc-go/whisky-agent-go/session"
	atrace "trpc.group/trpc-go/whisky-agent-go/telemetry/trace"
)

// ErrEmptyMessage is returned by Chat for a message without text or image.
var ErrEmptyMessage = errors.New("assistant: message has no text and no image")

// Message is one user turn.
type Message struct {
	Text string
	// Image is the raw image, sent inline to the runner.
	Image    []byte
	MimeType string
}

// Reply is the answer of one turn.
type Reply struct {
	SessionID string `json:"session_id"`
	Agent     string `json:"agent,omitempty"`
	Text      string `json:"response"`
}

// Assistant routes user turns to the runner and records them.
type Assistant struct {
	appName  string
	sessions session.Service
	runner   runner.Runner
	recorder *history.Recorder
	opts     options

	// users serializes session setup and reset per user. mu only guards
	// active and is never held across I/O.
	users  keylock.Locks[string]
	mu     sync.RWMutex
	active map[string]string
}

// New creates an assistant for appName.
func New(appName string, sessions session.Service, r runner.Runner, recorder *history.Recorder,
	opt ...Option) (*Assistant, error) {
	switch {
	case appName == "":
		return nil, session.ErrAppNameRequired
	case sessions == nil:
		return nil, errors.New("assistant: session service is nil")
	case r == nil:
		return nil, errors.New("assistant: runner is nil")
	case recorder == nil:
		return nil, errors.New("assistant: history recorder is nil")
	}
	o := options{apology: defaultApology, imagePrompt: defaultImagePrompt}
	for _, apply := range opt {
		apply(&o)
	}
	if o.mirror == nil {
		o.mirror = mirror.Disabled()
	}
	return &Assistant{
		appName:  appName,
		sessions: sessions,
		runner:   r,
		recorder: recorder,
		opts:     o,
		active:   make(map[string]string),
	}, nil
}

// AppName returns the app the assistant serves.
func (a *Assistant) AppName() string {
	return a.appName
}

// SessionFor returns the key of the user's current session. On first
// contact the session mirrored for the user is restored, otherwise a new
// one is created and mirrored. Only turns of the same user wait for each
// other here.
func (a *Assistant) SessionFor(ctx context.Context, userID string) (session.Key, error) {
	if userID == "" {
		return session.Key{}, session.ErrUserIDRequired
	}
	if key, ok, err := a.liveSession(ctx, userID); err != nil || ok {
		return key, err
	}

	unlock := a.users.Lock(userID)
	defer unlock()
	// A concurrent turn of the user may have finished the setup.
	if key, ok, err := a.liveSession(ctx, userID); err != nil || ok {
		return key, err
	}

	if sid, state := a.opts.mirror.Load(ctx, userID); sid != "" {
		key := a.key(userID, sid)
		if _, err := a.sessions.CreateSession(ctx, key, state); err != nil {
			return session.Key{}, fmt.Errorf("restore session of user %s: %w", userID, err)
		}
		log.Infof("assistant: restored session %s of user %s", sid, userID)
		a.setActive(userID, sid)
		return key, nil
	}

	sess, err := a.newSession(ctx, userID)
	if err != nil {
		return session.Key{}, err
	}
	a.setActive(userID, sess.ID)
	return a.key(userID, sess.ID), nil
}

// liveSession reports the active session of the user if it still exists.
func (a *Assistant) liveSession(ctx context.Context, userID string) (session.Key, bool, error) {
	a.mu.RLock()
	sid, ok := a.active[userID]
	a.mu.RUnlock()
	if !ok {
		return session.Key{}, false, nil
	}
	key := a.key(userID, sid)
	sess, err := a.sessions.GetSession(ctx, key)
	if err != nil {
		return session.Key{}, false, fmt.Errorf("get session of user %s: %w", userID, err)
	}
	return key, sess != nil, nil
}

// setActive records sid as the user's session and returns the previous one.
func (a *Assistant) setActive(userID, sid string) (prev string, had bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	prev, had = a.active[userID]
	a.active[userID] = sid
	return prev, had
}

// newSession creates a session and mirrors it behind any write of the user
// still queued by the recorder.
func (a *Assistant) newSession(ctx context.Context, userID string) (*session.Session, error) {
	sess, err := a.sessions.CreateSession(ctx, a.key(userID, ""), initialState(userID))
	if err != nil {
		return nil, fmt.Errorf("create session of user %s: %w", userID, err)
	}
	key := a.key(userID, sess.ID)
	if !a.recorder.Mirror(ctx, key, sess.State) {
		a.opts.mirror.Save(ctx, userID, sess.ID, sess.State)
	}
	return sess, nil
}

func initialState(userID string) session.StateMap {
	return session.StateMap{
		"user_id":        userID,
		history.StateKey: []any{},
	}
}

func (a *Assistant) key(userID, sessionID string) session.Key {
	return session.Key{AppName: a.appName, UserID: userID, SessionID: sessionID}
}

// Chat runs one turn. Runner failures are logged and answered with the
// apology text; only session errors are returned.
func (a *Assistant) Chat(ctx context.Context, userID string, msg Message) (*Reply, error) {
	ctx, span := atrace.Tracer.Start(ctx, "chat_turn")
	defer span.End()
	span.SetAttributes(attribute.String("chat.user_id", userID))

	text := msg.Text
	if text == "" && len(msg.Image) > 0 {
		text = a.opts.imagePrompt
	}
	if text == "" {
		span.SetStatus(codes.Error, ErrEmptyMessage.Error())
		return nil, ErrEmptyMessage
	}
	key, err := a.SessionFor(ctx, userID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("chat.session_id", key.SessionID))

	a.recorder.RecordUserQuery(ctx, key, text)
	agent, answer := a.run(ctx, key, userContent(text, msg))
	if answer != "" && agent != "" {
		a.recorder.RecordAgentResponse(ctx, key, agent, answer)
	}
	if answer == "" {
		answer = a.opts.apology
	}
	return &Reply{SessionID: key.SessionID, Agent: agent, Text: answer}, nil
}

func (a *Assistant) run(ctx context.Context, key session.Key, content *genai.Content) (agent, answer string) {
	ch, err := a.runner.Run(ctx, key.UserID, key.SessionID, content)
	if err != nil {
		log.Errorf("assistant: run agent for user %s failed: %v", key.UserID, err)
		return "", ""
	}
	events, err := runner.Drain(ctx, ch)
	if err != nil {
		log.Warnf("assistant: agent run for user %s interrupted: %v", key.UserID, err)
	}
	for _, ev := range events {
		if ev.Author != "" {
			agent = ev.Author
		}
		if ev.IsFinalResponse() {
			if text := ev.Text(); text != "" {
				return agent, text
			}
		}
	}
	return agent, ""
}

func userContent(text string, msg Message) *genai.Content {
	parts := []*genai.Part{genai.NewPartFromText(text)}
	if len(msg.Image) > 0 {
		mimeType := msg.MimeType
		if mimeType == "" {
			mimeType = http.DetectContentType(msg.Image)
		}
		parts = append(parts, genai.NewPartFromBytes(msg.Image, mimeType))
	}
	return genai.NewContentFromParts(parts, genai.RoleUser)
}

// History returns the interaction history of the user's current session.
// A cached state is preferred and may lag the session by a turn.
func (a *Assistant) History(ctx context.Context, userID string) ([]history.Entry, error) {
	key, err := a.SessionFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	if state, ok := a.cachedState(ctx, userID); ok {
		return nonNil(history.Entries(state)), nil
	}
	sess, err := a.sessions.GetSession(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("get session of user %s: %w", userID, err)
	}
	if sess == nil {
		return []history.Entry{}, nil
	}
	return nonNil(history.Entries(sess.State)), nil
}

func (a *Assistant) cachedState(ctx context.Context, userID string) (map[string]any, bool) {
	if a.opts.cache == nil {
		return nil, false
	}
	state, ok, err := a.opts.cache.Get(ctx, userID)
	if err != nil {
		log.Warnf("assistant: read state cache of user %s failed: %v", userID, err)
		return nil, false
	}
	return state, ok
}

func nonNil(entries []history.Entry) []history.Entry {
	if entries == nil {
		return []history.Entry{}
	}
	return entries
}

// Reset starts a new session for the user and deletes the previous one.
// It returns the new session id.
func (a *Assistant) Reset(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", session.ErrUserIDRequired
	}
	unlock := a.users.Lock(userID)
	defer unlock()

	sess, err := a.newSession(ctx, userID)
	if err != nil {
		return "", err
	}
	if a.opts.cache != nil {
		if err := a.opts.cache.Delete(ctx, userID); err != nil {
			log.Warnf("assistant: clear state cache of user %s failed: %v", userID, err)
		}
	}
	if old, ok := a.setActive(userID, sess.ID); ok && old != sess.ID {
		if err := a.sessions.DeleteSession(ctx, a.key(userID, old)); err != nil {
			log.Warnf("assistant: delete session %s of user %s failed: %v", old, userID, err)
		}
	}
	return sess.ID, nil
}

// SaveRecord stores a whisky record of the user in the mirror.
func (a *Assistant) SaveRecord(ctx context.Context, userID, recordID string, payload map[string]any) {
	a.opts.mirror.SaveRecord(ctx, userID, recordID, payload)
}

// Records returns the whisky records of the user.
func (a *Assistant) Records(ctx context.Context, userID string) []mirror.Record {
	return a.opts.mirror.ListRecords(ctx, userID)
}

// PeerRecommendationSource returns the records of another, randomly picked
// user to recommend from.
func (a *Assistant) PeerRecommendationSource(ctx context.Context, userID string) (string, []mirror.Record) {
	return a.opts.mirror.ListPeerRecords(ctx, userID)
}
