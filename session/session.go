//
// Tencent is pleased to support the open source community by making whisky-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// whisky-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package session provides the core session functionality.
package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"trpc.group/trpc-go/whisky-agent-go/event"
)

// StateMap is a map of state key-value pairs. Values must be JSON compatible.
type StateMap map[string]any

var (
	// ErrAppNameRequired is the error for app name required.
	ErrAppNameRequired = errors.New("appName is required")
	// ErrUserIDRequired is the error for user id required.
	ErrUserIDRequired = errors.New("userID is required")
	// ErrSessionIDRequired is the error for session id required.
	ErrSessionIDRequired = errors.New("sessionID is required")
)

// EvalSessionPrefix prefixes the ids of sessions created by eval runs.
const EvalSessionPrefix = "eval-"

// Session is one conversation of a user with an app.
type Session struct {
	ID        string        `json:"id"`        // ID is the session id.
	AppName   string        `json:"appName"`   // AppName is the app name.
	UserID    string        `json:"userId"`    // UserID is the user id.
	State     StateMap      `json:"state"`     // State is the session state.
	Events    []event.Event `json:"events"`    // Events is the session events.
	UpdatedAt time.Time     `json:"updatedAt"` // UpdatedAt is the last update time.
	CreatedAt time.Time     `json:"createdAt"` // CreatedAt is the creation time.
}

// NewSession creates a new session with a copy of state.
func NewSession(appName, userID, sessionID string, state StateMap) *Session {
	now := time.Now()
	return &Session{
		ID:        sessionID,
		AppName:   appName,
		UserID:    userID,
		State:     state.Clone(),
		Events:    []event.Event{},
		UpdatedAt: now,
		CreatedAt: now,
	}
}

// Clone returns a deep copy of the session.
func (sess *Session) Clone() *Session {
	if sess == nil {
		return nil
	}
	copied := &Session{
		ID:        sess.ID,
		AppName:   sess.AppName,
		UserID:    sess.UserID,
		State:     sess.State.Clone(),
		Events:    make([]event.Event, len(sess.Events)),
		UpdatedAt: sess.UpdatedAt,
		CreatedAt: sess.CreatedAt,
	}
	copy(copied.Events, sess.Events)
	return copied
}

// IsEvalSession reports whether the session was created by an eval run.
func (sess *Session) IsEvalSession() bool {
	return sess != nil && strings.HasPrefix(sess.ID, EvalSessionPrefix)
}

// ApplyEventStateDelta merges the state delta of the event into the session state.
func (sess *Session) ApplyEventStateDelta(e *event.Event) {
	if sess == nil || e == nil {
		return
	}
	if sess.State == nil {
		sess.State = make(StateMap)
	}
	for key, value := range e.StateDelta {
		sess.State[key] = CloneValue(value)
	}
}

// Clone returns a deep copy of the state. Nested maps and slices are copied,
// other values are shared.
func (s StateMap) Clone() StateMap {
	copied := make(StateMap, len(s))
	for k, v := range s {
		copied[k] = CloneValue(v)
	}
	return copied
}

// CloneValue deep copies JSON shaped values.
func CloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(val))
		for k, item := range val {
			m[k] = CloneValue(item)
		}
		return m
	case StateMap:
		return val.Clone()
	case []any:
		s := make([]any, len(val))
		for i, item := range val {
			s[i] = CloneValue(item)
		}
		return s
	case []map[string]any:
		s := make([]map[string]any, len(val))
		for i, item := range val {
			s[i], _ = CloneValue(item).(map[string]any)
		}
		return s
	case []string:
		return append([]string(nil), val...)
	default:
		return v
	}
}

// Options is the options for listing sessions.
type Options struct {
	// IncludeEvalSessions keeps eval run sessions in listings.
	IncludeEvalSessions bool
}

// Option is the option for a session service call.
type Option func(*Options)

// WithEvalSessions includes eval run sessions in ListSessions results.
func WithEvalSessions() Option {
	return func(o *Options) {
		o.IncludeEvalSessions = true
	}
}

// ApplyOptions folds opts into Options.
func ApplyOptions(opts ...Option) *Options {
	o := &Options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Service is the interface that all session services must implement.
type Service interface {
	// CreateSession creates a session, or fully replaces the state of the
	// session that already has key.SessionID. The event log of a replaced
	// session is append only and carries over. A session id is generated
	// when empty.
	CreateSession(ctx context.Context, key Key, state StateMap, options ...Option) (*Session, error)

	// GetSession gets a session. It returns nil, nil when the session does not exist.
	GetSession(ctx context.Context, key Key, options ...Option) (*Session, error)

	// ListSessions lists all sessions by user scope of session key.
	ListSessions(ctx context.Context, userKey UserKey, options ...Option) ([]*Session, error)

	// DeleteSession deletes a session.
	DeleteSession(ctx context.Context, key Key, options ...Option) error

	// AppendEvent appends an event to a session and applies its state delta.
	AppendEvent(ctx context.Context, session *Session, event *event.Event, options ...Option) error

	// Close closes the service.
	Close() error
}

// Key is the key for a session.
type Key struct {
	AppName   string // app name
	UserID    string // user id
	SessionID string // session id
}

// CheckSessionKey checks if a session key is valid.
func (s *Key) CheckSessionKey() error {
	return checkSessionKey(s.AppName, s.UserID, s.SessionID)
}

// CheckUserKey checks if a user key is valid.
func (s *Key) CheckUserKey() error {
	return checkUserKey(s.AppName, s.UserID)
}

// UserKey is the key for a user.
type UserKey struct {
	AppName string // app name
	UserID  string // user id
}

// CheckUserKey checks if a user key is valid.
func (s *UserKey) CheckUserKey() error {
	return checkUserKey(s.AppName, s.UserID)
}

func checkSessionKey(appName, userID, sessionID string) error {
	if err := checkUserKey(appName, userID); err != nil {
		return err
	}
	if sessionID == "" {
		return ErrSessionIDRequired
	}
	return nil
}

func checkUserKey(appName, userID string) error {
	if appName == "" {
		return ErrAppNameRequired
	}
	if userID == "" {
		return ErrUserIDRequired
	}
	return nil
}
