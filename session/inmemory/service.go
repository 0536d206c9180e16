//
// Tencent is pleased to support the open source community by making whisky-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// whisky-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package inmemory keeps sessions in process memory.
package inmemory

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"trpc.group/trpc-go/whisky-agent-go/event"
	"trpc.group/trpc-go/whisky-agent-go/session"
)

var _ session.Service = (*SessionService)(nil)

var errSessionGone = errors.New("session not found or expired")

type entry struct {
	sess    *session.Session
	expires time.Time // zero never expires
}

func (e *entry) alive(now time.Time) bool {
	return e != nil && (e.expires.IsZero() || now.Before(e.expires))
}

// SessionService is a session.Service over a single map. Stored sessions are
// never handed out; callers always get copies.
type SessionService struct {
	opts serviceOpts

	mu      sync.RWMutex
	entries map[session.Key]*entry

	stop     chan struct{}
	stopOnce sync.Once
}

// NewSessionService creates an in-memory session service. With a TTL set,
// a background purge runs until Close.
func NewSessionService(options ...ServiceOpt) *SessionService {
	opts := defaultOptions
	for _, o := range options {
		o(&opts)
	}
	s := &SessionService{
		opts:    opts,
		entries: map[session.Key]*entry{},
		stop:    make(chan struct{}),
	}
	if opts.sessionTTL > 0 {
		if opts.cleanupInterval <= 0 {
			s.opts.cleanupInterval = defaultCleanupInterval
		}
		go s.purgeLoop(s.opts.cleanupInterval)
	}
	return s
}

func (s *SessionService) deadline() time.Time {
	if s.opts.sessionTTL <= 0 {
		return time.Time{}
	}
	return time.Now().Add(s.opts.sessionTTL)
}

// CreateSession stores a new session, or replaces the state of the one with
// the same id. Its creation time and events are kept. An empty session id is
// generated.
func (s *SessionService) CreateSession(
	ctx context.Context,
	key session.Key,
	state session.StateMap,
	opts ...session.Option,
) (*session.Session, error) {
	if err := key.CheckUserKey(); err != nil {
		return nil, err
	}
	if key.SessionID == "" {
		key.SessionID = uuid.NewString()
	}
	sess := session.NewSession(key.AppName, key.UserID, key.SessionID, state)

	s.mu.Lock()
	defer s.mu.Unlock()
	if prev := s.entries[key]; prev.alive(time.Now()) {
		sess.CreatedAt = prev.sess.CreatedAt
		sess.Events = prev.sess.Events
	}
	s.entries[key] = &entry{sess: sess, expires: s.deadline()}
	return sess.Clone(), nil
}

// GetSession returns a copy of the session, or nil, nil when it is missing
// or expired. A hit refreshes the TTL.
func (s *SessionService) GetSession(
	ctx context.Context,
	key session.Key,
	opts ...session.Option,
) (*session.Session, error) {
	if err := key.CheckSessionKey(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entries[key]
	if !e.alive(time.Now()) {
		return nil, nil
	}
	e.expires = s.deadline()
	return e.sess.Clone(), nil
}

// ListSessions returns a user's sessions, most recently updated first. Eval
// run sessions are left out unless session.WithEvalSessions is given.
func (s *SessionService) ListSessions(
	ctx context.Context,
	userKey session.UserKey,
	opts ...session.Option,
) ([]*session.Session, error) {
	if err := userKey.CheckUserKey(); err != nil {
		return nil, err
	}
	withEval := session.ApplyOptions(opts...).IncludeEvalSessions
	now := time.Now()

	s.mu.RLock()
	out := []*session.Session{}
	for k, e := range s.entries {
		if k.AppName != userKey.AppName || k.UserID != userKey.UserID || !e.alive(now) {
			continue
		}
		if e.sess.IsEvalSession() && !withEval {
			continue
		}
		out = append(out, e.sess.Clone())
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b *session.Session) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	return out, nil
}

// DeleteSession drops a session. A missing session is not an error.
func (s *SessionService) DeleteSession(
	ctx context.Context,
	key session.Key,
	opts ...session.Option,
) error {
	if err := key.CheckSessionKey(); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// AppendEvent applies evt to both sess and the stored copy. Partial events
// only carry state; the rest are appended to the event log.
func (s *SessionService) AppendEvent(
	ctx context.Context,
	sess *session.Session,
	evt *event.Event,
	opts ...session.Option,
) error {
	if sess == nil || evt == nil {
		return errors.New("session and event are required")
	}
	key := session.Key{AppName: sess.AppName, UserID: sess.UserID, SessionID: sess.ID}
	if err := key.CheckSessionKey(); err != nil {
		return err
	}
	s.apply(sess, evt)

	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entries[key]
	if !e.alive(time.Now()) {
		return fmt.Errorf("append to %s/%s/%s: %w", key.AppName, key.UserID, key.SessionID, errSessionGone)
	}
	s.apply(e.sess, evt)
	e.expires = s.deadline()
	return nil
}

func (s *SessionService) apply(sess *session.Session, evt *event.Event) {
	if !evt.Partial {
		sess.Events = append(sess.Events, *evt)
		if n := s.opts.sessionEventLimit; n > 0 && len(sess.Events) > n {
			sess.Events = slices.Clone(sess.Events[len(sess.Events)-n:])
		}
	}
	sess.UpdatedAt = time.Now()
	sess.ApplyEventStateDelta(evt)
}

func (s *SessionService) purgeLoop(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-s.stop:
			return
		case now := <-t.C:
			s.mu.Lock()
			for k, e := range s.entries {
				if !e.alive(now) {
					delete(s.entries, k)
				}
			}
			s.mu.Unlock()
		}
	}
}

// Close stops the purge loop. It is safe to call more than once.
func (s *SessionService) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	return nil
}
