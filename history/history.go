//
// Tencent is pleased to support the open source community by making whisky-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// whisky-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package history records user queries and agent responses in the session
// state and propagates every update to the durable mirror and the state cache.
//
// Recording never fails the conversation turn: problems are logged and the
// call returns.
package history

import (
	"context"

	"trpc.group/trpc-go/whisky-agent-go/internal/keylock"
	"trpc.group/trpc-go/whisky-agent-go/log"
	"trpc.group/trpc-go/whisky-agent-go/session"
)

// Mirror receives the full state after every append.
type Mirror interface {
	Save(ctx context.Context, userID, sessionID string, state map[string]any)
}

// Recorder appends interaction history entries.
type Recorder struct {
	sessions session.Service
	opts     options
	writer   *writer
	locks    *keylock.Locks[session.Key]
}

// New creates a recorder over the session service.
func New(sessions session.Service, opts ...Option) *Recorder {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	r := &Recorder{sessions: sessions, opts: o}
	if o.mirror != nil {
		r.writer = newWriter(o.mirror, o.mirrorWorkers, o.mirrorQueueSize)
	}
	if o.serializedAppends {
		r.locks = &keylock.Locks[session.Key]{}
	}
	return r
}

// RecordUserQuery appends a user_query entry.
func (r *Recorder) RecordUserQuery(ctx context.Context, key session.Key, query string) {
	r.Append(ctx, key, UserQuery(query))
}

// RecordAgentResponse appends an agent_response entry.
func (r *Recorder) RecordAgentResponse(ctx context.Context, key session.Key, agent, response string) {
	r.Append(ctx, key, AgentResponse(agent, response))
}

// Append adds entry to the history of the session and replaces the session
// with the updated state. The timestamp is set when empty. The mirror write
// happens in the background and the cache update is best effort.
func (r *Recorder) Append(ctx context.Context, key session.Key, entry Entry) {
	if r.locks != nil {
		unlock := r.locks.Lock(key)
		defer unlock()
	}

	sess, err := r.sessions.GetSession(ctx, key)
	if err != nil {
		log.Errorf("history: get session %s of user %s failed: %v", key.SessionID, key.UserID, err)
		return
	}
	if sess == nil {
		log.Warnf("history: session %s of user %s not found, entry dropped", key.SessionID, key.UserID)
		return
	}

	if entry.Timestamp == "" {
		entry.Timestamp = r.opts.now().Format(TimestampLayout)
	}
	state := sess.State
	if state == nil {
		state = make(session.StateMap)
	}
	state[StateKey] = appendEntry(state, entry)

	updated, err := r.sessions.CreateSession(ctx, key, state)
	if err != nil {
		log.Errorf("history: replace session %s of user %s failed: %v", key.SessionID, key.UserID, err)
		return
	}

	if r.writer != nil {
		r.writer.submit(ctx, key.UserID, key.SessionID, updated.State.Clone())
	}
	if r.opts.cache != nil {
		if err := r.opts.cache.Set(ctx, key.UserID, updated.State.Clone()); err != nil {
			log.Warnf("history: update state cache of user %s failed: %v", key.UserID, err)
		}
	}
}

// Mirror queues a mirror write of state behind the pending writes of the
// same user. It reports false when the recorder has no mirror.
func (r *Recorder) Mirror(ctx context.Context, key session.Key, state session.StateMap) bool {
	if r.writer == nil {
		return false
	}
	r.writer.submit(ctx, key.UserID, key.SessionID, state.Clone())
	return true
}

// Close flushes pending mirror writes for at most the shutdown grace period.
func (r *Recorder) Close(ctx context.Context) error {
	if r.writer == nil {
		return nil
	}
	return r.writer.close(ctx, r.opts.shutdownGrace)
}
