//
// Tencent is pleased to support the open source community by making whisky-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// whisky-agent-go is licensed under the Apache License Version 2.0.
//
//

package inmemory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
	"trpc.group/trpc-go/whisky-agent-go/event"
	"trpc.group/trpc-go/whisky-agent-go/session"
)

const testApp = "whisky_assistant"

func TestCreateSessionGeneratesID(t *testing.T) {
	s := NewSessionService()
	defer s.Close()

	sess, err := s.CreateSession(context.Background(), session.Key{AppName: testApp, UserID: "u1"},
		session.StateMap{"user_id": "u1"})
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, "u1", sess.State["user_id"])

	_, err = s.CreateSession(context.Background(), session.Key{AppName: testApp}, nil)
	assert.ErrorIs(t, err, session.ErrUserIDRequired)
}

func TestCreateSessionReplacesStateKeepsEvents(t *testing.T) {
	ctx := context.Background()
	s := NewSessionService()
	defer s.Close()
	key := session.Key{AppName: testApp, UserID: "u1", SessionID: "s1"}

	first, err := s.CreateSession(ctx, key, session.StateMap{"a": 1, "b": 2})
	require.NoError(t, err)
	require.NoError(t, s.AppendEvent(ctx, first, event.New("inv", "user", genai.NewContentFromText("hi", genai.RoleUser))))

	_, err = s.CreateSession(ctx, key, session.StateMap{"a": 3})
	require.NoError(t, err)

	got, err := s.GetSession(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, session.StateMap{"a": 3}, got.State)
	require.Len(t, got.Events, 1)
	assert.Equal(t, "hi", got.Events[0].Text())
	assert.Equal(t, first.CreatedAt, got.CreatedAt)

	require.NoError(t, s.DeleteSession(ctx, key))
	fresh, err := s.CreateSession(ctx, key, nil)
	require.NoError(t, err)
	assert.Empty(t, fresh.Events)
}

func TestGetSessionMissingReturnsNil(t *testing.T) {
	s := NewSessionService()
	defer s.Close()

	got, err := s.GetSession(context.Background(), session.Key{AppName: testApp, UserID: "u", SessionID: "nope"})
	assert.NoError(t, err)
	assert.Nil(t, got)

	_, err = s.GetSession(context.Background(), session.Key{AppName: testApp, UserID: "u"})
	assert.ErrorIs(t, err, session.ErrSessionIDRequired)
}

func TestGetSessionReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewSessionService()
	defer s.Close()
	key := session.Key{AppName: testApp, UserID: "u1", SessionID: "s1"}
	_, err := s.CreateSession(ctx, key, session.StateMap{"interaction_history": []any{}})
	require.NoError(t, err)

	got, err := s.GetSession(ctx, key)
	require.NoError(t, err)
	got.State["interaction_history"] = append(got.State["interaction_history"].([]any), "mutated")
	got.State["extra"] = true

	again, err := s.GetSession(ctx, key)
	require.NoError(t, err)
	assert.Empty(t, again.State["interaction_history"])
	assert.NotContains(t, again.State, "extra")
}

func TestListSessionsFiltersEvalSessions(t *testing.T) {
	ctx := context.Background()
	s := NewSessionService()
	defer s.Close()
	for _, id := range []string{"s1", "s2", session.EvalSessionPrefix + "run"} {
		_, err := s.CreateSession(ctx, session.Key{AppName: testApp, UserID: "u1", SessionID: id}, nil)
		require.NoError(t, err)
	}
	_, err := s.CreateSession(ctx, session.Key{AppName: testApp, UserID: "u2", SessionID: "other"}, nil)
	require.NoError(t, err)

	list, err := s.ListSessions(ctx, session.UserKey{AppName: testApp, UserID: "u1"})
	require.NoError(t, err)
	var ids []string
	for _, sess := range list {
		ids = append(ids, sess.ID)
	}
	assert.ElementsMatch(t, []string{"s1", "s2"}, ids)

	list, err = s.ListSessions(ctx, session.UserKey{AppName: testApp, UserID: "u1"}, session.WithEvalSessions())
	require.NoError(t, err)
	assert.Len(t, list, 3)

	list, err = s.ListSessions(ctx, session.UserKey{AppName: "other", UserID: "u1"})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestDeleteSession(t *testing.T) {
	ctx := context.Background()
	s := NewSessionService()
	defer s.Close()
	key := session.Key{AppName: testApp, UserID: "u1", SessionID: "s1"}
	_, err := s.CreateSession(ctx, key, nil)
	require.NoError(t, err)

	require.NoError(t, s.DeleteSession(ctx, key))
	got, err := s.GetSession(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, s.DeleteSession(ctx, key))
}

func TestAppendEventAppliesStateDelta(t *testing.T) {
	ctx := context.Background()
	s := NewSessionService(WithSessionEventLimit(2))
	defer s.Close()
	key := session.Key{AppName: testApp, UserID: "u1", SessionID: "s1"}
	sess, err := s.CreateSession(ctx, key, nil)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		evt := event.New("inv", "whisky_agent", genai.NewContentFromText("ok", genai.RoleModel))
		evt.StateDelta = map[string]any{"turn": i}
		require.NoError(t, s.AppendEvent(ctx, sess, evt))
	}
	partial := &event.Event{Author: "whisky_agent", Partial: true, StateDelta: map[string]any{"typing": true}}
	require.NoError(t, s.AppendEvent(ctx, sess, partial))

	got, err := s.GetSession(ctx, key)
	require.NoError(t, err)
	assert.Len(t, got.Events, 2)
	assert.Equal(t, 2, got.State["turn"])
	assert.Equal(t, true, got.State["typing"])
	assert.Len(t, sess.Events, 2)

	missing := &session.Session{AppName: testApp, UserID: "u1", ID: "missing"}
	assert.Error(t, s.AppendEvent(ctx, missing, event.New("inv", "a", nil)))
}

func TestSessionTTLCleanup(t *testing.T) {
	ctx := context.Background()
	s := NewSessionService(WithSessionTTL(20*time.Millisecond), WithCleanupInterval(10*time.Millisecond))
	defer s.Close()
	key := session.Key{AppName: testApp, UserID: "u1", SessionID: "s1"}
	_, err := s.CreateSession(ctx, key, nil)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		got, err := s.GetSession(ctx, key)
		return err == nil && got == nil
	}, time.Second, 10*time.Millisecond)

	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}
