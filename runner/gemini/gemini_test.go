//
// Tencent is pleased to support the open source community by making whisky-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// whisky-agent-go is licensed under the Apache License Version 2.0.
//
//

package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
	"trpc.group/trpc-go/whisky-agent-go/history"
	"trpc.group/trpc-go/whisky-agent-go/runner"
	"trpc.group/trpc-go/whisky-agent-go/session"
	"trpc.group/trpc-go/whisky-agent-go/session/inmemory"
)

type fakeModels struct {
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
	rsp      *genai.GenerateContentResponse
	err      error
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content,
	config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model, f.contents, f.config = model, contents, config
	return f.rsp, f.err
}

func answer(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
		{Content: &genai.Content{Parts: []*genai.Part{{Text: text}}}},
	}}
}

func TestRunSendsHistory(t *testing.T) {
	ctx := context.Background()
	sessions := inmemory.NewSessionService()
	defer sessions.Close()
	key := session.Key{AppName: "whisky", UserID: "u1", SessionID: "s1"}
	_, err := sessions.CreateSession(ctx, key, session.StateMap{
		history.StateKey: []any{
			map[string]any{"action": history.ActionUserQuery, "query": "hello"},
			map[string]any{"action": history.ActionAgentResponse, "agent": "whisky_agent", "response": "hi!"},
			map[string]any{"action": history.ActionUserQuery, "query": "recommend one"},
		},
	})
	require.NoError(t, err)

	models := &fakeModels{rsp: answer("Try Yamazaki 12.")}
	r, err := New(ctx, "whisky", sessions, WithModels(models), WithModel("m1"), WithAgentName("sommelier"))
	require.NoError(t, err)

	ch, err := r.Run(ctx, "u1", "s1", genai.NewContentFromText("recommend one", genai.RoleUser))
	require.NoError(t, err)
	events, err := runner.Drain(ctx, ch)
	require.NoError(t, err)

	require.Len(t, events, 1)
	assert.Equal(t, "sommelier", events[0].Author)
	assert.True(t, events[0].IsFinalResponse())
	assert.Equal(t, "Try Yamazaki 12.", events[0].Text())
	assert.Equal(t, string(genai.RoleModel), events[0].Content.Role)

	assert.Equal(t, "m1", models.model)
	require.Len(t, models.contents, 3)
	assert.Equal(t, "hello", models.contents[0].Parts[0].Text)
	assert.Equal(t, string(genai.RoleModel), models.contents[1].Role)
	assert.Equal(t, "recommend one", models.contents[2].Parts[0].Text)
	require.NotNil(t, models.config.SystemInstruction)

	sess, err := sessions.GetSession(ctx, key)
	require.NoError(t, err)
	require.Len(t, sess.Events, 2)
	assert.Equal(t, runner.AuthorUser, sess.Events[0].Author)
	assert.Equal(t, "recommend one", sess.Events[0].Text())
	assert.Equal(t, "sommelier", sess.Events[1].Author)
	assert.Equal(t, "Try Yamazaki 12.", sess.Events[1].Text())
}

func TestRunWithoutSession(t *testing.T) {
	ctx := context.Background()
	sessions := inmemory.NewSessionService()
	defer sessions.Close()
	models := &fakeModels{rsp: answer("hello")}
	r, err := New(ctx, "whisky", sessions, WithModels(models))
	require.NoError(t, err)
	assert.Equal(t, defaultAgentName, r.AgentName())

	ch, err := r.Run(ctx, "u1", "missing", &genai.Content{Parts: []*genai.Part{{Text: "hi"}}})
	require.NoError(t, err)
	events, err := runner.Drain(ctx, ch)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Len(t, models.contents, 1)
	assert.Equal(t, string(genai.RoleUser), models.contents[0].Role)
}

func TestRunModelErrorYieldsNoEvents(t *testing.T) {
	ctx := context.Background()
	sessions := inmemory.NewSessionService()
	defer sessions.Close()
	for _, models := range []*fakeModels{
		{err: errors.New("quota exceeded")},
		{rsp: &genai.GenerateContentResponse{}},
	} {
		r, err := New(ctx, "whisky", sessions, WithModels(models))
		require.NoError(t, err)
		ch, err := r.Run(ctx, "u1", "s1", genai.NewContentFromText("hi", genai.RoleUser))
		require.NoError(t, err)
		events, err := runner.Drain(ctx, ch)
		require.NoError(t, err)
		assert.Empty(t, events)
	}
}

func TestRunNilMessage(t *testing.T) {
	r, err := New(context.Background(), "whisky", inmemory.NewSessionService(), WithModels(&fakeModels{}))
	require.NoError(t, err)
	_, err = r.Run(context.Background(), "u", "s", nil)
	assert.Error(t, err)
}
