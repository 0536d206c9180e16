//
// Tencent is pleased to support the open source community by making whisky-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// whisky-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package gemini runs a single Gemini model over the interaction history of
// a session.
package gemini

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"google.golang.org/genai"
	"trpc.group/trpc-go/whisky-agent-go/event"
	"trpc.group/trpc-go/whisky-agent-go/history"
	"trpc.group/trpc-go/whisky-agent-go/log"
	"trpc.group/trpc-go/whisky-agent-go/runner"
	"trpc.group/trpc-go/whisky-agent-go/session"
)

var _ runner.Runner = (*Runner)(nil)

// Runner sends the session history plus the new message to the model and
// emits the answer as one event. The user message and the answer are
// appended to the session events.
type Runner struct {
	appName  string
	sessions session.Service
	models   Models
	opts     options
	recorded runner.Runner
}

// New creates a runner for appName. A genai client is built from the client
// config unless WithModels is given.
func New(ctx context.Context, appName string, sessions session.Service, opts ...Option) (*Runner, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	models := o.models
	if models == nil {
		client, err := genai.NewClient(ctx, o.clientConfig)
		if err != nil {
			return nil, fmt.Errorf("gemini: new client: %w", err)
		}
		models = client.Models
	}
	r := &Runner{appName: appName, sessions: sessions, models: models, opts: o}
	r.recorded = runner.WithSessionEvents(runner.Func(r.generate), sessions, appName)
	return r, nil
}

// AgentName returns the author of emitted events.
func (r *Runner) AgentName() string { return r.opts.agentName }

// Run implements runner.Runner.
func (r *Runner) Run(ctx context.Context, userID, sessionID string,
	message *genai.Content) (<-chan *event.Event, error) {
	if message == nil {
		return nil, fmt.Errorf("gemini: message is nil")
	}
	return r.recorded.Run(ctx, userID, sessionID, message)
}

func (r *Runner) generate(ctx context.Context, userID, sessionID string,
	message *genai.Content) (<-chan *event.Event, error) {
	key := session.Key{AppName: r.appName, UserID: userID, SessionID: sessionID}
	sess, err := r.sessions.GetSession(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("gemini: get session %s: %w", sessionID, err)
	}
	var entries []history.Entry
	if sess != nil {
		entries = history.Entries(sess.State)
	}
	contents := buildContents(entries, message)
	config := &genai.GenerateContentConfig{}
	if r.opts.instruction != "" {
		config.SystemInstruction = genai.NewContentFromText(r.opts.instruction, genai.RoleUser)
	}

	invocationID := uuid.NewString()
	ch := make(chan *event.Event, r.opts.channelBufferSize)
	go func() {
		defer close(ch)
		rsp, err := r.models.GenerateContent(ctx, r.opts.model, contents, config)
		if err != nil {
			log.Errorf("gemini: generate content for session %s failed: %v", sessionID, err)
			return
		}
		content := firstContent(rsp)
		if content == nil {
			log.Warnf("gemini: empty response for session %s", sessionID)
			return
		}
		select {
		case ch <- event.New(invocationID, r.opts.agentName, content):
		case <-ctx.Done():
		}
	}()
	return ch, nil
}

// buildContents turns the history into alternating user and model contents
// followed by message. A trailing user query equal to the message text is
// the message itself, recorded before the turn started.
func buildContents(entries []history.Entry, message *genai.Content) []*genai.Content {
	if n := len(entries); n > 0 {
		last := entries[n-1]
		if last.Action == history.ActionUserQuery && last.Query == contentText(message) {
			entries = entries[:n-1]
		}
	}
	contents := make([]*genai.Content, 0, len(entries)+1)
	for _, e := range entries {
		switch e.Action {
		case history.ActionUserQuery:
			if e.Query != "" {
				contents = append(contents, genai.NewContentFromText(e.Query, genai.RoleUser))
			}
		case history.ActionAgentResponse:
			if e.Response != "" {
				contents = append(contents, genai.NewContentFromText(e.Response, genai.RoleModel))
			}
		}
	}
	if message.Role == "" {
		message = &genai.Content{Role: string(genai.RoleUser), Parts: message.Parts}
	}
	return append(contents, message)
}

func firstContent(rsp *genai.GenerateContentResponse) *genai.Content {
	if rsp == nil || len(rsp.Candidates) == 0 || rsp.Candidates[0] == nil {
		return nil
	}
	content := rsp.Candidates[0].Content
	if content == nil || len(content.Parts) == 0 {
		return nil
	}
	if content.Role == "" {
		content.Role = string(genai.RoleModel)
	}
	return content
}

func contentText(c *genai.Content) string {
	var text string
	for _, p := range c.Parts {
		if p != nil {
			text += p.Text
		}
	}
	return text
}
