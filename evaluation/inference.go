//
// Tencent is pleased to support the open source community by making whisky-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// whisky-agent-go is licensed under the Apache License Version 2.0.
//
//

package evaluation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/genai"
	"trpc.group/trpc-go/whisky-agent-go/evaluation/evalset"
	"trpc.group/trpc-go/whisky-agent-go/event"
	"trpc.group/trpc-go/whisky-agent-go/runner"
	"trpc.group/trpc-go/whisky-agent-go/session"
)

// infer runs one expected invocation's user message and captures what the
// agent actually did.
func (e *Evaluator) infer(ctx context.Context, key session.Key, expected *evalset.Invocation) (*evalset.Invocation, error) {
	if expected == nil || expected.UserContent == nil {
		return nil, errors.New("invocation has no user content")
	}
	e.recorder.RecordUserQuery(ctx, key, contentText(expected.UserContent))
	ch, err := e.runner.Run(ctx, key.UserID, key.SessionID, expected.UserContent)
	if err != nil {
		return nil, fmt.Errorf("run agent: %w", err)
	}
	events, err := runner.Drain(ctx, ch)
	if err != nil {
		return nil, fmt.Errorf("drain agent events: %w", err)
	}
	actual := invocationFromEvents(expected.UserContent, events)
	if final := actual.FinalResponse; final != nil {
		e.recorder.RecordAgentResponse(ctx, key, finalAuthor(events), contentText(final))
	}
	return actual, nil
}

func invocationFromEvents(userContent *genai.Content, events []*event.Event) *evalset.Invocation {
	inv := &evalset.Invocation{
		InvocationID: uuid.NewString(),
		UserContent:  userContent,
		IntermediateData: &evalset.IntermediateData{
			ToolUses:              []*genai.FunctionCall{},
			IntermediateResponses: []*evalset.IntermediateResponse{},
		},
		CreationTimestamp: now(),
	}
	for _, ev := range events {
		if ev.Content == nil || len(ev.Content.Parts) == 0 {
			continue
		}
		if ev.IsFinalResponse() {
			inv.FinalResponse = ev.Content
			continue
		}
		inv.IntermediateData.ToolUses = append(inv.IntermediateData.ToolUses, ev.FunctionCalls()...)
		if text := textParts(ev.Content); len(text) > 0 && ev.Author != string(genai.RoleUser) {
			inv.IntermediateData.IntermediateResponses = append(inv.IntermediateData.IntermediateResponses,
				&evalset.IntermediateResponse{Author: ev.Author, Parts: text})
		}
	}
	return inv
}

func finalAuthor(events []*event.Event) string {
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].IsFinalResponse() {
			return events[i].Author
		}
	}
	return ""
}

func textParts(c *genai.Content) []*genai.Part {
	var parts []*genai.Part
	for _, p := range c.Parts {
		if p != nil && p.Text != "" && !p.Thought {
			parts = append(parts, p)
		}
	}
	return parts
}

func contentText(c *genai.Content) string {
	if c == nil {
		return ""
	}
	texts := make([]string, 0, len(c.Parts))
	for _, p := range c.Parts {
		if p != nil && p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "\n")
}
