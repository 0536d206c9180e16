//
// Tencent is pleased to support the open source community by making whisky-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// whisky-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package event defines the events streamed by an agent runner.
package event

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"
)

// Event is one item of the stream produced by a runner for a single turn.
type Event struct {
	// ID uniquely identifies the event.
	ID string `json:"id"`
	// InvocationID groups all events produced for one user message.
	InvocationID string `json:"invocationId,omitempty"`
	// Author is the name of the agent (or "user") that produced the event.
	Author string `json:"author"`
	// Content carries text, function calls or function responses.
	Content *genai.Content `json:"content,omitempty"`
	// Partial marks streaming chunks that will be followed by a complete event.
	Partial bool `json:"partial,omitempty"`
	// StateDelta holds session state keys the event wants to overwrite.
	StateDelta map[string]any `json:"stateDelta,omitempty"`
	// Timestamp is when the event was produced.
	Timestamp time.Time `json:"timestamp"`
}

// New creates an event authored by author.
func New(invocationID, author string, content *genai.Content) *Event {
	return &Event{
		ID:           uuid.New().String(),
		InvocationID: invocationID,
		Author:       author,
		Content:      content,
		Timestamp:    time.Now(),
	}
}

// FunctionCalls returns the function calls carried by the event.
func (e *Event) FunctionCalls() []*genai.FunctionCall {
	if e == nil || e.Content == nil {
		return nil
	}
	var calls []*genai.FunctionCall
	for _, part := range e.Content.Parts {
		if part != nil && part.FunctionCall != nil {
			calls = append(calls, part.FunctionCall)
		}
	}
	return calls
}

// FunctionResponses returns the function responses carried by the event.
func (e *Event) FunctionResponses() []*genai.FunctionResponse {
	if e == nil || e.Content == nil {
		return nil
	}
	var responses []*genai.FunctionResponse
	for _, part := range e.Content.Parts {
		if part != nil && part.FunctionResponse != nil {
			responses = append(responses, part.FunctionResponse)
		}
	}
	return responses
}

// IsFinalResponse reports whether the event is the final answer of its turn:
// a complete event with no pending function call or function response.
func (e *Event) IsFinalResponse() bool {
	if e == nil || e.Partial {
		return false
	}
	return len(e.FunctionCalls()) == 0 && len(e.FunctionResponses()) == 0
}

// Text joins the text parts of the event content, trimmed.
func (e *Event) Text() string {
	if e == nil || e.Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range e.Content.Parts {
		if part == nil || part.Text == "" {
			continue
		}
		sb.WriteString(part.Text)
	}
	return strings.TrimSpace(sb.String())
}
