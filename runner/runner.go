//
// Tencent is pleased to support the open source community by making whisky-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// whisky-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package runner defines the agent runner the conversation layer drives.
package runner

import (
	"context"

	"google.golang.org/genai"
	"trpc.group/trpc-go/whisky-agent-go/event"
)

// Runner runs the agent for one user message in a session.
type Runner interface {
	// Run starts a turn and returns the events it produces. The channel is
	// closed when the turn ends.
	Run(ctx context.Context, userID, sessionID string, message *genai.Content) (<-chan *event.Event, error)
}

// Func adapts a function to Runner.
type Func func(ctx context.Context, userID, sessionID string, message *genai.Content) (<-chan *event.Event, error)

// Run implements Runner.
func (f Func) Run(ctx context.Context, userID, sessionID string, message *genai.Content) (<-chan *event.Event, error) {
	return f(ctx, userID, sessionID, message)
}

// Drain reads every event of ch until it closes or ctx ends.
func Drain(ctx context.Context, ch <-chan *event.Event) ([]*event.Event, error) {
	var events []*event.Event
	for {
		select {
		case e, ok := <-ch:
			if !ok {
				return events, nil
			}
			if e != nil {
				events = append(events, e)
			}
		case <-ctx.Done():
			return events, ctx.Err()
		}
	}
}
