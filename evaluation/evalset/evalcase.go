//
// Tencent is pleased to support the open source community by making whisky-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// whisky-agent-go is licensed under the Apache License Version 2.0.
//
//

package evalset

import (
	"encoding/json"
	"fmt"

	"google.golang.org/genai"
	"trpc.group/trpc-go/whisky-agent-go/evaluation/epochtime"
)

// EvalCase is one recorded conversation and the state it starts from.
type EvalCase struct {
	// EvalID uniquely identifies this evaluation case.
	EvalID string `json:"eval_id"`
	// Conversation contains the sequence of invocations.
	Conversation []*Invocation `json:"conversation"`
	// SessionInput contains initialization data for the session.
	SessionInput *SessionInput `json:"session_input"`
	// CreationTimestamp when this eval case was created.
	CreationTimestamp *epochtime.EpochTime `json:"creation_timestamp,omitempty"`
}

// Clone returns a deep copy of the case.
func (c *EvalCase) Clone() (*EvalCase, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal eval case: %w", err)
	}
	var copied EvalCase
	if err := json.Unmarshal(data, &copied); err != nil {
		return nil, fmt.Errorf("unmarshal eval case: %w", err)
	}
	return &copied, nil
}

// Invocation is one user message with the expected agent behaviour.
type Invocation struct {
	// InvocationID uniquely identifies this invocation.
	InvocationID string `json:"invocation_id"`
	// UserContent represents the user's input.
	UserContent *genai.Content `json:"user_content"`
	// FinalResponse represents the agent's final response.
	FinalResponse *genai.Content `json:"final_response,omitempty"`
	// IntermediateData contains intermediate steps during execution.
	IntermediateData *IntermediateData `json:"intermediate_data,omitempty"`
	// CreationTimestamp when this invocation was created.
	CreationTimestamp *epochtime.EpochTime `json:"creation_timestamp,omitempty"`
}

// IntermediateData holds the tool calls and agent messages produced before
// the final response.
type IntermediateData struct {
	// ToolUses are the function calls in call order.
	ToolUses []*genai.FunctionCall `json:"tool_uses"`
	// IntermediateResponses are the texts emitted by sub agents.
	IntermediateResponses []*IntermediateResponse `json:"intermediate_responses"`
}

// IntermediateResponse is a message emitted by Author. It is stored as the
// two element array [author, parts].
type IntermediateResponse struct {
	Author string
	Parts  []*genai.Part
}

// MarshalJSON implements json.Marshaler.
func (r IntermediateResponse) MarshalJSON() ([]byte, error) {
	parts := r.Parts
	if parts == nil {
		parts = []*genai.Part{}
	}
	return json.Marshal([]any{r.Author, parts})
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *IntermediateResponse) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("intermediate response: %w", err)
	}
	if len(raw) != 2 {
		return fmt.Errorf("intermediate response: want [author, parts], got %d elements", len(raw))
	}
	if err := json.Unmarshal(raw[0], &r.Author); err != nil {
		return fmt.Errorf("intermediate response author: %w", err)
	}
	if err := json.Unmarshal(raw[1], &r.Parts); err != nil {
		return fmt.Errorf("intermediate response parts: %w", err)
	}
	return nil
}

// Text joins the text parts of the response.
func (r *IntermediateResponse) Text() string {
	var text string
	for _, p := range r.Parts {
		if p != nil {
			text += p.Text
		}
	}
	return text
}

// SessionInput is the session an eval case starts from.
type SessionInput struct {
	// AppName identifies the app.
	AppName string `json:"app_name"`
	// UserID identifies the user.
	UserID string `json:"user_id"`
	// State contains the initial state of the session.
	State map[string]any `json:"state"`
}
