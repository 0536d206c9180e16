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
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"google.golang.org/genai"
	"trpc.group/trpc-go/whisky-agent-go/evaluation/epochtime"
	"trpc.group/trpc-go/whisky-agent-go/evaluation/errs"
)

// LegacyEvalCase is an eval case of the legacy array format.
type LegacyEvalCase struct {
	Name           string             `json:"name"`
	Data           []LegacyInvocation `json:"data"`
	InitialSession map[string]any     `json:"initial_session,omitempty"`
}

// LegacyInvocation is one query of a legacy eval case.
type LegacyInvocation struct {
	Query                              string                `json:"query"`
	ExpectedToolUse                    []LegacyToolUse       `json:"expected_tool_use"`
	ExpectedIntermediateAgentResponses []LegacyAgentResponse `json:"expected_intermediate_agent_responses,omitempty"`
	Reference                          string                `json:"reference"`
}

// LegacyToolUse is an expected tool call of the legacy format.
type LegacyToolUse struct {
	ToolName  string         `json:"tool_name"`
	ToolInput map[string]any `json:"tool_input"`
}

// LegacyAgentResponse is an expected sub agent message of the legacy format.
type LegacyAgentResponse struct {
	Author string `json:"author"`
	Text   string `json:"text"`
}

// ConvertLegacy converts legacy eval cases into an eval set named evalSetID.
// Every invocation gets a fresh id; all timestamps are now.
func ConvertLegacy(evalSetID string, legacy []LegacyEvalCase, now time.Time) *EvalSet {
	cases := make([]*EvalCase, 0, len(legacy))
	for _, old := range legacy {
		conversation := make([]*Invocation, 0, len(old.Data))
		for _, inv := range old.Data {
			data := &IntermediateData{
				ToolUses:              []*genai.FunctionCall{},
				IntermediateResponses: []*IntermediateResponse{},
			}
			for _, tool := range inv.ExpectedToolUse {
				data.ToolUses = append(data.ToolUses, &genai.FunctionCall{
					Name: tool.ToolName,
					Args: tool.ToolInput,
				})
			}
			for _, resp := range inv.ExpectedIntermediateAgentResponses {
				data.IntermediateResponses = append(data.IntermediateResponses, &IntermediateResponse{
					Author: resp.Author,
					Parts:  []*genai.Part{genai.NewPartFromText(resp.Text)},
				})
			}
			conversation = append(conversation, &Invocation{
				InvocationID:      uuid.New().String(),
				UserContent:       genai.NewContentFromText(inv.Query, genai.RoleUser),
				FinalResponse:     genai.NewContentFromText(inv.Reference, genai.RoleModel),
				IntermediateData:  data,
				CreationTimestamp: epochtime.New(now),
			})
		}
		cases = append(cases, &EvalCase{
			EvalID:            old.Name,
			Conversation:      conversation,
			SessionInput:      legacySessionInput(old.InitialSession),
			CreationTimestamp: epochtime.New(now),
		})
	}
	return &EvalSet{
		EvalSetID:         evalSetID,
		Name:              evalSetID,
		EvalCases:         cases,
		CreationTimestamp: epochtime.New(now),
	}
}

func legacySessionInput(initial map[string]any) *SessionInput {
	if len(initial) == 0 {
		return nil
	}
	in := &SessionInput{State: map[string]any{}}
	in.AppName, _ = initial["app_name"].(string)
	in.UserID, _ = initial["user_id"].(string)
	if state, ok := initial["state"].(map[string]any); ok {
		in.State = state
	}
	return in
}

// Parse decodes an eval set file. The current schema is tried first, then
// the legacy array format. legacy reports whether a conversion happened.
// Content matching neither yields errs.ErrSchemaMismatch.
func Parse(evalSetID string, data []byte, now time.Time) (evalSet *EvalSet, legacy bool, err error) {
	var result *multierror.Error

	currentErr := ValidateCurrent(data)
	if currentErr == nil {
		var set EvalSet
		if err := json.Unmarshal(data, &set); err != nil {
			return nil, false, fmt.Errorf("%w: decode eval set: %v", errs.ErrSchemaMismatch, err)
		}
		if set.EvalCases == nil {
			set.EvalCases = []*EvalCase{}
		}
		return &set, false, nil
	}
	result = multierror.Append(result, fmt.Errorf("current format: %w", currentErr))

	legacyErr := ValidateLegacy(data)
	if legacyErr == nil {
		var cases []LegacyEvalCase
		if err := json.Unmarshal(data, &cases); err != nil {
			legacyErr = err
		} else {
			return ConvertLegacy(evalSetID, cases, now), true, nil
		}
	}
	result = multierror.Append(result, fmt.Errorf("legacy format: %w", legacyErr))
	return nil, false, errors.Join(errs.ErrSchemaMismatch, result.ErrorOrNil())
}
