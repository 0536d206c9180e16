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
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"
	"trpc.group/trpc-go/whisky-agent-go/evaluation/epochtime"
	"trpc.group/trpc-go/whisky-agent-go/evaluation/evalset"
	"trpc.group/trpc-go/whisky-agent-go/history"
	"trpc.group/trpc-go/whisky-agent-go/session"
)

// CaseFromSession turns a recorded session into an eval case. Session
// events are used when present, otherwise the interaction history. The case
// starts from an empty state of the session's app and user.
func CaseFromSession(evalID string, sess *session.Session) *evalset.EvalCase {
	conversation := invocationsFromEvents(sess)
	if len(conversation) == 0 {
		conversation = invocationsFromHistory(sess)
	}
	return &evalset.EvalCase{
		EvalID:       evalID,
		Conversation: conversation,
		SessionInput: &evalset.SessionInput{
			AppName: sess.AppName,
			UserID:  sess.UserID,
			State:   map[string]any{},
		},
		CreationTimestamp: epochtime.New(time.Now()),
	}
}

func invocationsFromEvents(sess *session.Session) []*evalset.Invocation {
	invocations := []*evalset.Invocation{}
	var cur *evalset.Invocation
	for i := range sess.Events {
		ev := &sess.Events[i]
		if ev.Content == nil {
			continue
		}
		if ev.Author == string(genai.RoleUser) {
			if cur != nil {
				invocations = append(invocations, cur)
			}
			cur = &evalset.Invocation{
				InvocationID: ev.InvocationID,
				UserContent:  ev.Content,
				IntermediateData: &evalset.IntermediateData{
					ToolUses:              []*genai.FunctionCall{},
					IntermediateResponses: []*evalset.IntermediateResponse{},
				},
				CreationTimestamp: epochtime.New(ev.Timestamp),
			}
			continue
		}
		if cur == nil {
			continue
		}
		if ev.IsFinalResponse() {
			cur.FinalResponse = ev.Content
			continue
		}
		cur.IntermediateData.ToolUses = append(cur.IntermediateData.ToolUses, ev.FunctionCalls()...)
		if text := textParts(ev.Content); len(text) > 0 {
			cur.IntermediateData.IntermediateResponses = append(cur.IntermediateData.IntermediateResponses,
				&evalset.IntermediateResponse{Author: ev.Author, Parts: text})
		}
	}
	if cur != nil {
		invocations = append(invocations, cur)
	}
	return invocations
}

func invocationsFromHistory(sess *session.Session) []*evalset.Invocation {
	invocations := []*evalset.Invocation{}
	var cur *evalset.Invocation
	for _, entry := range history.Entries(sess.State) {
		switch entry.Action {
		case history.ActionUserQuery:
			if cur != nil {
				invocations = append(invocations, cur)
			}
			cur = &evalset.Invocation{
				InvocationID: uuid.NewString(),
				UserContent:  genai.NewContentFromText(entry.Query, genai.RoleUser),
				IntermediateData: &evalset.IntermediateData{
					ToolUses:              []*genai.FunctionCall{},
					IntermediateResponses: []*evalset.IntermediateResponse{},
				},
				CreationTimestamp: historyTimestamp(entry.Timestamp),
			}
		case history.ActionAgentResponse:
			if cur != nil {
				cur.FinalResponse = genai.NewContentFromText(entry.Response, genai.RoleModel)
			}
		}
	}
	if cur != nil {
		invocations = append(invocations, cur)
	}
	return invocations
}

func historyTimestamp(s string) *epochtime.EpochTime {
	t, err := time.ParseInLocation(history.TimestampLayout, s, time.Local)
	if err != nil {
		return epochtime.New(time.Now())
	}
	return epochtime.New(t)
}
