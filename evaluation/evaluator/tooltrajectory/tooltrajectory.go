//
// Tencent is pleased to support the open source community by making whisky-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// whisky-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package tooltrajectory scores whether an agent called exactly the expected
// tools with exactly the expected arguments.
package tooltrajectory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/genai"
	"trpc.group/trpc-go/whisky-agent-go/evaluation/evalset"
	"trpc.group/trpc-go/whisky-agent-go/evaluation/evaluator"
	"trpc.group/trpc-go/whisky-agent-go/evaluation/metric"
	"trpc.group/trpc-go/whisky-agent-go/evaluation/status"
)

type toolTrajectoryEvaluator struct{}

// New creates a tool trajectory evaluator.
func New() evaluator.Evaluator {
	return &toolTrajectoryEvaluator{}
}

// Name returns the name of this evaluator.
func (e *toolTrajectoryEvaluator) Name() string {
	return metric.ToolTrajectoryAvgScore
}

// Description returns a description of what this evaluator does.
func (e *toolTrajectoryEvaluator) Description() string {
	return "Evaluates the tool call sequence and arguments of every invocation"
}

// Evaluate scores 1 for an invocation whose tool calls equal the expected
// ones in order, name and arguments, 0 otherwise.
func (e *toolTrajectoryEvaluator) Evaluate(_ context.Context, actuals, expecteds []*evalset.Invocation,
	evalMetric *metric.EvalMetric) (*evaluator.EvaluateResult, error) {
	if evalMetric == nil {
		return nil, errors.New("tooltrajectory: eval metric is nil")
	}
	if len(actuals) != len(expecteds) {
		return nil, fmt.Errorf("tooltrajectory: actual invocations (%d) and expected invocations (%d) count mismatch",
			len(actuals), len(expecteds))
	}
	perInvocation := make([]evaluator.PerInvocationResult, 0, len(actuals))
	for i := range actuals {
		score := 0.0
		if Match(toolUses(actuals[i]), toolUses(expecteds[i])) {
			score = 1.0
		}
		perInvocation = append(perInvocation, evaluator.PerInvocationResult{
			ActualInvocation:   actuals[i],
			ExpectedInvocation: expecteds[i],
			Score:              score,
			Status:             status.FromScore(score, evalMetric.Threshold),
		})
	}
	return evaluator.Aggregate(perInvocation, evalMetric.Threshold), nil
}

// Match reports whether two call sequences have the same length and the same
// name and arguments at every position. Call ids are ignored.
func Match(actual, expected []*genai.FunctionCall) bool {
	if len(actual) != len(expected) {
		return false
	}
	for i := range actual {
		a, x := actual[i], expected[i]
		if a == nil || x == nil {
			if a != x {
				return false
			}
			continue
		}
		if a.Name != x.Name || !argsEqual(a.Args, x.Args) {
			return false
		}
	}
	return true
}

func toolUses(inv *evalset.Invocation) []*genai.FunctionCall {
	if inv == nil || inv.IntermediateData == nil {
		return nil
	}
	return inv.IntermediateData.ToolUses
}

// argsEqual compares arguments by their JSON encoding so that numbers decoded
// from files compare equal to numbers produced in memory.
func argsEqual(a, b map[string]any) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(ja, jb)
}
