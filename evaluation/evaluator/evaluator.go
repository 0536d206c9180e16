//
// Tencent is pleased to support the open source community by making whisky-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// whisky-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package evaluator defines how a metric scores actual invocations against
// expected ones.
package evaluator

import (
	"context"

	"trpc.group/trpc-go/whisky-agent-go/evaluation/evalset"
	"trpc.group/trpc-go/whisky-agent-go/evaluation/metric"
	"trpc.group/trpc-go/whisky-agent-go/evaluation/status"
)

// Evaluator scores one metric.
type Evaluator interface {
	// Name returns the metric name the evaluator implements.
	Name() string
	// Description returns a description of what this evaluator does.
	Description() string
	// Evaluate scores actuals against expecteds pairwise.
	Evaluate(ctx context.Context, actuals, expecteds []*evalset.Invocation,
		evalMetric *metric.EvalMetric) (*EvaluateResult, error)
}

// EvaluateResult is the outcome of one metric over a conversation.
type EvaluateResult struct {
	// OverallScore is the mean of the per invocation scores.
	OverallScore float64
	// OverallStatus compares OverallScore with the threshold.
	OverallStatus status.EvalStatus
	// PerInvocationResults holds one entry per invocation pair.
	PerInvocationResults []PerInvocationResult
}

// PerInvocationResult is the score of one invocation pair.
type PerInvocationResult struct {
	ActualInvocation   *evalset.Invocation
	ExpectedInvocation *evalset.Invocation
	Score              float64
	Status             status.EvalStatus
}

// Aggregate averages per invocation results into an EvaluateResult. An empty
// conversation is not evaluated.
func Aggregate(perInvocation []PerInvocationResult, threshold float64) *EvaluateResult {
	if len(perInvocation) == 0 {
		return &EvaluateResult{OverallStatus: status.EvalStatusNotEvaluated}
	}
	var total float64
	for _, r := range perInvocation {
		total += r.Score
	}
	overall := total / float64(len(perInvocation))
	return &EvaluateResult{
		OverallScore:         overall,
		OverallStatus:        status.FromScore(overall, threshold),
		PerInvocationResults: perInvocation,
	}
}
