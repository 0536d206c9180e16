//
// Tencent is pleased to support the open source community by making whisky-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// whisky-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package response scores final responses against reference answers by
// ROUGE-1 F1.
package response

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
	"trpc.group/trpc-go/whisky-agent-go/evaluation/evalset"
	"trpc.group/trpc-go/whisky-agent-go/evaluation/evaluator"
	"trpc.group/trpc-go/whisky-agent-go/evaluation/metric"
	"trpc.group/trpc-go/whisky-agent-go/evaluation/status"
)

type responseEvaluator struct{}

// New creates a response match evaluator.
func New() evaluator.Evaluator {
	return &responseEvaluator{}
}

// Name returns the canonical metric name supported by this evaluator.
func (e *responseEvaluator) Name() string { return metric.ResponseMatchScore }

// Description explains what the evaluator measures.
func (e *responseEvaluator) Description() string {
	return "Scores unigram overlap between the final response and the reference"
}

// Evaluate scores every invocation pair by ROUGE-1 F1 of the final response
// texts.
func (e *responseEvaluator) Evaluate(_ context.Context, actuals, expecteds []*evalset.Invocation,
	evalMetric *metric.EvalMetric) (*evaluator.EvaluateResult, error) {
	if evalMetric == nil {
		return nil, errors.New("response: eval metric is nil")
	}
	if len(actuals) != len(expecteds) {
		return nil, fmt.Errorf("response: actual invocations (%d) and expected invocations (%d) count mismatch",
			len(actuals), len(expecteds))
	}
	perInvocation := make([]evaluator.PerInvocationResult, 0, len(actuals))
	for i := range actuals {
		score := Rouge1F1(finalText(expecteds[i]), finalText(actuals[i]))
		perInvocation = append(perInvocation, evaluator.PerInvocationResult{
			ActualInvocation:   actuals[i],
			ExpectedInvocation: expecteds[i],
			Score:              score,
			Status:             status.FromScore(score, evalMetric.Threshold),
		})
	}
	return evaluator.Aggregate(perInvocation, evalMetric.Threshold), nil
}

func finalText(inv *evalset.Invocation) string {
	if inv == nil {
		return ""
	}
	return contentText(inv.FinalResponse)
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
