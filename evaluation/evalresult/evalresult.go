//
// Tencent is pleased to support the open source community by making whisky-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// whisky-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package evalresult defines the persisted outcome of eval runs and the
// interface to store them.
package evalresult

import (
	"context"
	"fmt"
	"strings"

	"trpc.group/trpc-go/whisky-agent-go/evaluation/epochtime"
	"trpc.group/trpc-go/whisky-agent-go/evaluation/errs"
	"trpc.group/trpc-go/whisky-agent-go/evaluation/evalset"
	"trpc.group/trpc-go/whisky-agent-go/evaluation/status"
	"trpc.group/trpc-go/whisky-agent-go/session"
)

// EvalSetResult is the outcome of running some or all cases of an eval set.
type EvalSetResult struct {
	EvalSetResultID   string               `json:"eval_set_result_id"`
	EvalSetResultName string               `json:"eval_set_result_name"`
	EvalSetID         string               `json:"eval_set_id"`
	EvalCaseResults   []*EvalCaseResult    `json:"eval_case_results"`
	CreationTimestamp *epochtime.EpochTime `json:"creation_timestamp"`
}

// EvalCaseResult is the outcome of one eval case.
type EvalCaseResult struct {
	EvalSetID string `json:"eval_set_id"`
	EvalID    string `json:"eval_id"`
	// FinalEvalStatus folds the overall status of every metric.
	FinalEvalStatus status.EvalStatus `json:"final_eval_status"`
	// OverallEvalMetricResults holds one result per metric for the whole case.
	OverallEvalMetricResults []*EvalMetricResult `json:"overall_eval_metric_results"`
	// EvalMetricResultPerInvocation pairs actual and expected invocations.
	EvalMetricResultPerInvocation []*EvalMetricResultPerInvocation `json:"eval_metric_result_per_invocation"`
	// ErrorMessage explains why a case could not be replayed.
	ErrorMessage string `json:"error_message,omitempty"`
	// SessionID is the session the case was replayed in.
	SessionID      string           `json:"session_id"`
	SessionDetails *session.Session `json:"session_details,omitempty"`
	UserID         string           `json:"user_id,omitempty"`
}

// EvalMetricResult is the score of one metric.
type EvalMetricResult struct {
	MetricName string            `json:"metric_name"`
	Threshold  float64           `json:"threshold"`
	Score      float64           `json:"score"`
	EvalStatus status.EvalStatus `json:"eval_status"`
}

// EvalMetricResultPerInvocation holds the metric results of one invocation.
type EvalMetricResultPerInvocation struct {
	ActualInvocation   *evalset.Invocation `json:"actual_invocation"`
	ExpectedInvocation *evalset.Invocation `json:"expected_invocation"`
	EvalMetricResults  []*EvalMetricResult `json:"eval_metric_results"`
}

// Manager stores eval set results per app.
type Manager interface {
	// Save records caseResults as a new eval set result. The result id is
	// {appName}_{evalSetID}_{unix seconds}.
	Save(ctx context.Context, appName, evalSetID string, caseResults []*EvalCaseResult) (*EvalSetResult, error)
	// Get returns a stored eval set result.
	Get(ctx context.Context, appName, evalSetResultID string) (*EvalSetResult, error)
	// List returns the sorted result ids of the app.
	List(ctx context.Context, appName string) ([]string, error)
}

// ResultID builds the id of a result recorded at seconds.
func ResultID(appName, evalSetID, seconds string) string {
	return appName + "_" + evalSetID + "_" + seconds
}

// ValidateResultID rejects ids that cannot name a file in the history directory.
func ValidateResultID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("%w: eval set result id %q", errs.ErrInvalidIdentifier, id)
	}
	return nil
}
