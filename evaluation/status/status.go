//
// Tencent is pleased to support the open source community by making whisky-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// whisky-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package status defines the outcome of an evaluation.
package status

// EvalStatus is the outcome of a metric, an invocation or a whole eval case.
// It is stored as an integer.
type EvalStatus int

const (
	// EvalStatusUnknown represents an unknown evaluation status.
	EvalStatusUnknown EvalStatus = iota
	// EvalStatusPassed represents a passed evaluation status.
	EvalStatusPassed
	// EvalStatusFailed represents a failed evaluation status.
	EvalStatusFailed
	// EvalStatusNotEvaluated represents a not evaluated evaluation status.
	EvalStatusNotEvaluated
)

// String returns the lowercase name of the status.
func (s EvalStatus) String() string {
	switch s {
	case EvalStatusPassed:
		return "passed"
	case EvalStatusFailed:
		return "failed"
	case EvalStatusNotEvaluated:
		return "not_evaluated"
	default:
		return "unknown"
	}
}

// FromScore passes a score that reaches the threshold.
func FromScore(score, threshold float64) EvalStatus {
	if score >= threshold {
		return EvalStatusPassed
	}
	return EvalStatusFailed
}

// Combine folds the statuses of several metrics into one: any failure fails,
// otherwise any pass passes, otherwise the case was not evaluated.
func Combine(statuses ...EvalStatus) EvalStatus {
	result := EvalStatusNotEvaluated
	for _, s := range statuses {
		switch s {
		case EvalStatusFailed:
			return EvalStatusFailed
		case EvalStatusPassed:
			result = EvalStatusPassed
		}
	}
	return result
}
