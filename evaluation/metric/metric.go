//
// Tencent is pleased to support the open source community by making whisky-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// whisky-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package metric names the metrics an eval run scores.
package metric

const (
	// ToolTrajectoryAvgScore scores exact tool call trajectories.
	ToolTrajectoryAvgScore = "tool_trajectory_avg_score"
	// ResponseMatchScore scores final responses by ROUGE-1 F1.
	ResponseMatchScore = "response_match_score"
)

// EvalMetric is a metric with the threshold a score must reach to pass.
type EvalMetric struct {
	MetricName string  `json:"metric_name"`
	Threshold  float64 `json:"threshold"`
}

// DefaultMetrics returns the metrics applied when a run names none.
func DefaultMetrics() []*EvalMetric {
	return []*EvalMetric{
		{MetricName: ToolTrajectoryAvgScore, Threshold: 1.0},
		{MetricName: ResponseMatchScore, Threshold: 0.8},
	}
}
