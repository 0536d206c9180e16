//
// Tencent is pleased to support the open source community by making whisky-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// whisky-agent-go is licensed under the Apache License Version 2.0.
//
//

package server

import (
	"trpc.group/trpc-go/whisky-agent-go/evaluation/evalresult"
	"trpc.group/trpc-go/whisky-agent-go/evaluation/metric"
	"trpc.group/trpc-go/whisky-agent-go/evaluation/status"
	"trpc.group/trpc-go/whisky-agent-go/history"
	"trpc.group/trpc-go/whisky-agent-go/mirror"
)

type errorResponse struct {
	Detail string `json:"detail"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// chatRequest carries one user turn. Image is base64 encoded.
type chatRequest struct {
	UserID    string `json:"user_id"`
	Message   string `json:"message"`
	Image     string `json:"image,omitempty"`
	ImageName string `json:"image_name,omitempty"`
	MimeType  string `json:"mime_type,omitempty"`
}

type historyResponse struct {
	History []history.Entry `json:"history"`
}

type clearHistoryResponse struct {
	Message      string `json:"message"`
	NewSessionID string `json:"new_session_id"`
}

type wsError struct {
	Error string `json:"error"`
}

type createSessionRequest struct {
	SessionID string         `json:"session_id,omitempty"`
	State     map[string]any `json:"state,omitempty"`
}

type addSessionRequest struct {
	EvalID    string `json:"eval_id"`
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
}

type runEvalRequest struct {
	EvalIDs     []string             `json:"eval_ids"`
	EvalMetrics []*metric.EvalMetric `json:"eval_metrics"`
}

type runEvalResult struct {
	EvalSetFile                   string                                      `json:"eval_set_file"`
	EvalSetID                     string                                      `json:"eval_set_id"`
	EvalID                        string                                      `json:"eval_id"`
	FinalEvalStatus               status.EvalStatus                           `json:"final_eval_status"`
	OverallEvalMetricResults      []*evalresult.EvalMetricResult              `json:"overall_eval_metric_results"`
	EvalMetricResultPerInvocation []*evalresult.EvalMetricResultPerInvocation `json:"eval_metric_result_per_invocation"`
	ErrorMessage                  string                                      `json:"error_message,omitempty"`
	UserID                        string                                      `json:"user_id"`
	SessionID                     string                                      `json:"session_id"`
}

type recommendationsResponse struct {
	PeerUserID string          `json:"peer_user_id"`
	Records    []mirror.Record `json:"records"`
}
