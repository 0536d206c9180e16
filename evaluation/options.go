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
	"context"

	"github.com/google/uuid"
	"trpc.group/trpc-go/whisky-agent-go/evaluation/evaluator/registry"
	"trpc.group/trpc-go/whisky-agent-go/evaluation/metric"
	"trpc.group/trpc-go/whisky-agent-go/session"
)

const (
	defaultParallelism = 4
	defaultEvalUserID  = "eval_user"
)

// SessionIDSupplier returns the id of a fresh eval session.
type SessionIDSupplier func(ctx context.Context) string

type options struct {
	parallelism       int
	registry          *registry.Registry
	metrics           []*metric.EvalMetric
	sessionIDSupplier SessionIDSupplier
	defaultUserID     string
}

func defaultOptions() options {
	return options{
		parallelism: defaultParallelism,
		registry:    registry.New(),
		metrics:     metric.DefaultMetrics(),
		sessionIDSupplier: func(context.Context) string {
			return session.EvalSessionPrefix + uuid.NewString()
		},
		defaultUserID: defaultEvalUserID,
	}
}

// Option configures an Evaluator.
type Option func(*options)

// WithParallelism sets how many eval cases run at once.
func WithParallelism(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.parallelism = n
		}
	}
}

// WithRegistry replaces the evaluator registry.
func WithRegistry(r *registry.Registry) Option {
	return func(o *options) {
		if r != nil {
			o.registry = r
		}
	}
}

// WithMetrics sets the metrics used when a run names none.
func WithMetrics(metrics ...*metric.EvalMetric) Option {
	return func(o *options) {
		if len(metrics) > 0 {
			o.metrics = metrics
		}
	}
}

// WithSessionIDSupplier replaces the eval session id generator.
func WithSessionIDSupplier(s SessionIDSupplier) Option {
	return func(o *options) {
		if s != nil {
			o.sessionIDSupplier = s
		}
	}
}

// WithDefaultUserID sets the user of cases without session input.
func WithDefaultUserID(userID string) Option {
	return func(o *options) {
		if userID != "" {
			o.defaultUserID = userID
		}
	}
}
