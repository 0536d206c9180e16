//
// Tencent is pleased to support the open source community by making whisky-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// whisky-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package registry resolves metric names to evaluators.
package registry

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"trpc.group/trpc-go/whisky-agent-go/evaluation/errs"
	"trpc.group/trpc-go/whisky-agent-go/evaluation/evaluator"
	"trpc.group/trpc-go/whisky-agent-go/evaluation/evaluator/response"
	"trpc.group/trpc-go/whisky-agent-go/evaluation/evaluator/tooltrajectory"
)

var (
	errNilEvaluator = errors.New("registry: evaluator is nil")
	errUnnamed      = errors.New("registry: evaluator has no name")
)

// Registry is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]evaluator.Evaluator
}

// New returns a registry with the tool trajectory and response match
// evaluators, followed by extra. A later evaluator wins on a name clash.
func New(extra ...evaluator.Evaluator) *Registry {
	r := &Registry{byName: map[string]evaluator.Evaluator{}}
	builtin := []evaluator.Evaluator{tooltrajectory.New(), response.New()}
	for _, e := range append(builtin, extra...) {
		if e != nil && e.Name() != "" {
			r.byName[e.Name()] = e
		}
	}
	return r
}

// Register adds e under its own name and every alias, replacing any
// previous holder of those names.
func (r *Registry) Register(e evaluator.Evaluator, aliases ...string) error {
	if e == nil {
		return errNilEvaluator
	}
	if e.Name() == "" {
		return errUnnamed
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName[e.Name()] = e
	for _, a := range aliases {
		if a != "" {
			r.byName[a] = e
		}
	}
	return nil
}

// Get looks up the evaluator for metric.
func (r *Registry) Get(metric string) (evaluator.Evaluator, error) {
	r.mu.RLock()
	e, ok := r.byName[metric]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("evaluator %s: %w", metric, errs.ErrNotFound)
	}
	return e, nil
}

// Names lists the registered metric names in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName))
	for n := range r.byName {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}
