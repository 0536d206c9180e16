//
// Tencent is pleased to support the open source community by making whisky-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// whisky-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package local stores eval set results under {app}/.adk/eval_history.
package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"trpc.group/trpc-go/whisky-agent-go/evaluation/epochtime"
	"trpc.group/trpc-go/whisky-agent-go/evaluation/errs"
	"trpc.group/trpc-go/whisky-agent-go/evaluation/evalresult"
	"trpc.group/trpc-go/whisky-agent-go/evaluation/evalset"
	"trpc.group/trpc-go/whisky-agent-go/evaluation/internal/jsonfile"
	"trpc.group/trpc-go/whisky-agent-go/log"
)

var _ evalresult.Manager = (*Manager)(nil)

// Manager implements evalresult.Manager backed by the local filesystem.
type Manager struct {
	mu   sync.RWMutex
	opts *evalresult.Options
}

// New creates a local file eval result manager.
func New(opt ...evalresult.Option) *Manager {
	return &Manager{opts: evalresult.NewOptions(opt...)}
}

// Save writes a new result file named after the app, the set and the clock.
func (m *Manager) Save(_ context.Context, appName, evalSetID string,
	caseResults []*evalresult.EvalCaseResult) (*evalresult.EvalSetResult, error) {
	if err := evalset.ValidateAppName(appName); err != nil {
		return nil, err
	}
	if err := evalset.ValidateID(evalSetID); err != nil {
		return nil, err
	}
	if caseResults == nil {
		caseResults = []*evalresult.EvalCaseResult{}
	}
	now := m.opts.Clock()
	id := evalresult.ResultID(appName, evalSetID, epochtime.FormatID(now))
	result := &evalresult.EvalSetResult{
		EvalSetResultID:   id,
		EvalSetResultName: id,
		EvalSetID:         evalSetID,
		EvalCaseResults:   caseResults,
		CreationTimestamp: epochtime.New(now),
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	path := m.opts.Locator.Build(m.opts.BaseDir, appName, id)
	if err := jsonfile.Write(path, result); err != nil {
		return nil, fmt.Errorf("store eval set result %s: %w", id, err)
	}
	return result, nil
}

// Get reads a result file. Content that does not decode is logged and
// reported as errs.ErrSchemaMismatch.
func (m *Manager) Get(_ context.Context, appName, evalSetResultID string) (*evalresult.EvalSetResult, error) {
	if err := evalset.ValidateAppName(appName); err != nil {
		return nil, err
	}
	if err := evalresult.ValidateResultID(evalSetResultID); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	path := m.opts.Locator.Build(m.opts.BaseDir, appName, evalSetResultID)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("eval set result %s: %w", evalSetResultID, errs.ErrNotFound)
		}
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}
	var result evalresult.EvalSetResult
	if err := json.Unmarshal(data, &result); err != nil {
		log.Errorf("eval set result file %s does not decode: %v", path, err)
		return nil, fmt.Errorf("decode %s: %w: %v", path, errs.ErrSchemaMismatch, err)
	}
	if result.EvalSetResultID == "" {
		log.Errorf("eval set result file %s has no eval_set_result_id", path)
		return nil, fmt.Errorf("decode %s: %w: missing eval_set_result_id", path, errs.ErrSchemaMismatch)
	}
	if result.EvalCaseResults == nil {
		result.EvalCaseResults = []*evalresult.EvalCaseResult{}
	}
	return &result, nil
}

// List returns the sorted result ids of appName.
func (m *Manager) List(_ context.Context, appName string) ([]string, error) {
	if err := evalset.ValidateAppName(appName); err != nil {
		return nil, err
	}
	ids, err := m.opts.Locator.List(m.opts.BaseDir, appName)
	if err != nil {
		return nil, fmt.Errorf("list eval set results for app %s: %w", appName, err)
	}
	return ids, nil
}
