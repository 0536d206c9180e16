//
// Tencent is pleased to support the open source community by making whisky-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// whisky-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package local stores eval sets as JSON files under the agent directory.
package local

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"trpc.group/trpc-go/whisky-agent-go/evaluation/epochtime"
	"trpc.group/trpc-go/whisky-agent-go/evaluation/errs"
	"trpc.group/trpc-go/whisky-agent-go/evaluation/evalset"
	"trpc.group/trpc-go/whisky-agent-go/evaluation/internal/jsonfile"
	"trpc.group/trpc-go/whisky-agent-go/log"
)

var (
	_ evalset.Manager  = (*Manager)(nil)
	_ evalset.Migrator = (*Manager)(nil)
)

// Manager implements evalset.Manager backed by the local filesystem.
type Manager struct {
	mu   sync.RWMutex
	opts *evalset.Options
}

// New creates a local file eval set manager.
func New(opt ...evalset.Option) *Manager {
	return &Manager{opts: evalset.NewOptions(opt...)}
}

// Get returns the eval set, converting it in memory when the file uses the
// legacy format.
func (m *Manager) Get(_ context.Context, appName, evalSetID string) (*evalset.EvalSet, error) {
	if err := validate(appName, evalSetID); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	set, _, err := m.load(appName, evalSetID)
	return set, err
}

// Create writes an empty eval set. An existing file is never touched: its set
// is returned, or only its id when the file does not parse.
func (m *Manager) Create(_ context.Context, appName, evalSetID string) (*evalset.EvalSet, error) {
	if err := validate(appName, evalSetID); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	path := m.path(appName, evalSetID)
	if _, err := os.Stat(path); err == nil {
		set, _, err := m.load(appName, evalSetID)
		if err != nil {
			log.Warnf("eval set file %s exists but cannot be read, leaving it as is: %v", path, err)
			return &evalset.EvalSet{EvalSetID: evalSetID, Name: evalSetID, EvalCases: []*evalset.EvalCase{}}, nil
		}
		return set, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("stat eval set file %s: %w", path, err)
	}
	log.Infof("creating eval set file %s", path)
	set := &evalset.EvalSet{
		EvalSetID:         evalSetID,
		Name:              evalSetID,
		EvalCases:         []*evalset.EvalCase{},
		CreationTimestamp: epochtime.New(m.opts.Clock()),
	}
	if err := m.store(appName, evalSetID, set); err != nil {
		return nil, err
	}
	return set, nil
}

// List returns the sorted eval set ids of appName.
func (m *Manager) List(_ context.Context, appName string) ([]string, error) {
	if err := evalset.ValidateAppName(appName); err != nil {
		return nil, err
	}
	ids, err := m.opts.Locator.List(m.opts.BaseDir, appName)
	if err != nil {
		return nil, fmt.Errorf("list eval sets for app %s: %w", appName, err)
	}
	return ids, nil
}

// GetCase returns one case of an eval set.
func (m *Manager) GetCase(_ context.Context, appName, evalSetID, evalCaseID string) (*evalset.EvalCase, error) {
	if err := validate(appName, evalSetID); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	set, _, err := m.load(appName, evalSetID)
	if err != nil {
		return nil, err
	}
	c := set.Case(evalCaseID)
	if c == nil {
		return nil, fmt.Errorf("eval case %s.%s.%s: %w", appName, evalSetID, evalCaseID, errs.ErrNotFound)
	}
	return c, nil
}

// AddCase appends evalCase to an existing set and rewrites the file.
// A case id already present yields errs.ErrDuplicateIdentifier and leaves
// the set unchanged.
func (m *Manager) AddCase(_ context.Context, appName, evalSetID string, evalCase *evalset.EvalCase) error {
	if err := validate(appName, evalSetID); err != nil {
		return err
	}
	if evalCase == nil {
		return errors.New("eval case is nil")
	}
	if err := evalset.ValidateID(evalCase.EvalID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	set, _, err := m.load(appName, evalSetID)
	if err != nil {
		return err
	}
	if set.Case(evalCase.EvalID) != nil {
		return fmt.Errorf("eval id %s already exists in eval set %s: %w",
			evalCase.EvalID, evalSetID, errs.ErrDuplicateIdentifier)
	}
	cloned, err := m.stamped(evalCase)
	if err != nil {
		return err
	}
	set.EvalCases = append(set.EvalCases, cloned)
	return m.store(appName, evalSetID, set)
}

// UpdateCase replaces the case with the same id.
func (m *Manager) UpdateCase(_ context.Context, appName, evalSetID string, evalCase *evalset.EvalCase) error {
	if err := validate(appName, evalSetID); err != nil {
		return err
	}
	if evalCase == nil {
		return errors.New("eval case is nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	set, _, err := m.load(appName, evalSetID)
	if err != nil {
		return err
	}
	for i, c := range set.EvalCases {
		if c.EvalID != evalCase.EvalID {
			continue
		}
		cloned, err := m.stamped(evalCase)
		if err != nil {
			return err
		}
		set.EvalCases[i] = cloned
		return m.store(appName, evalSetID, set)
	}
	return fmt.Errorf("eval case %s.%s.%s: %w", appName, evalSetID, evalCase.EvalID, errs.ErrNotFound)
}

// DeleteCase removes a case from the set.
func (m *Manager) DeleteCase(_ context.Context, appName, evalSetID, evalCaseID string) error {
	if err := validate(appName, evalSetID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	set, _, err := m.load(appName, evalSetID)
	if err != nil {
		return err
	}
	for i, c := range set.EvalCases {
		if c.EvalID == evalCaseID {
			set.EvalCases = append(set.EvalCases[:i], set.EvalCases[i+1:]...)
			return m.store(appName, evalSetID, set)
		}
	}
	return fmt.Errorf("eval case %s.%s.%s: %w", appName, evalSetID, evalCaseID, errs.ErrNotFound)
}

// Migrate rewrites a legacy eval set file in the current format. Files
// already in the current format are left untouched.
func (m *Manager) Migrate(_ context.Context, appName, evalSetID string) (*evalset.EvalSet, error) {
	if err := validate(appName, evalSetID); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	set, legacy, err := m.load(appName, evalSetID)
	if err != nil {
		return nil, err
	}
	if legacy {
		log.Infof("migrating legacy eval set %s.%s", appName, evalSetID)
		if err := m.store(appName, evalSetID, set); err != nil {
			return nil, err
		}
	}
	return set, nil
}

func (m *Manager) stamped(evalCase *evalset.EvalCase) (*evalset.EvalCase, error) {
	cloned, err := evalCase.Clone()
	if err != nil {
		return nil, fmt.Errorf("clone eval case %s: %w", evalCase.EvalID, err)
	}
	now := m.opts.Clock()
	if cloned.CreationTimestamp == nil {
		cloned.CreationTimestamp = epochtime.New(now)
	}
	for _, inv := range cloned.Conversation {
		if inv != nil && inv.CreationTimestamp == nil {
			inv.CreationTimestamp = epochtime.New(now)
		}
	}
	return cloned, nil
}

func (m *Manager) path(appName, evalSetID string) string {
	return m.opts.Locator.Build(m.opts.BaseDir, appName, evalSetID)
}

func (m *Manager) load(appName, evalSetID string) (*evalset.EvalSet, bool, error) {
	path := m.path(appName, evalSetID)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, fmt.Errorf("eval set %s.%s: %w", appName, evalSetID, errs.ErrNotFound)
		}
		return nil, false, fmt.Errorf("read file %s: %w", path, err)
	}
	set, legacy, err := evalset.Parse(evalSetID, data, m.opts.Clock())
	if err != nil {
		log.Errorf("eval set file %s matches no known format: %v", path, err)
		return nil, false, fmt.Errorf("parse file %s: %w", path, err)
	}
	return set, legacy, nil
}

func (m *Manager) store(appName, evalSetID string, set *evalset.EvalSet) error {
	path := m.path(appName, evalSetID)
	if err := jsonfile.Write(path, set); err != nil {
		return fmt.Errorf("store eval set %s.%s: %w", appName, evalSetID, err)
	}
	return nil
}

func validate(appName, evalSetID string) error {
	if err := evalset.ValidateAppName(appName); err != nil {
		return err
	}
	return evalset.ValidateID(evalSetID)
}
