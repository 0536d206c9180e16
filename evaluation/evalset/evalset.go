//
// Tencent is pleased to support the open source community by making whisky-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// whisky-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package evalset defines eval sets, the recorded conversations agents are
// evaluated against, and the interface to store them.
package evalset

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"trpc.group/trpc-go/whisky-agent-go/evaluation/epochtime"
	"trpc.group/trpc-go/whisky-agent-go/evaluation/errs"
)

// EvalSet is a named collection of eval cases.
type EvalSet struct {
	// EvalSetID uniquely identifies this evaluation set.
	EvalSetID string `json:"eval_set_id"`
	// Name of the evaluation set.
	Name string `json:"name,omitempty"`
	// Description of the evaluation set.
	Description string `json:"description,omitempty"`
	// EvalCases contains all the evaluation cases.
	EvalCases []*EvalCase `json:"eval_cases"`
	// CreationTimestamp when this eval set was created.
	CreationTimestamp *epochtime.EpochTime `json:"creation_timestamp,omitempty"`
}

// Case returns the eval case with evalID, or nil.
func (s *EvalSet) Case(evalID string) *EvalCase {
	for _, c := range s.EvalCases {
		if c != nil && c.EvalID == evalID {
			return c
		}
	}
	return nil
}

// Manager stores eval sets per app.
type Manager interface {
	// Get returns an EvalSet identified by evalSetID.
	Get(ctx context.Context, appName, evalSetID string) (*EvalSet, error)
	// Create creates an empty EvalSet, or returns the stored one when it exists.
	Create(ctx context.Context, appName, evalSetID string) (*EvalSet, error)
	// List returns the sorted eval set ids of the app.
	List(ctx context.Context, appName string) ([]string, error)
	// GetCase returns an EvalCase of an EvalSet.
	GetCase(ctx context.Context, appName, evalSetID, evalCaseID string) (*EvalCase, error)
	// AddCase adds the given EvalCase to an existing EvalSet identified by evalSetID.
	AddCase(ctx context.Context, appName, evalSetID string, evalCase *EvalCase) error
	// UpdateCase replaces an existing EvalCase given the evalSetID.
	UpdateCase(ctx context.Context, appName, evalSetID string, updatedEvalCase *EvalCase) error
	// DeleteCase deletes the given EvalCase identified by evalSetID and evalCaseID.
	DeleteCase(ctx context.Context, appName, evalSetID, evalCaseID string) error
}

// Migrator rewrites a stored eval set in the current schema.
type Migrator interface {
	// Migrate loads the eval set, converting it when stored in the legacy
	// format, and stores it back in the current format.
	Migrate(ctx context.Context, appName, evalSetID string) (*EvalSet, error)
}

var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// ValidateID checks an eval set or eval case id.
func ValidateID(id string) error {
	if !idPattern.MatchString(id) {
		return fmt.Errorf("%w: %q must match %s", errs.ErrInvalidIdentifier, id, idPattern.String())
	}
	return nil
}

// ValidateAppName rejects empty app names and names that escape the agent
// directory.
func ValidateAppName(appName string) error {
	if appName == "" || appName == "." || appName == ".." || strings.ContainsAny(appName, `/\`) {
		return fmt.Errorf("%w: app name %q", errs.ErrInvalidIdentifier, appName)
	}
	return nil
}
