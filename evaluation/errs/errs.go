//
// Tencent is pleased to support the open source community by making whisky-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// whisky-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package errs holds the errors shared by the evaluation packages.
// Callers match them with errors.Is; returned errors wrap them with context.
package errs

import "errors"

var (
	// ErrInvalidIdentifier is returned for eval set or eval case ids outside [a-zA-Z0-9_].
	ErrInvalidIdentifier = errors.New("invalid identifier")
	// ErrDuplicateIdentifier is returned when an eval case id already exists in its set.
	ErrDuplicateIdentifier = errors.New("duplicate identifier")
	// ErrNotFound is returned when an eval set, eval case or eval result does not exist.
	ErrNotFound = errors.New("not found")
	// ErrSchemaMismatch is returned when stored content matches no known schema.
	ErrSchemaMismatch = errors.New("schema mismatch")
)
