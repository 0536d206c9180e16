//
// Tencent is pleased to support the open source community by making whisky-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// whisky-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package statecache defines the per-user cache of the latest session state.
// Readers must tolerate stale entries; the session service stays authoritative.
package statecache

import "context"

// Cache stores the latest known session state per user.
type Cache interface {
	// Get returns the cached state and whether it was present.
	Get(ctx context.Context, userID string) (map[string]any, bool, error)
	// Set replaces the cached state of the user.
	Set(ctx context.Context, userID string, state map[string]any) error
	// Delete drops the cached state of the user.
	Delete(ctx context.Context, userID string) error
}
