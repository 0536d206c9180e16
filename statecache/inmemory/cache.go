//
// Tencent is pleased to support the open source community by making whisky-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// whisky-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package inmemory provides a process local statecache.Cache.
package inmemory

import (
	"context"
	"sync"

	"trpc.group/trpc-go/whisky-agent-go/statecache"
	"trpc.group/trpc-go/whisky-agent-go/storage/docstore"
)

var _ statecache.Cache = (*Cache)(nil)

// Cache is a map guarded by a RWMutex. Values are copied in and out.
type Cache struct {
	mu     sync.RWMutex
	states map[string]map[string]any
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{states: make(map[string]map[string]any)}
}

// Get implements statecache.Cache.
func (c *Cache) Get(ctx context.Context, userID string) (map[string]any, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	state, ok := c.states[userID]
	if !ok {
		return nil, false, nil
	}
	return docstore.CloneFields(state), true, nil
}

// Set implements statecache.Cache.
func (c *Cache) Set(ctx context.Context, userID string, state map[string]any) error {
	copied := docstore.CloneFields(state)
	if copied == nil {
		copied = map[string]any{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states[userID] = copied
	return nil
}

// Delete implements statecache.Cache.
func (c *Cache) Delete(ctx context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.states, userID)
	return nil
}
