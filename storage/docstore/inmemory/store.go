//
// Tencent is pleased to support the open source community by making whisky-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// whisky-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package inmemory provides a map backed docstore.Store.
package inmemory

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	"trpc.group/trpc-go/whisky-agent-go/storage/docstore"
)

var _ docstore.Store = (*Store)(nil)

// Store keeps documents in memory. Documents are copied on every read and write.
type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]any
	now         func() time.Time
}

// Option configures the Store.
type Option func(*Store)

// WithClock replaces the clock used for docstore.ServerTimestamp.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		collections: make(map[string]map[string]map[string]any),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get implements docstore.Store.
func (s *Store) Get(ctx context.Context, collection, id string) (*docstore.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fields, ok := s.collections[collection][id]
	if !ok {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, docstore.ErrNotFound)
	}
	return &docstore.Document{ID: id, Fields: docstore.CloneFields(fields)}, nil
}

// SetMerge implements docstore.Store.
func (s *Store) SetMerge(ctx context.Context, collection, id string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	coll, ok := s.collections[collection]
	if !ok {
		coll = make(map[string]map[string]any)
		s.collections[collection] = coll
	}
	coll[id] = docstore.Merge(coll[id], fields, s.now())
	return nil
}

// Find implements docstore.Store. Documents are returned in id order.
func (s *Store) Find(ctx context.Context, collection, field string, value any) ([]*docstore.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var docs []*docstore.Document
	for id, fields := range s.collections[collection] {
		if v, ok := fields[field]; ok && reflect.DeepEqual(v, value) {
			docs = append(docs, &docstore.Document{ID: id, Fields: docstore.CloneFields(fields)})
		}
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

// Distinct implements docstore.Store.
func (s *Store) Distinct(ctx context.Context, collection, field string) ([]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var values []any
	for _, fields := range s.collections[collection] {
		v, ok := fields[field]
		if !ok {
			continue
		}
		dup := false
		for _, seen := range values {
			if reflect.DeepEqual(seen, v) {
				dup = true
				break
			}
		}
		if !dup {
			values = append(values, docstore.CloneValue(v))
		}
	}
	return values, nil
}

// Close implements docstore.Store.
func (s *Store) Close(ctx context.Context) error {
	return nil
}
