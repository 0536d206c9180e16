//
// Tencent is pleased to support the open source community by making whisky-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// whisky-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package docstore defines the document store used as the durable mirror of
// sessions and whisky records.
package docstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when the document does not exist.
var ErrNotFound = errors.New("docstore: document not found")

type serverTimestamp struct{}

// ServerTimestamp is a field value that the store replaces with its own clock
// at write time.
var ServerTimestamp any = serverTimestamp{}

// IsServerTimestamp reports whether v is the ServerTimestamp sentinel.
func IsServerTimestamp(v any) bool {
	_, ok := v.(serverTimestamp)
	return ok
}

// Document is a stored document.
type Document struct {
	// ID is the document id within its collection.
	ID string
	// Fields holds the document content as plain maps, slices and scalars.
	Fields map[string]any
}

// Store is a document store with set-with-merge writes.
// Every call is atomic at the document level only.
type Store interface {
	// Get returns the document or ErrNotFound.
	Get(ctx context.Context, collection, id string) (*Document, error)
	// SetMerge upserts the document. Nested maps in fields are merged into the
	// stored ones; any other value replaces the stored value.
	SetMerge(ctx context.Context, collection, id string, fields map[string]any) error
	// Find returns the documents whose top level field equals value.
	Find(ctx context.Context, collection, field string, value any) ([]*Document, error)
	// Distinct returns the distinct values of a top level field.
	Distinct(ctx context.Context, collection, field string) ([]any, error)
	// Close releases the store.
	Close(ctx context.Context) error
}

// Merge merges src into dst following the SetMerge rules and returns dst.
// ServerTimestamp values are replaced by now. Values are copied.
func Merge(dst, src map[string]any, now time.Time) map[string]any {
	if dst == nil {
		dst = make(map[string]any, len(src))
	}
	for k, v := range src {
		if IsServerTimestamp(v) {
			dst[k] = now
			continue
		}
		nested, ok := v.(map[string]any)
		if !ok {
			dst[k] = CloneValue(v)
			continue
		}
		existing, _ := dst[k].(map[string]any)
		dst[k] = Merge(existing, nested, now)
	}
	return dst
}

// CloneFields deep copies a field map.
func CloneFields(fields map[string]any) map[string]any {
	if fields == nil {
		return nil
	}
	out, _ := CloneValue(fields).(map[string]any)
	return out
}

// CloneValue deep copies maps and slices of JSON shaped values.
func CloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(val))
		for k, item := range val {
			m[k] = CloneValue(item)
		}
		return m
	case []any:
		s := make([]any, len(val))
		for i, item := range val {
			s[i] = CloneValue(item)
		}
		return s
	default:
		return v
	}
}
