//
// Tencent is pleased to support the open source community by making whisky-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// whisky-agent-go is licensed under the Apache License Version 2.0.
//
//

package history

import (
	"time"

	"trpc.group/trpc-go/whisky-agent-go/statecache"
)

const (
	defaultMirrorWorkers   = 4
	defaultMirrorQueueSize = 256
	defaultShutdownGrace   = 5 * time.Second
)

type options struct {
	mirror            Mirror
	cache             statecache.Cache
	mirrorWorkers     int
	mirrorQueueSize   int
	shutdownGrace     time.Duration
	serializedAppends bool
	now               func() time.Time
}

func defaultOptions() options {
	return options{
		mirrorWorkers:   defaultMirrorWorkers,
		mirrorQueueSize: defaultMirrorQueueSize,
		shutdownGrace:   defaultShutdownGrace,
		now:             time.Now,
	}
}

// Option configures the Recorder.
type Option func(*options)

// WithMirror writes every updated state to m in the background.
func WithMirror(m Mirror) Option {
	return func(o *options) {
		o.mirror = m
	}
}

// WithStateCache refreshes c with every updated state.
func WithStateCache(c statecache.Cache) Option {
	return func(o *options) {
		o.cache = c
	}
}

// WithMirrorWorkers sets the number of background mirror writers.
func WithMirrorWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.mirrorWorkers = n
		}
	}
}

// WithMirrorQueueSize sets the queue length of every mirror writer. A write
// that finds its queue full runs synchronously.
func WithMirrorQueueSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.mirrorQueueSize = n
		}
	}
}

// WithShutdownGrace bounds how long Close waits for pending mirror writes.
func WithShutdownGrace(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.shutdownGrace = d
		}
	}
}

// WithSerializedAppends serializes Append calls on the same session so
// concurrent turns cannot drop each other's entries.
func WithSerializedAppends(enabled bool) Option {
	return func(o *options) {
		o.serializedAppends = enabled
	}
}

// WithClock replaces the clock used for entry timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}
