//
// Tencent is pleased to support the open source community by making whisky-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// whisky-agent-go is licensed under the Apache License Version 2.0.
//
//

package inmemory

import "time"

const defaultCleanupInterval = 5 * time.Minute

type serviceOpts struct {
	// sessionTTL is the idle time after which a session expires. 0 disables expiry.
	sessionTTL time.Duration
	// cleanupInterval is how often expired sessions are purged.
	cleanupInterval time.Duration
	// sessionEventLimit caps the number of events kept per session. 0 keeps all.
	sessionEventLimit int
}

var defaultOptions = serviceOpts{}

// ServiceOpt is the option for the in-memory session service.
type ServiceOpt func(*serviceOpts)

// WithSessionTTL sets the idle TTL of sessions. Reads and writes refresh it.
func WithSessionTTL(ttl time.Duration) ServiceOpt {
	return func(opts *serviceOpts) {
		opts.sessionTTL = ttl
	}
}

// WithCleanupInterval sets the interval of the expired session purge.
// It defaults to 5 minutes when a TTL is configured.
func WithCleanupInterval(interval time.Duration) ServiceOpt {
	return func(opts *serviceOpts) {
		opts.cleanupInterval = interval
	}
}

// WithSessionEventLimit keeps only the latest limit events of every session.
func WithSessionEventLimit(limit int) ServiceOpt {
	return func(opts *serviceOpts) {
		opts.sessionEventLimit = limit
	}
}
