//
// Tencent is pleased to support the open source community by making whisky-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// whisky-agent-go is licensed under the Apache License Version 2.0.
//
//

package evalset

import "time"

const defaultBaseDir = "."

// Options configures an eval set manager.
type Options struct {
	// BaseDir is the agent directory holding one sub directory per app.
	BaseDir string
	// Locator maps eval set ids to files.
	Locator Locator
	// Clock stamps created sets and cases.
	Clock func() time.Time
}

// Option configures Options.
type Option func(*Options)

// NewOptions applies opts over the defaults.
func NewOptions(opts ...Option) *Options {
	o := &Options{
		BaseDir: defaultBaseDir,
		Locator: locator{},
		Clock:   time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithBaseDir sets the agent directory.
func WithBaseDir(dir string) Option {
	return func(o *Options) {
		o.BaseDir = dir
	}
}

// WithLocator replaces the file locator.
func WithLocator(l Locator) Option {
	return func(o *Options) {
		if l != nil {
			o.Locator = l
		}
	}
}

// WithClock replaces time.Now.
func WithClock(clock func() time.Time) Option {
	return func(o *Options) {
		if clock != nil {
			o.Clock = clock
		}
	}
}
