//
// Tencent is pleased to support the open source community by making whisky-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// whisky-agent-go is licensed under the Apache License Version 2.0.
//
//

package assistant

import (
	"trpc.group/trpc-go/whisky-agent-go/mirror"
	"trpc.group/trpc-go/whisky-agent-go/statecache"
)

const (
	defaultApology     = "Sorry, I could not come up with a good answer this time."
	defaultImagePrompt = "Please analyse the whisky in this image."
)

type options struct {
	mirror      *mirror.Mirror
	cache       statecache.Cache
	apology     string
	imagePrompt string
}

// Option configures an Assistant.
type Option func(*options)

// WithMirror sets the durable mirror used to restore and save sessions.
func WithMirror(m *mirror.Mirror) Option {
	return func(o *options) {
		o.mirror = m
	}
}

// WithStateCache sets the cache that Reset clears for the user.
func WithStateCache(c statecache.Cache) Option {
	return func(o *options) {
		o.cache = c
	}
}

// WithApology sets the reply used when the runner produces no answer.
func WithApology(text string) Option {
	return func(o *options) {
		if text != "" {
			o.apology = text
		}
	}
}

// WithImagePrompt sets the message sent with an image that has no text.
func WithImagePrompt(text string) Option {
	return func(o *options) {
		if text != "" {
			o.imagePrompt = text
		}
	}
}
