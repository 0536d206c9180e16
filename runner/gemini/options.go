//
// Tencent is pleased to support the open source community by making whisky-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// whisky-agent-go is licensed under the Apache License Version 2.0.
//
//

package gemini

import "google.golang.org/genai"

const (
	defaultModel             = "gemini-2.0-flash-lite"
	defaultAgentName         = "whisky_agent"
	defaultChannelBufferSize = 16
	defaultInstruction       = "You are a whisky expert. Answer questions about whisky brands, " +
		"tasting notes and prices, and keep the conversation history in mind."
)

type options struct {
	model             string
	agentName         string
	instruction       string
	channelBufferSize int
	clientConfig      *genai.ClientConfig
	models            Models
}

func defaultOptions() options {
	return options{
		model:             defaultModel,
		agentName:         defaultAgentName,
		instruction:       defaultInstruction,
		channelBufferSize: defaultChannelBufferSize,
	}
}

// Option configures the runner.
type Option func(*options)

// WithModel sets the model name.
func WithModel(name string) Option {
	return func(o *options) {
		if name != "" {
			o.model = name
		}
	}
}

// WithAgentName sets the author of emitted events.
func WithAgentName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.agentName = name
		}
	}
}

// WithInstruction sets the system instruction.
func WithInstruction(instruction string) Option {
	return func(o *options) {
		o.instruction = instruction
	}
}

// WithChannelBufferSize sets the event channel buffer size.
func WithChannelBufferSize(size int) Option {
	return func(o *options) {
		if size <= 0 {
			size = defaultChannelBufferSize
		}
		o.channelBufferSize = size
	}
}

// WithClientConfig sets the config used to build the genai client.
func WithClientConfig(cfg *genai.ClientConfig) Option {
	return func(o *options) {
		o.clientConfig = cfg
	}
}

// WithModels uses m instead of building a genai client.
func WithModels(m Models) Option {
	return func(o *options) {
		o.models = m
	}
}
