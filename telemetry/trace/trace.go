//
// Tencent is pleased to support the open source community by making whisky-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// whisky-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package trace holds the tracer shared by the whisky agent packages.
package trace

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentName is the instrumentation scope of every span.
const InstrumentName = "trpc.group/trpc-go/whisky-agent-go"

var (
	// TracerProvider is the provider Tracer was built from.
	TracerProvider trace.TracerProvider = otel.GetTracerProvider()
	// Tracer starts the chat turn and eval run spans.
	Tracer trace.Tracer = TracerProvider.Tracer(InstrumentName)
)

// SetTracerProvider replaces the provider, and the global one, used for
// new spans. A nil provider is ignored.
func SetTracerProvider(tp trace.TracerProvider) {
	if tp == nil {
		return
	}
	otel.SetTracerProvider(tp)
	TracerProvider = tp
	Tracer = tp.Tracer(InstrumentName)
}
