//
// Tencent is pleased to support the open source community by making whisky-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// whisky-agent-go is licensed under the Apache License Version 2.0.
//
//

package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestSetLevel(t *testing.T) {
	defer SetLevel(LevelInfo)
	cases := []struct {
		in       string
		expected zapcore.Level
	}{
		{LevelDebug, zapcore.DebugLevel},
		{LevelInfo, zapcore.InfoLevel},
		{LevelWarn, zapcore.WarnLevel},
		{LevelError, zapcore.ErrorLevel},
		{LevelFatal, zapcore.FatalLevel},
		{"unknown", zapcore.InfoLevel},
	}
	for _, c := range cases {
		SetLevel(c.in)
		assert.Equal(t, c.expected, zapLevel.Level(), c.in)
	}
}

func TestSetFormatJSON(t *testing.T) {
	original := Default
	defer func() {
		SetFormat(FormatConsole)
		SetOutput(originalOutput)
		Default = original
	}()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetFormat(FormatJSON)
	Infof("mirror write for %s", "u1")

	line := strings.TrimSpace(buf.String())
	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &record))
	assert.Equal(t, "mirror write for u1", record["message"])
	assert.Equal(t, "info", record["lvl"])
}

func TestLevelFiltersOutput(t *testing.T) {
	original := Default
	defer func() {
		SetLevel(LevelInfo)
		SetOutput(originalOutput)
		Default = original
	}()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(LevelWarn)
	Info("hidden")
	Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

var originalOutput = output
