//
// Tencent is pleased to support the open source community by making whisky-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// whisky-agent-go is licensed under the Apache License Version 2.0.
//
//

package jsonfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "out.json")
	require.NoError(t, Write(path, map[string]any{"k": []int{1}}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"k\": [\n    1\n  ]\n}\n", string(data))

	_, err = os.Stat(path + tempFileSuffix)
	assert.True(t, os.IsNotExist(err))
}

func TestWriteEncodeError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	err := Write(path, map[string]any{"ch": make(chan int)})
	require.Error(t, err)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
	_, statErr = os.Stat(path + tempFileSuffix)
	assert.True(t, os.IsNotExist(statErr))
}
