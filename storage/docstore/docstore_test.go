//
// Tencent is pleased to support the open source community by making whisky-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// whisky-agent-go is licensed under the Apache License Version 2.0.
//
//

package docstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMerge(t *testing.T) {
	now := time.Unix(1700000000, 0)
	dst := map[string]any{
		"session_id": "old",
		"state": map[string]any{
			"user_id":             "u1",
			"interaction_history": []any{"a"},
		},
	}
	src := map[string]any{
		"session_id":   "new",
		"state":        map[string]any{"interaction_history": []any{"a", "b"}},
		"last_updated": ServerTimestamp,
	}

	got := Merge(dst, src, now)
	assert.Equal(t, "new", got["session_id"])
	assert.Equal(t, now, got["last_updated"])
	state := got["state"].(map[string]any)
	assert.Equal(t, "u1", state["user_id"])
	assert.Equal(t, []any{"a", "b"}, state["interaction_history"])

	src["state"].(map[string]any)["interaction_history"].([]any)[0] = "mutated"
	assert.Equal(t, "a", state["interaction_history"].([]any)[0])
}

func TestMergeIntoNil(t *testing.T) {
	got := Merge(nil, map[string]any{"prefs": map[string]any{}}, time.Now())
	assert.Equal(t, map[string]any{"prefs": map[string]any{}}, got)
	assert.True(t, IsServerTimestamp(ServerTimestamp))
	assert.False(t, IsServerTimestamp(time.Now()))
}
