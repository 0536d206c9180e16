//
// Tencent is pleased to support the open source community by making whisky-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// whisky-agent-go is licensed under the Apache License Version 2.0.
//
//

package local

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
	"trpc.group/trpc-go/whisky-agent-go/evaluation/errs"
	"trpc.group/trpc-go/whisky-agent-go/evaluation/evalset"
)

const app = "whisky"

func newManager(t *testing.T) (*Manager, string) {
	t.Helper()
	dir := t.TempDir()
	clock := func() time.Time { return time.Unix(1700000000, 0) }
	return New(evalset.WithBaseDir(dir), evalset.WithClock(clock)), dir
}

func newCase(id string) *evalset.EvalCase {
	return &evalset.EvalCase{
		EvalID: id,
		Conversation: []*evalset.Invocation{{
			InvocationID:  "inv-" + id,
			UserContent:   genai.NewContentFromText("recommend a peated whisky", genai.RoleUser),
			FinalResponse: genai.NewContentFromText("Try Laphroaig 10.", genai.RoleModel),
		}},
	}
}

func TestCreateAndGet(t *testing.T) {
	m, dir := newManager(t)
	ctx := context.Background()

	created, err := m.Create(ctx, app, "smoke")
	require.NoError(t, err)
	assert.Equal(t, "smoke", created.EvalSetID)
	assert.Equal(t, "smoke", created.Name)
	assert.Empty(t, created.EvalCases)

	data, err := os.ReadFile(filepath.Join(dir, app, "smoke.evalset.json"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "{\n  \"eval_set_id\": \"smoke\""))

	got, err := m.Get(ctx, app, "smoke")
	require.NoError(t, err)
	assert.Equal(t, created.EvalSetID, got.EvalSetID)
	assert.NotNil(t, got.EvalCases)
}

func TestCreateExistingIsNoop(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	_, err := m.Create(ctx, app, "smoke")
	require.NoError(t, err)
	require.NoError(t, m.AddCase(ctx, app, "smoke", newCase("c1")))

	again, err := m.Create(ctx, app, "smoke")
	require.NoError(t, err)
	require.Len(t, again.EvalCases, 1)
	assert.Equal(t, "c1", again.EvalCases[0].EvalID)
}

func TestCreateLeavesUnreadableFileUntouched(t *testing.T) {
	m, dir := newManager(t)
	path := filepath.Join(dir, app, "odd.evalset.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	raw := []byte(`{"eval_set_id":5}`)
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	set, err := m.Create(context.Background(), app, "odd")
	require.NoError(t, err)
	assert.Equal(t, "odd", set.EvalSetID)
	assert.Empty(t, set.EvalCases)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, raw, after)
}

func TestIdentifierValidation(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	for _, id := range []string{"bad-id", "with space", "dot.ted", "", "slash/id", "ünï"} {
		_, err := m.Create(ctx, app, id)
		assert.ErrorIs(t, err, errs.ErrInvalidIdentifier, id)
	}

	_, err := m.Create(ctx, app, "valid_set_1")
	require.NoError(t, err)
	for _, id := range []string{"bad-id", "with space", "", "x!"} {
		err := m.AddCase(ctx, app, "valid_set_1", newCase(id))
		assert.ErrorIs(t, err, errs.ErrInvalidIdentifier, id)
	}
	for _, id := range []string{"ok", "OK_2", "case_3"} {
		assert.NoError(t, m.AddCase(ctx, app, "valid_set_1", newCase(id)), id)
	}
}

func TestAddCaseDuplicate(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	_, err := m.Create(ctx, app, "dups")
	require.NoError(t, err)
	require.NoError(t, m.AddCase(ctx, app, "dups", newCase("c1")))
	require.NoError(t, m.AddCase(ctx, app, "dups", newCase("c2")))

	before, err := m.Get(ctx, app, "dups")
	require.NoError(t, err)

	dup := newCase("c1")
	dup.Conversation[0].InvocationID = "replacement"
	err = m.AddCase(ctx, app, "dups", dup)
	assert.ErrorIs(t, err, errs.ErrDuplicateIdentifier)

	after, err := m.Get(ctx, app, "dups")
	require.NoError(t, err)
	require.Len(t, after.EvalCases, len(before.EvalCases))
	for i := range before.EvalCases {
		assert.Equal(t, before.EvalCases[i].EvalID, after.EvalCases[i].EvalID)
		assert.Equal(t, before.EvalCases[i].Conversation[0].InvocationID, after.EvalCases[i].Conversation[0].InvocationID)
	}
}

func TestAddCaseStampsTimestamps(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()
	_, err := m.Create(ctx, app, "stamps")
	require.NoError(t, err)

	c := newCase("c1")
	require.NoError(t, m.AddCase(ctx, app, "stamps", c))
	assert.Nil(t, c.CreationTimestamp)

	got, err := m.GetCase(ctx, app, "stamps", "c1")
	require.NoError(t, err)
	require.NotNil(t, got.CreationTimestamp)
	assert.Equal(t, int64(1700000000), got.CreationTimestamp.Unix())
	assert.Equal(t, int64(1700000000), got.Conversation[0].CreationTimestamp.Unix())
}

func TestAddCaseMissingSet(t *testing.T) {
	m, _ := newManager(t)
	err := m.AddCase(context.Background(), app, "absent", newCase("c1"))
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestList(t *testing.T) {
	m, dir := newManager(t)
	appDir := filepath.Join(dir, app)
	require.NoError(t, os.MkdirAll(filepath.Join(appDir, "nested.evalset.json"), 0o755))
	for _, name := range []string{"b.evalset.json", "a.evalset.json", "c.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(appDir, name), []byte("{}"), 0o644))
	}

	ids, err := m.List(context.Background(), app)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)
}

func TestListMissingApp(t *testing.T) {
	m, _ := newManager(t)
	ids, err := m.List(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.NotNil(t, ids)
}

func TestGetErrors(t *testing.T) {
	m, dir := newManager(t)
	ctx := context.Background()

	_, err := m.Get(ctx, app, "missing")
	assert.ErrorIs(t, err, errs.ErrNotFound)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, app), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, app, "broken.evalset.json"), []byte(`{"nope": 1}`), 0o644))
	_, err = m.Get(ctx, app, "broken")
	assert.ErrorIs(t, err, errs.ErrSchemaMismatch)
}

func TestGetLegacyAndMigrate(t *testing.T) {
	m, dir := newManager(t)
	ctx := context.Background()
	legacy := `[{"name": "old_case", "data": [{"query": "q", "expected_tool_use": [], "reference": "r"}]}]`
	path := filepath.Join(dir, app, "old.evalset.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

	got, err := m.Get(ctx, app, "old")
	require.NoError(t, err)
	require.NotNil(t, got.Case("old_case"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, legacy, string(raw))

	migrated, err := m.Migrate(ctx, app, "old")
	require.NoError(t, err)
	assert.Equal(t, "old", migrated.EvalSetID)

	raw, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "{"))
	assert.NoError(t, evalset.ValidateCurrent(raw))
}

func TestUpdateAndDeleteCase(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()
	_, err := m.Create(ctx, app, "edit")
	require.NoError(t, err)
	require.NoError(t, m.AddCase(ctx, app, "edit", newCase("c1")))

	updated := newCase("c1")
	updated.Conversation[0].InvocationID = "changed"
	require.NoError(t, m.UpdateCase(ctx, app, "edit", updated))
	got, err := m.GetCase(ctx, app, "edit", "c1")
	require.NoError(t, err)
	assert.Equal(t, "changed", got.Conversation[0].InvocationID)

	assert.ErrorIs(t, m.UpdateCase(ctx, app, "edit", newCase("zz")), errs.ErrNotFound)

	require.NoError(t, m.DeleteCase(ctx, app, "edit", "c1"))
	_, err = m.GetCase(ctx, app, "edit", "c1")
	assert.ErrorIs(t, err, errs.ErrNotFound)
	assert.ErrorIs(t, m.DeleteCase(ctx, app, "edit", "c1"), errs.ErrNotFound)
}
