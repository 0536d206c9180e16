//
// Tencent is pleased to support the open source community by making whisky-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// whisky-agent-go is licensed under the Apache License Version 2.0.
//
//

package mongodb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func resetGlobals(t *testing.T) {
	t.Helper()
	prevBuilder := GetClientBuilder()
	instancesMu.Lock()
	prevInstances := instances
	instances = map[string][]ClientBuilderOpt{}
	instancesMu.Unlock()
	t.Cleanup(func() {
		SetClientBuilder(prevBuilder)
		instancesMu.Lock()
		instances = prevInstances
		instancesMu.Unlock()
	})
}

func TestInstanceRegistryAccumulates(t *testing.T) {
	resetGlobals(t)

	RegisterMongoDBInstance("whisky", WithClientBuilderDSN("mongodb://localhost:27017"))
	RegisterMongoDBInstance("whisky", WithConnectTimeout(time.Second))

	opts, ok := GetMongoDBInstance("whisky")
	require.True(t, ok)
	o := resolve(opts)
	assert.Equal(t, "mongodb://localhost:27017", o.URI)
	assert.Equal(t, time.Second, o.ConnectTimeout)

	_, ok = GetMongoDBInstance("bourbon")
	assert.False(t, ok)
}

func TestResolveOptions(t *testing.T) {
	o := resolve([]ClientBuilderOpt{
		WithClientBuilderDSN("mongodb://a"),
		WithClientBuilderDSN("mongodb://b"),
		WithConnectTimeout(2 * time.Second),
		WithAppName("whisky_agent"),
	})
	assert.Equal(t, "mongodb://b", o.URI)
	assert.Equal(t, 2*time.Second, o.ConnectTimeout)
	assert.Equal(t, "whisky_agent", o.AppName)
}

func TestClearedBuilder(t *testing.T) {
	resetGlobals(t)

	SetClientBuilder(func(ctx context.Context, opts ...ClientBuilderOpt) (Client, error) {
		return nil, errors.New("custom builder")
	})
	_, err := NewClient(context.Background())
	assert.EqualError(t, err, "custom builder")

	SetClientBuilder(nil)
	_, err = NewClient(context.Background())
	assert.ErrorIs(t, err, ErrNoClientBuilder)
	_, err = NewClientFromInstance(context.Background(), "whisky")
	assert.ErrorIs(t, err, ErrNoClientBuilder)
}

func TestNewClientFromInstance(t *testing.T) {
	resetGlobals(t)

	var got *ClientBuilderOpts
	SetClientBuilder(func(ctx context.Context, opts ...ClientBuilderOpt) (Client, error) {
		got = resolve(opts)
		return &mockClient{}, nil
	})

	_, err := NewClientFromInstance(context.Background(), "missing")
	assert.ErrorContains(t, err, "not registered")

	RegisterMongoDBInstance("whisky", WithClientBuilderDSN("mongodb://db:27017"), WithConnectTimeout(time.Minute))
	c, err := NewClientFromInstance(context.Background(), "whisky", WithConnectTimeout(time.Second))
	require.NoError(t, err)
	assert.NotNil(t, c)
	assert.Equal(t, "mongodb://db:27017", got.URI)
	assert.Equal(t, time.Second, got.ConnectTimeout)
}

func TestConnectRejectsBadURI(t *testing.T) {
	ctx := context.Background()

	_, err := connect(ctx)
	assert.ErrorContains(t, err, "URI is empty")

	_, err = connect(ctx, WithClientBuilderDSN("invalid-uri-format"))
	assert.Error(t, err)
}

// mockClient is a Client recording calls and replaying canned results.
type mockClient struct {
	updates      []any
	filters      []any
	upserts      []bool
	findOneDoc   any
	findOneErr   error
	findDocs     []any
	findErr      error
	distinct     []any
	distinctErr  error
	disconnected bool
}

func (m *mockClient) UpdateOne(ctx context.Context, database, coll string, filter, update any,
	opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	m.filters = append(m.filters, filter)
	m.updates = append(m.updates, update)
	upsert := false
	for _, o := range opts {
		if o.Upsert != nil {
			upsert = *o.Upsert
		}
	}
	m.upserts = append(m.upserts, upsert)
	return &mongo.UpdateResult{ModifiedCount: 1}, nil
}

func (m *mockClient) FindOne(ctx context.Context, database, coll string, filter any,
	opts ...*options.FindOneOptions) *mongo.SingleResult {
	doc := m.findOneDoc
	if doc == nil {
		doc = map[string]any{}
	}
	return mongo.NewSingleResultFromDocument(doc, m.findOneErr, nil)
}

func (m *mockClient) Find(ctx context.Context, database, coll string, filter any,
	opts ...*options.FindOptions) (*mongo.Cursor, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return mongo.NewCursorFromDocuments(m.findDocs, nil, nil)
}

func (m *mockClient) Distinct(ctx context.Context, database, coll, fieldName string, filter any,
	opts ...*options.DistinctOptions) ([]any, error) {
	return m.distinct, m.distinctErr
}

func (m *mockClient) Disconnect(ctx context.Context) error {
	m.disconnected = true
	return nil
}
