//
// Tencent is pleased to support the open source community by making whisky-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// whisky-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package mirror keeps a best-effort durable copy of sessions and whisky
// records in a document store.
//
// The mirror never fails its callers: a store that cannot be built leaves the
// mirror disabled, and every store error is logged and swallowed. Readers get
// empty results instead.
package mirror

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"trpc.group/trpc-go/whisky-agent-go/log"
	"trpc.group/trpc-go/whisky-agent-go/storage/docstore"
	"trpc.group/trpc-go/whisky-agent-go/storage/mongodb"
)

const (
	// SessionsCollection holds one document per user with the latest session.
	SessionsCollection = "sessions"
	// RecordsCollection holds one document per (user, record).
	RecordsCollection = "whisky_records"

	driverAppName = "whisky-agent"
)

// Record is a whisky record saved by a user.
type Record struct {
	UserID    string         `json:"user_id"`
	RecordID  string         `json:"record_id"`
	Payload   map[string]any `json:"payload"`
	UpdatedAt time.Time      `json:"updated_at,omitempty"`
}

// Mirror is the durable mirror client. The zero value is not usable; build it
// with New, NewWithStore or Disabled.
type Mirror struct {
	store docstore.Store
	pick  func(n int) int
}

// New builds a mirror on MongoDB. A missing URI or a connection failure
// yields a disabled mirror.
func New(ctx context.Context, opts ...Option) *Mirror {
	o := defaultOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.uri == "" && o.instance == "" {
		log.Infof("mirror: no document store configured, durable mirror disabled")
		return Disabled()
	}

	var (
		client mongodb.Client
		err    error
	)
	if o.instance != "" {
		client, err = mongodb.NewClientFromInstance(ctx, o.instance,
			mongodb.WithConnectTimeout(o.connectTimeout),
			mongodb.WithAppName(driverAppName),
		)
	} else {
		client, err = mongodb.NewClient(ctx,
			mongodb.WithClientBuilderDSN(o.uri),
			mongodb.WithConnectTimeout(o.connectTimeout),
			mongodb.WithAppName(driverAppName),
		)
	}
	if err != nil {
		log.Errorf("mirror: document store unavailable, durable mirror disabled: %v", err)
		return Disabled()
	}
	return NewWithStore(mongodb.NewStore(client, o.database))
}

// NewWithStore wraps an existing store. A nil store gives a disabled mirror.
func NewWithStore(store docstore.Store) *Mirror {
	return &Mirror{store: store, pick: rand.IntN}
}

// Disabled returns a mirror whose operations are no-ops.
func Disabled() *Mirror {
	return &Mirror{pick: rand.IntN}
}

// Enabled reports whether the mirror has a backing store.
func (m *Mirror) Enabled() bool {
	return m != nil && m.store != nil
}

// Save upserts the user's session document with the session id and state.
// Keys missing from state keep their stored values.
func (m *Mirror) Save(ctx context.Context, userID, sessionID string, state map[string]any) {
	if !m.Enabled() {
		return
	}
	fields := map[string]any{
		"session_id":   sessionID,
		"state":        plainMap(state),
		"last_updated": docstore.ServerTimestamp,
	}
	if err := m.store.SetMerge(ctx, SessionsCollection, userID, fields); err != nil {
		log.Warnf("mirror: save session of user %s failed: %v", userID, err)
	}
}

// Load returns the mirrored session id and state of the user, or "", nil
// when nothing usable is stored.
func (m *Mirror) Load(ctx context.Context, userID string) (string, map[string]any) {
	if !m.Enabled() {
		return "", nil
	}
	doc, err := m.store.Get(ctx, SessionsCollection, userID)
	if err != nil {
		if !errors.Is(err, docstore.ErrNotFound) {
			log.Warnf("mirror: load session of user %s failed: %v", userID, err)
		}
		return "", nil
	}
	sessionID, _ := doc.Fields["session_id"].(string)
	if sessionID == "" {
		return "", nil
	}
	state, _ := doc.Fields["state"].(map[string]any)
	if state == nil {
		state = make(map[string]any)
	}
	return sessionID, state
}

// SaveRecord upserts a whisky record of the user.
func (m *Mirror) SaveRecord(ctx context.Context, userID, recordID string, payload map[string]any) {
	if !m.Enabled() {
		return
	}
	fields := map[string]any{
		"user_id":    userID,
		"record_id":  recordID,
		"payload":    plainMap(payload),
		"updated_at": docstore.ServerTimestamp,
	}
	if err := m.store.SetMerge(ctx, RecordsCollection, recordDocID(userID, recordID), fields); err != nil {
		log.Warnf("mirror: save record %s of user %s failed: %v", recordID, userID, err)
	}
}

// ListRecords returns the records of the user.
func (m *Mirror) ListRecords(ctx context.Context, userID string) []Record {
	if !m.Enabled() {
		return nil
	}
	docs, err := m.store.Find(ctx, RecordsCollection, "user_id", userID)
	if err != nil {
		log.Warnf("mirror: list records of user %s failed: %v", userID, err)
		return nil
	}
	records := make([]Record, 0, len(docs))
	for _, doc := range docs {
		records = append(records, toRecord(doc))
	}
	return records
}

// ListPeerRecords picks a random user other than userID among the record
// owners and returns that user's id and records. It returns "", nil when no
// other user has records.
func (m *Mirror) ListPeerRecords(ctx context.Context, userID string) (string, []Record) {
	if !m.Enabled() {
		return "", nil
	}
	owners, err := m.store.Distinct(ctx, RecordsCollection, "user_id")
	if err != nil {
		log.Warnf("mirror: list record owners failed: %v", err)
		return "", nil
	}
	peers := make([]string, 0, len(owners))
	for _, owner := range owners {
		if id, ok := owner.(string); ok && id != "" && id != userID {
			peers = append(peers, id)
		}
	}
	if len(peers) == 0 {
		return "", nil
	}
	peer := peers[m.pick(len(peers))]
	return peer, m.ListRecords(ctx, peer)
}

// Close releases the backing store.
func (m *Mirror) Close(ctx context.Context) error {
	if !m.Enabled() {
		return nil
	}
	return m.store.Close(ctx)
}

func recordDocID(userID, recordID string) string {
	return userID + "_" + recordID
}

func toRecord(doc *docstore.Document) Record {
	r := Record{}
	r.UserID, _ = doc.Fields["user_id"].(string)
	r.RecordID, _ = doc.Fields["record_id"].(string)
	r.Payload, _ = doc.Fields["payload"].(map[string]any)
	r.UpdatedAt, _ = doc.Fields["updated_at"].(time.Time)
	return r
}

// plainMap strips named map types so nested merges see map[string]any.
func plainMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return docstore.CloneFields(m)
}
