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
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"trpc.group/trpc-go/whisky-agent-go/storage/docstore"
)

const idField = "_id"

var _ docstore.Store = (*Store)(nil)

// Store is a docstore.Store on top of a MongoDB database. Document ids are
// stored in _id; merges are expressed as $set on dotted paths.
type Store struct {
	client   Client
	database string
}

// NewStore creates a store over database.
func NewStore(client Client, database string) *Store {
	return &Store{client: client, database: database}
}

// Get implements docstore.Store.
func (s *Store) Get(ctx context.Context, collection, id string) (*docstore.Document, error) {
	res := s.client.FindOne(ctx, s.database, collection, bson.M{idField: id})
	var raw bson.M
	if err := res.Decode(&raw); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("get %s/%s: %w", collection, id, docstore.ErrNotFound)
		}
		return nil, fmt.Errorf("mongodb: get %s/%s: %w", collection, id, err)
	}
	return toDocument(id, raw), nil
}

// SetMerge implements docstore.Store with an upsert. Empty nested maps carry
// no paths and leave the stored value untouched.
func (s *Store) SetMerge(ctx context.Context, collection, id string, fields map[string]any) error {
	update := buildUpdate(fields)
	if len(update) == 0 {
		update = bson.M{"$setOnInsert": bson.M{idField: id}}
	}
	_, err := s.client.UpdateOne(ctx, s.database, collection, bson.M{idField: id}, update,
		options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongodb: set %s/%s: %w", collection, id, err)
	}
	return nil
}

// Find implements docstore.Store. Documents are returned in _id order.
func (s *Store) Find(ctx context.Context, collection, field string, value any) ([]*docstore.Document, error) {
	cursor, err := s.client.Find(ctx, s.database, collection, bson.M{field: value},
		options.Find().SetSort(bson.D{{Key: idField, Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("mongodb: find %s: %w", collection, err)
	}
	defer cursor.Close(ctx)

	var docs []*docstore.Document
	for cursor.Next(ctx) {
		var raw bson.M
		if err := cursor.Decode(&raw); err != nil {
			return nil, fmt.Errorf("mongodb: decode %s: %w", collection, err)
		}
		id, _ := Normalize(raw[idField]).(string)
		docs = append(docs, toDocument(id, raw))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("mongodb: iterate %s: %w", collection, err)
	}
	return docs, nil
}

// Distinct implements docstore.Store.
func (s *Store) Distinct(ctx context.Context, collection, field string) ([]any, error) {
	values, err := s.client.Distinct(ctx, s.database, collection, field, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("mongodb: distinct %s.%s: %w", collection, field, err)
	}
	out := make([]any, 0, len(values))
	for _, v := range values {
		out = append(out, Normalize(v))
	}
	return out, nil
}

// Close implements docstore.Store.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func toDocument(id string, raw bson.M) *docstore.Document {
	delete(raw, idField)
	fields, _ := Normalize(raw).(map[string]any)
	return &docstore.Document{ID: id, Fields: fields}
}

// buildUpdate turns merge fields into $set and $currentDate operators.
func buildUpdate(fields map[string]any) bson.M {
	set := bson.M{}
	currentDate := bson.M{}
	flatten("", fields, set, currentDate)

	update := bson.M{}
	if len(set) > 0 {
		update["$set"] = set
	}
	if len(currentDate) > 0 {
		update["$currentDate"] = currentDate
	}
	return update
}

func flatten(prefix string, fields map[string]any, set, currentDate bson.M) {
	for k, v := range fields {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		if docstore.IsServerTimestamp(v) {
			currentDate[path] = true
			continue
		}
		if nested, ok := v.(map[string]any); ok {
			flatten(path, nested, set, currentDate)
			continue
		}
		set[path] = v
	}
}

// Normalize converts BSON decoded values into plain maps, slices and Go
// scalars. Dates become time.Time and object ids their hex form.
func Normalize(v any) any {
	switch val := v.(type) {
	case bson.M:
		return normalizeMap(val)
	case map[string]any:
		return normalizeMap(val)
	case bson.D:
		m := make(map[string]any, len(val))
		for _, e := range val {
			m[e.Key] = Normalize(e.Value)
		}
		return m
	case bson.A:
		return normalizeSlice(val)
	case []any:
		return normalizeSlice(val)
	case primitive.DateTime:
		return val.Time()
	case primitive.ObjectID:
		return val.Hex()
	case int32:
		return int64(val)
	default:
		return v
	}
}

func normalizeMap(in map[string]any) map[string]any {
	m := make(map[string]any, len(in))
	for k, item := range in {
		m[k] = Normalize(item)
	}
	return m
}

func normalizeSlice(in []any) []any {
	s := make([]any, len(in))
	for i, item := range in {
		s[i] = Normalize(item)
	}
	return s
}
