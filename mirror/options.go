//
// Tencent is pleased to support the open source community by making whisky-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// whisky-agent-go is licensed under the Apache License Version 2.0.
//
//

package mirror

import "time"

type options struct {
	uri            string
	instance       string
	database       string
	connectTimeout time.Duration
}

var defaultOptions = options{
	database:       "whisky",
	connectTimeout: 5 * time.Second,
}

// Option configures New.
type Option func(*options)

// WithURI sets the MongoDB connection string.
func WithURI(uri string) Option {
	return func(o *options) {
		o.uri = uri
	}
}

// WithInstance uses a MongoDB instance registered with
// mongodb.RegisterMongoDBInstance. It takes precedence over WithURI.
func WithInstance(name string) Option {
	return func(o *options) {
		o.instance = name
	}
}

// WithDatabase sets the database name. Defaults to "whisky".
func WithDatabase(database string) Option {
	return func(o *options) {
		if database != "" {
			o.database = database
		}
	}
}

// WithConnectTimeout bounds the initial connection.
func WithConnectTimeout(d time.Duration) Option {
	return func(o *options) {
		o.connectTimeout = d
	}
}
