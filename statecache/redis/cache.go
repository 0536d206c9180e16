//
// Tencent is pleased to support the open source community by making whisky-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// whisky-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package redis provides a statecache.Cache shared by server replicas through Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"trpc.group/trpc-go/whisky-agent-go/statecache"
)

var _ statecache.Cache = (*Cache)(nil)

const defaultKeyPrefix = "whisky:state:"

var clientBuilder func(*ClientBuilderOpts) (redis.UniversalClient, error) = DefaultClientBuilder

// SetClientBuilder sets the redis client builder.
func SetClientBuilder(builder func(redisOpts *ClientBuilderOpts) (redis.UniversalClient, error)) {
	clientBuilder = builder
}

// DefaultClientBuilder is the default redis client builder.
func DefaultClientBuilder(redisOpts *ClientBuilderOpts) (redis.UniversalClient, error) {
	if redisOpts.url == "" {
		return nil, fmt.Errorf("redis: url is empty")
	}

	opts, err := redis.ParseURL(redisOpts.url)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url %s: %w", redisOpts.url, err)
	}
	return redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        []string{opts.Addr},
		DB:           opts.DB,
		Username:     opts.Username,
		Password:     opts.Password,
		TLSConfig:    opts.TLSConfig,
		MaxRetries:   opts.MaxRetries,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		PoolSize:     opts.PoolSize,
	}), nil
}

// ClientBuilderOpts is the options for the redis client.
type ClientBuilderOpts struct {
	url string
}

// Options is the options for the redis cache.
type Options struct {
	url       string
	ttl       time.Duration
	keyPrefix string
}

// Option is the option for the redis cache.
type Option func(*Options)

// WithURL sets the redis url.
// scheme: redis://<username>:<password>@<host>:<port>/<db>?<options>
func WithURL(url string) Option {
	return func(o *Options) {
		o.url = url
	}
}

// WithTTL expires cached states after ttl. 0 keeps them until overwritten.
func WithTTL(ttl time.Duration) Option {
	return func(o *Options) {
		o.ttl = ttl
	}
}

// WithKeyPrefix sets the key prefix. Defaults to "whisky:state:".
func WithKeyPrefix(prefix string) Option {
	return func(o *Options) {
		o.keyPrefix = prefix
	}
}

// Cache keeps JSON encoded states under prefix+userID.
type Cache struct {
	client redis.UniversalClient
	opts   Options
}

// New connects to redis and creates the cache.
func New(opts ...Option) (*Cache, error) {
	o := Options{keyPrefix: defaultKeyPrefix}
	for _, opt := range opts {
		opt(&o)
	}
	client, err := clientBuilder(&ClientBuilderOpts{url: o.url})
	if err != nil {
		return nil, fmt.Errorf("create redis client: %w", err)
	}
	return &Cache{client: client, opts: o}, nil
}

func (c *Cache) key(userID string) string {
	return c.opts.keyPrefix + userID
}

// Get implements statecache.Cache.
func (c *Cache) Get(ctx context.Context, userID string) (map[string]any, bool, error) {
	raw, err := c.client.Get(ctx, c.key(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get state of %s: %w", userID, err)
	}
	var state map[string]any
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, false, fmt.Errorf("decode state of %s: %w", userID, err)
	}
	return state, true, nil
}

// Set implements statecache.Cache.
func (c *Cache) Set(ctx context.Context, userID string, state map[string]any) error {
	if state == nil {
		state = map[string]any{}
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode state of %s: %w", userID, err)
	}
	if err := c.client.Set(ctx, c.key(userID), raw, c.opts.ttl).Err(); err != nil {
		return fmt.Errorf("redis set state of %s: %w", userID, err)
	}
	return nil
}

// Delete implements statecache.Cache.
func (c *Cache) Delete(ctx context.Context, userID string) error {
	if err := c.client.Del(ctx, c.key(userID)).Err(); err != nil {
		return fmt.Errorf("redis delete state of %s: %w", userID, err)
	}
	return nil
}

// Close closes the redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}
