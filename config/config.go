//
// Tencent is pleased to support the open source community by making whisky-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// whisky-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package config loads the server settings from the environment, with an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds every setting of the whisky agent.
type Config struct {
	App     AppConfig
	HTTP    HTTPConfig
	Mongo   MongoConfig
	Redis   RedisConfig
	Gemini  GeminiConfig
	History HistoryConfig
	Eval    EvalConfig
}

// AppConfig names the app and sets logging.
type AppConfig struct {
	Name      string `envconfig:"APP_NAME" default:"whisky_agent"`
	AgentDir  string `envconfig:"AGENT_DIR" default:"."`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"console"`
}

// HTTPConfig configures the HTTP boundary.
type HTTPConfig struct {
	Addr          string        `envconfig:"HTTP_ADDR" default:":8000"`
	ShutdownGrace time.Duration `envconfig:"SHUTDOWN_GRACE" default:"5s"`
}

// MongoConfig configures the durable mirror. An empty URI disables it.
type MongoConfig struct {
	URI            string        `envconfig:"MONGODB_URI"`
	Database       string        `envconfig:"MONGODB_DATABASE" default:"whisky_agent"`
	ConnectTimeout time.Duration `envconfig:"MONGODB_CONNECT_TIMEOUT" default:"10s"`
}

// RedisConfig configures the shared state cache. An empty URL keeps the
// cache in process.
type RedisConfig struct {
	URL       string        `envconfig:"REDIS_URL"`
	KeyPrefix string        `envconfig:"REDIS_KEY_PREFIX" default:"whisky:state:"`
	TTL       time.Duration `envconfig:"REDIS_STATE_TTL" default:"24h"`
}

// GeminiConfig configures the model runner.
type GeminiConfig struct {
	APIKey    string `envconfig:"GOOGLE_API_KEY"`
	Model     string `envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash-lite"`
	AgentName string `envconfig:"AGENT_NAME" default:"whisky_agent"`
	VertexAI  bool   `envconfig:"GOOGLE_GENAI_USE_VERTEXAI" default:"false"`
	Project   string `envconfig:"GOOGLE_CLOUD_PROJECT"`
	Location  string `envconfig:"GOOGLE_CLOUD_LOCATION"`
}

// HistoryConfig configures the interaction history recorder.
type HistoryConfig struct {
	MirrorWorkers     int  `envconfig:"HISTORY_MIRROR_WORKERS" default:"4"`
	MirrorQueueSize   int  `envconfig:"HISTORY_MIRROR_QUEUE_SIZE" default:"256"`
	SerializedAppends bool `envconfig:"HISTORY_SERIALIZED_APPENDS" default:"true"`
}

// EvalConfig configures eval runs.
type EvalConfig struct {
	Parallelism int `envconfig:"EVAL_PARALLELISM" default:"4"`
}

// Load reads the .env files (default ".env", missing files are ignored)
// and then the environment.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load env file %s: %w", f, err)
		}
	}
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values envconfig cannot.
func (c *Config) Validate() error {
	if c.App.Name == "" {
		return errors.New("config: APP_NAME is empty")
	}
	if c.Eval.Parallelism <= 0 {
		return fmt.Errorf("config: EVAL_PARALLELISM must be positive, got %d", c.Eval.Parallelism)
	}
	if c.HTTP.ShutdownGrace < 0 {
		return fmt.Errorf("config: SHUTDOWN_GRACE must not be negative, got %s", c.HTTP.ShutdownGrace)
	}
	if c.Gemini.VertexAI && c.Gemini.Project == "" {
		return errors.New("config: GOOGLE_CLOUD_PROJECT is required with Vertex AI")
	}
	return nil
}
