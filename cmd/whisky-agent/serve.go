//
// Tencent is pleased to support the open source community by making whisky-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// whisky-agent-go is licensed under the Apache License Version 2.0.
//
//

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
	"google.golang.org/genai"
	"trpc.group/trpc-go/whisky-agent-go/assistant"
	"trpc.group/trpc-go/whisky-agent-go/config"
	"trpc.group/trpc-go/whisky-agent-go/evaluation"
	"trpc.group/trpc-go/whisky-agent-go/evaluation/evalresult"
	resultlocal "trpc.group/trpc-go/whisky-agent-go/evaluation/evalresult/local"
	"trpc.group/trpc-go/whisky-agent-go/evaluation/evalset"
	setlocal "trpc.group/trpc-go/whisky-agent-go/evaluation/evalset/local"
	"trpc.group/trpc-go/whisky-agent-go/history"
	"trpc.group/trpc-go/whisky-agent-go/log"
	"trpc.group/trpc-go/whisky-agent-go/mirror"
	"trpc.group/trpc-go/whisky-agent-go/runner"
	"trpc.group/trpc-go/whisky-agent-go/runner/gemini"
	"trpc.group/trpc-go/whisky-agent-go/server"
	"trpc.group/trpc-go/whisky-agent-go/session"
	sessioninmemory "trpc.group/trpc-go/whisky-agent-go/session/inmemory"
	"trpc.group/trpc-go/whisky-agent-go/statecache"
	cacheinmemory "trpc.group/trpc-go/whisky-agent-go/statecache/inmemory"
	cacheredis "trpc.group/trpc-go/whisky-agent-go/statecache/redis"
)

func serveCmd(flags *rootFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and WebSocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.HTTP.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, nil)
			if err != nil {
				return err
			}
			return a.serve(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides HTTP_ADDR)")
	return cmd
}

// app wires every component of the server.
type app struct {
	cfg       *config.Config
	sessions  session.Service
	mirror    *mirror.Mirror
	cache     statecache.Cache
	recorder  *history.Recorder
	evaluator *evaluation.Evaluator
	server    *server.Server
}

// newApp builds the components from cfg. A nil runner selects the Gemini
// runner; any other runner has its turns recorded as session events.
func newApp(ctx context.Context, cfg *config.Config, r runner.Runner) (*app, error) {
	a := &app{cfg: cfg, sessions: sessioninmemory.NewSessionService()}
	a.mirror = mirror.New(ctx,
		mirror.WithURI(cfg.Mongo.URI),
		mirror.WithDatabase(cfg.Mongo.Database),
		mirror.WithConnectTimeout(cfg.Mongo.ConnectTimeout),
	)
	if cfg.Redis.URL != "" {
		c, err := cacheredis.New(
			cacheredis.WithURL(cfg.Redis.URL),
			cacheredis.WithKeyPrefix(cfg.Redis.KeyPrefix),
			cacheredis.WithTTL(cfg.Redis.TTL),
		)
		if err != nil {
			return nil, a.closeWith(fmt.Errorf("build redis state cache: %w", err))
		}
		a.cache = c
	} else {
		a.cache = cacheinmemory.New()
	}
	a.recorder = history.New(a.sessions,
		history.WithMirror(a.mirror),
		history.WithStateCache(a.cache),
		history.WithMirrorWorkers(cfg.History.MirrorWorkers),
		history.WithMirrorQueueSize(cfg.History.MirrorQueueSize),
		history.WithShutdownGrace(cfg.HTTP.ShutdownGrace),
		history.WithSerializedAppends(cfg.History.SerializedAppends),
	)

	if r == nil {
		g, err := gemini.New(ctx, cfg.App.Name, a.sessions,
			gemini.WithModel(cfg.Gemini.Model),
			gemini.WithAgentName(cfg.Gemini.AgentName),
			gemini.WithClientConfig(clientConfig(cfg.Gemini)),
		)
		if err != nil {
			return nil, a.closeWith(err)
		}
		r = g
	} else {
		r = runner.WithSessionEvents(r, a.sessions, cfg.App.Name)
	}

	asst, err := assistant.New(cfg.App.Name, a.sessions, r, a.recorder,
		assistant.WithMirror(a.mirror),
		assistant.WithStateCache(a.cache),
	)
	if err != nil {
		return nil, a.closeWith(err)
	}
	sets := setlocal.New(evalset.WithBaseDir(cfg.App.AgentDir))
	results := resultlocal.New(evalresult.WithBaseDir(cfg.App.AgentDir))
	a.evaluator, err = evaluation.New(sets, results, a.sessions, r,
		evaluation.WithParallelism(cfg.Eval.Parallelism))
	if err != nil {
		return nil, a.closeWith(err)
	}
	a.server = server.New(asst, a.sessions,
		server.WithEvalSetManager(sets),
		server.WithEvalResultManager(results),
		server.WithEvaluator(a.evaluator),
	)
	return a, nil
}

func clientConfig(cfg config.GeminiConfig) *genai.ClientConfig {
	cc := &genai.ClientConfig{APIKey: cfg.APIKey, Backend: genai.BackendGeminiAPI}
	if cfg.VertexAI {
		cc = &genai.ClientConfig{Backend: genai.BackendVertexAI, Project: cfg.Project, Location: cfg.Location}
	}
	return cc
}

// serve runs the HTTP server until ctx ends, then shuts everything down
// within the configured grace period.
func (a *app) serve(ctx context.Context) error {
	srv := &http.Server{Addr: a.cfg.HTTP.Addr, Handler: a.server.Handler()}
	errCh := make(chan error, 1)
	go func() {
		log.Infof("whisky agent listening on %s", a.cfg.HTTP.Addr)
		errCh <- srv.ListenAndServe()
	}()

	var result error
	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			result = multierror.Append(result, fmt.Errorf("http server: %w", err))
		}
	case <-ctx.Done():
		log.Infof("shutting down")
	}

	if err := a.shutdown(srv); err != nil {
		result = multierror.Append(result, err)
	}
	return result
}

// shutdown stops srv, then releases the components. The history flush gets
// a fresh ShutdownGrace however long the HTTP drain took, and the remaining
// closes one more.
func (a *app) shutdown(srv *http.Server) error {
	var result error
	httpCtx, cancelHTTP := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownGrace)
	defer cancelHTTP()
	if err := srv.Shutdown(httpCtx); err != nil {
		result = multierror.Append(result, fmt.Errorf("shutdown http server: %w", err))
	}
	closeCtx, cancelClose := context.WithTimeout(context.Background(), 2*a.cfg.HTTP.ShutdownGrace)
	defer cancelClose()
	if err := a.close(closeCtx); err != nil {
		result = multierror.Append(result, err)
	}
	return result
}

// close releases every component, collecting the failures.
func (a *app) close(ctx context.Context) error {
	var result *multierror.Error
	if a.evaluator != nil {
		if err := a.evaluator.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close evaluator: %w", err))
		}
	}
	if a.recorder != nil {
		if err := a.recorder.Close(ctx); err != nil {
			result = multierror.Append(result, fmt.Errorf("flush history mirror writes: %w", err))
		}
	}
	if c, ok := a.cache.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close state cache: %w", err))
		}
	}
	if a.mirror != nil {
		if err := a.mirror.Close(ctx); err != nil {
			result = multierror.Append(result, fmt.Errorf("close mirror: %w", err))
		}
	}
	if err := a.sessions.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("close sessions: %w", err))
	}
	return result.ErrorOrNil()
}

func (a *app) closeWith(err error) error {
	if cerr := a.close(context.Background()); cerr != nil {
		return multierror.Append(err, cerr)
	}
	return err
}
