//
// Tencent is pleased to support the open source community by making whisky-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// whisky-agent-go is licensed under the Apache License Version 2.0.
//
//

// Command whisky-agent serves the whisky assistant and manages eval files.
package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/spf13/cobra"
	"trpc.group/trpc-go/whisky-agent-go/config"
	"trpc.group/trpc-go/whisky-agent-go/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type rootFlags struct {
	envFile  string
	agentDir string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:          "whisky-agent",
		Short:        "Whisky assistant server and eval tooling",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "Optional .env file read before the environment")
	root.PersistentFlags().StringVar(&flags.agentDir, "agent-dir", "", "Directory holding eval sets and results (overrides AGENT_DIR)")

	root.AddCommand(
		serveCmd(flags),
		evalSetCmd(flags),
		evalResultCmd(flags),
	)
	return root
}

// load reads the configuration and applies the flags common to every command.
func (f *rootFlags) load() (*config.Config, error) {
	cfg, err := config.Load(f.envFile)
	if err != nil {
		return nil, err
	}
	if f.agentDir != "" {
		cfg.App.AgentDir = f.agentDir
	}
	log.SetLevel(cfg.App.LogLevel)
	log.SetFormat(cfg.App.LogFormat)
	return cfg, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
