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
	"fmt"

	"github.com/spf13/cobra"
	"trpc.group/trpc-go/whisky-agent-go/evaluation/evalresult"
	"trpc.group/trpc-go/whisky-agent-go/evaluation/evalresult/local"
)

func evalResultCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evalresult",
		Short: "Inspect eval results",
	}
	manager := func() (*local.Manager, error) {
		cfg, err := flags.load()
		if err != nil {
			return nil, err
		}
		return local.New(evalresult.WithBaseDir(cfg.App.AgentDir)), nil
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list <app>",
		Short: "List the eval results of an app",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := manager()
			if err != nil {
				return err
			}
			ids, err := m.List(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}, &cobra.Command{
		Use:   "show <app> <eval_set_result_id>",
		Short: "Print an eval result",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := manager()
			if err != nil {
				return err
			}
			result, err := m.Get(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	})
	return cmd
}
