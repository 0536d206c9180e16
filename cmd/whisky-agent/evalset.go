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
	"trpc.group/trpc-go/whisky-agent-go/evaluation/evalset"
	"trpc.group/trpc-go/whisky-agent-go/evaluation/evalset/local"
)

func evalSetCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evalset",
		Short: "Manage eval set files",
	}
	manager := func() (*local.Manager, error) {
		cfg, err := flags.load()
		if err != nil {
			return nil, err
		}
		return local.New(evalset.WithBaseDir(cfg.App.AgentDir)), nil
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list <app>",
		Short: "List the eval sets of an app",
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
		Use:   "create <app> <eval_set_id>",
		Short: "Create an empty eval set",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := manager()
			if err != nil {
				return err
			}
			set, err := m.Create(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "eval set %s has %d cases\n", set.EvalSetID, len(set.EvalCases))
			return nil
		},
	}, &cobra.Command{
		Use:   "migrate <app> <eval_set_id>",
		Short: "Rewrite a legacy eval set in the current format",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := manager()
			if err != nil {
				return err
			}
			set, err := m.Migrate(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "eval set %s migrated with %d cases\n", set.EvalSetID, len(set.EvalCases))
			return nil
		},
	}, &cobra.Command{
		Use:   "show <app> <eval_set_id>",
		Short: "Print an eval set",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := manager()
			if err != nil {
				return err
			}
			set, err := m.Get(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), set)
		},
	})
	return cmd
}
