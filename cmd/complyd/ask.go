// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Complyd Contributors

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/complyd-dev/complyd/internal/agent"
	"github.com/complyd-dev/complyd/internal/config"
)

func newAskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask QUESTION",
		Short: "Run a compliance analysis from the command line",
		Long:  "Run the full compliance pipeline for a question and print progress and the final report.",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runAsk,
	}
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfgPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	app, err := WireApp(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("wiring subsystems: %w", err)
	}
	defer app.Close()

	query := strings.Join(args, " ")
	events, err := app.Pipeline.Run(cmd.Context(), query)
	if err != nil {
		return fmt.Errorf("starting analysis: %w", err)
	}

	out := cmd.OutOrStdout()
	for ev := range events {
		switch ev.Type {
		case agent.EventAgentActive:
			fmt.Fprintf(out, "[%s]\n", ev.Agent)
		case agent.EventToolCall:
			fmt.Fprintf(out, "  -> %s %s\n", ev.Tool, ev.Args)
		case agent.EventAgentText:
			fmt.Fprint(out, ev.Content)
		case agent.EventAgentComplete:
			fmt.Fprintf(out, "\n\n%s\n", ev.Message)
		case agent.EventError:
			return fmt.Errorf("%s: %s", ev.Message, ev.Detail)
		}
	}
	return nil
}
