// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Complyd Contributors

package main

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/complyd-dev/complyd/internal/config"
)

func newStartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the complyd server",
		Long:  "Load configuration, initialize all subsystems, and start the HTTP server.",
		RunE:  runStart,
	}

	cmd.Flags().String("listen", "", "override listen address (host:port)")

	return cmd
}

func runStart(cmd *cobra.Command, _ []string) error {
	cfgPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		cfg.Server.Listen = listen
	}

	// The server cannot do useful work without its upstream credentials;
	// fail at startup rather than on the first request.
	if errs := cfg.ValidateCredentials(); len(errs) > 0 {
		return fmt.Errorf("checking credentials: %w", errors.Join(errs...))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := WireApp(ctx, cfg)
	if err != nil {
		return fmt.Errorf("wiring subsystems: %w", err)
	}
	defer app.Close()

	fmt.Fprintf(cmd.OutOrStdout(), "complyd listening on %s\n", cfg.Server.Listen)
	return app.Start(ctx)
}
