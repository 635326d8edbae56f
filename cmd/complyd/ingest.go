// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Complyd Contributors

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/complyd-dev/complyd/internal/config"
)

func newIngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest FILE...",
		Short: "Index policy documents into the retrieval store",
		Long:  "Extract, chunk, embed, and store the given documents (PDF, DOCX, TXT, Markdown). Re-ingesting unchanged content is a no-op.",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runIngest,
	}
}

func runIngest(cmd *cobra.Command, args []string) error {
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

	out := cmd.OutOrStdout()
	failed := 0
	for _, path := range args {
		content, err := os.ReadFile(path)
		if err != nil {
			failed++
			fmt.Fprintf(out, "%s: %v\n", path, err)
			continue
		}

		report, err := app.Processor.Process(cmd.Context(), filepath.Base(path), content)
		if err != nil {
			failed++
			fmt.Fprintf(out, "%s: %v\n", path, err)
			continue
		}
		fmt.Fprintf(out, "%s: %d chunks inserted, %d already indexed\n",
			path, report.Inserted, report.Deduplicated)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(args))
	}
	return nil
}
