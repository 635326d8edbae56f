// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Complyd Contributors

// Package websearch provides the external search capability used by the
// web evidence stage: regulatory standards, industry practice, and state or
// federal insurance law live outside the internal corpus.
package websearch

import (
	"context"

	comperr "github.com/complyd-dev/complyd/pkg/errors"
)

// Result is a single web search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Searcher answers free-text queries against the public web. Zero results is
// a valid outcome, not an error. Results are non-deterministic and latency
// varies; callers must treat this as a network collaborator.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]Result, error)
}

// Disabled is the Searcher used when no search credentials are configured.
// Every query fails, which the pipeline reports as unavailable evidence.
type Disabled struct{}

var _ Searcher = Disabled{}

func (Disabled) Search(_ context.Context, _ string, _ int) ([]Result, error) {
	return nil, comperr.New(comperr.CodeWebSearchUpstreamFailure, "web search is not configured")
}
