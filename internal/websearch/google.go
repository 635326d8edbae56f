// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Complyd Contributors

package websearch

import (
	"context"

	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"

	comperr "github.com/complyd-dev/complyd/pkg/errors"
)

// maxResultsPerCall is the Programmable Search API's per-request ceiling.
const maxResultsPerCall = 10

// GoogleConfig holds Programmable Search Engine credentials.
type GoogleConfig struct {
	APIKey   string
	EngineID string
	Endpoint string // optional, useful for testing against a mock server
}

// Compile-time interface check.
var _ Searcher = (*GoogleSearcher)(nil)

// GoogleSearcher implements Searcher using the Google Programmable Search API.
type GoogleSearcher struct {
	svc      *customsearch.Service
	engineID string
}

// NewGoogleSearcher creates a web searcher. Returns an error if credentials
// are missing.
func NewGoogleSearcher(ctx context.Context, cfg GoogleConfig) (*GoogleSearcher, error) {
	if cfg.APIKey == "" {
		return nil, comperr.New(comperr.CodeConfigCredentialMissing, "google search: missing api_key")
	}
	if cfg.EngineID == "" {
		return nil, comperr.New(comperr.CodeConfigCredentialMissing, "google search: missing engine_id")
	}

	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	svc, err := customsearch.NewService(ctx, opts...)
	if err != nil {
		return nil, comperr.Wrapf(err, comperr.CodeWebSearchUpstreamFailure, "creating search service")
	}

	return &GoogleSearcher{svc: svc, engineID: cfg.EngineID}, nil
}

func (g *GoogleSearcher) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if query == "" {
		return nil, comperr.New(comperr.CodeWebSearchRequestInvalid, "query is empty")
	}
	if limit <= 0 || limit > maxResultsPerCall {
		limit = maxResultsPerCall
	}

	resp, err := g.svc.Cse.List().
		Q(query).
		Cx(g.engineID).
		Num(int64(limit)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, comperr.Wrapf(err, comperr.CodeWebSearchUpstreamFailure, "searching web for %q", query)
	}

	results := make([]Result, 0, len(resp.Items))
	for _, item := range resp.Items {
		results = append(results, Result{
			Title:   item.Title,
			URL:     item.Link,
			Snippet: item.Snippet,
		})
	}
	return results, nil
}
