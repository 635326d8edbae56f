// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Complyd Contributors

package agent

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/complyd-dev/complyd/internal/provider"
	"github.com/complyd-dev/complyd/internal/retrieval"
	"github.com/complyd-dev/complyd/internal/websearch"
	comperr "github.com/complyd-dev/complyd/pkg/errors"
)

// Agent names reported in the event stream.
const (
	coordinatorAgent  = "coordinator"
	internalDocsAgent = "internal_docs_agent"
	webSearchAgent    = "web_search_agent"
	analyzerAgent     = "analyzer_agent"
)

// Tool names exposed to the model.
const (
	toolSearchInternalDocs = "search_internal_docs"
	toolWebSearch          = "web_search"
)

// defaultToolResults is the per-call result count when the model omits
// num_results.
const defaultToolResults = 5

// Roster lists the agents a pipeline run can report, for health reporting.
func Roster() []string {
	return []string{coordinatorAgent, internalDocsAgent, webSearchAgent, analyzerAgent}
}

// Stage is one evidence-gathering step of the pipeline. Each stage owns a
// single tool the model can call; the pipeline runs the chat loop and
// dispatches tool calls through Invoke.
type Stage interface {
	// Name is the agent name used in stream events.
	Name() string
	// Key identifies the stage's evidence bundle in the synthesis prompt.
	Key() string
	// Instruction is the stage's system prompt.
	Instruction() string
	// Tool describes the stage's tool for the model.
	Tool() provider.ToolDefinition
	// Invoke executes a tool call. args is the model's JSON arguments.
	// Upstream failures are reported inside the returned JSON so the model
	// can react; an error return means the call itself was malformed.
	Invoke(ctx context.Context, args string) (string, error)
}

// searchArgs is the argument shape shared by both stage tools.
type searchArgs struct {
	Query      string `json:"query"`
	NumResults int    `json:"num_results"`
}

func parseSearchArgs(args string) (searchArgs, error) {
	var parsed searchArgs
	if err := json.Unmarshal([]byte(args), &parsed); err != nil {
		return searchArgs{}, comperr.Wrapf(err, comperr.CodePipelineStageFailure, "parsing tool arguments")
	}
	if parsed.Query == "" {
		return searchArgs{}, comperr.New(comperr.CodePipelineStageFailure, "tool arguments missing query")
	}
	if parsed.NumResults <= 0 {
		parsed.NumResults = defaultToolResults
	}
	return parsed, nil
}

// toolError formats an upstream failure as a JSON payload the model can read.
func toolError(err error) string {
	payload, merr := json.Marshal(map[string]any{
		"error":   err.Error(),
		"results": []any{},
	})
	if merr != nil {
		return `{"error": "tool failed", "results": []}`
	}
	return string(payload)
}

// InternalStage searches the embedded policy document index.
type InternalStage struct {
	index  *retrieval.Index
	logger *slog.Logger
}

var _ Stage = (*InternalStage)(nil)

func NewInternalStage(index *retrieval.Index, logger *slog.Logger) *InternalStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &InternalStage{index: index, logger: logger}
}

func (s *InternalStage) Name() string        { return internalDocsAgent }
func (s *InternalStage) Key() string         { return "internal_evidence" }
func (s *InternalStage) Instruction() string { return internalInstruction }

func (s *InternalStage) Tool() provider.ToolDefinition {
	return provider.ToolDefinition{
		Name:        toolSearchInternalDocs,
		Description: "Search internal insurance policy documents for relevant information. Returns relevant document chunks with source metadata.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "The search query to find relevant policy information",
				},
				"num_results": map[string]any{
					"type":        "integer",
					"description": "Number of results to return (default 5)",
				},
			},
			"required": []any{"query"},
		},
	}
}

func (s *InternalStage) Invoke(ctx context.Context, args string) (string, error) {
	parsed, err := parseSearchArgs(args)
	if err != nil {
		return "", err
	}

	s.logger.Info("searching internal documents", "query", parsed.Query, "k", parsed.NumResults)

	items, err := s.index.Query(ctx, parsed.Query, parsed.NumResults)
	if err != nil {
		s.logger.Error("internal document search failed", "query", parsed.Query, "error", err)
		return toolError(err), nil
	}

	payload, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return toolError(err), nil
	}
	return string(payload), nil
}

// ExternalStage searches the public web for regulations and standards.
type ExternalStage struct {
	searcher websearch.Searcher
	logger   *slog.Logger
}

var _ Stage = (*ExternalStage)(nil)

func NewExternalStage(searcher websearch.Searcher, logger *slog.Logger) *ExternalStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExternalStage{searcher: searcher, logger: logger}
}

func (s *ExternalStage) Name() string        { return webSearchAgent }
func (s *ExternalStage) Key() string         { return "external_evidence" }
func (s *ExternalStage) Instruction() string { return externalInstruction }

func (s *ExternalStage) Tool() provider.ToolDefinition {
	return provider.ToolDefinition{
		Name:        toolWebSearch,
		Description: "Search the web for external compliance standards, regulations, and industry practices. Returns result titles, URLs, and snippets.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "The web search query",
				},
				"num_results": map[string]any{
					"type":        "integer",
					"description": "Number of results to return (default 5, max 10)",
				},
			},
			"required": []any{"query"},
		},
	}
}

func (s *ExternalStage) Invoke(ctx context.Context, args string) (string, error) {
	parsed, err := parseSearchArgs(args)
	if err != nil {
		return "", err
	}

	s.logger.Info("searching web", "query", parsed.Query, "limit", parsed.NumResults)

	results, err := s.searcher.Search(ctx, parsed.Query, parsed.NumResults)
	if err != nil {
		s.logger.Error("web search failed", "query", parsed.Query, "error", err)
		return toolError(err), nil
	}

	payload, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return toolError(err), nil
	}
	return string(payload), nil
}
