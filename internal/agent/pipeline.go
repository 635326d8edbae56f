// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Complyd Contributors

package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/complyd-dev/complyd/internal/provider"
	comperr "github.com/complyd-dev/complyd/pkg/errors"
)

// State tracks where a pipeline run is in its lifecycle.
type State string

const (
	StateRouting      State = "ROUTING"
	StateInternalOnly State = "INTERNAL_ONLY"
	StateExternalOnly State = "EXTERNAL_ONLY"
	StateFullPipeline State = "FULL_PIPELINE"
	StateSynthesizing State = "SYNTHESIZING"
	StateDone         State = "DONE"
	StateError        State = "ERROR"
)

// Route is the coordinator's decision for a query. Route values are the
// mid-pipeline states.
type Route = State

// Default loop budgets. A stage that keeps calling tools is cut off rather
// than allowed to spin.
const (
	DefaultMaxStageTurns = 4
	DefaultMaxToolCalls  = 8
)

// Config holds pipeline tuning.
type Config struct {
	// ModelRef is the "provider/model" reference used for every LLM call.
	// Empty means the registry default.
	ModelRef string
	// Temperature for all LLM calls. Zero leaves the provider default.
	Temperature float32
	// MaxTokens per LLM response. Zero leaves the provider default.
	MaxTokens int
	// MaxStageTurns caps chat turns per evidence stage.
	MaxStageTurns int
	// MaxToolCalls caps tool executions per evidence stage.
	MaxToolCalls int
}

// Pipeline runs compliance analysis: route, gather evidence, synthesize.
type Pipeline struct {
	registry *provider.Registry
	internal Stage
	external Stage
	cfg      Config
	logger   *slog.Logger
}

// NewPipeline assembles a pipeline. Zero budget values in cfg are replaced
// with defaults; a nil logger falls back to slog.Default().
func NewPipeline(registry *provider.Registry, internal, external Stage, cfg Config, logger *slog.Logger) *Pipeline {
	if cfg.MaxStageTurns <= 0 {
		cfg.MaxStageTurns = DefaultMaxStageTurns
	}
	if cfg.MaxToolCalls <= 0 {
		cfg.MaxToolCalls = DefaultMaxToolCalls
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		registry: registry,
		internal: internal,
		external: external,
		cfg:      cfg,
		logger:   logger,
	}
}

// Run starts a pipeline run for the given query and returns its event
// stream. The channel is closed after exactly one terminal event
// (agent_complete or error). An invalid query fails fast before any
// events are produced.
func (p *Pipeline) Run(ctx context.Context, query string) (<-chan Event, error) {
	if strings.TrimSpace(query) == "" {
		return nil, comperr.New(comperr.CodePipelineInvalidInput, "query is empty")
	}

	ch := make(chan Event, 64)
	go func() {
		defer close(ch)
		p.run(ctx, query, ch)
	}()
	return ch, nil
}

func (p *Pipeline) run(ctx context.Context, query string, ch chan<- Event) {
	emit := func(e Event) {
		select {
		case ch <- e:
		case <-ctx.Done():
		}
	}

	logger := p.logger.With("run_id", uuid.NewString())

	state := StateRouting
	logger.Info("pipeline started", "state", state, "query_len", len(query))

	emit(AgentStartEvent(coordinatorAgent, "Analyzing query and routing to specialist agents..."))

	route := p.route(ctx, logger, query)
	state = route
	logger.Info("query routed", "state", state)

	evidence := make(map[string]string)
	switch route {
	case StateInternalOnly:
		evidence[p.internal.Key()] = p.runStage(ctx, logger, p.internal, query, emit)
	case StateExternalOnly:
		evidence[p.external.Key()] = p.runStage(ctx, logger, p.external, query, emit)
	default:
		// Full pipeline: internal evidence first, then external.
		evidence[p.internal.Key()] = p.runStage(ctx, logger, p.internal, query, emit)
		evidence[p.external.Key()] = p.runStage(ctx, logger, p.external, query, emit)
	}

	state = StateSynthesizing
	logger.Info("synthesizing evidence", "state", state, "bundles", len(evidence))

	if _, err := p.synthesize(ctx, query, evidence, emit); err != nil {
		state = StateError
		logger.Error("pipeline failed", "state", state, "error", err)
		emit(ErrorEvent(analyzerAgent, "compliance analysis failed", err.Error()))
		return
	}

	state = StateDone
	logger.Info("pipeline finished", "state", state)
	emit(AgentCompleteEvent(coordinatorAgent, "Compliance analysis complete"))
}

// route asks the model to classify the query. Any failure or unparseable
// reply falls back to the full pipeline so the query is still answered.
func (p *Pipeline) route(ctx context.Context, logger *slog.Logger, query string) Route {
	prov, model, err := p.registry.Route(ctx, p.cfg.ModelRef)
	if err != nil {
		logger.Warn("routing unavailable, using full pipeline",
			"error", comperr.Wrapf(err, comperr.CodePipelineRoutingFailure, "resolving provider"))
		return StateFullPipeline
	}

	reply, err := p.collectText(ctx, prov, provider.ChatRequest{
		Model:        model,
		SystemPrompt: routingInstruction,
		Messages: []provider.Message{
			{Role: provider.MessageRoleUser, Content: query},
		},
		Options: provider.ChatOptions{MaxTokens: 16, Stream: true},
	})
	if err != nil {
		logger.Warn("routing call failed, using full pipeline",
			"error", comperr.Wrapf(err, comperr.CodePipelineRoutingFailure, "classifying query"))
		return StateFullPipeline
	}

	return parseRoute(reply)
}

// collectText drains a chat stream and returns its concatenated text.
func (p *Pipeline) collectText(ctx context.Context, prov provider.Provider, req provider.ChatRequest) (string, error) {
	events, err := prov.Chat(ctx, req)
	if err != nil {
		return "", err
	}

	var text strings.Builder
	for ev := range events {
		switch ev.Type {
		case provider.EventTypeTextDelta:
			text.WriteString(ev.Text)
		case provider.EventTypeError:
			return "", comperr.New(comperr.CodeProviderUpstreamFailure, ev.Error)
		}
	}
	return text.String(), nil
}

// parseRoute maps a model reply to a Route, defaulting to the full pipeline.
func parseRoute(reply string) Route {
	upper := strings.ToUpper(reply)
	switch {
	case strings.Contains(upper, string(StateInternalOnly)):
		return StateInternalOnly
	case strings.Contains(upper, string(StateExternalOnly)):
		return StateExternalOnly
	case strings.Contains(upper, string(StateFullPipeline)):
		return StateFullPipeline
	}
	return StateFullPipeline
}

// runStage drives one evidence stage's chat loop: the model may call the
// stage tool, results are fed back, and the model's final tool-free reply
// becomes the evidence bundle. Failures never abort the pipeline; they
// produce a bundle describing what went wrong so synthesis can account
// for the missing evidence.
func (p *Pipeline) runStage(ctx context.Context, logger *slog.Logger, stage Stage, query string, emit func(Event)) string {
	emit(AgentActiveEvent(stage.Name()))

	prov, model, err := p.registry.Route(ctx, p.cfg.ModelRef)
	if err != nil {
		return p.stageFailure(logger, stage, err)
	}

	msgs := []provider.Message{
		{Role: provider.MessageRoleUser, Content: query},
	}
	toolBudget := p.cfg.MaxToolCalls
	var lastText string

	for turn := 0; turn < p.cfg.MaxStageTurns; turn++ {
		events, err := prov.Chat(ctx, provider.ChatRequest{
			Model:        model,
			SystemPrompt: stage.Instruction(),
			Messages:     msgs,
			Tools:        []provider.ToolDefinition{stage.Tool()},
			Options: provider.ChatOptions{
				Temperature: p.cfg.Temperature,
				MaxTokens:   p.cfg.MaxTokens,
				Stream:      true,
			},
		})
		if err != nil {
			return p.stageFailure(logger, stage, err)
		}

		var text strings.Builder
		var calls []provider.ToolCall
		var streamErr error
		for ev := range events {
			switch ev.Type {
			case provider.EventTypeTextDelta:
				text.WriteString(ev.Text)
			case provider.EventTypeToolCall:
				calls = append(calls, *ev.ToolCall)
			case provider.EventTypeError:
				streamErr = comperr.New(comperr.CodePipelineStageFailure, ev.Error)
			}
		}
		if streamErr != nil {
			if lastText != "" {
				return lastText
			}
			return p.stageFailure(logger, stage, streamErr)
		}
		if text.Len() > 0 {
			lastText = text.String()
		}
		if len(calls) == 0 {
			return lastText
		}

		assistantNote := text.String()
		if assistantNote == "" {
			assistantNote = "Gathering evidence with " + calls[0].Name + "."
		}
		msgs = append(msgs, provider.Message{
			Role:    provider.MessageRoleAssistant,
			Content: assistantNote,
		})

		for _, tc := range calls {
			if toolBudget <= 0 {
				logger.Warn("tool call budget exhausted",
					"agent", stage.Name(),
					"error", comperr.New(comperr.CodePipelineBudgetExceeded, "tool call budget exhausted"))
				msgs = append(msgs, provider.Message{
					Role:       provider.MessageRoleTool,
					ToolCallID: tc.ID,
					ToolName:   tc.Name,
					Content:    "Tool call budget exhausted. Answer with the evidence gathered so far.",
				})
				continue
			}
			toolBudget--

			emit(ToolCallEvent(stage.Name(), tc.Name, tc.Arguments))

			result, err := stage.Invoke(ctx, tc.Arguments)
			if err != nil {
				result = toolError(err)
			}
			emit(ToolResultEvent(stage.Name(), tc.Name, result))

			msgs = append(msgs, provider.Message{
				Role:       provider.MessageRoleTool,
				ToolCallID: tc.ID,
				ToolName:   tc.Name,
				Content:    result,
			})
		}
	}

	logger.Warn("stage turn budget exhausted",
		"agent", stage.Name(),
		"error", comperr.New(comperr.CodePipelineBudgetExceeded, "stage turn budget exhausted"))
	if lastText != "" {
		return lastText
	}
	return "Evidence gathering stopped before producing findings: turn budget exhausted."
}

// stageFailure logs a stage error and turns it into an evidence bundle so
// synthesis still runs with whatever the other stages collected.
func (p *Pipeline) stageFailure(logger *slog.Logger, stage Stage, err error) string {
	logger.Error("evidence stage failed", "agent", stage.Name(), "error", err)
	return fmt.Sprintf("Evidence unavailable from %s: %v", stage.Name(), err)
}

// synthesize runs the tool-free analyzer pass, streaming its text to the
// client and returning the full report.
func (p *Pipeline) synthesize(ctx context.Context, query string, evidence map[string]string, emit func(Event)) (string, error) {
	prov, model, err := p.registry.Route(ctx, p.cfg.ModelRef)
	if err != nil {
		return "", comperr.Wrapf(err, comperr.CodePipelineSynthesisFailure, "resolving provider")
	}

	emit(AgentActiveEvent(analyzerAgent))

	events, err := prov.Chat(ctx, provider.ChatRequest{
		Model:        model,
		SystemPrompt: analyzerInstruction,
		Messages: []provider.Message{
			{Role: provider.MessageRoleUser, Content: synthesisPrompt(query, evidence)},
		},
		Options: provider.ChatOptions{
			Temperature: p.cfg.Temperature,
			MaxTokens:   p.cfg.MaxTokens,
			Stream:      true,
		},
	})
	if err != nil {
		return "", comperr.Wrapf(err, comperr.CodePipelineSynthesisFailure, "starting analyzer")
	}

	var report strings.Builder
	for ev := range events {
		switch ev.Type {
		case provider.EventTypeTextDelta:
			report.WriteString(ev.Text)
			emit(AgentTextEvent(analyzerAgent, ev.Text))
		case provider.EventTypeError:
			return "", comperr.New(comperr.CodePipelineSynthesisFailure, ev.Error)
		}
	}
	if report.Len() == 0 {
		return "", comperr.New(comperr.CodePipelineSynthesisFailure, "analyzer produced no output")
	}
	return report.String(), nil
}

// synthesisPrompt assembles the analyzer's input from the query and the
// collected evidence bundles.
func synthesisPrompt(query string, evidence map[string]string) string {
	var b strings.Builder
	b.WriteString("Compliance question:\n")
	b.WriteString(query)

	b.WriteString("\n\nInternal policy document findings:\n")
	if v, ok := evidence["internal_evidence"]; ok && v != "" {
		b.WriteString(v)
	} else {
		b.WriteString("No internal evidence was collected for this query.")
	}

	b.WriteString("\n\nWeb research findings:\n")
	if v, ok := evidence["external_evidence"]; ok && v != "" {
		b.WriteString(v)
	} else {
		b.WriteString("No external evidence was collected for this query.")
	}

	return b.String()
}
