// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Complyd Contributors

package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/complyd-dev/complyd/internal/agent"
	"github.com/complyd-dev/complyd/internal/config"
	"github.com/complyd-dev/complyd/internal/provider"
	anthropicprov "github.com/complyd-dev/complyd/internal/provider/anthropic"
	googleprov "github.com/complyd-dev/complyd/internal/provider/google"
	openaiprov "github.com/complyd-dev/complyd/internal/provider/openai"
	"github.com/complyd-dev/complyd/internal/retrieval"
	"github.com/complyd-dev/complyd/internal/server"
	"github.com/complyd-dev/complyd/internal/store"
	_ "github.com/complyd-dev/complyd/internal/store/sqlite" // register sqlite backend
	"github.com/complyd-dev/complyd/internal/websearch"
	comperr "github.com/complyd-dev/complyd/pkg/errors"
)

// App holds all wired subsystems and manages their lifecycle.
type App struct {
	Server    *server.Server
	Store     store.VectorStore
	Index     *retrieval.Index
	Processor *retrieval.Processor
	Registry  *provider.Registry
	Pipeline  *agent.Pipeline
}

// WireApp creates all subsystems and wires them together.
func WireApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := slog.Default()

	// 1. Vector store.
	vs, err := store.Open(store.StorageConfig{
		Backend:    cfg.Storage.Backend,
		Path:       cfg.Storage.Path,
		Dimensions: cfg.Retrieval.EmbeddingDimensions,
	})
	if err != nil {
		return nil, comperr.Wrapf(err, comperr.CodeCLISetupFailure, "opening vector store")
	}

	// 2. Retrieval: embedder, index, document processor.
	embedder, err := retrieval.NewOpenAIEmbedder(retrieval.OpenAIConfig{
		APIKey:     cfg.Providers["openai"].APIKey,
		BaseURL:    cfg.Providers["openai"].Endpoint,
		Model:      cfg.Retrieval.EmbeddingModel,
		Dimensions: cfg.Retrieval.EmbeddingDimensions,
	})
	if err != nil {
		_ = vs.Close()
		return nil, comperr.Wrapf(err, comperr.CodeCLISetupFailure, "creating embedder")
	}

	index := retrieval.NewIndex(embedder, vs)

	chunker, err := retrieval.NewChunker(cfg.Retrieval.ChunkSize, cfg.Retrieval.ChunkOverlap)
	if err != nil {
		_ = vs.Close()
		return nil, comperr.Wrapf(err, comperr.CodeCLISetupFailure, "creating chunker")
	}
	processor := retrieval.NewProcessor(chunker, index, logger)

	// 3. Provider registry.
	registry := provider.NewRegistry()
	registerBuiltinProviders(cfg, registry)

	if cfg.Models.Default != "" {
		if err := registry.SetDefault(cfg.Models.Default); err != nil {
			_ = vs.Close()
			return nil, comperr.Wrapf(err, comperr.CodeCLISetupFailure, "setting default provider: %s", cfg.Models.Default)
		}
	}

	// 4. Web search.
	var searcher websearch.Searcher
	if cfg.WebSearch.APIKey != "" && cfg.WebSearch.EngineID != "" {
		searcher, err = websearch.NewGoogleSearcher(ctx, websearch.GoogleConfig{
			APIKey:   cfg.WebSearch.APIKey,
			EngineID: cfg.WebSearch.EngineID,
		})
		if err != nil {
			_ = vs.Close()
			return nil, comperr.Wrapf(err, comperr.CodeCLISetupFailure, "creating web searcher")
		}
	} else {
		slog.Warn("web search credentials not configured: external evidence stage will report unavailable")
		searcher = websearch.Disabled{}
	}

	// 5. Pipeline.
	pipeline := agent.NewPipeline(
		registry,
		agent.NewInternalStage(index, logger),
		agent.NewExternalStage(searcher, logger),
		agent.Config{
			ModelRef:      cfg.Models.Default,
			Temperature:   cfg.Models.Temperature,
			MaxTokens:     cfg.Models.MaxTokens,
			MaxStageTurns: cfg.Pipeline.MaxStageTurns,
			MaxToolCalls:  cfg.Pipeline.MaxToolCalls,
		},
		logger,
	)

	// 6. HTTP server.
	srv, err := server.New(server.Config{
		ListenAddr:  cfg.Server.Listen,
		CORSOrigins: cfg.Server.CORSOrigins,
	}, logger)
	if err != nil {
		_ = vs.Close()
		return nil, comperr.Wrapf(err, comperr.CodeCLISetupFailure, "creating server")
	}
	srv.RegisterPipeline(pipeline)
	srv.RegisterProcessor(processor)

	return &App{
		Server:    srv,
		Store:     vs,
		Index:     index,
		Processor: processor,
		Registry:  registry,
		Pipeline:  pipeline,
	}, nil
}

// Start runs the HTTP server and blocks until the context is cancelled.
func (a *App) Start(ctx context.Context) error {
	return a.Server.Start(ctx)
}

// Close releases all resources held by the app.
func (a *App) Close() error {
	var errs []error
	if a.Registry != nil {
		if err := a.Registry.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// providerFactory builds a provider.Provider from a ProviderConfig.
type providerFactory func(config.ProviderConfig) (provider.Provider, error)

// builtinProviderFactories maps provider names to their constructors.
// Declared as a variable so tests can inject failing factories.
var builtinProviderFactories = map[string]providerFactory{
	"anthropic": func(pc config.ProviderConfig) (provider.Provider, error) {
		return anthropicprov.New(anthropicprov.Config{APIKey: pc.APIKey, BaseURL: pc.Endpoint})
	},
	"google": func(pc config.ProviderConfig) (provider.Provider, error) {
		return googleprov.New(googleprov.Config{APIKey: pc.APIKey})
	},
	"openai": func(pc config.ProviderConfig) (provider.Provider, error) {
		return openaiprov.New(openaiprov.Config{APIKey: pc.APIKey, BaseURL: pc.Endpoint})
	},
}

// registerBuiltinProviders iterates configured providers and registers
// matching built-in implementations. Unknown names or empty API keys are
// logged and skipped — neither is fatal at startup.
func registerBuiltinProviders(cfg *config.Config, reg *provider.Registry) {
	for name, pc := range cfg.Providers {
		if pc.APIKey == "" {
			slog.Warn("skipping provider with empty API key", "provider", name)
			continue
		}
		factory, ok := builtinProviderFactories[name]
		if !ok {
			slog.Warn("unknown provider in config, skipping", "provider", name)
			continue
		}
		p, err := factory(pc)
		if err != nil {
			slog.Warn("failed to create provider", "provider", name, "error", err)
			continue
		}
		reg.Register(name, p)
		slog.Info("registered provider", "provider", name)
	}
}
