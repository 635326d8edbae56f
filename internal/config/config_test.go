// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Complyd Contributors

package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/complyd-dev/complyd/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultValues(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Listen)
	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Equal(t, 1000, cfg.Retrieval.ChunkSize)
	assert.Equal(t, 200, cfg.Retrieval.ChunkOverlap)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.Equal(t, "text-embedding-3-small", cfg.Retrieval.EmbeddingModel)
	assert.Equal(t, 1536, cfg.Retrieval.EmbeddingDimensions)
	assert.Equal(t, "google/gemini-2.5-flash", cfg.Models.Default)
	assert.Equal(t, 4, cfg.Pipeline.MaxStageTurns)
	assert.Equal(t, 8, cfg.Pipeline.MaxToolCalls)
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "complyd.yaml")

	content := `
server:
  listen: "0.0.0.0:9999"
models:
  default: "openai/gpt-4.1"
providers:
  openai:
    api_key: "test-key"
storage:
  backend: sqlite
  path: /tmp/complyd.db
`
	err := os.WriteFile(cfgPath, []byte(content), 0o644)
	require.NoError(t, err)

	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9999", cfg.Server.Listen)
	assert.Equal(t, "openai/gpt-4.1", cfg.Models.Default)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("COMPLYD_SERVER_LISTEN", "10.0.0.1:8080")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1:8080", cfg.Server.Listen)
}

func TestLoad_ValidationCalledAtLoadTime(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "complyd.yaml")

	content := `
storage:
  backend: "cassandra"
`
	err := os.WriteFile(cfgPath, []byte(content), 0o644)
	require.NoError(t, err)

	_, err = config.Load(cfgPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage.backend")
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := &config.Config{
		Server:  config.ServerConfig{Listen: "not-an-address"},
		Storage: config.StorageConfig{Backend: "sqlite"},
		Retrieval: config.RetrievalConfig{
			ChunkSize:           100,
			ChunkOverlap:        100,
			TopK:                0,
			EmbeddingDimensions: 1536,
		},
		Models:   config.ModelsConfig{Default: "bare-model"},
		Pipeline: config.PipelineConfig{MaxStageTurns: 4, MaxToolCalls: 8},
	}

	errs := cfg.Validate()
	require.NotEmpty(t, errs)

	joined := make([]string, 0, len(errs))
	for _, err := range errs {
		joined = append(joined, err.Error())
	}
	all := strings.Join(joined, "\n")
	assert.Contains(t, all, "server.listen")
	assert.Contains(t, all, "storage.path")
	assert.Contains(t, all, "chunk_overlap")
	assert.Contains(t, all, "top_k")
	assert.Contains(t, all, "provider/model")
}

func TestValidate_MissingProvider(t *testing.T) {
	cfg := &config.Config{
		Server:  config.ServerConfig{Listen: "127.0.0.1:8080"},
		Storage: config.StorageConfig{Backend: "memory"},
		Retrieval: config.RetrievalConfig{
			ChunkSize:           1000,
			ChunkOverlap:        200,
			TopK:                5,
			EmbeddingDimensions: 1536,
		},
		Models:    config.ModelsConfig{Default: "anthropic/claude-sonnet-4-5"},
		Providers: map[string]config.ProviderConfig{},
		Pipeline:  config.PipelineConfig{MaxStageTurns: 4, MaxToolCalls: 8},
	}

	errs := cfg.Validate()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), `references provider "anthropic"`)
}

func TestValidateCredentials(t *testing.T) {
	cfg := &config.Config{
		Models: config.ModelsConfig{Default: "google/gemini-2.5-flash"},
		Providers: map[string]config.ProviderConfig{
			"openai": {APIKey: "sk-embed"},
			"google": {APIKey: "g-key"},
		},
	}
	assert.Empty(t, cfg.ValidateCredentials())

	cfg.Providers["google"] = config.ProviderConfig{}
	errs := cfg.ValidateCredentials()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "providers.google.api_key")
}

func TestValidateCredentials_WebSearchPair(t *testing.T) {
	cfg := &config.Config{
		Models: config.ModelsConfig{Default: "openai/gpt-4.1"},
		Providers: map[string]config.ProviderConfig{
			"openai": {APIKey: "sk-test"},
		},
		WebSearch: config.WebSearchConfig{APIKey: "key-without-engine"},
	}

	errs := cfg.ValidateCredentials()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "websearch")
}
