// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Complyd Contributors

// Package config loads and validates complyd configuration from file and
// environment.
package config

import (
	"errors"
	"net"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	comperr "github.com/complyd-dev/complyd/pkg/errors"
)

// Config is the top-level complyd configuration.
type Config struct {
	Server    ServerConfig              `mapstructure:"server"`
	Providers map[string]ProviderConfig `mapstructure:"providers"`
	Models    ModelsConfig              `mapstructure:"models"`
	Retrieval RetrievalConfig           `mapstructure:"retrieval"`
	Storage   StorageConfig             `mapstructure:"storage"`
	WebSearch WebSearchConfig           `mapstructure:"websearch"`
	Pipeline  PipelineConfig            `mapstructure:"pipeline"`
}

// ServerConfig controls how complyd listens for connections.
type ServerConfig struct {
	Listen      string   `mapstructure:"listen"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// ProviderConfig holds credentials and endpoint for an LLM provider.
type ProviderConfig struct {
	APIKey   string `mapstructure:"api_key"`
	Endpoint string `mapstructure:"endpoint"`
}

// ModelsConfig controls model selection for the pipeline.
type ModelsConfig struct {
	Default     string  `mapstructure:"default"`
	Temperature float32 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// RetrievalConfig controls chunking and embedding.
type RetrievalConfig struct {
	ChunkSize           int    `mapstructure:"chunk_size"`
	ChunkOverlap        int    `mapstructure:"chunk_overlap"`
	TopK                int    `mapstructure:"top_k"`
	EmbeddingModel      string `mapstructure:"embedding_model"`
	EmbeddingDimensions int    `mapstructure:"embedding_dimensions"`
}

// StorageConfig selects the vector store backend.
type StorageConfig struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
}

// WebSearchConfig holds Programmable Search Engine credentials. Both fields
// empty disables the external evidence stage's upstream; the stage then
// reports its evidence as unavailable.
type WebSearchConfig struct {
	APIKey   string `mapstructure:"api_key"`
	EngineID string `mapstructure:"engine_id"`
}

// PipelineConfig bounds the evidence-gathering loops.
type PipelineConfig struct {
	MaxStageTurns int `mapstructure:"max_stage_turns"`
	MaxToolCalls  int `mapstructure:"max_tool_calls"`
}

// Load reads configuration from the given path (or defaults) with
// environment variable overrides (prefix COMPLYD_).
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.listen", "127.0.0.1:8080")
	v.SetDefault("storage.backend", "memory")
	v.SetDefault("retrieval.chunk_size", 1000)
	v.SetDefault("retrieval.chunk_overlap", 200)
	v.SetDefault("retrieval.top_k", 5)
	v.SetDefault("retrieval.embedding_model", "text-embedding-3-small")
	v.SetDefault("retrieval.embedding_dimensions", 1536)
	v.SetDefault("models.default", "google/gemini-2.5-flash")
	v.SetDefault("models.temperature", 0.2)
	v.SetDefault("models.max_tokens", 4096)
	v.SetDefault("pipeline.max_stage_turns", 4)
	v.SetDefault("pipeline.max_tool_calls", 8)

	// Environment
	v.SetEnvPrefix("COMPLYD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// File
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, comperr.Errorf(comperr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, comperr.Errorf(comperr.CodeConfigValidateInvalidValue, "unmarshalling config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, comperr.Errorf(comperr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}

	return &cfg, nil
}

// Validate checks the configuration for logical errors.
// It returns a slice of all validation errors found, collecting all issues
// rather than stopping at the first one.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateServer()...)
	errs = append(errs, c.validateStorage()...)
	errs = append(errs, c.validateRetrieval()...)
	errs = append(errs, c.validateModels()...)
	errs = append(errs, c.validatePipeline()...)

	return errs
}

// ValidateCredentials checks that the API keys the configured pipeline needs
// are present. Kept separate from Validate so offline commands can load a
// config without credentials.
func (c *Config) ValidateCredentials() []error {
	var errs []error

	// Embeddings always go through OpenAI.
	if c.Providers["openai"].APIKey == "" {
		errs = append(errs, comperr.New(comperr.CodeConfigCredentialMissing,
			"config: providers.openai.api_key is required for embeddings"))
	}

	if strings.Contains(c.Models.Default, "/") {
		providerName := providerFromModel(c.Models.Default)
		if c.Providers[providerName].APIKey == "" {
			errs = append(errs, comperr.Errorf(comperr.CodeConfigCredentialMissing,
				"config: providers.%s.api_key is required by models.default %q",
				providerName, c.Models.Default))
		}
	}

	// Web search credentials must come in pairs.
	if (c.WebSearch.APIKey == "") != (c.WebSearch.EngineID == "") {
		errs = append(errs, comperr.New(comperr.CodeConfigCredentialMissing,
			"config: websearch.api_key and websearch.engine_id must be set together"))
	}

	return errs
}

func (c *Config) validateServer() []error {
	var errs []error

	if c.Server.Listen == "" {
		errs = append(errs, comperr.Errorf(comperr.CodeConfigValidateInvalidValue, "config: server.listen must not be empty"))
		return errs
	}

	_, portStr, err := net.SplitHostPort(c.Server.Listen)
	if err != nil {
		errs = append(errs, comperr.Errorf(comperr.CodeConfigValidateInvalidValue,
			"config: server.listen must be a valid host:port address, got %q: %w",
			c.Server.Listen, err,
		))
		return errs
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		errs = append(errs, comperr.Errorf(comperr.CodeConfigValidateInvalidValue,
			"config: server.listen port must be a number, got %q",
			portStr,
		))
	} else if port < 0 || port > 65535 {
		errs = append(errs, comperr.Errorf(comperr.CodeConfigValidateInvalidValue,
			"config: server.listen port must be between 0 and 65535, got %d",
			port,
		))
	}

	return errs
}

func (c *Config) validateStorage() []error {
	var errs []error

	validBackends := map[string]bool{"memory": true, "sqlite": true}
	if !validBackends[c.Storage.Backend] {
		errs = append(errs, comperr.Errorf(comperr.CodeConfigValidateInvalidValue,
			"config: storage.backend must be one of [memory, sqlite], got %q",
			c.Storage.Backend,
		))
	}

	if c.Storage.Backend == "sqlite" && c.Storage.Path == "" {
		errs = append(errs, comperr.Errorf(comperr.CodeConfigValidateInvalidValue,
			"config: storage.path must be set when storage.backend is sqlite"))
	}

	return errs
}

func (c *Config) validateRetrieval() []error {
	var errs []error

	if c.Retrieval.ChunkSize <= 0 {
		errs = append(errs, comperr.Errorf(comperr.CodeConfigValidateInvalidValue,
			"config: retrieval.chunk_size must be greater than 0, got %d",
			c.Retrieval.ChunkSize,
		))
	}

	if c.Retrieval.ChunkOverlap < 0 {
		errs = append(errs, comperr.Errorf(comperr.CodeConfigValidateInvalidValue,
			"config: retrieval.chunk_overlap must not be negative, got %d",
			c.Retrieval.ChunkOverlap,
		))
	} else if c.Retrieval.ChunkSize > 0 && c.Retrieval.ChunkOverlap >= c.Retrieval.ChunkSize {
		errs = append(errs, comperr.Errorf(comperr.CodeConfigValidateInvalidValue,
			"config: retrieval.chunk_overlap (%d) must be smaller than retrieval.chunk_size (%d)",
			c.Retrieval.ChunkOverlap, c.Retrieval.ChunkSize,
		))
	}

	if c.Retrieval.TopK <= 0 {
		errs = append(errs, comperr.Errorf(comperr.CodeConfigValidateInvalidValue,
			"config: retrieval.top_k must be greater than 0, got %d",
			c.Retrieval.TopK,
		))
	}

	if c.Retrieval.EmbeddingDimensions <= 0 {
		errs = append(errs, comperr.Errorf(comperr.CodeConfigValidateInvalidValue,
			"config: retrieval.embedding_dimensions must be greater than 0, got %d",
			c.Retrieval.EmbeddingDimensions,
		))
	}

	return errs
}

func (c *Config) validateModels() []error {
	var errs []error

	if c.Models.Default == "" {
		errs = append(errs, comperr.Errorf(comperr.CodeConfigValidateInvalidValue, "config: models.default must not be empty"))
	} else if !strings.Contains(c.Models.Default, "/") {
		errs = append(errs, comperr.Errorf(comperr.CodeConfigValidateInvalidValue,
			"config: models.default must be in \"provider/model\" format, got %q",
			c.Models.Default,
		))
	} else if c.Providers != nil {
		// Only cross-reference providers when the providers section exists
		// in config. A nil map means no providers section was configured,
		// which is valid until credentials are needed.
		providerName := providerFromModel(c.Models.Default)
		if _, ok := c.Providers[providerName]; !ok {
			errs = append(errs, comperr.Errorf(comperr.CodeConfigValidateInvalidValue,
				"config: models.default %q references provider %q which is not configured",
				c.Models.Default, providerName,
			))
		}
	}

	if c.Models.MaxTokens < 0 {
		errs = append(errs, comperr.Errorf(comperr.CodeConfigValidateInvalidValue,
			"config: models.max_tokens must not be negative, got %d",
			c.Models.MaxTokens,
		))
	}

	return errs
}

func (c *Config) validatePipeline() []error {
	var errs []error

	if c.Pipeline.MaxStageTurns <= 0 {
		errs = append(errs, comperr.Errorf(comperr.CodeConfigValidateInvalidValue,
			"config: pipeline.max_stage_turns must be greater than 0, got %d",
			c.Pipeline.MaxStageTurns,
		))
	}

	if c.Pipeline.MaxToolCalls <= 0 {
		errs = append(errs, comperr.Errorf(comperr.CodeConfigValidateInvalidValue,
			"config: pipeline.max_tool_calls must be greater than 0, got %d",
			c.Pipeline.MaxToolCalls,
		))
	}

	return errs
}

// providerFromModel extracts the provider name from a "provider/model" ref.
func providerFromModel(ref string) string {
	if idx := strings.Index(ref, "/"); idx >= 0 {
		return ref[:idx]
	}
	return ref
}
