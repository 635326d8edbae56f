// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Complyd Contributors

package store

import (
	"sync"

	comperr "github.com/complyd-dev/complyd/pkg/errors"
)

// defaultVectorDimensions matches OpenAI text-embedding-3-small.
const defaultVectorDimensions = 1536

// StorageConfig selects and parameterizes a storage backend.
type StorageConfig struct {
	Backend    string
	Path       string
	Dimensions int
}

// Factory creates a VectorStore for a backend.
type Factory func(cfg StorageConfig) (VectorStore, error)

var (
	factories   = map[string]Factory{}
	factoriesMu sync.RWMutex
)

// RegisterBackend registers a factory for a named storage backend.
// Backend packages call this from init(). Goroutine-safe.
func RegisterBackend(name string, factory Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = factory
}

// Open creates a VectorStore for the configured backend, defaulting to the
// in-memory backend when none is named.
func Open(cfg StorageConfig) (VectorStore, error) {
	backend := cfg.Backend
	if backend == "" {
		backend = "memory"
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = defaultVectorDimensions
	}

	factoriesMu.RLock()
	factory, ok := factories[backend]
	factoriesMu.RUnlock()
	if !ok {
		return nil, comperr.Errorf(comperr.CodeStoreBackendUnsupported, "unsupported storage backend: %q", backend)
	}

	return factory(cfg)
}
