// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Complyd Contributors

package store

import (
	"context"
	"math"
	"sort"
	"sync"

	comperr "github.com/complyd-dev/complyd/pkg/errors"
)

func init() {
	RegisterBackend("memory", func(cfg StorageConfig) (VectorStore, error) {
		return NewMemoryStore(cfg.Dimensions), nil
	})
}

// Compile-time interface check.
var _ VectorStore = (*MemoryStore)(nil)

// MemoryStore is an in-memory VectorStore using brute-force cosine distance.
// Entries are kept in insertion order, which doubles as the tie-break order
// for equidistant search results.
type MemoryStore struct {
	mu         sync.RWMutex
	dimensions int
	entries    []Entry
	byKey      map[string]int
}

// NewMemoryStore creates an empty in-memory store. Dimensions are enforced
// on insert when positive; zero disables the check.
func NewMemoryStore(dimensions int) *MemoryStore {
	return &MemoryStore{
		dimensions: dimensions,
		byKey:      make(map[string]int),
	}
}

func (m *MemoryStore) Insert(_ context.Context, entry Entry) (bool, error) {
	if entry.Key == "" {
		return false, comperr.New(comperr.CodeStoreInvalidInput, "entry key is empty")
	}
	if m.dimensions > 0 && len(entry.Embedding) != m.dimensions {
		return false, comperr.Errorf(comperr.CodeStoreInvalidInput,
			"embedding dimension mismatch: got %d, want %d", len(entry.Embedding), m.dimensions)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byKey[entry.Key]; ok {
		return false, nil
	}

	m.byKey[entry.Key] = len(m.entries)
	m.entries = append(m.entries, entry)
	return true, nil
}

func (m *MemoryStore) Contains(_ context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.byKey[key]
	return ok, nil
}

func (m *MemoryStore) Search(_ context.Context, query []float32, k int) ([]Result, error) {
	if k <= 0 {
		return nil, comperr.Errorf(comperr.CodeStoreInvalidInput, "k must be positive, got %d", k)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.entries) == 0 {
		return []Result{}, nil
	}

	type scored struct {
		idx      int
		distance float64
	}
	ranked := make([]scored, len(m.entries))
	for i, e := range m.entries {
		ranked[i] = scored{idx: i, distance: cosineDistance(query, e.Embedding)}
	}

	// Stable sort keeps insertion order for equidistant entries.
	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].distance < ranked[b].distance
	})

	if k > len(ranked) {
		k = len(ranked)
	}

	results := make([]Result, 0, k)
	for _, s := range ranked[:k] {
		e := m.entries[s.idx]
		results = append(results, Result{
			Key:      e.Key,
			Text:     e.Text,
			Source:   e.Source,
			Position: e.Position,
			Distance: s.distance,
		})
	}
	return results, nil
}

func (m *MemoryStore) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.entries), nil
}

func (m *MemoryStore) Close() error { return nil }

// cosineDistance returns 1 - cosine similarity. Degenerate (zero-norm)
// vectors rank last.
func cosineDistance(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 2
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
