// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Complyd Contributors

package store_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/complyd-dev/complyd/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(key string, embedding []float32) store.Entry {
	return store.Entry{
		Key:       key,
		Text:      "text for " + key,
		Source:    "doc.pdf",
		Position:  0,
		Embedding: embedding,
	}
}

func TestMemoryStore_InsertIsIdempotentPerKey(t *testing.T) {
	s := store.NewMemoryStore(3)
	ctx := context.Background()

	inserted, err := s.Insert(ctx, entry("k1", []float32{1, 0, 0}))
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = s.Insert(ctx, entry("k1", []float32{1, 0, 0}))
	require.NoError(t, err)
	assert.False(t, inserted, "second insert of the same key must report already present")

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMemoryStore_SearchEmptyReturnsEmptySlice(t *testing.T) {
	s := store.NewMemoryStore(3)

	results, err := s.Search(context.Background(), []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMemoryStore_SearchOrdersByDistance(t *testing.T) {
	s := store.NewMemoryStore(3)
	ctx := context.Background()

	// Orthogonal, opposite, and identical directions relative to the query.
	_, err := s.Insert(ctx, entry("orthogonal", []float32{0, 1, 0}))
	require.NoError(t, err)
	_, err = s.Insert(ctx, entry("opposite", []float32{-1, 0, 0}))
	require.NoError(t, err)
	_, err = s.Insert(ctx, entry("identical", []float32{2, 0, 0}))
	require.NoError(t, err)

	results, err := s.Search(ctx, []float32{1, 0, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "identical", results[0].Key)
	assert.Equal(t, "orthogonal", results[1].Key)
	assert.Equal(t, "opposite", results[2].Key)

	for i := 1; i < len(results); i++ {
		assert.LessOrEqual(t, results[i-1].Distance, results[i].Distance)
	}
}

func TestMemoryStore_SearchBreaksTiesByInsertionOrder(t *testing.T) {
	s := store.NewMemoryStore(2)
	ctx := context.Background()

	// Same direction, different magnitudes: identical cosine distance.
	_, err := s.Insert(ctx, entry("first", []float32{1, 1}))
	require.NoError(t, err)
	_, err = s.Insert(ctx, entry("second", []float32{2, 2}))
	require.NoError(t, err)
	_, err = s.Insert(ctx, entry("third", []float32{3, 3}))
	require.NoError(t, err)

	results, err := s.Search(ctx, []float32{1, 1}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "first", results[0].Key)
	assert.Equal(t, "second", results[1].Key)
	assert.Equal(t, "third", results[2].Key)
}

func TestMemoryStore_SearchBoundsK(t *testing.T) {
	s := store.NewMemoryStore(2)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := s.Insert(ctx, entry(fmt.Sprintf("k%d", i), []float32{float32(i + 1), 1}))
		require.NoError(t, err)
	}

	results, err := s.Search(ctx, []float32{1, 1}, 10)
	require.NoError(t, err)
	assert.Len(t, results, 3, "k larger than store size returns all entries")

	results, err = s.Search(ctx, []float32{1, 1}, 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestMemoryStore_RejectsDimensionMismatch(t *testing.T) {
	s := store.NewMemoryStore(3)

	_, err := s.Insert(context.Background(), entry("bad", []float32{1, 0}))
	require.Error(t, err)
}

func TestMemoryStore_ConcurrentInsertSameKeyAtMostOneWins(t *testing.T) {
	s := store.NewMemoryStore(2)
	ctx := context.Background()

	const goroutines = 16
	var wg sync.WaitGroup
	wins := make(chan bool, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			inserted, err := s.Insert(ctx, entry("same", []float32{1, 0}))
			require.NoError(t, err)
			wins <- inserted
		}()
	}
	wg.Wait()
	close(wins)

	winners := 0
	for w := range wins {
		if w {
			winners++
		}
	}
	assert.Equal(t, 1, winners, "exactly one concurrent insert must win")

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
