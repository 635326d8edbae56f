// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Complyd Contributors

package store

import "context"

// Entry is one content-addressed index record. The key is the SHA-256 hex
// digest of Text, so two chunks with identical text always collide to the
// same entry regardless of source.
type Entry struct {
	Key       string
	Text      string
	Source    string
	Position  int
	Embedding []float32
}

// Result is a single nearest-neighbor match. Distance is cosine distance
// (lower = more similar); 0.0 = exact match.
type Result struct {
	Key      string
	Text     string
	Source   string
	Position int
	Distance float64
}

// VectorStore holds embedded chunks and answers k-nearest-neighbor queries.
//
// Implementations must be safe for concurrent use: Insert is at-most-one-wins
// for a given key (concurrent inserts of the same content never both report
// inserted=true), and Search reads a consistent snapshot of the entries
// present at call time.
type VectorStore interface {
	// Insert stores the entry unless its key is already present.
	// Returns true if the entry was inserted, false if it already existed.
	Insert(ctx context.Context, entry Entry) (bool, error)

	// Contains reports whether an entry with the given key is present.
	Contains(ctx context.Context, key string) (bool, error)

	// Search returns up to k entries ranked by ascending cosine distance
	// from the query vector. Ties are broken by insertion order. An empty
	// store returns an empty slice, not an error.
	Search(ctx context.Context, query []float32, k int) ([]Result, error)

	// Count returns the number of stored entries.
	Count(ctx context.Context) (int, error)

	Close() error
}
