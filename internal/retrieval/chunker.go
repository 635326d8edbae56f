// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Complyd Contributors

package retrieval

import (
	"crypto/sha256"
	"encoding/hex"

	comperr "github.com/complyd-dev/complyd/pkg/errors"
)

// Chunk is a contiguous slice of a source document's text, the unit of
// embedding and retrieval. Position is the chunk's ordinal within its
// source document.
type Chunk struct {
	Text     string
	Source   string
	Position int
}

// Key returns the chunk's content address: the SHA-256 hex digest of its
// text. Two chunks with identical text collide to the same key regardless of
// source, which is what makes ingestion idempotent.
func (c Chunk) Key() string {
	sum := sha256.Sum256([]byte(c.Text))
	return hex.EncodeToString(sum[:])
}

// Chunker splits extracted text into overlapping fixed-size windows. No
// sentence or paragraph awareness: splits may fall mid-word.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker validates the window parameters. overlap must be strictly
// smaller than size or the window cursor never advances.
func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, comperr.Errorf(comperr.CodeChunkParamsInvalid, "chunk size must be positive, got %d", size)
	}
	if overlap < 0 {
		return nil, comperr.Errorf(comperr.CodeChunkParamsInvalid, "overlap must be non-negative, got %d", overlap)
	}
	if overlap >= size {
		return nil, comperr.Errorf(comperr.CodeChunkParamsInvalid,
			"overlap %d must be smaller than chunk size %d", overlap, size)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Split produces the ordered chunk sequence for one source document.
// Window i covers runes [i*(size-overlap), i*(size-overlap)+size); the final
// window may be shorter. Splitting the same text twice yields byte-identical
// chunks.
func (c *Chunker) Split(text, source string) []Chunk {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	stride := c.size - c.overlap

	var chunks []Chunk
	for start, pos := 0, 0; start < len(runes); start, pos = start+stride, pos+1 {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, Chunk{
			Text:     string(runes[start:end]),
			Source:   source,
			Position: pos,
		})
	}
	return chunks
}
