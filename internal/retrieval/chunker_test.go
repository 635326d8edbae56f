// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Complyd Contributors

package retrieval_test

import (
	"strings"
	"testing"

	"github.com/complyd-dev/complyd/internal/retrieval"
	comperr "github.com/complyd-dev/complyd/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChunker_RejectsDegenerateParams(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
	}{
		{"zero size", 0, 0},
		{"negative size", -10, 0},
		{"negative overlap", 100, -1},
		{"overlap equals size", 100, 100},
		{"overlap exceeds size", 100, 150},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := retrieval.NewChunker(tt.size, tt.overlap)
			require.Error(t, err)
			assert.True(t, comperr.HasCode(err, comperr.CodeChunkParamsInvalid))
		})
	}
}

func TestChunker_WindowGeometry(t *testing.T) {
	c, err := retrieval.NewChunker(10, 4)
	require.NoError(t, err)

	text := "abcdefghijklmnopqrstuvwxyz" // 26 runes, stride 6
	chunks := c.Split(text, "alphabet.txt")

	require.Len(t, chunks, 5)
	assert.Equal(t, "abcdefghij", chunks[0].Text)
	assert.Equal(t, "ghijklmnop", chunks[1].Text)
	assert.Equal(t, "mnopqrstuv", chunks[2].Text)
	assert.Equal(t, "stuvwxyz", chunks[3].Text, "final window may be shorter")
	assert.Equal(t, "yz", chunks[4].Text)

	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Position)
		assert.Equal(t, "alphabet.txt", chunk.Source)
	}
}

func TestChunker_SplitIsDeterministic(t *testing.T) {
	c, err := retrieval.NewChunker(1000, 200)
	require.NoError(t, err)

	text := strings.Repeat("Exclusion: flood damage not covered. ", 120)

	first := c.Split(text, "policy.pdf")
	second := c.Split(text, "policy.pdf")

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i], second[i], "chunk %d must be byte-identical across runs", i)
	}
}

func TestChunker_TextShorterThanWindow(t *testing.T) {
	c, err := retrieval.NewChunker(1000, 200)
	require.NoError(t, err)

	chunks := c.Split("short text", "note.txt")
	require.Len(t, chunks, 1)
	assert.Equal(t, "short text", chunks[0].Text)
	assert.Equal(t, 0, chunks[0].Position)
}

func TestChunker_EmptyTextYieldsNoChunks(t *testing.T) {
	c, err := retrieval.NewChunker(100, 20)
	require.NoError(t, err)

	assert.Empty(t, c.Split("", "empty.txt"))
}

func TestChunker_MultibyteRunesNotSplit(t *testing.T) {
	c, err := retrieval.NewChunker(4, 1)
	require.NoError(t, err)

	chunks := c.Split("保険契約の免責条項", "policy-ja.txt")
	for _, chunk := range chunks {
		assert.True(t, strings.ToValidUTF8(chunk.Text, "") == chunk.Text,
			"chunk %q must remain valid UTF-8", chunk.Text)
	}
}

func TestChunkKey_ContentAddressed(t *testing.T) {
	a := retrieval.Chunk{Text: "Exclusion: flood damage not covered", Source: "policy-a.pdf", Position: 0}
	b := retrieval.Chunk{Text: "Exclusion: flood damage not covered", Source: "policy-b.docx", Position: 7}

	assert.Equal(t, a.Key(), b.Key(), "identical text collides to the same key regardless of source")
	assert.Len(t, a.Key(), 64)

	c := retrieval.Chunk{Text: "Exclusion: fire damage not covered"}
	assert.NotEqual(t, a.Key(), c.Key())
}
