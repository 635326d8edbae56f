// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Complyd Contributors

package retrieval

import (
	"context"
	"log/slog"

	"github.com/complyd-dev/complyd/internal/store"
	comperr "github.com/complyd-dev/complyd/pkg/errors"
)

// EvidenceItem is a single retrieval result returned to an evidence stage.
// Distance is cosine distance: lower = more similar.
type EvidenceItem struct {
	Text     string  `json:"text"`
	Source   string  `json:"source"`
	Position int     `json:"position"`
	Distance float64 `json:"distance"`
}

// ChunkFailure records a chunk that was not committed during an ingest batch,
// either because its embedding failed or because the batch aborted before it
// was attempted.
type ChunkFailure struct {
	Source   string `json:"source"`
	Position int    `json:"position"`
	Reason   string `json:"reason"`
}

// IngestReport describes the outcome of one ingest batch. When ingest aborts
// mid-batch the report still lists what was committed, so retrying the same
// batch is safe: committed chunks are skipped by dedup, failed ones are
// re-attempted.
type IngestReport struct {
	Inserted     int            `json:"inserted"`
	Deduplicated int            `json:"deduplicated"`
	Failed       []ChunkFailure `json:"failed,omitempty"`
}

// Index is the content-addressed vector index: it owns embedding and
// dedup on the write path and k-nearest-neighbor ranking on the read path.
// Construct one per process and hand it to each request by reference; the
// underlying store carries the concurrency guarantees.
type Index struct {
	embedder Embedder
	store    store.VectorStore
	logger   *slog.Logger
}

// NewIndex creates an Index over the given embedder and store.
func NewIndex(embedder Embedder, vs store.VectorStore) *Index {
	return &Index{
		embedder: embedder,
		store:    vs,
		logger:   slog.Default().With("component", "retrieval.index"),
	}
}

// Ingest embeds and stores each chunk whose content is not already present.
// An embedding failure aborts the batch: the returned report marks the
// failing chunk and every unattempted chunk as failed, and the error is
// returned alongside it.
func (ix *Index) Ingest(ctx context.Context, chunks []Chunk) (*IngestReport, error) {
	report := &IngestReport{}

	for i, chunk := range chunks {
		key := chunk.Key()

		present, err := ix.store.Contains(ctx, key)
		if err != nil {
			ix.markRemaining(report, chunks[i:], "index lookup failed: "+err.Error())
			return report, comperr.Wrapf(err, comperr.CodeIndexIngestFailure, "checking chunk %d of %s", chunk.Position, chunk.Source)
		}
		if present {
			report.Deduplicated++
			continue
		}

		vector, err := ix.embedder.Embed(ctx, chunk.Text)
		if err != nil {
			report.Failed = append(report.Failed, ChunkFailure{
				Source:   chunk.Source,
				Position: chunk.Position,
				Reason:   err.Error(),
			})
			if len(chunks) > i+1 {
				ix.markRemaining(report, chunks[i+1:], "not attempted: batch aborted")
			}
			return report, comperr.Wrapf(err, comperr.CodeIndexIngestFailure,
				"embedding chunk %d of %s", chunk.Position, chunk.Source)
		}

		inserted, err := ix.store.Insert(ctx, store.Entry{
			Key:       key,
			Text:      chunk.Text,
			Source:    chunk.Source,
			Position:  chunk.Position,
			Embedding: vector,
		})
		if err != nil {
			ix.markRemaining(report, chunks[i:], "index insert failed: "+err.Error())
			return report, comperr.Wrapf(err, comperr.CodeIndexIngestFailure,
				"storing chunk %d of %s", chunk.Position, chunk.Source)
		}

		if inserted {
			report.Inserted++
		} else {
			// A concurrent ingest of the same content won the race.
			report.Deduplicated++
		}
	}

	ix.logger.Info("ingest batch complete",
		"chunks", len(chunks),
		"inserted", report.Inserted,
		"deduplicated", report.Deduplicated,
	)
	return report, nil
}

// Query embeds the query text and returns up to k stored chunks ranked most
// similar first. An empty index yields an empty slice, not an error.
func (ix *Index) Query(ctx context.Context, text string, k int) ([]EvidenceItem, error) {
	if text == "" {
		return nil, comperr.New(comperr.CodeStoreInvalidInput, "query text is empty")
	}
	if k <= 0 {
		return nil, comperr.Errorf(comperr.CodeStoreInvalidInput, "k must be positive, got %d", k)
	}

	size, err := ix.store.Count(ctx)
	if err != nil {
		return nil, comperr.Wrapf(err, comperr.CodeIndexQueryFailure, "sizing index")
	}
	if size == 0 {
		return []EvidenceItem{}, nil
	}

	vector, err := ix.embedder.Embed(ctx, text)
	if err != nil {
		return nil, comperr.Wrapf(err, comperr.CodeIndexQueryFailure, "embedding query")
	}

	results, err := ix.store.Search(ctx, vector, k)
	if err != nil {
		return nil, comperr.Wrapf(err, comperr.CodeIndexQueryFailure, "searching index")
	}

	items := make([]EvidenceItem, 0, len(results))
	for _, r := range results {
		items = append(items, EvidenceItem{
			Text:     r.Text,
			Source:   r.Source,
			Position: r.Position,
			Distance: r.Distance,
		})
	}
	return items, nil
}

// Size returns the number of embedded chunks currently searchable.
func (ix *Index) Size(ctx context.Context) (int, error) {
	return ix.store.Count(ctx)
}

func (ix *Index) markRemaining(report *IngestReport, chunks []Chunk, reason string) {
	for _, c := range chunks {
		report.Failed = append(report.Failed, ChunkFailure{
			Source:   c.Source,
			Position: c.Position,
			Reason:   reason,
		})
	}
}
