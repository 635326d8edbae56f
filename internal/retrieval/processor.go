// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Complyd Contributors

package retrieval

import (
	"context"
	"log/slog"

	"github.com/complyd-dev/complyd/internal/extract"
)

// Processor turns an uploaded document into indexed chunks: extract text,
// split, embed, store.
type Processor struct {
	chunker *Chunker
	index   *Index
	logger  *slog.Logger
}

// NewProcessor wires a chunker and an index into a document processor.
// A nil logger falls back to slog.Default().
func NewProcessor(chunker *Chunker, index *Index, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{chunker: chunker, index: index, logger: logger}
}

// Process ingests one document. Extraction failures abort the document;
// per-chunk embedding failures are reported in the IngestReport alongside
// a non-nil error, with successfully embedded chunks already committed.
func (p *Processor) Process(ctx context.Context, filename string, content []byte) (IngestReport, error) {
	text, err := extract.Text(content, filename)
	if err != nil {
		return IngestReport{}, err
	}

	chunks := p.chunker.Split(text, filename)
	p.logger.Info("document chunked", "source", filename, "chunks", len(chunks))

	report, err := p.index.Ingest(ctx, chunks)
	if report == nil {
		report = &IngestReport{}
	}
	return *report, err
}
