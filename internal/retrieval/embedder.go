// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Complyd Contributors

package retrieval

import "context"

// Embedder converts text into a fixed-dimension vector via an external
// embedding service. Calls are synchronous, one text per call, and are not
// retried here: a failure aborts the enclosing ingest or query operation and
// surfaces to the orchestration layer.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}
