// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Complyd Contributors

package server

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// maxUploadBytes caps the in-memory portion of a multipart upload.
const maxUploadBytes = 32 << 20

// IngestResponseBody reports the outcome of a document upload batch.
// Per-file failures are collected in Errors; the batch succeeds partially
// rather than failing whole.
type IngestResponseBody struct {
	Status         string   `json:"status"`
	Message        string   `json:"message"`
	FilesProcessed []string `json:"files_processed"`
	TotalChunks    int      `json:"total_chunks"`
	Errors         []string `json:"errors,omitempty"`
}

func (s *Server) registerIngestRoute() {
	s.router.Post("/api/v1/documents", s.handleIngest)

	// Manual OpenAPI entry; multipart uploads bypass Huma's typed handlers.
	s.api.OpenAPI().AddOperation(&huma.Operation{
		OperationID: "ingest-documents",
		Method:      http.MethodPost,
		Path:        "/api/v1/documents",
		Summary:     "Upload and index policy documents",
		Description: "Accepts PDF, DOCX, TXT, and Markdown files as multipart form data under the 'files' field. Files are chunked, embedded, and stored in the retrieval index. Re-uploading the same content is a no-op.",
		Tags:        []string{"documents"},
		RequestBody: &huma.RequestBody{
			Required: true,
			Content: map[string]*huma.MediaType{
				"multipart/form-data": {
					Schema: &huma.Schema{
						Type: "object",
						Properties: map[string]*huma.Schema{
							"files": {
								Type:        "array",
								Description: "Documents to index",
								Items:       &huma.Schema{Type: "string", Format: "binary"},
							},
						},
					},
				},
			},
		},
		Responses: map[string]*huma.Response{
			"200": {Description: "Ingestion report, possibly with per-file errors"},
			"400": {Description: "Malformed multipart request"},
			"503": {Description: "Document processor not configured"},
		},
	})
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if s.processor == nil {
		http.Error(w, `{"error":"document processor not configured"}`, http.StatusServiceUnavailable)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, `{"error":"invalid multipart request"}`, http.StatusBadRequest)
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		http.Error(w, `{"error":"no files provided"}`, http.StatusBadRequest)
		return
	}

	s.logger.Info("document upload received", "files", len(files))

	body := IngestResponseBody{}
	for _, fh := range files {
		content, err := readUpload(fh)
		if err != nil {
			body.Errors = append(body.Errors, fmt.Sprintf("reading %s: %v", fh.Filename, err))
			continue
		}

		report, err := s.processor.Process(r.Context(), fh.Filename, content)
		body.TotalChunks += report.Inserted + report.Deduplicated
		if err != nil {
			s.logger.Error("document ingest failed", "source", fh.Filename, "error", err)
			body.Errors = append(body.Errors, fmt.Sprintf("processing %s: %v", fh.Filename, err))
			continue
		}

		s.logger.Info("document ingested",
			"source", fh.Filename,
			"inserted", report.Inserted,
			"deduplicated", report.Deduplicated,
		)
		body.FilesProcessed = append(body.FilesProcessed, fh.Filename)
	}

	switch {
	case len(body.Errors) == 0:
		body.Status = "success"
	case len(body.FilesProcessed) > 0:
		body.Status = "partial_success"
	default:
		body.Status = "error"
	}
	body.Message = fmt.Sprintf("Embedded %d documents (%d chunks)", len(body.FilesProcessed), body.TotalChunks)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("encoding ingest response", "error", err)
	}
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
