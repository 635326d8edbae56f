// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Complyd Contributors

package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/complyd-dev/complyd/internal/agent"
	comperr "github.com/complyd-dev/complyd/pkg/errors"
)

// ComplianceStreamRequest is the request body for the streaming endpoint.
type ComplianceStreamRequest struct {
	Query string `json:"query" minLength:"1" doc:"Compliance question to analyze"`
}

func (s *Server) registerStreamRoute() {
	s.router.Post("/api/v1/compliance/stream", s.handleComplianceStream)

	// Register the operation in the OpenAPI spec manually. The streaming
	// handler needs raw http.ResponseWriter access, so it cannot use Huma's
	// standard handler signature. We keep the chi route above for actual
	// request handling and add the spec entry here for documentation.
	minQueryLen := 1
	s.api.OpenAPI().AddOperation(&huma.Operation{
		OperationID: "compliance-stream",
		Method:      http.MethodPost,
		Path:        "/api/v1/compliance/stream",
		Summary:     "Run compliance analysis and stream pipeline events",
		Description: "Submit a compliance question and receive pipeline events as they happen. Set Accept: text/event-stream for SSE, otherwise receives a JSON array of events.",
		Tags:        []string{"compliance"},
		RequestBody: &huma.RequestBody{
			Required: true,
			Content: map[string]*huma.MediaType{
				"application/json": {
					Schema: &huma.Schema{
						Type:     "object",
						Required: []string{"query"},
						Properties: map[string]*huma.Schema{
							"query": {
								Type:        "string",
								MinLength:   &minQueryLen,
								Description: "Compliance question to analyze",
							},
						},
					},
				},
			},
		},
		Responses: map[string]*huma.Response{
			"200": {
				Description: "Event stream (SSE or JSON depending on Accept header)",
				Content: map[string]*huma.MediaType{
					"text/event-stream": {
						Schema: &huma.Schema{
							Type:        "string",
							Description: "Server-sent event stream of pipeline events",
						},
					},
					"application/json": {
						Schema: &huma.Schema{
							Type: "object",
							Properties: map[string]*huma.Schema{
								"events": {
									Type:        "array",
									Description: "Collected pipeline events",
									Items:       &huma.Schema{Type: "object"},
								},
							},
						},
					},
				},
			},
			"422": {Description: "Validation error (missing query)"},
			"503": {Description: "Pipeline not configured"},
		},
	})
}

func (s *Server) handleComplianceStream(w http.ResponseWriter, r *http.Request) {
	var req ComplianceStreamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		http.Error(w, `{"error":"query is required"}`, http.StatusUnprocessableEntity)
		return
	}

	if s.pipeline == nil {
		http.Error(w, `{"error":"pipeline not configured"}`, http.StatusServiceUnavailable)
		return
	}

	events, err := s.pipeline.Run(r.Context(), req.Query)
	if err != nil {
		s.logger.Error("pipeline rejected query", "error", err)
		status := comperr.HTTPStatus(err)
		http.Error(w, fmt.Sprintf(`{"error":%q}`, err.Error()), status)
		return
	}

	// Check if client wants SSE or JSON.
	if strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
		s.writeSSE(w, events)
		return
	}
	s.writeJSON(w, events)
}

// writeSSE streams events as data-only SSE frames; the event type travels
// inside the JSON payload.
func (s *Server) writeSSE(w http.ResponseWriter, events <-chan agent.Event) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		// httptest.ResponseRecorder doesn't implement Flusher,
		// but we still write the events for testability.
		flusher = nil
	}

	for event := range events {
		payload, err := json.Marshal(event)
		if err != nil {
			s.logger.Error("marshaling stream event", "type", event.Type, "error", err)
			continue
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

// writeJSON collects the whole run and responds with one JSON document.
func (s *Server) writeJSON(w http.ResponseWriter, events <-chan agent.Event) {
	collected := make([]agent.Event, 0, 16)
	for event := range events {
		collected = append(collected, event)
	}

	w.Header().Set("Content-Type", "application/json")
	resp := struct {
		Events []agent.Event `json:"events"`
	}{Events: collected}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, `{"error":"encoding response"}`, http.StatusInternalServerError)
	}
}
