// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Complyd Contributors

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/complyd-dev/complyd/internal/agent"
	comperr "github.com/complyd-dev/complyd/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonBody(t *testing.T, v any) *bytes.Reader {
	t.Helper()
	payload, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(payload)
}

// fakeRunner replays a fixed event sequence.
type fakeRunner struct {
	events []agent.Event
	err    error
}

func (f *fakeRunner) Run(_ context.Context, _ string) (<-chan agent.Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	ch := make(chan agent.Event, len(f.events))
	for _, ev := range f.events {
		ch <- ev
	}
	close(ch)
	return ch, nil
}

func pipelineEvents() []agent.Event {
	return []agent.Event{
		agent.AgentStartEvent("coordinator", "Analyzing query and routing to specialist agents..."),
		agent.AgentActiveEvent("internal_docs_agent"),
		agent.ToolCallEvent("internal_docs_agent", "search_internal_docs", `{"query": "coverage"}`),
		agent.ToolResultEvent("internal_docs_agent", "search_internal_docs", `{"results": []}`),
		agent.AgentActiveEvent("analyzer_agent"),
		agent.AgentTextEvent("analyzer_agent", "Compliance Status: COMPLIANT"),
		agent.AgentCompleteEvent("coordinator", "Compliance analysis complete"),
	}
}

func TestStreamEndpoint_SSE(t *testing.T) {
	srv := newTestServer(t)
	srv.RegisterPipeline(&fakeRunner{events: pipelineEvents()})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/compliance/stream",
		jsonBody(t, map[string]string{"query": "does this comply?"}))
	req.Header.Set("Accept", "text/event-stream")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	frames := strings.Split(strings.TrimSpace(rec.Body.String()), "\n\n")
	require.Len(t, frames, len(pipelineEvents()))

	var first agent.Event
	require.True(t, strings.HasPrefix(frames[0], "data: "))
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(frames[0], "data: ")), &first))
	assert.Equal(t, agent.EventAgentStart, first.Type)

	var last agent.Event
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(frames[len(frames)-1], "data: ")), &last))
	assert.Equal(t, agent.EventAgentComplete, last.Type)
}

func TestStreamEndpoint_JSONFallback(t *testing.T) {
	srv := newTestServer(t)
	srv.RegisterPipeline(&fakeRunner{events: pipelineEvents()})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/compliance/stream",
		jsonBody(t, map[string]string{"query": "does this comply?"}))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp struct {
		Events []agent.Event `json:"events"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Events, len(pipelineEvents()))
	assert.Equal(t, agent.EventAgentComplete, resp.Events[len(resp.Events)-1].Type)
}

func TestStreamEndpoint_MissingQuery(t *testing.T) {
	srv := newTestServer(t)
	srv.RegisterPipeline(&fakeRunner{events: pipelineEvents()})

	for _, body := range []map[string]string{{}, {"query": "  "}} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/compliance/stream", jsonBody(t, body))
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	}
}

func TestStreamEndpoint_MalformedBody(t *testing.T) {
	srv := newTestServer(t)
	srv.RegisterPipeline(&fakeRunner{events: pipelineEvents()})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/compliance/stream", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStreamEndpoint_PipelineRejection(t *testing.T) {
	srv := newTestServer(t)
	srv.RegisterPipeline(&fakeRunner{
		err: comperr.New(comperr.CodePipelineInvalidInput, "query is empty"),
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/compliance/stream",
		jsonBody(t, map[string]string{"query": "x"}))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
