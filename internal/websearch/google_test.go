// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Complyd Contributors

package websearch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	comperr "github.com/complyd-dev/complyd/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGoogleSearcher_RequiresCredentials(t *testing.T) {
	_, err := NewGoogleSearcher(context.Background(), GoogleConfig{EngineID: "cx"})
	require.Error(t, err)
	assert.True(t, comperr.HasCode(err, comperr.CodeConfigCredentialMissing))

	_, err = NewGoogleSearcher(context.Background(), GoogleConfig{APIKey: "key"})
	require.Error(t, err)
	assert.True(t, comperr.HasCode(err, comperr.CodeConfigCredentialMissing))
}

func TestGoogleSearcher_Search(t *testing.T) {
	var gotQuery, gotCx, gotNum string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gotQuery = q.Get("q")
		gotCx = q.Get("cx")
		gotNum = q.Get("num")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"items": [
				{"title": "NAIC Model Law 672", "link": "https://example.org/naic-672", "snippet": "Unfair claims settlement practices."},
				{"title": "State DOI bulletin", "link": "https://example.org/doi", "snippet": "Prompt payment requirements."}
			]
		}`))
	}))
	defer ts.Close()

	searcher, err := NewGoogleSearcher(context.Background(), GoogleConfig{
		APIKey:   "test-key",
		EngineID: "test-cx",
		Endpoint: ts.URL,
	})
	require.NoError(t, err)

	results, err := searcher.Search(context.Background(), "unfair claims settlement", 2)
	require.NoError(t, err)

	assert.Equal(t, "unfair claims settlement", gotQuery)
	assert.Equal(t, "test-cx", gotCx)
	assert.Equal(t, "2", gotNum)

	require.Len(t, results, 2)
	assert.Equal(t, "NAIC Model Law 672", results[0].Title)
	assert.Equal(t, "https://example.org/naic-672", results[0].URL)
	assert.Equal(t, "Unfair claims settlement practices.", results[0].Snippet)
}

func TestGoogleSearcher_SearchEmptyResults(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer ts.Close()

	searcher, err := NewGoogleSearcher(context.Background(), GoogleConfig{
		APIKey:   "test-key",
		EngineID: "test-cx",
		Endpoint: ts.URL,
	})
	require.NoError(t, err)

	results, err := searcher.Search(context.Background(), "no hits expected", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestGoogleSearcher_SearchClampsLimit(t *testing.T) {
	var gotNum string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotNum = r.URL.Query().Get("num")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer ts.Close()

	searcher, err := NewGoogleSearcher(context.Background(), GoogleConfig{
		APIKey:   "test-key",
		EngineID: "test-cx",
		Endpoint: ts.URL,
	})
	require.NoError(t, err)

	_, err = searcher.Search(context.Background(), "anything", 50)
	require.NoError(t, err)
	assert.Equal(t, "10", gotNum)
}

func TestGoogleSearcher_SearchRejectsEmptyQuery(t *testing.T) {
	searcher, err := NewGoogleSearcher(context.Background(), GoogleConfig{
		APIKey:   "test-key",
		EngineID: "test-cx",
	})
	require.NoError(t, err)

	_, err = searcher.Search(context.Background(), "", 5)
	require.Error(t, err)
	assert.True(t, comperr.HasCode(err, comperr.CodeWebSearchRequestInvalid))
}

func TestGoogleSearcher_SearchUpstreamFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"code": 500, "message": "backend error"}}`, http.StatusInternalServerError)
	}))
	defer ts.Close()

	searcher, err := NewGoogleSearcher(context.Background(), GoogleConfig{
		APIKey:   "test-key",
		EngineID: "test-cx",
		Endpoint: ts.URL,
	})
	require.NoError(t, err)

	_, err = searcher.Search(context.Background(), "anything", 5)
	require.Error(t, err)
	assert.True(t, comperr.HasCode(err, comperr.CodeWebSearchUpstreamFailure))
}
