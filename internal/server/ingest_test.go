// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Complyd Contributors

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/complyd-dev/complyd/internal/retrieval"
	comperr "github.com/complyd-dev/complyd/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProcessor records processed files and fails for configured filenames.
type fakeProcessor struct {
	reports map[string]retrieval.IngestReport
	failing map[string]error
	seen    []string
}

func (f *fakeProcessor) Process(_ context.Context, filename string, _ []byte) (retrieval.IngestReport, error) {
	f.seen = append(f.seen, filename)
	if err, ok := f.failing[filename]; ok {
		return retrieval.IngestReport{}, err
	}
	if report, ok := f.reports[filename]; ok {
		return report, nil
	}
	return retrieval.IngestReport{Inserted: 1}, nil
}

func multipartUpload(t *testing.T, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range files {
		fw, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func decodeIngestResponse(t *testing.T, rec *httptest.ResponseRecorder) IngestResponseBody {
	t.Helper()
	var body IngestResponseBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestIngestEndpoint_Success(t *testing.T) {
	srv := newTestServer(t)
	proc := &fakeProcessor{
		reports: map[string]retrieval.IngestReport{
			"policy.txt": {Inserted: 4, Deduplicated: 1},
		},
	}
	srv.RegisterProcessor(proc)

	buf, contentType := multipartUpload(t, map[string][]byte{
		"policy.txt": []byte("coverage limits apply"),
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", buf)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeIngestResponse(t, rec)
	assert.Equal(t, "success", body.Status)
	assert.Equal(t, []string{"policy.txt"}, body.FilesProcessed)
	assert.Equal(t, 5, body.TotalChunks)
	assert.Empty(t, body.Errors)
}

func TestIngestEndpoint_PartialFailure(t *testing.T) {
	srv := newTestServer(t)
	proc := &fakeProcessor{
		reports: map[string]retrieval.IngestReport{
			"good.txt": {Inserted: 2},
		},
		failing: map[string]error{
			"bad.xlsx": comperr.New(comperr.CodeExtractFormatUnsupported, "unsupported format .xlsx"),
		},
	}
	srv.RegisterProcessor(proc)

	buf, contentType := multipartUpload(t, map[string][]byte{
		"good.txt": []byte("exclusions"),
		"bad.xlsx": {0x01, 0x02},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", buf)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeIngestResponse(t, rec)
	assert.Equal(t, "partial_success", body.Status)
	assert.Equal(t, []string{"good.txt"}, body.FilesProcessed)
	require.Len(t, body.Errors, 1)
	assert.Contains(t, body.Errors[0], "bad.xlsx")
	assert.Len(t, proc.seen, 2, "every file must be attempted")
}

func TestIngestEndpoint_AllFilesFail(t *testing.T) {
	srv := newTestServer(t)
	proc := &fakeProcessor{
		failing: map[string]error{
			"broken.pdf": comperr.New(comperr.CodeExtractFileFailure, "corrupt file"),
		},
	}
	srv.RegisterProcessor(proc)

	buf, contentType := multipartUpload(t, map[string][]byte{
		"broken.pdf": []byte("not a pdf"),
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", buf)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeIngestResponse(t, rec)
	assert.Equal(t, "error", body.Status)
	assert.Empty(t, body.FilesProcessed)
	require.Len(t, body.Errors, 1)
}

func TestIngestEndpoint_NoFiles(t *testing.T) {
	srv := newTestServer(t)
	srv.RegisterProcessor(&fakeProcessor{})

	buf, contentType := multipartUpload(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", buf)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
