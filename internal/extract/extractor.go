// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Complyd Contributors

// Package extract turns uploaded document bytes into plain text for
// chunking. Extraction failures are per-file: the ingest batch collects
// them and continues.
package extract

import (
	"path/filepath"
	"strings"

	comperr "github.com/complyd-dev/complyd/pkg/errors"
)

type extractFunc func(content []byte) (string, error)

var extractors = map[string]extractFunc{
	".pdf":  extractPDF,
	".docx": extractDOCX,
	".txt":  extractPlain,
	".md":   extractPlain,
}

// Supported reports whether the filename's extension has an extractor.
func Supported(filename string) bool {
	_, ok := extractors[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// Text extracts plain text from the file content, dispatching on the
// filename extension.
func Text(content []byte, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	fn, ok := extractors[ext]
	if !ok {
		return "", comperr.Errorf(comperr.CodeExtractFormatUnsupported,
			"unsupported file type %q", ext)
	}

	text, err := fn(content)
	if err != nil {
		return "", comperr.Wrap(err, comperr.CodeExtractFileFailure, "extracting text", comperr.FieldSource(filename))
	}
	return text, nil
}
