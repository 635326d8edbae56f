// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Complyd Contributors

package extract

import (
	"archive/zip"
	"bytes"
	"testing"

	comperr "github.com/complyd-dev/complyd/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestText_PlainFormats(t *testing.T) {
	for _, name := range []string{"notes.txt", "README.md", "NOTES.TXT"} {
		text, err := Text([]byte("flood exclusions apply"), name)
		require.NoError(t, err, name)
		assert.Equal(t, "flood exclusions apply", text)
	}
}

func TestText_RejectsUnsupportedExtension(t *testing.T) {
	_, err := Text([]byte("data"), "sheet.xlsx")
	require.Error(t, err)
	assert.True(t, comperr.HasCode(err, comperr.CodeExtractFormatUnsupported))
}

func TestText_PlainRejectsBinaryContent(t *testing.T) {
	_, err := Text([]byte{0xff, 0xfe, 0x00}, "garbage.txt")
	require.Error(t, err)
	assert.True(t, comperr.HasCode(err, comperr.CodeExtractFileFailure))
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported("policy.pdf"))
	assert.True(t, Supported("policy.DOCX"))
	assert.True(t, Supported("policy.txt"))
	assert.False(t, Supported("policy.xlsx"))
	assert.False(t, Supported("policy"))
}

// buildDOCX assembles a minimal .docx zip with the given document.xml body.
func buildDOCX(t *testing.T, documentXML string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(documentXML))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestText_DOCXExtractsParagraphs(t *testing.T) {
	docXML := `<w:document><w:body>` +
		`<w:p w:rsidR="00A"><w:r><w:t>Coverage limit: </w:t></w:r><w:r><w:t xml:space="preserve">$500,000</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>Exclusion: flood &amp; storm surge</w:t></w:r></w:p>` +
		`</w:body></w:document>`

	text, err := Text(buildDOCX(t, docXML), "policy.docx")
	require.NoError(t, err)
	assert.Equal(t, "Coverage limit: $500,000\nExclusion: flood & storm surge\n", text)
}

func TestText_DOCXWithoutDocumentXMLFails(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/other.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte("<nothing/>"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	_, err = Text(buf.Bytes(), "broken.docx")
	require.Error(t, err)
}

func TestText_DOCXNotAZipFails(t *testing.T) {
	_, err := Text([]byte("plain text pretending"), "fake.docx")
	require.Error(t, err)
	assert.True(t, comperr.HasCode(err, comperr.CodeExtractFileFailure))
}
