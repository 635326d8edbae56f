// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Complyd Contributors

package extract

import (
	"fmt"
	"unicode/utf8"
)

func extractPlain(content []byte) (string, error) {
	if !utf8.Valid(content) {
		return "", fmt.Errorf("extract plain text: content is not valid UTF-8")
	}
	return string(content), nil
}
