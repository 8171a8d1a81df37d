package extract

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// extractText handles plain UTF-8 text files. Invalid UTF-8 is an extraction
// failure rather than silently mangled content.
func extractText(raw []byte) (*Result, error) {
	if !utf8.Valid(raw) {
		return nil, fmt.Errorf("extract: text file is not valid UTF-8")
	}

	content := strings.TrimSpace(string(raw))

	return &Result{
		Text: content,
		Metadata: map[string]string{
			"file_type":  "text",
			"lines":      strconv.Itoa(len(strings.Split(content, "\n"))),
			"characters": strconv.Itoa(len(content)),
		},
	}, nil
}
