package extract

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractPDF extracts text from a PDF document, concatenating page text in
// document order. A page with no extractable text (scanned image, empty page)
// is skipped but still counted in the "pages" metadata, so a 3-page PDF whose
// middle page is an image extracts pages 1 and 3 with pages=3.
func extractPDF(raw []byte) (res *Result, err error) {
	// The pdf library resolves objects lazily and panics from its lexer on
	// malformed content that survives NewReader; it only recovers inside
	// GetPlainText. Convert those panics into extraction errors.
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = fmt.Errorf("extract: pdf parse: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("extract: pdf open: %w", err)
	}

	pageCount := reader.NumPage()

	var sb strings.Builder
	for i := 1; i <= pageCount; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Per-page extraction failure is local: skip the page rather
			// than failing the whole document.
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(text)
	}

	content := strings.TrimSpace(sb.String())

	return &Result{
		Text: content,
		Metadata: map[string]string{
			"file_type":  "pdf",
			"pages":      strconv.Itoa(pageCount),
			"characters": strconv.Itoa(len(content)),
		},
	}, nil
}
