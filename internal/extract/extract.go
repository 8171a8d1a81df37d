// Package extract turns raw document bytes into normalized text plus
// format-specific structural metadata. The supported formats form a closed
// set — resolution from a filename extension or content type happens in one
// place and unknown formats fail with a typed error naming the accepted set,
// never deep inside a parser.
//
// Extraction failures are local to one document: every entry point returns a
// typed result or error and never panics on malformed input.
package extract

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format identifies one of the supported document formats.
type Format string

const (
	// FormatPDF is a PDF document (.pdf).
	FormatPDF Format = "pdf"
	// FormatWord is a Word OOXML document (.docx).
	FormatWord Format = "docx"
	// FormatText is a plain UTF-8 text file (.txt).
	FormatText Format = "text"
	// FormatHTML is an HTML page (.html, .htm) or fetched web page.
	FormatHTML Format = "html"
)

// AcceptedExtensions lists the filename extensions the registry resolves, in
// display order. Used in error messages and API responses.
var AcceptedExtensions = []string{".pdf", ".docx", ".txt", ".html", ".htm"}

// UnsupportedFormatError reports a filename extension or content type with no
// registered extractor.
type UnsupportedFormatError struct {
	// Ext is the extension or content type that failed to resolve.
	Ext string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("extract: unsupported format %q (accepted: %s)",
		e.Ext, strings.Join(AcceptedExtensions, ", "))
}

// Result holds the output of a successful extraction.
type Result struct {
	// Text is the normalized plain-text content, concatenated in document
	// order (pages for PDF, paragraphs for Word).
	Text string

	// Title is an extractor-supplied title when the format carries one
	// (HTML <title>). Empty when the format has no title notion.
	Title string

	// Metadata holds format-specific structural counts: "file_type" always,
	// plus "pages", "paragraphs", "lines", and "characters" as applicable.
	Metadata map[string]string
}

// Resolve maps a filename to its Format by extension. Unknown extensions
// return an *UnsupportedFormatError.
func Resolve(filename string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pdf":
		return FormatPDF, nil
	case ".docx":
		return FormatWord, nil
	case ".txt":
		return FormatText, nil
	case ".html", ".htm":
		return FormatHTML, nil
	default:
		return "", &UnsupportedFormatError{Ext: ext}
	}
}

// ResolveContentType maps an HTTP Content-Type header value to a Format.
// Used for fetched URLs where no filename extension is available.
func ResolveContentType(contentType string) (Format, error) {
	// Strip parameters like "; charset=utf-8".
	mt := contentType
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}
	mt = strings.ToLower(strings.TrimSpace(mt))

	switch mt {
	case "application/pdf":
		return FormatPDF, nil
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return FormatWord, nil
	case "text/plain":
		return FormatText, nil
	case "text/html", "application/xhtml+xml", "":
		// Fetched pages default to HTML when the server omits the header.
		return FormatHTML, nil
	default:
		return "", &UnsupportedFormatError{Ext: mt}
	}
}

// Extract runs the extractor for the given format over raw. The switch is
// exhaustive over the Format constants; an unknown value is a programming
// error surfaced as UnsupportedFormatError rather than a panic.
func Extract(raw []byte, format Format) (*Result, error) {
	switch format {
	case FormatPDF:
		return extractPDF(raw)
	case FormatWord:
		return extractWord(raw)
	case FormatText:
		return extractText(raw)
	case FormatHTML:
		return extractHTML(raw)
	default:
		return nil, &UnsupportedFormatError{Ext: string(format)}
	}
}
