package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestResolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		filename string
		want     Format
		wantErr  bool
	}{
		{"pdf", "report.pdf", FormatPDF, false},
		{"pdf uppercase", "REPORT.PDF", FormatPDF, false},
		{"docx", "notes.docx", FormatWord, false},
		{"txt", "readme.txt", FormatText, false},
		{"html", "page.html", FormatHTML, false},
		{"htm", "page.htm", FormatHTML, false},
		{"legacy word", "old.doc", "", true},
		{"no extension", "Makefile", "", true},
		{"image", "photo.png", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Resolve(tt.filename)
			if tt.wantErr {
				var ufe *UnsupportedFormatError
				if !errors.As(err, &ufe) {
					t.Fatalf("Resolve(%q) error = %v, want UnsupportedFormatError", tt.filename, err)
				}
				if !strings.Contains(ufe.Error(), ".pdf") {
					t.Errorf("error %q does not name the accepted set", ufe.Error())
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve(%q) unexpected error: %v", tt.filename, err)
			}
			if got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.filename, got, tt.want)
			}
		})
	}
}

func TestResolveContentType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		ct      string
		want    Format
		wantErr bool
	}{
		{"html with charset", "text/html; charset=utf-8", FormatHTML, false},
		{"xhtml", "application/xhtml+xml", FormatHTML, false},
		{"missing header defaults to html", "", FormatHTML, false},
		{"pdf", "application/pdf", FormatPDF, false},
		{"plain", "text/plain", FormatText, false},
		{"json", "application/json", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ResolveContentType(tt.ct)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ResolveContentType(%q) error = %v, wantErr %v", tt.ct, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ResolveContentType(%q) = %q, want %q", tt.ct, got, tt.want)
			}
		})
	}
}

func TestExtractText(t *testing.T) {
	t.Parallel()

	res, err := Extract([]byte("line one\nline two\n"), FormatText)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Text != "line one\nline two" {
		t.Errorf("Text = %q", res.Text)
	}
	if res.Metadata["file_type"] != "text" {
		t.Errorf("file_type = %q", res.Metadata["file_type"])
	}
	if res.Metadata["lines"] != "2" {
		t.Errorf("lines = %q, want 2", res.Metadata["lines"])
	}
}

func TestExtractText_InvalidUTF8(t *testing.T) {
	t.Parallel()

	if _, err := Extract([]byte{0xff, 0xfe, 0xfd}, FormatText); err == nil {
		t.Error("expected error for invalid UTF-8")
	}
}

func TestExtractHTML(t *testing.T) {
	t.Parallel()

	page := `<html><head><title>Dubai Brochure</title>
<style>body { color: red }</style></head>
<body><script>alert("hi")</script>
<h1>Dubai</h1><p>Luxury   resorts and pricing.</p></body></html>`

	res, err := Extract([]byte(page), FormatHTML)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Title != "Dubai Brochure" {
		t.Errorf("Title = %q", res.Title)
	}
	if strings.Contains(res.Text, "alert") || strings.Contains(res.Text, "color: red") {
		t.Errorf("script/style content leaked into text: %q", res.Text)
	}
	if !strings.Contains(res.Text, "Dubai") || !strings.Contains(res.Text, "Luxury resorts and pricing.") {
		t.Errorf("expected body text, got %q", res.Text)
	}
}

// buildDocx assembles a minimal .docx archive with the given paragraphs.
func buildDocx(t *testing.T, paragraphs ...string) []byte {
	t.Helper()

	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, p := range paragraphs {
		sb.WriteString(`<w:p><w:r><w:t>` + p + `</w:t></w:r></w:p>`)
	}
	sb.WriteString(`</w:body></w:document>`)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("zip create: %v", err)
	}
	if _, err := f.Write([]byte(sb.String())); err != nil {
		t.Fatalf("zip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

func TestExtractWord(t *testing.T) {
	t.Parallel()

	raw := buildDocx(t, "First paragraph.", "Second paragraph.")

	res, err := Extract(raw, FormatWord)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Text != "First paragraph.\nSecond paragraph." {
		t.Errorf("Text = %q", res.Text)
	}
	if res.Metadata["paragraphs"] != "2" {
		t.Errorf("paragraphs = %q, want 2", res.Metadata["paragraphs"])
	}
}

func TestExtractWord_NotAZip(t *testing.T) {
	t.Parallel()

	if _, err := Extract([]byte("not a zip archive"), FormatWord); err == nil {
		t.Error("expected error for non-zip input")
	}
}

// buildPDF assembles a minimal uncompressed PDF from numbered object bodies
// (object i+1 is objects[i]), computing the xref offsets. Object 1 must be
// the catalog.
func buildPDF(objects []string) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	offsets := make([]int, 0, len(objects))
	for i, body := range objects {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(objects)+1, xref)
	return buf.Bytes()
}

func pdfStream(data string) string {
	return fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(data), data)
}

func TestExtractPDF_SkipsEmptyPage(t *testing.T) {
	t.Parallel()

	raw := buildPDF([]string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R 4 0 R 5 0 R] /Count 3 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 6 0 R >> >> /Contents 7 0 R >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 8 0 R >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 6 0 R >> >> /Contents 9 0 R >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
		pdfStream("BT /F1 12 Tf 72 720 Td (Dubai has year-round sunshine) Tj ET"),
		pdfStream("BT ET"),
		pdfStream("BT /F1 12 Tf 72 720 Td (Hotel rates rise in winter) Tj ET"),
	})

	res, err := Extract(raw, FormatPDF)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Metadata["pages"] != "3" {
		t.Errorf("pages = %q, want 3", res.Metadata["pages"])
	}
	first := strings.Index(res.Text, "Dubai has year-round sunshine")
	second := strings.Index(res.Text, "Hotel rates rise in winter")
	if first < 0 || second < 0 {
		t.Fatalf("Text = %q, missing page text", res.Text)
	}
	if first > second {
		t.Errorf("Text = %q, pages out of document order", res.Text)
	}
}

func TestExtractPDF_Malformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  []byte
	}{
		{"truncated garbage", []byte("%PDF-1.4 truncated garbage")},
		// A valid xref table pointing at a catalog that does not parse: the
		// pdf library accepts the file at open and only fails when the
		// object is resolved.
		{"malformed catalog object", buildPDF([]string{"<< /Type /Catalog /Pages )( >>"})},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if _, err := Extract(tc.raw, FormatPDF); err == nil {
				t.Error("expected error for malformed PDF")
			}
		})
	}
}

func TestExtract_UnknownFormat(t *testing.T) {
	t.Parallel()

	_, err := Extract(nil, Format("csv"))
	var ufe *UnsupportedFormatError
	if !errors.As(err, &ufe) {
		t.Fatalf("error = %v, want UnsupportedFormatError", err)
	}
}
