package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// documentXML mirrors the subset of word/document.xml needed to pull the
// paragraph text out of an OOXML Word document.
type documentXML struct {
	Body struct {
		Paragraphs []wordParagraph `xml:"p"`
	} `xml:"body"`
}

type wordParagraph struct {
	Runs []wordRun `xml:"r"`
}

type wordRun struct {
	Text []wordText `xml:"t"`
}

type wordText struct {
	Content string `xml:",chardata"`
}

// extractWord extracts text from a .docx document. A .docx file is a ZIP
// archive whose word/document.xml carries the body text as paragraphs of
// runs; paragraphs are concatenated in document order, one per line.
func extractWord(raw []byte) (*Result, error) {
	reader, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("extract: docx open: %w", err)
	}

	var docXML []byte
	for _, file := range reader.File {
		if file.Name != "word/document.xml" {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("extract: docx read: %w", err)
		}
		docXML, err = io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("extract: docx read: %w", err)
		}
		break
	}
	if docXML == nil {
		return nil, fmt.Errorf("extract: docx has no word/document.xml")
	}

	var doc documentXML
	if err := xml.Unmarshal(docXML, &doc); err != nil {
		return nil, fmt.Errorf("extract: docx parse: %w", err)
	}

	var sb strings.Builder
	for i, para := range doc.Body.Paragraphs {
		if i > 0 {
			sb.WriteByte('\n')
		}
		for _, run := range para.Runs {
			for _, t := range run.Text {
				sb.WriteString(t.Content)
			}
		}
	}
	content := strings.TrimSpace(sb.String())

	return &Result{
		Text: content,
		Metadata: map[string]string{
			"file_type":  "docx",
			"paragraphs": strconv.Itoa(len(doc.Body.Paragraphs)),
			"characters": strconv.Itoa(len(content)),
		},
	}, nil
}
