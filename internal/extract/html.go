package extract

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// extractHTML extracts visible text from an HTML page. Script, style,
// noscript, and head content is stripped; block boundaries become line
// breaks; runs of whitespace collapse. The <title> text is reported
// separately so callers can use it as the document title.
func extractHTML(raw []byte) (*Result, error) {
	root, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("extract: html parse: %w", err)
	}

	var sb strings.Builder
	title := ""
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Svg, atom.Template:
				return
			case atom.Title:
				if title == "" && n.FirstChild != nil {
					title = strings.TrimSpace(n.FirstChild.Data)
				}
				return
			}
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && isBlock(n.DataAtom) {
			sb.WriteByte('\n')
		}
	}
	walk(root)

	content := collapseWhitespace(sb.String())

	meta := map[string]string{
		"file_type":  "html",
		"characters": strconv.Itoa(len(content)),
	}
	if title != "" {
		meta["title"] = title
	}

	return &Result{
		Text:     content,
		Title:    title,
		Metadata: meta,
	}, nil
}

// isBlock reports whether the element introduces a line break in the
// extracted text.
func isBlock(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Br, atom.Hr, atom.Li, atom.Tr, atom.Table,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
		atom.Blockquote, atom.Pre, atom.Section, atom.Article, atom.Ul, atom.Ol:
		return true
	}
	return false
}

// collapseWhitespace trims each line, drops empty lines, and collapses runs
// of spaces and tabs within lines.
func collapseWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
