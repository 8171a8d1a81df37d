package docid

import (
	"strings"
	"testing"
)

func TestNew_Deterministic(t *testing.T) {
	t.Parallel()

	a := New("report.pdf", "quarterly numbers")
	b := New("report.pdf", "quarterly numbers")
	if a != b {
		t.Errorf("same (name, content) produced different IDs: %q vs %q", a, b)
	}
}

func TestNew_ContentSensitive(t *testing.T) {
	t.Parallel()

	a := New("report.pdf", "quarterly numbers")
	b := New("report.pdf", "quarterly numbers, revised")
	if a == b {
		t.Errorf("different content produced identical ID %q", a)
	}
}

func TestNew_NameSensitive(t *testing.T) {
	t.Parallel()

	a := New("report.pdf", "quarterly numbers")
	b := New("summary.pdf", "quarterly numbers")
	if a == b {
		t.Errorf("different names produced identical ID %q", a)
	}
}

func TestNew_Slug(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		in     string
		prefix string
	}{
		{"plain file", "Dubai Brochure.pdf", "dubai-brochure-"},
		{"url", "https://example.com/pricing/page.html", "example-com-pricing-page-"},
		{"messy name", "  ~~Weird__Name!!.docx", "weird-name-"},
		{"empty", "", "document-"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			id := New(tt.in, "content")
			if !strings.HasPrefix(id, tt.prefix) {
				t.Errorf("New(%q) = %q, want prefix %q", tt.in, id, tt.prefix)
			}
		})
	}
}

func TestUUID_Stable(t *testing.T) {
	t.Parallel()

	id := New("report.pdf", "quarterly numbers")
	if UUID(id) != UUID(id) {
		t.Error("UUID mapping is not deterministic")
	}
	if UUID("a") == UUID("b") {
		t.Error("distinct IDs mapped to the same UUID")
	}
}
