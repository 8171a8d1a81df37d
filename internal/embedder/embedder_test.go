package embedder

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"
)

type fixedLimitEmbedder struct {
	maxChars int
}

func (fixedLimitEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	return make([][]float32, len(texts)), nil
}
func (fixedLimitEmbedder) Dimensions() int      { return 2 }
func (e fixedLimitEmbedder) MaxInputChars() int { return e.maxChars }

func TestTruncate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		maxChars int
		input    string
		want     string
	}{
		{"under limit untouched", 10, "short", "short"},
		{"at limit untouched", 5, "exact", "exact"},
		{"over limit cut", 4, "overlong", "over"},
		{"zero limit disables", 0, "anything", "anything"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := Truncate(fixedLimitEmbedder{maxChars: tc.maxChars}, tc.input)
			if got != tc.want {
				t.Errorf("Truncate = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestTruncateCutsOnRuneBoundary(t *testing.T) {
	t.Parallel()

	// The byte at the limit falls inside a two-byte rune.
	text := "a" + strings.Repeat("é", 20)

	got := Truncate(fixedLimitEmbedder{maxChars: 10}, text)
	if len(got) > 10 {
		t.Fatalf("len = %d, want <= 10", len(got))
	}
	if !utf8.ValidString(got) {
		t.Fatalf("result is not valid UTF-8: %q", got)
	}
}
