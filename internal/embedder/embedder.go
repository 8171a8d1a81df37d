// Package embedder provides implementations of the Embedder interface for
// converting text into dense vector embeddings. Each implementation talks to
// a different backend (OpenAI, Azure OpenAI, Ollama) via plain HTTP — no
// additional SDK dependencies are required.
package embedder

import (
	"context"
	"unicode/utf8"
)

// Embedder converts text into dense vector embeddings.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the fixed length of the vectors this embedder
	// produces. Callers pre-configuring a vector store use this value.
	Dimensions() int

	// MaxInputChars returns the longest input (in bytes) the backend
	// accepts per text. Callers truncate rather than fail on overlong input
	// — full-text search still covers the tail that the embedding misses.
	MaxInputChars() int
}

// Truncate clamps text to the embedder's maximum accepted input length,
// cutting on a rune boundary.
func Truncate(e Embedder, text string) string {
	maxChars := e.MaxInputChars()
	if maxChars <= 0 || len(text) <= maxChars {
		return text
	}
	cut := maxChars
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}
