// Package budget provides token budget estimation and message trimming for
// the knowledge agent. The agent supports multiple model backends with
// different tokenizers, so estimation uses a conservative character-based
// heuristic of 1 token per 4 characters. This under-estimates for most
// inputs, leaving headroom for model-specific overhead.
package budget

import (
	"unicode/utf8"

	"github.com/cloudwego/eino/schema"
)

const (
	// charsPerToken is the character-to-token ratio used for estimation.
	charsPerToken = 4

	// DefaultMaxContextTokens is the default input context budget in tokens.
	// Conservative enough to fit 8k-context models while leaving room for
	// the output. Override via Config.MaxContextTokens.
	DefaultMaxContextTokens = 6000

	// SummarizeWindowChars is how much document content is handed to the
	// model for a summary request. Longer documents are clamped, not
	// rejected.
	SummarizeWindowChars = 4000
)

// Estimate returns a rough token count for s using the character heuristic.
func Estimate(s string) int {
	n := len(s) / charsPerToken
	if n == 0 && len(s) > 0 {
		return 1
	}
	return n
}

// EstimateMessages returns the estimated total token count for a slice of
// schema.Message values, summing role + content for each message.
func EstimateMessages(msgs []*schema.Message) int {
	total := 0
	for _, m := range msgs {
		// Per-message overhead, roughly 4 tokens in most chat APIs.
		total += 4
		total += Estimate(string(m.Role))
		total += Estimate(m.Content)
	}
	return total
}

// TrimHistory removes the oldest messages from history until the total
// estimated token count of fixed + history fits within maxTokens. fixed
// contains messages that must not be trimmed (system prompt, current user
// message); history contains prior conversation turns droppable
// oldest-first.
//
// If even an empty history exceeds the budget, the empty slice is returned.
// Fixed messages are never dropped here.
func TrimHistory(fixed, history []*schema.Message, maxTokens int) []*schema.Message {
	if len(history) == 0 {
		return history
	}

	fixedTokens := EstimateMessages(fixed)
	for len(history) > 0 {
		if fixedTokens+EstimateMessages(history) <= maxTokens {
			break
		}
		history = history[1:]
	}
	return history
}

// ClampContent truncates text to maxChars, cutting at the last space within
// the window when one exists so the cut lands on a word boundary.
func ClampContent(text string, maxChars int) string {
	if maxChars <= 0 || len(text) <= maxChars {
		return text
	}
	clipped := text[:maxChars]
	for i := maxChars - 1; i > maxChars/2; i-- {
		if clipped[i] == ' ' || clipped[i] == '\n' {
			return clipped[:i]
		}
	}
	// No word boundary in the window: cut on a rune boundary instead.
	for maxChars > 0 && !utf8.RuneStart(text[maxChars]) {
		maxChars--
	}
	return text[:maxChars]
}
