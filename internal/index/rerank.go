package index

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// maxCaptions bounds the number of extractive snippets attached per result.
const maxCaptions = 2

// maxCaptionLen bounds each caption's length in characters.
const maxCaptionLen = 240

// rerank reorders fused results by lexical overlap with the query text and
// attaches extractive captions. Results the query shares no terms with keep
// their fused order, carrying a zero reranker score.
func rerank(results []Result, queryText string) []Result {
	terms := queryTerms(queryText)
	if len(terms) == 0 {
		return results
	}

	for i := range results {
		score := overlapScore(results[i].Content, terms)
		results[i].RerankerScore = &score
		results[i].Captions = extractCaptions(results[i].Content, terms)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return *results[i].RerankerScore > *results[j].RerankerScore
	})

	return results
}

// queryTerms tokenizes the query into lowercase terms, dropping single-rune
// tokens that carry no signal.
func queryTerms(text string) map[string]struct{} {
	terms := make(map[string]struct{})
	for _, tok := range tokenize(text) {
		if len(tok) < 2 {
			continue
		}
		terms[tok] = struct{}{}
	}
	return terms
}

// overlapScore is the fraction of query terms that occur in the content,
// weighted by how much of the content's vocabulary they cover. Scores are
// comparable only within a single result set.
func overlapScore(content string, terms map[string]struct{}) float32 {
	if content == "" {
		return 0
	}

	seen := make(map[string]struct{})
	matched := 0
	total := 0
	for _, tok := range tokenize(content) {
		if len(tok) < 2 {
			continue
		}
		total++
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		if _, ok := terms[tok]; ok {
			matched++
		}
	}
	if total == 0 || matched == 0 {
		return 0
	}

	coverage := float32(matched) / float32(len(terms))
	density := float32(matched) / float32(len(seen))
	return coverage + density
}

// extractCaptions picks the sentences with the highest query-term hit counts
// as extractive snippets, preserving document order.
func extractCaptions(content string, terms map[string]struct{}) []string {
	type scored struct {
		idx  int
		hits int
		text string
	}

	var candidates []scored
	for i, sentence := range splitSentences(content) {
		hits := 0
		for _, tok := range tokenize(sentence) {
			if _, ok := terms[tok]; ok {
				hits++
			}
		}
		if hits == 0 {
			continue
		}
		if len(sentence) > maxCaptionLen {
			cut := maxCaptionLen
			// Cutting mid-rune would emit invalid UTF-8.
			for cut > 0 && !utf8.RuneStart(sentence[cut]) {
				cut--
			}
			sentence = sentence[:cut]
		}
		candidates = append(candidates, scored{idx: i, hits: hits, text: sentence})
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].hits > candidates[j].hits
	})
	if len(candidates) > maxCaptions {
		candidates = candidates[:maxCaptions]
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].idx < candidates[j].idx
	})

	captions := make([]string, 0, len(candidates))
	for _, c := range candidates {
		captions = append(captions, c.text)
	}
	return captions
}

// tokenize lowercases and splits text on non-alphanumeric runes.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// splitSentences breaks content into sentence-like spans on terminal
// punctuation and newlines.
func splitSentences(content string) []string {
	var sentences []string
	var b strings.Builder
	flush := func() {
		s := strings.TrimSpace(b.String())
		if s != "" {
			sentences = append(sentences, s)
		}
		b.Reset()
	}
	for _, r := range content {
		switch r {
		case '.', '!', '?', '\n':
			b.WriteRune(r)
			flush()
		default:
			b.WriteRune(r)
		}
	}
	flush()
	return sentences
}
