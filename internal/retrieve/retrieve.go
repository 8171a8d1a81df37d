// Package retrieve implements hybrid retrieval over the document index. A
// query is embedded, issued to the index as one combined keyword + vector
// request, and optionally semantically reranked with extractive captions.
package retrieve

import (
	"context"

	"github.com/54b3r/kwa-go/internal/embedder"
	"github.com/54b3r/kwa-go/internal/index"
	"github.com/54b3r/kwa-go/internal/logging"
)

// maxTopK is the hard cap on results per search, whatever the caller asks.
const maxTopK = 50

// defaultTopK applies when the caller passes a non-positive top-k.
const defaultTopK = 5

// Engine runs searches against the index using the configured embedder.
type Engine struct {
	embedder embedder.Embedder
	store    index.Store
}

// NewEngine creates a retrieval engine.
func NewEngine(emb embedder.Embedder, store index.Store) *Engine {
	return &Engine{embedder: emb, store: store}
}

// Search embeds the query and issues one combined request to the index.
// Failures degrade to an empty result set so callers can continue without
// search results; the failure is logged, never propagated.
func (e *Engine) Search(ctx context.Context, query string, topK int, rerank bool) []index.Result {
	log := logging.FromContext(ctx)

	if topK <= 0 {
		topK = defaultTopK
	}
	if topK > maxTopK {
		topK = maxTopK
	}

	q := &index.Query{Text: query, TopK: topK, Rerank: rerank}

	vectors, err := e.embedder.Embed(ctx, []string{embedder.Truncate(e.embedder, query)})
	if err != nil {
		// Keyword-only retrieval still works without a query vector.
		log.Warn("query embedding failed, falling back to keyword search", "error", err)
	} else if len(vectors) > 0 {
		q.Vector = vectors[0]
	}

	results, err := e.store.Query(ctx, q)
	if err != nil {
		log.Warn("index query failed, returning empty results", "query", query, "error", err)
		return nil
	}
	if len(results) > topK {
		results = results[:topK]
	}

	return results
}

// Get fetches a single document by ID. Unlike Search, lookup failures
// propagate so callers can distinguish a missing document from an empty
// result.
func (e *Engine) Get(ctx context.Context, id string) (*index.Result, error) {
	return e.store.Get(ctx, id)
}
