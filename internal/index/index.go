// Package index defines the document index store consumed by the ingestion
// pipeline and the retrieval engine, and its Qdrant-backed implementation.
// The agent layer never depends on a specific backend — it sees only the
// Store interface.
package index

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when no record matches the requested ID.
var ErrNotFound = errors.New("index: document not found")

// Record is a document as persisted in the index.
type Record struct {
	// ID is the stable content-addressed document identifier.
	ID string

	// Title is the human-readable document title.
	Title string

	// Content is the normalized text content.
	Content string

	// Vector is the content embedding. Its length must match the
	// collection's configured vector size.
	Vector []float32

	// Source is the origin URI or archive locator of the document.
	Source string

	// Category is the caller-assigned document category.
	Category string

	// CreatedAt is when the record was ingested.
	CreatedAt time.Time

	// Metadata holds open format-specific key-value pairs. It travels to the
	// index as an encoded JSON string and is decoded again on read.
	Metadata map[string]string
}

// Result is a query-time view of a Record plus ranking signals.
// It is never persisted; every query recomputes it.
type Result struct {
	// ID is the document identifier.
	ID string

	// Title is the document title.
	Title string

	// Content is the normalized text content.
	Content string

	// Source is the origin URI or archive locator.
	Source string

	// Category is the document category.
	Category string

	// CreatedAt is when the record was ingested.
	CreatedAt time.Time

	// Metadata is the decoded metadata map. Decoding failures yield an
	// empty map, never an error.
	Metadata map[string]string

	// Score is the fused relevance score assigned by the index.
	Score float32

	// RerankerScore is the semantic reranking score. Nil unless reranking
	// was requested.
	RerankerScore *float32

	// Captions holds extractive snippets justifying the result's relevance.
	// Present only when reranking was requested and captions were found.
	Captions []string
}

// Query describes one combined retrieval request.
type Query struct {
	// Text is the keyword query for the full-text leg.
	Text string

	// Vector is the query embedding for the nearest-neighbor leg.
	// May be nil, in which case only the keyword leg runs.
	Vector []float32

	// TopK caps the number of results returned.
	TopK int

	// Rerank requests semantic reranking with extractive captions.
	Rerank bool
}

// Stats reports index-level statistics.
type Stats struct {
	// DocumentCount is the number of records in the index.
	DocumentCount uint64

	// SegmentCount is the number of storage segments backing the index.
	SegmentCount uint64
}

// Store is the interface for persisting and querying document records.
// Implementations must be safe to call from multiple goroutines.
type Store interface {
	// Upsert stores or replaces the record keyed by its ID. Re-upserting a
	// record with an identical ID overwrites, never duplicates.
	Upsert(ctx context.Context, rec *Record) error

	// Query issues one combined keyword + vector request and returns at most
	// q.TopK results ordered by relevance.
	Query(ctx context.Context, q *Query) ([]Result, error)

	// Get performs an exact-ID lookup. Returns ErrNotFound when absent.
	Get(ctx context.Context, id string) (*Result, error)

	// Delete removes the record with the given ID.
	Delete(ctx context.Context, id string) error

	// Stats returns index-level statistics.
	Stats(ctx context.Context) (*Stats, error)

	// Ping checks whether the index is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}
