package ingest

import "fmt"

// Kind classifies an ingestion failure by the stage that produced it.
type Kind string

const (
	// KindUnsupportedFormat means the input's extension or content type is
	// not in the accepted set.
	KindUnsupportedFormat Kind = "unsupported_format"

	// KindExtractionFailed means the extractor could not parse the raw bytes.
	KindExtractionFailed Kind = "extraction_failed"

	// KindEmptyContent means extraction succeeded but yielded no text.
	KindEmptyContent Kind = "empty_content"

	// KindEmbeddingFailed means the embedding collaborator rejected or
	// failed the request.
	KindEmbeddingFailed Kind = "embedding_failed"

	// KindIndexingFailed means the index upsert did not complete.
	KindIndexingFailed Kind = "indexing_failed"

	// KindFetchFailed means a URL ingestion could not retrieve the resource.
	KindFetchFailed Kind = "fetch_failed"
)

// Error is an ingestion failure tagged with the stage it occurred in and the
// document name it concerns.
type Error struct {
	Kind Kind
	Name string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("ingest %s: %s", e.Name, e.Kind)
	}
	return fmt.Sprintf("ingest %s: %s: %v", e.Name, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, name string, err error) *Error {
	return &Error{Kind: kind, Name: name, Err: err}
}
