package retrieve

import (
	"context"
	"errors"
	"testing"

	"github.com/54b3r/kwa-go/internal/index"
)

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int    { return 3 }
func (f *fakeEmbedder) MaxInputChars() int { return 1000 }

type fakeStore struct {
	index.Store
	results  []index.Result
	queryErr error
	lastQ    *index.Query
	getRes   *index.Result
	getErr   error
}

func (f *fakeStore) Query(_ context.Context, q *index.Query) ([]index.Result, error) {
	f.lastQ = q
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.results, nil
}

func (f *fakeStore) Get(_ context.Context, _ string) (*index.Result, error) {
	return f.getRes, f.getErr
}

func TestSearchReturnsDubaiFirst(t *testing.T) {
	t.Parallel()
	store := &fakeStore{results: []index.Result{
		{ID: "dubai-brochure-bbbb2222", Title: "Dubai Brochure", Score: 0.91},
		{ID: "paris-guide-aaaa1111", Title: "Paris Guide", Score: 0.40},
	}}
	e := NewEngine(&fakeEmbedder{}, store)

	results := e.Search(context.Background(), "Dubai", 5, false)

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Title != "Dubai Brochure" {
		t.Fatalf("expected Dubai Brochure first, got %q", results[0].Title)
	}
	if results[0].Score == 0 {
		t.Fatal("expected a non-zero score on the top result")
	}
	if len(store.lastQ.Vector) != 3 {
		t.Fatalf("expected query vector to reach the index, got %v", store.lastQ.Vector)
	}
}

func TestSearchCapsTopK(t *testing.T) {
	t.Parallel()
	results := make([]index.Result, 10)
	for i := range results {
		results[i] = index.Result{ID: "doc"}
	}
	store := &fakeStore{results: results}
	e := NewEngine(&fakeEmbedder{}, store)

	got := e.Search(context.Background(), "anything", 3, false)
	if len(got) != 3 {
		t.Fatalf("expected at most 3 results, got %d", len(got))
	}

	e.Search(context.Background(), "anything", 999, false)
	if store.lastQ.TopK != maxTopK {
		t.Fatalf("expected top-k clamped to %d, got %d", maxTopK, store.lastQ.TopK)
	}

	e.Search(context.Background(), "anything", 0, false)
	if store.lastQ.TopK != defaultTopK {
		t.Fatalf("expected default top-k %d, got %d", defaultTopK, store.lastQ.TopK)
	}
}

func TestSearchDegradesToEmptyOnIndexFailure(t *testing.T) {
	t.Parallel()
	store := &fakeStore{queryErr: errors.New("index offline")}
	e := NewEngine(&fakeEmbedder{}, store)

	results := e.Search(context.Background(), "Dubai", 5, false)
	if results != nil {
		t.Fatalf("expected nil results on index failure, got %v", results)
	}
}

func TestSearchFallsBackToKeywordOnEmbedFailure(t *testing.T) {
	t.Parallel()
	store := &fakeStore{results: []index.Result{{ID: "doc"}}}
	e := NewEngine(&fakeEmbedder{err: errors.New("model offline")}, store)

	results := e.Search(context.Background(), "Dubai", 5, false)
	if len(results) != 1 {
		t.Fatalf("expected keyword-only results, got %d", len(results))
	}
	if store.lastQ.Vector != nil {
		t.Fatal("expected no vector in the fallback query")
	}
	if store.lastQ.Text != "Dubai" {
		t.Fatalf("expected query text preserved, got %q", store.lastQ.Text)
	}
}

func TestSearchPassesRerankFlag(t *testing.T) {
	t.Parallel()
	store := &fakeStore{}
	e := NewEngine(&fakeEmbedder{}, store)

	e.Search(context.Background(), "Dubai", 5, true)
	if !store.lastQ.Rerank {
		t.Fatal("expected rerank flag forwarded to the index")
	}
}

func TestGetPropagatesNotFound(t *testing.T) {
	t.Parallel()
	store := &fakeStore{getErr: index.ErrNotFound}
	e := NewEngine(&fakeEmbedder{}, store)

	_, err := e.Get(context.Background(), "missing-id")
	if !errors.Is(err, index.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
