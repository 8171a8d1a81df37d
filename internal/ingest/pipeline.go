// Package ingest implements the document ingestion pipeline: raw bytes are
// extracted to text, optionally archived, embedded, and upserted into the
// index. Every failure is classified per-document; batch ingestion isolates
// item failures instead of aborting.
package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/54b3r/kwa-go/internal/blob"
	"github.com/54b3r/kwa-go/internal/docid"
	"github.com/54b3r/kwa-go/internal/embedder"
	"github.com/54b3r/kwa-go/internal/extract"
	"github.com/54b3r/kwa-go/internal/index"
	"github.com/54b3r/kwa-go/internal/logging"
)

// maxFetchBytes caps the size of a fetched URL body.
const maxFetchBytes = 32 << 20

// fetchTimeout bounds a single URL fetch.
const fetchTimeout = 30 * time.Second

// Pipeline runs the ingestion stages against the configured collaborators.
// The archive is optional; a nil archive skips the archival stage.
type Pipeline struct {
	embedder embedder.Embedder
	store    index.Store
	archive  blob.Archive
	client   *http.Client
	now      func() time.Time
}

// New creates an ingestion pipeline. archive may be nil.
func New(emb embedder.Embedder, store index.Store, archive blob.Archive) *Pipeline {
	return &Pipeline{
		embedder: emb,
		store:    store,
		archive:  archive,
		client:   &http.Client{Timeout: fetchTimeout},
		now:      time.Now,
	}
}

// Receipt reports a successful ingestion.
type Receipt struct {
	// ID is the content-addressed document identifier.
	ID string `json:"id"`

	// Title is the extracted or derived document title.
	Title string `json:"title"`

	// Characters is the length of the extracted text.
	Characters int `json:"characters"`

	// ArchiveLocator is where the raw bytes were archived, empty when
	// archival was skipped or failed.
	ArchiveLocator string `json:"archive_locator,omitempty"`

	// Metadata is the format-specific extraction metadata.
	Metadata map[string]string `json:"metadata"`
}

// File is one batch ingestion item.
type File struct {
	Name     string
	Raw      []byte
	Category string
}

// BatchItem is the per-item outcome of a batch ingestion.
type BatchItem struct {
	Name    string   `json:"name"`
	Receipt *Receipt `json:"receipt,omitempty"`
	Err     error    `json:"-"`
	Error   string   `json:"error,omitempty"`
}

// BatchResult aggregates a batch ingestion run.
type BatchResult struct {
	Succeeded int         `json:"succeeded"`
	Failed    int         `json:"failed"`
	Items     []BatchItem `json:"items"`
}

// Ingest runs the full pipeline for one document. Re-ingesting an identical
// (name, content) pair produces the same ID and overwrites in place.
func (p *Pipeline) Ingest(ctx context.Context, filename string, raw []byte, category string) (*Receipt, error) {
	format, err := extract.Resolve(filename)
	if err != nil {
		return nil, newError(KindUnsupportedFormat, filename, err)
	}
	return p.ingest(ctx, filename, raw, format, category, filename)
}

// IngestURL fetches a resource and ingests it as markup unless the response
// content type says otherwise.
func (p *Pipeline) IngestURL(ctx context.Context, url, category string) (*Receipt, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, newError(KindFetchFailed, url, err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, newError(KindFetchFailed, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newError(KindFetchFailed, url, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return nil, newError(KindFetchFailed, url, err)
	}

	format, err := extract.ResolveContentType(resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, newError(KindUnsupportedFormat, url, err)
	}

	return p.ingest(ctx, url, raw, format, category, url)
}

// IngestBatch processes items independently. An item's failure never aborts
// the batch; the result names each failed item with its classified cause.
func (p *Pipeline) IngestBatch(ctx context.Context, files []File) *BatchResult {
	log := logging.FromContext(ctx)

	result := &BatchResult{Items: make([]BatchItem, 0, len(files))}
	for _, f := range files {
		item := BatchItem{Name: f.Name}
		receipt, err := p.Ingest(ctx, f.Name, f.Raw, f.Category)
		if err != nil {
			item.Err = err
			item.Error = err.Error()
			result.Failed++
			log.Warn("batch item failed", "name", f.Name, "error", err)
		} else {
			item.Receipt = receipt
			result.Succeeded++
		}
		result.Items = append(result.Items, item)
	}

	return result
}

// Delete removes a document from the index by ID.
func (p *Pipeline) Delete(ctx context.Context, id string) error {
	return p.store.Delete(ctx, id)
}

func (p *Pipeline) ingest(ctx context.Context, name string, raw []byte, format extract.Format, category, source string) (*Receipt, error) {
	log := logging.FromContext(ctx)

	res, err := extract.Extract(raw, format)
	if err != nil {
		return nil, newError(KindExtractionFailed, name, err)
	}

	content := strings.TrimSpace(res.Text)
	if content == "" {
		return nil, newError(KindEmptyContent, name, nil)
	}

	id := docid.New(name, content)

	// Archival is best effort; a failed or absent archive never blocks
	// indexing.
	locator := ""
	if p.archive != nil {
		locator, err = p.archive.Put(ctx, archiveFilename(name), raw)
		if err != nil {
			log.Warn("archive write failed", "name", name, "error", err)
			locator = ""
		}
	}

	vectors, err := p.embedder.Embed(ctx, []string{embedder.Truncate(p.embedder, content)})
	if err != nil {
		return nil, newError(KindEmbeddingFailed, name, err)
	}
	if len(vectors) == 0 {
		return nil, newError(KindEmbeddingFailed, name, fmt.Errorf("embedder returned no vectors"))
	}

	title := res.Title
	if title == "" {
		title = deriveTitle(name)
	}

	rec := &index.Record{
		ID:        id,
		Title:     title,
		Content:   content,
		Vector:    vectors[0],
		Source:    source,
		Category:  category,
		CreatedAt: p.now().UTC(),
		Metadata:  res.Metadata,
	}
	// Uploaded files report their archive locator as the source; URL
	// ingestions keep the origin URL.
	if locator != "" && !strings.Contains(source, "://") {
		rec.Source = locator
	}

	if err := p.store.Upsert(ctx, rec); err != nil {
		return nil, newError(KindIndexingFailed, name, err)
	}

	log.Info("document ingested", "id", id, "characters", len(content), "locator", locator)

	return &Receipt{
		ID:             id,
		Title:          title,
		Characters:     len(content),
		ArchiveLocator: locator,
		Metadata:       res.Metadata,
	}, nil
}

// archiveFilename derives an archive file name from a document name or URL.
func archiveFilename(name string) string {
	if i := strings.Index(name, "://"); i >= 0 {
		name = name[i+3:]
	}
	name = strings.Trim(name, "/")
	name = strings.ReplaceAll(name, "/", "-")
	if name == "" {
		return "document.html"
	}
	return name
}

// deriveTitle turns a file name or URL into a readable title.
func deriveTitle(name string) string {
	if i := strings.Index(name, "://"); i >= 0 {
		name = name[i+3:]
	}
	name = strings.Trim(name, "/")
	base := filepath.Base(name)
	if ext := filepath.Ext(base); ext != "" && len(ext) <= 5 {
		base = strings.TrimSuffix(base, ext)
	}
	base = strings.NewReplacer("-", " ", "_", " ").Replace(base)
	if base == "" || base == "." {
		return "Untitled"
	}
	return base
}
