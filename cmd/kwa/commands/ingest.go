package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"log/slog"

	"github.com/spf13/cobra"

	"github.com/54b3r/kwa-go/internal/embedder"
	"github.com/54b3r/kwa-go/internal/ingest"
	"github.com/54b3r/kwa-go/internal/logging"
)

// NewIngestCmd constructs the `kwa ingest` command, which runs the document
// pipeline over local files and URLs and reports a receipt per document.
func NewIngestCmd() *cobra.Command {
	var urls []string
	var category string

	cmd := &cobra.Command{
		Use:   "ingest [files...]",
		Short: "Ingest documents into the knowledge index",
		Long: `Extract, archive, embed and index documents so the agent can retrieve them.

Accepted formats: PDF, Word (.docx), plain text, markdown, and HTML pages
fetched by URL. Re-ingesting an unchanged document overwrites its index
entry in place; it never creates a duplicate.

Required environment variables:
  QDRANT_HOST          Qdrant server hostname (default: localhost)
  QDRANT_PORT          Qdrant gRPC port (default: 6334)
  QDRANT_COLLECTION    Collection name (default: kwa-docs)
  MODEL_PROVIDER       Embedding backend: ollama, openai, azure (default: ollama)
  KWA_ARCHIVE_DIR      Optional directory for raw document archival

Examples:
  kwa ingest report.pdf notes.md
  kwa ingest --category sales brochure.docx
  kwa ingest --url https://example.com/pricing`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()

			if len(args) == 0 && len(urls) == 0 {
				return fmt.Errorf("ingest: provide at least one file or --url")
			}

			emb, err := embedder.NewFromEnv()
			if err != nil {
				return fmt.Errorf("ingest: failed to initialise embedder: %w", err)
			}

			store, err := openIndex(ctx)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer store.Close()

			pipeline := ingest.New(emb, store, newArchive(log))

			files := make([]ingest.File, 0, len(args))
			for _, path := range args {
				raw, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("ingest: failed to read %q: %w", path, err)
				}
				files = append(files, ingest.File{
					Name:     filepath.Base(path),
					Raw:      raw,
					Category: category,
				})
			}

			var failed int
			if len(files) > 0 {
				result := pipeline.IngestBatch(ctx, files)
				failed += result.Failed
				for _, item := range result.Items {
					printBatchItem(item)
				}
			}

			for _, u := range urls {
				receipt, err := pipeline.IngestURL(ctx, u, category)
				if err != nil {
					failed++
					fmt.Printf("FAIL  %s: %v\n", u, err)
					continue
				}
				printReceipt(receipt)
			}

			if failed > 0 {
				log.Warn("ingestion finished with failures", slog.Int("failed", failed))
				return fmt.Errorf("ingest: %d document(s) failed", failed)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&urls, "url", "u", nil, "Web page URL to ingest (repeatable)")
	cmd.Flags().StringVarP(&category, "category", "c", "", "Category label applied to all ingested documents")

	return cmd
}

func printBatchItem(item ingest.BatchItem) {
	if item.Receipt != nil {
		printReceipt(item.Receipt)
		return
	}
	fmt.Printf("FAIL  %s: %s\n", item.Name, item.Error)
}

func printReceipt(r *ingest.Receipt) {
	fmt.Printf("OK    %s  %q  %d chars", r.ID, r.Title, r.Characters)
	if r.ArchiveLocator != "" {
		fmt.Printf("  archived at %s", r.ArchiveLocator)
	}
	fmt.Println()
}
