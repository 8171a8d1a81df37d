package commands

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"log/slog"

	"github.com/54b3r/kwa-go/internal/action"
	"github.com/54b3r/kwa-go/internal/blob"
	"github.com/54b3r/kwa-go/internal/embedder"
	"github.com/54b3r/kwa-go/internal/index"
)

// openIndex connects to the Qdrant index configured via QDRANT_* environment
// variables. The vector size follows the active embedding backend.
func openIndex(ctx context.Context) (*index.QdrantStore, error) {
	host := getEnvOrDefault("QDRANT_HOST", "localhost")
	port := getEnvInt("QDRANT_PORT", 6334)
	collection := getEnvOrDefault("QDRANT_COLLECTION", "kwa-docs")
	embBackend := getEnvOrDefault("EMBEDDING_PROVIDER", getEnvOrDefault("MODEL_PROVIDER", "ollama"))
	vectorSize := uint64(embedder.DefaultDimensions(embBackend)) //nolint:gosec // dimensions are bounded

	store, err := index.NewQdrantStore(ctx, &index.QdrantConfig{
		Host:       host,
		Port:       port,
		Collection: collection,
		VectorSize: vectorSize,
		APIKey:     os.Getenv("QDRANT_API_KEY"),
		UseTLS:     os.Getenv("QDRANT_TLS") == "true",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Qdrant at %s:%d: %w", host, port, err)
	}
	return store, nil
}

// newArchive builds the raw document archive from KWA_ARCHIVE_DIR. When the
// variable is unset archival is disabled and the pipeline skips it.
func newArchive(log *slog.Logger) blob.Archive {
	dir := os.Getenv("KWA_ARCHIVE_DIR")
	if dir == "" {
		return nil
	}
	archive, err := blob.NewFSArchive(dir)
	if err != nil {
		log.Warn("archive: disabled", slog.String("dir", dir), slog.Any("error", err))
		return nil
	}
	return archive
}

// newExecutor builds the action executor from ACTIONS_* environment
// variables. An unset endpoint yields an unconfigured executor; the agent
// then omits the execute_action tool.
func newExecutor() *action.Executor {
	return action.NewExecutor(os.Getenv("ACTIONS_ENDPOINT"), os.Getenv("ACTIONS_FUNCTION_KEY"))
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
