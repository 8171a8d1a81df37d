package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/kwa-go/internal/agent"
	"github.com/54b3r/kwa-go/internal/index"
	"github.com/54b3r/kwa-go/internal/ingest"
	"github.com/54b3r/kwa-go/internal/status"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on all protected /api/* routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// Metrics receives the server's Prometheus instruments. Defaults to
	// prometheus.DefaultRegisterer; tests pass a fresh registry.
	Metrics prometheus.Registerer
}

// chatter is the interface handleChat calls to run a conversation turn.
// *agent.Agent satisfies it; tests inject a fake.
type chatter interface {
	Chat(ctx context.Context, conversationID, message string) (*agent.Result, error)
}

// ingestor is the interface the document handlers call.
// *ingest.Pipeline satisfies it; tests inject a fake.
type ingestor interface {
	Ingest(ctx context.Context, filename string, raw []byte, category string) (*ingest.Receipt, error)
	IngestURL(ctx context.Context, url, category string) (*ingest.Receipt, error)
	IngestBatch(ctx context.Context, files []ingest.File) *ingest.BatchResult
	Delete(ctx context.Context, id string) error
}

// searcher is the interface handleSearch calls.
// *retrieve.Engine satisfies it; tests inject a fake.
type searcher interface {
	Search(ctx context.Context, query string, topK int, rerank bool) []index.Result
}

// statuser is the interface handleStatus calls.
// *status.Aggregator satisfies it; tests inject a fake.
type statuser interface {
	Status(ctx context.Context) map[string]status.Health
}

// Server is the HTTP server that exposes the knowledge agent.
type Server struct {
	// chatter runs conversation turns; set to the agent in production.
	chatter chatter
	// ingestor runs the document pipeline.
	ingestor ingestor
	// searcher runs retrieval queries.
	searcher searcher
	// statuser aggregates collaborator health.
	statuser statuser
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds the Prometheus instruments for this server instance.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// chatRequest is the JSON body for POST /api/chat.
type chatRequest struct {
	// Message is the user's natural language query.
	Message string `json:"message"`
	// ConversationID keys the persisted history. Optional.
	ConversationID string `json:"conversation_id,omitempty"`
}

// urlIngestRequest is the JSON body for POST /api/documents/url.
type urlIngestRequest struct {
	// URL is the resource to fetch and ingest.
	URL string `json:"url"`
	// Category is an optional document category.
	Category string `json:"category,omitempty"`
}

// searchResponse is the JSON response for GET /api/search.
type searchResponse struct {
	// Query echoes the query that was run.
	Query string `json:"query"`
	// Results are the matching documents in relevance order.
	Results []index.Result `json:"results"`
}

// statusResponse is the JSON response for GET /api/status.
type statusResponse struct {
	// Healthy is true when every component passed its probe.
	Healthy bool `json:"healthy"`
	// Components maps component name to probe outcome.
	Components map[string]status.Health `json:"components"`
}

// errorResponse is the JSON error body used by all handlers.
type errorResponse struct {
	// Error is the machine-readable failure kind.
	Error string `json:"error"`
	// Message is the human-readable cause.
	Message string `json:"message,omitempty"`
}
