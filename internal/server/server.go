// Package server implements the HTTP server that exposes the knowledge
// agent via a REST API: document ingestion, retrieval, chat, and health.
// The server is started by the `kwa serve` CLI command.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/54b3r/kwa-go/internal/logging"
)

// Deps bundles the collaborators the server exposes over HTTP.
type Deps struct {
	// Chatter runs conversation turns.
	Chatter chatter
	// Ingestor runs the document pipeline.
	Ingestor ingestor
	// Searcher runs retrieval queries.
	Searcher searcher
	// Statuser aggregates collaborator health. May be nil.
	Statuser statuser
}

// New constructs a Server from the provided dependencies and config.
func New(deps Deps, cfg *Config) (*Server, error) {
	if deps.Chatter == nil {
		return nil, fmt.Errorf("server: Chatter must not be nil")
	}
	if deps.Ingestor == nil {
		return nil, fmt.Errorf("server: Ingestor must not be nil")
	}
	if deps.Searcher == nil {
		return nil, fmt.Errorf("server: Searcher must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		// WriteTimeout must cover a full tool-calling turn.
		cfg.WriteTimeout = 5 * time.Minute
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	log := cfg.Logger
	if log == nil {
		log = logging.New()
	}
	rps := cfg.RateLimit
	if rps == 0 {
		rps = defaultRateLimit
	}
	burst := cfg.RateBurst
	if burst == 0 {
		burst = defaultRateBurst
	}
	reg := cfg.Metrics
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	s := &Server{
		chatter:  deps.Chatter,
		ingestor: deps.Ingestor,
		searcher: deps.Searcher,
		statuser: deps.Statuser,
		cfg:      cfg,
		log:      log,
		pingers:  cfg.Pingers,
		metrics:  newServerMetrics(reg),
	}

	rl, stopRL := newRateLimiter(rps, burst, log)
	s.stopRL = stopRL

	if cfg.APIKey == "" {
		log.Warn("auth: KWA_API_KEY not set, API authentication disabled")
	}

	protected := func(h http.HandlerFunc) http.Handler {
		return authMiddleware(cfg.APIKey, rl.middleware(h))
	}

	mux := http.NewServeMux()
	mux.Handle("POST /api/chat", protected(s.handleChat))
	mux.Handle("POST /api/documents", protected(s.handleDocumentUpload))
	mux.Handle("POST /api/documents/url", protected(s.handleDocumentURL))
	mux.Handle("DELETE /api/documents/{id}", protected(s.handleDocumentDelete))
	mux.Handle("GET /api/search", protected(s.handleSearch))
	mux.Handle("GET /api/status", protected(s.handleStatus))
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/ready", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      requestLogger(log, s.instrument(mux)),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s, nil
}

// Start begins listening and serving HTTP requests. It blocks until the
// context is cancelled, then performs a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.log.Info("server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.stopRL()
		return fmt.Errorf("server: listen error: %w", err)
	case <-ctx.Done():
		s.stopRL()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: graceful shutdown failed: %w", err)
		}
		return nil
	}
}
