package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"log/slog"

	"github.com/54b3r/kwa-go/internal/agent"
	"github.com/54b3r/kwa-go/internal/index"
	"github.com/54b3r/kwa-go/internal/ingest"
	"github.com/54b3r/kwa-go/internal/status"
)

// maxUploadBytes caps the total size of a multipart document upload.
const maxUploadBytes = 64 << 20

// handleChat handles POST /api/chat. It runs one conversation turn and
// returns the final answer plus the tool calls that produced it.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "message is required")
		return
	}

	start := time.Now()
	result, err := s.chatter.Chat(r.Context(), req.ConversationID, req.Message)
	if err != nil {
		outcome := "error"
		code := http.StatusBadGateway
		kind := "collaborator_unavailable"
		if errors.Is(err, agent.ErrModelTimeout) {
			outcome = "timeout"
			code = http.StatusGatewayTimeout
			kind = "timeout"
		}
		s.metrics.chatRequestsTotal.WithLabelValues(outcome).Inc()
		s.metrics.chatDurationSeconds.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
		writeError(w, code, kind, err.Error())
		return
	}

	s.metrics.chatRequestsTotal.WithLabelValues("ok").Inc()
	s.metrics.chatDurationSeconds.WithLabelValues("ok").Observe(time.Since(start).Seconds())
	writeJSON(w, http.StatusOK, result)
}

// handleDocumentUpload handles POST /api/documents. It accepts one or more
// files in a multipart form; multiple files run as a batch with per-item
// isolation.
func (s *Server) handleDocumentUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "expected multipart form upload")
		return
	}
	category := r.FormValue("category")

	var files []ingest.File
	for _, headers := range r.MultipartForm.File {
		for _, hdr := range headers {
			f, err := hdr.Open()
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_request", "unreadable file part")
				return
			}
			raw, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_request", "unreadable file part")
				return
			}
			files = append(files, ingest.File{Name: hdr.Filename, Raw: raw, Category: category})
		}
	}
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "no files in upload")
		return
	}

	if len(files) == 1 {
		receipt, err := s.ingestor.Ingest(r.Context(), files[0].Name, files[0].Raw, files[0].Category)
		if err != nil {
			s.metrics.ingestDocumentsTotal.WithLabelValues("error").Inc()
			writeIngestError(w, err)
			return
		}
		s.metrics.ingestDocumentsTotal.WithLabelValues("ok").Inc()
		writeJSON(w, http.StatusCreated, receipt)
		return
	}

	result := s.ingestor.IngestBatch(r.Context(), files)
	s.metrics.ingestDocumentsTotal.WithLabelValues("ok").Add(float64(result.Succeeded))
	s.metrics.ingestDocumentsTotal.WithLabelValues("error").Add(float64(result.Failed))

	code := http.StatusCreated
	if result.Failed > 0 {
		code = http.StatusMultiStatus
	}
	writeJSON(w, code, result)
}

// handleDocumentURL handles POST /api/documents/url.
func (s *Server) handleDocumentURL(w http.ResponseWriter, r *http.Request) {
	var req urlIngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "url is required")
		return
	}

	receipt, err := s.ingestor.IngestURL(r.Context(), req.URL, req.Category)
	if err != nil {
		s.metrics.ingestDocumentsTotal.WithLabelValues("error").Inc()
		writeIngestError(w, err)
		return
	}
	s.metrics.ingestDocumentsTotal.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusCreated, receipt)
}

// handleDocumentDelete handles DELETE /api/documents/{id}.
func (s *Server) handleDocumentDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "document id is required")
		return
	}
	if err := s.ingestor.Delete(r.Context(), id); err != nil {
		writeError(w, http.StatusBadGateway, "indexing_failed", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSearch handles GET /api/search?q=...&top_k=...&rerank=true.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "q is required")
		return
	}

	topK := 0
	if v := r.URL.Query().Get("top_k"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "top_k must be an integer")
			return
		}
		topK = n
	}
	rerank := r.URL.Query().Get("rerank") == "true"

	results := s.searcher.Search(r.Context(), query, topK, rerank)
	if results == nil {
		results = []index.Result{}
	}
	writeJSON(w, http.StatusOK, searchResponse{Query: query, Results: results})
}

// handleStatus handles GET /api/status. Per-component health is reported
// independently; a failed probe never fails the endpoint.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	components := map[string]status.Health{}
	if s.statuser != nil {
		components = s.statuser.Status(r.Context())
	}
	writeJSON(w, http.StatusOK, statusResponse{
		Healthy:    status.Healthy(components),
		Components: components,
	})
}

// handleHealth handles GET /api/health for liveness checks.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON encodes v as the JSON response body with the given status.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Error("response encode error", slog.Any("error", err))
	}
}

// writeError writes a structured JSON error body.
func writeError(w http.ResponseWriter, code int, kind, message string) {
	writeJSON(w, code, errorResponse{Error: kind, Message: message})
}

// writeIngestError maps a classified ingestion failure to an HTTP status.
func writeIngestError(w http.ResponseWriter, err error) {
	var ingErr *ingest.Error
	if !errors.As(err, &ingErr) {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}

	code := http.StatusBadGateway
	switch ingErr.Kind {
	case ingest.KindUnsupportedFormat:
		code = http.StatusUnsupportedMediaType
	case ingest.KindExtractionFailed, ingest.KindEmptyContent:
		code = http.StatusUnprocessableEntity
	case ingest.KindFetchFailed, ingest.KindEmbeddingFailed, ingest.KindIndexingFailed:
		code = http.StatusBadGateway
	}
	writeError(w, code, string(ingErr.Kind), ingErr.Error())
}

// instrument wraps the mux to record request counts and latency.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rw, r)

		s.metrics.httpRequestsTotal.WithLabelValues(
			r.Method, r.URL.Path, strconv.Itoa(rw.status),
		).Inc()
		s.metrics.httpDurationSeconds.WithLabelValues(
			r.Method, r.URL.Path,
		).Observe(time.Since(start).Seconds())
	})
}
