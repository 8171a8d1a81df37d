package server

import (
	"context"
	"net/http"
	"time"

	"log/slog"
)

// readyProbeTimeout bounds each individual dependency probe during a
// readiness check so one hung collaborator cannot stall the endpoint.
const readyProbeTimeout = 5 * time.Second

// Pinger is a named dependency that can report reachability.
type Pinger interface {
	// Name identifies the dependency in readiness output.
	Name() string
	// Ping returns nil when the dependency is reachable.
	Ping(ctx context.Context) error
}

// readyCheck is the per-dependency result in the readiness response.
type readyCheck struct {
	Name  string `json:"name"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// readyResponse is the JSON response for GET /api/ready.
type readyResponse struct {
	Ready  bool         `json:"ready"`
	Checks []readyCheck `json:"checks,omitempty"`
}

// handleReady handles GET /api/ready. It probes every configured dependency
// and returns 503 when any is unreachable. With no pingers configured the
// endpoint degrades to a liveness check.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	resp := readyResponse{Ready: true}

	for _, p := range s.pingers {
		ctx, cancel := context.WithTimeout(r.Context(), readyProbeTimeout)
		err := p.Ping(ctx)
		cancel()

		check := readyCheck{Name: p.Name(), OK: err == nil}
		if err != nil {
			check.Error = err.Error()
			resp.Ready = false
			s.log.Warn("readiness probe failed",
				slog.String("dependency", p.Name()),
				slog.Any("error", err),
			)
		}
		resp.Checks = append(resp.Checks, check)
	}

	code := http.StatusOK
	if !resp.Ready {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}
