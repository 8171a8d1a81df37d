package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// serverMetrics holds the Prometheus instruments for one server instance.
type serverMetrics struct {
	chatRequestsTotal    *prometheus.CounterVec
	chatDurationSeconds  *prometheus.HistogramVec
	ingestDocumentsTotal *prometheus.CounterVec
	httpRequestsTotal    *prometheus.CounterVec
	httpDurationSeconds  *prometheus.HistogramVec
}

// newServerMetrics registers the server's instruments with the given
// registerer. Tests pass a fresh registry to avoid duplicate registration.
func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	factory := promauto.With(reg)

	return &serverMetrics{
		chatRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kwa",
			Subsystem: "chat",
			Name:      "requests_total",
			Help:      "Chat turns served, labelled by outcome.",
		}, []string{"outcome"}),

		chatDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "kwa",
			Subsystem: "chat",
			Name:      "duration_seconds",
			Help:      "End-to-end chat turn latency, including tool rounds.",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"outcome"}),

		ingestDocumentsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kwa",
			Subsystem: "ingest",
			Name:      "documents_total",
			Help:      "Documents processed by the ingestion pipeline, labelled by outcome.",
		}, []string{"outcome"}),

		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kwa",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests served, labelled by method, path and status.",
		}, []string{"method", "path", "status"}),

		httpDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "kwa",
			Subsystem: "http",
			Name:      "duration_seconds",
			Help:      "HTTP request latency by method and path.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
}
