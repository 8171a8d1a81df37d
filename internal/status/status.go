// Package status aggregates health probes across the agent's collaborators.
// Probes run concurrently, each bounded by its own timeout, so one slow or
// failing collaborator never hides the health of the others.
package status

import (
	"context"
	"sync"
	"time"
)

// defaultProbeTimeout bounds a single health probe.
const defaultProbeTimeout = 5 * time.Second

// Health is the outcome of one probe.
type Health struct {
	// Healthy reports whether the probe succeeded.
	Healthy bool `json:"healthy"`

	// Detail carries the failure cause for unhealthy components.
	Detail string `json:"detail,omitempty"`

	// Latency is how long the probe took.
	Latency time.Duration `json:"latency_ns"`
}

// Probe is one named health check.
type Probe struct {
	// Name identifies the component, e.g. "index" or "model".
	Name string

	// Check runs the probe. A nil return means healthy.
	Check func(ctx context.Context) error
}

// Aggregator fans health probes out and collects per-component results.
type Aggregator struct {
	probes  []Probe
	timeout time.Duration
}

// NewAggregator creates an aggregator over the given probes.
func NewAggregator(probes ...Probe) *Aggregator {
	return &Aggregator{probes: probes, timeout: defaultProbeTimeout}
}

// Status runs all probes concurrently and returns a result per component.
// A failed probe contributes an unhealthy entry; it never fails the call.
func (a *Aggregator) Status(ctx context.Context) map[string]Health {
	results := make(map[string]Health, len(a.probes))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, p := range a.probes {
		wg.Add(1)
		go func(p Probe) {
			defer wg.Done()

			probeCtx, cancel := context.WithTimeout(ctx, a.timeout)
			defer cancel()

			start := time.Now()
			err := p.Check(probeCtx)
			h := Health{Healthy: err == nil, Latency: time.Since(start)}
			if err != nil {
				h.Detail = err.Error()
			}

			mu.Lock()
			results[p.Name] = h
			mu.Unlock()
		}(p)
	}
	wg.Wait()

	return results
}

// Healthy reports whether every component passed.
func Healthy(results map[string]Health) bool {
	for _, h := range results {
		if !h.Healthy {
			return false
		}
	}
	return true
}
