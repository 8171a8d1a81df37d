package status

import (
	"context"
	"errors"
	"testing"
	"time"
)

func Test_Status_IsolatesFailures(t *testing.T) {
	t.Parallel()
	a := NewAggregator(
		Probe{Name: "index", Check: func(context.Context) error { return nil }},
		Probe{Name: "model", Check: func(context.Context) error { return errors.New("connection refused") }},
		Probe{Name: "actions", Check: func(context.Context) error { return nil }},
	)

	results := a.Status(context.Background())

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if !results["index"].Healthy || !results["actions"].Healthy {
		t.Fatal("expected healthy components unaffected by the failing one")
	}
	if results["model"].Healthy {
		t.Fatal("expected model reported unhealthy")
	}
	if results["model"].Detail != "connection refused" {
		t.Fatalf("expected failure detail, got %q", results["model"].Detail)
	}
	if Healthy(results) {
		t.Fatal("expected aggregate unhealthy")
	}
}

func Test_Status_ProbeTimeoutBounded(t *testing.T) {
	t.Parallel()
	a := NewAggregator(Probe{Name: "slow", Check: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}})
	a.timeout = 20 * time.Millisecond

	start := time.Now()
	results := a.Status(context.Background())

	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("probe not bounded by timeout, took %s", elapsed)
	}
	if results["slow"].Healthy {
		t.Fatal("expected timed-out probe reported unhealthy")
	}
}

func Test_Status_AllHealthy(t *testing.T) {
	t.Parallel()
	a := NewAggregator(
		Probe{Name: "index", Check: func(context.Context) error { return nil }},
	)

	results := a.Status(context.Background())
	if !Healthy(results) {
		t.Fatal("expected aggregate healthy")
	}
	if results["index"].Latency < 0 {
		t.Fatal("expected non-negative latency")
	}
}
