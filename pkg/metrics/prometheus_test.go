package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"FinGate/internal/domain/models"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewWithRegistry(reg)

	r.RecordFetch("candles", "stock", models.SourceLive)
	r.RecordFetch("candles", "stock", models.SourceLive)
	r.RecordFetch("candles", "oil", models.SourceSynthetic)
	r.RecordProviderError("finnhub", models.KindRateLimited)
	r.RecordCoarserRetry("finnhub", true)
	r.ObserveCache("hit")
	r.ObserveWait("finnhub", 20*time.Millisecond)
	r.RecordProviderLatency("finnhub", time.Second)
	r.RecordAssistant("offline", time.Millisecond)

	if got := testutil.ToFloat64(r.fetches.WithLabelValues("candles", "stock", "live")); got != 2 {
		t.Fatalf("live fetches = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.providerErrs.WithLabelValues("finnhub", "rate_limited")); got != 1 {
		t.Fatalf("provider errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.coarserRetry.WithLabelValues("finnhub", "true")); got != 1 {
		t.Fatalf("coarser retries = %v, want 1", got)
	}
	if n := testutil.CollectAndCount(r.limiterWait); n != 1 {
		t.Fatalf("limiter wait series = %d, want 1", n)
	}
}

func TestRecorderRegistersOncePerRegistry(t *testing.T) {
	// separate registries must not collide
	NewWithRegistry(prometheus.NewRegistry())
	NewWithRegistry(prometheus.NewRegistry())
}
