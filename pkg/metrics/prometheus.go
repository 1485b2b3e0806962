package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"FinGate/internal/domain/models"
)

// Recorder implements domain.repository.Metrics using Prometheus. It also
// observes cache lookups and limiter waits.
type Recorder struct {
	fetches      *prometheus.CounterVec
	providerErrs *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	coarserRetry *prometheus.CounterVec
	cacheResults *prometheus.CounterVec
	limiterWait  *prometheus.HistogramVec
	assistant    *prometheus.HistogramVec
}

// New creates a recorder registered on the default registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a recorder registered on reg.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		fetches: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fingate_fetch_total",
				Help: "Orchestrated fetches by data kind, asset kind and served source",
			},
			[]string{"kind", "asset_kind", "source"},
		),
		providerErrs: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fingate_provider_errors_total",
				Help: "Provider failures by provider and error kind",
			},
			[]string{"provider", "kind"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fingate_provider_duration_seconds",
				Help:    "Duration of live provider calls in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider"},
		),
		coarserRetry: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fingate_coarser_retry_total",
				Help: "Retries at a coarser timeframe and whether they succeeded",
			},
			[]string{"provider", "ok"},
		),
		cacheResults: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fingate_cache_results_total",
				Help: "Cache lookups by result (hit, stale, miss, error)",
			},
			[]string{"result"},
		),
		limiterWait: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fingate_limiter_wait_seconds",
				Help:    "Time spent waiting for a provider call slot",
				Buckets: []float64{0, 0.01, 0.1, 0.5, 1, 2.5, 5, 10, 15, 30},
			},
			[]string{"provider"},
		),
		assistant: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fingate_assistant_duration_seconds",
				Help:    "Assistant answer latency by answer source",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"source"},
		),
	}
}

func (r *Recorder) RecordFetch(kind, assetKind string, source models.DataSource) {
	r.fetches.WithLabelValues(kind, assetKind, string(source)).Inc()
}

func (r *Recorder) RecordProviderError(provider string, kind models.ErrorKind) {
	r.providerErrs.WithLabelValues(provider, string(kind)).Inc()
}

func (r *Recorder) RecordProviderLatency(provider string, d time.Duration) {
	r.latency.WithLabelValues(provider).Observe(d.Seconds())
}

func (r *Recorder) RecordCoarserRetry(provider string, ok bool) {
	label := "false"
	if ok {
		label = "true"
	}
	r.coarserRetry.WithLabelValues(provider, label).Inc()
}

func (r *Recorder) RecordAssistant(source string, d time.Duration) {
	r.assistant.WithLabelValues(source).Observe(d.Seconds())
}

// ObserveCache implements cache.Observer.
func (r *Recorder) ObserveCache(result string) {
	r.cacheResults.WithLabelValues(result).Inc()
}

// ObserveWait implements ratelimit.WaitObserver.
func (r *Recorder) ObserveWait(provider string, d time.Duration) {
	r.limiterWait.WithLabelValues(provider).Observe(d.Seconds())
}

// Nop discards everything. Used when metrics are disabled and in tests.
type Nop struct{}

func (Nop) RecordFetch(string, string, models.DataSource) {}
func (Nop) RecordProviderError(string, models.ErrorKind) {}
func (Nop) RecordProviderLatency(string, time.Duration) {}
func (Nop) RecordCoarserRetry(string, bool) {}
func (Nop) RecordAssistant(string, time.Duration) {}
func (Nop) ObserveCache(string) {}
func (Nop) ObserveWait(string, time.Duration) {}
