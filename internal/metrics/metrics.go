// Package metrics holds the Prometheus collectors for upstream calls and
// event-study runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "eventstudy"

// Metrics bundles the collectors. A nil *Metrics is valid and records nothing,
// so library code can take one optionally.
//
// Exposed series:
//   - upstream_requests_total{source,status}: ClinicalTrials.gov / price provider calls.
//   - upstream_latency_seconds{source}: upstream call duration.
//   - upstream_cache_hits_total{source}: responses served from the TTL cache.
//   - events_processed_total{outcome}: events studied ("ok") or skipped (reason).
//   - study_duration_seconds: wall time of one event-study run.
type Metrics struct {
	upstreamRequests *prometheus.CounterVec
	upstreamLatency  *prometheus.HistogramVec
	cacheHits        *prometheus.CounterVec
	events           *prometheus.CounterVec
	studyDuration    prometheus.Histogram
}

// New registers all collectors with registry (prometheus.DefaultRegisterer when nil).
func New(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		upstreamRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Requests made to upstream data sources",
		}, []string{"source", "status"}),
		upstreamLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_latency_seconds",
			Help:      "Upstream request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"source"}),
		cacheHits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_cache_hits_total",
			Help:      "Upstream responses served from the local cache",
		}, []string{"source"}),
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_processed_total",
			Help:      "Events run through the event study, by outcome",
		}, []string{"outcome"}),
		studyDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "study_duration_seconds",
			Help:      "Wall time of a single event-study run",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) ObserveUpstream(source, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.upstreamRequests.WithLabelValues(source, status).Inc()
	m.upstreamLatency.WithLabelValues(source).Observe(d.Seconds())
}

func (m *Metrics) CacheHit(source string) {
	if m == nil {
		return
	}
	m.cacheHits.WithLabelValues(source).Inc()
}

func (m *Metrics) EventOutcome(outcome string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveStudy(d time.Duration) {
	if m == nil {
		return
	}
	m.studyDuration.Observe(d.Seconds())
}
