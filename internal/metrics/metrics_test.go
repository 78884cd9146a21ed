package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveUpstream("clinicaltrials", "200", 120*time.Millisecond)
	m.ObserveUpstream("clinicaltrials", "200", 80*time.Millisecond)
	m.CacheHit("clinicaltrials")
	m.EventOutcome("ok")
	m.EventOutcome("ok")
	m.EventOutcome("insufficient_history")
	m.ObserveStudy(time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.upstreamRequests.WithLabelValues("clinicaltrials", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheHits.WithLabelValues("clinicaltrials")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.events.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.events.WithLabelValues("insufficient_history")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveUpstream("stooq", "500", time.Second)
		m.CacheHit("stooq")
		m.EventOutcome("ok")
		m.ObserveStudy(time.Second)
	})
}
