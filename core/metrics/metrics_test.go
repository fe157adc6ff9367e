package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)
	require.NotNil(t, m)

	m.ObserveInbound("text", "ok")
	m.ObserveInbound("text", "ok")
	m.ObserveInbound("", "malformed")
	m.ObserveOutbound("location", "ok")
	m.ObserveTransition("IDLE", "WAITING_NAME")
	m.ObserveCompleted("Auto")
	m.ObserveHandleDuration(0.02)
	m.DedupHit()
	m.RateLimited()
	m.RateLimited()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.InboundTotal.WithLabelValues("text", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.InboundTotal.WithLabelValues("unknown", "malformed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OutboundTotal.WithLabelValues("location", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TransitionsTotal.WithLabelValues("IDLE", "WAITING_NAME")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CompletedTotal.WithLabelValues("Auto")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DedupHitsTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RateLimitedTotal))
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveInbound("text", "ok")
		m.ObserveOutbound("text", "ok")
		m.ObserveTransition("IDLE", "IDLE")
		m.ObserveCompleted("Vida")
		m.ObserveHandleDuration(1)
		m.DedupHit()
		m.RateLimited()
	})
}

func TestSessionsGauge(t *testing.T) {
	registry := prometheus.NewRegistry()
	n := 3
	RegisterSessionsGauge(registry, func() int { return n })

	count, err := testutil.GatherAndCount(registry, "hmbot_sessions")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	families, err := registry.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	assert.Equal(t, 3.0, families[0].GetMetric()[0].GetGauge().GetValue())
}
