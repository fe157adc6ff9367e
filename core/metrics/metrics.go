// Package metrics exposes Prometheus collectors for the webhook bot.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "hmbot"

// Metrics holds all Prometheus metrics. Methods are safe on a nil receiver.
type Metrics struct {
	InboundTotal     *prometheus.CounterVec
	TransitionsTotal *prometheus.CounterVec
	OutboundTotal    *prometheus.CounterVec
	DedupHitsTotal   prometheus.Counter
	RateLimitedTotal prometheus.Counter
	CompletedTotal   *prometheus.CounterVec
	HandleDuration   prometheus.Histogram
}

// New creates a Metrics instance registered on registry.
func New(registry *prometheus.Registry) *Metrics {
	factory := promauto.With(registry)
	return &Metrics{
		InboundTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "inbound_messages_total",
				Help:      "Webhook messages by message type and outcome",
			},
			[]string{"kind", "status"}, // status: ok, unsupported, malformed, empty, bad_signature
		),
		TransitionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dialogue_transitions_total",
				Help:      "Dialogue state transitions",
			},
			[]string{"from", "to"},
		),
		OutboundTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "outbound_messages_total",
				Help:      "Replies by kind and delivery result",
			},
			[]string{"kind", "status"}, // status: ok, invalid, http_4xx, http_5xx, timeout, ...
		),
		DedupHitsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dedup_hits_total",
				Help:      "Redelivered webhook messages that were skipped",
			},
		),
		RateLimitedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limited_total",
				Help:      "Messages dropped by the per-sender rate limit",
			},
		),
		CompletedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "policy_requests_total",
				Help:      "Completed policy lookup requests by insurance type",
			},
			[]string{"insurance_type"},
		),
		HandleDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "handle_duration_seconds",
				Help:      "Time from message receipt to reply submission",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
			},
		),
	}
}

// RegisterSessionsGauge exposes the number of tracked sessions, read from fn
// on each scrape.
func RegisterSessionsGauge(registry *prometheus.Registry, fn func() int) {
	promauto.With(registry).NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions",
			Help:      "Sessions currently held in memory",
		},
		func() float64 { return float64(fn()) },
	)
}

// ObserveInbound counts a webhook message.
func (m *Metrics) ObserveInbound(kind, status string) {
	if m == nil {
		return
	}
	if kind == "" {
		kind = "unknown"
	}
	m.InboundTotal.WithLabelValues(kind, status).Inc()
}

// ObserveOutbound counts a reply attempt result.
func (m *Metrics) ObserveOutbound(kind, status string) {
	if m == nil {
		return
	}
	m.OutboundTotal.WithLabelValues(kind, status).Inc()
}

// ObserveTransition counts a state change. Self-transitions are counted too.
func (m *Metrics) ObserveTransition(from, to string) {
	if m == nil {
		return
	}
	m.TransitionsTotal.WithLabelValues(from, to).Inc()
}

// ObserveCompleted counts a finished policy lookup request.
func (m *Metrics) ObserveCompleted(insuranceType string) {
	if m == nil {
		return
	}
	m.CompletedTotal.WithLabelValues(insuranceType).Inc()
}

// ObserveHandleDuration records pipeline latency in seconds.
func (m *Metrics) ObserveHandleDuration(seconds float64) {
	if m == nil {
		return
	}
	m.HandleDuration.Observe(seconds)
}

// DedupHit counts a skipped redelivery.
func (m *Metrics) DedupHit() {
	if m == nil {
		return
	}
	m.DedupHitsTotal.Inc()
}

// RateLimited counts a dropped message.
func (m *Metrics) RateLimited() {
	if m == nil {
		return
	}
	m.RateLimitedTotal.Inc()
}
