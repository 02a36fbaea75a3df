package gateway

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/parley-chat/parley/internal/chat"
)

// Metrics holds the gateway's Prometheus collectors. Each Gateway owns
// its own registry so tests can spin up instances without collector
// name collisions.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	messages        *prometheus.CounterVec
	providerLatency prometheus.Histogram
}

// message outcome label values.
const (
	outcomeOK       = "ok"
	outcomeRejected = "rejected"
	outcomeFailed   = "failed"
)

// NewMetrics creates and registers the gateway collectors. sessions may
// be nil; the active-sessions gauge is then omitted.
func NewMetrics(sessions chat.Store) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parley",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parley",
			Subsystem: "chat",
			Name:      "messages_total",
			Help:      "Chat messages by outcome.",
		}, []string{"outcome"}),
		providerLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "parley",
			Subsystem: "provider",
			Name:      "latency_seconds",
			Help:      "Time spent waiting on the completion provider.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
	}
	m.registry.MustRegister(m.requests, m.messages, m.providerLatency)

	if sessions != nil {
		m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "parley",
			Subsystem: "chat",
			Name:      "active_sessions",
			Help:      "Number of live conversation sessions.",
		}, func() float64 { return float64(sessions.Len()) }))
	}
	return m
}

// RecordRequest counts one HTTP request.
func (m *Metrics) RecordRequest(route, code string) {
	m.requests.WithLabelValues(route, code).Inc()
}

// RecordMessage counts one chat message by outcome.
func (m *Metrics) RecordMessage(outcome string) {
	m.messages.WithLabelValues(outcome).Inc()
}

// ObserveProviderLatency records one provider round trip.
func (m *Metrics) ObserveProviderLatency(d time.Duration) {
	m.providerLatency.Observe(d.Seconds())
}
