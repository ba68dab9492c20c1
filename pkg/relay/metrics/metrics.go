// Package metrics exposes Prometheus metrics for the call relay.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the relay. All methods are safe on
// a nil receiver so components can treat metrics as optional.
type Metrics struct {
	registry *prometheus.Registry

	SessionsActive prometheus.Gauge
	SessionsTotal  prometheus.Counter

	// Turn outcomes: result is "ok" or "fallback".
	TurnsTotal *prometheus.CounterVec

	AgentRequestDuration prometheus.Histogram

	// Frames dropped by the dispatcher, by reason ("malformed", "unknown",
	// "queue_full").
	FramesDroppedTotal *prometheus.CounterVec
}

func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "callrelay"
	}

	registry := prometheus.NewRegistry()

	sessionsActive := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sessions_active",
		Help:      "Number of currently open relay sessions",
	})
	sessionsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_total",
		Help:      "Total relay sessions opened",
	})
	turnsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Total completed turns",
		},
		[]string{"result"},
	)
	agentRequestDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "agent_request_duration_seconds",
		Help:      "Duration of agent backend calls in seconds",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 15, 30},
	})
	framesDroppedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_dropped_total",
			Help:      "Inbound frames dropped without a reply",
		},
		[]string{"reason"},
	)

	registry.MustRegister(
		sessionsActive,
		sessionsTotal,
		turnsTotal,
		agentRequestDuration,
		framesDroppedTotal,
	)

	return &Metrics{
		registry:             registry,
		SessionsActive:       sessionsActive,
		SessionsTotal:        sessionsTotal,
		TurnsTotal:           turnsTotal,
		AgentRequestDuration: agentRequestDuration,
		FramesDroppedTotal:   framesDroppedTotal,
	}
}

// Handler returns the HTTP handler serving the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.SessionsActive.Inc()
	m.SessionsTotal.Inc()
}

func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.SessionsActive.Dec()
}

func (m *Metrics) TurnCompleted(fallback bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if fallback {
		result = "fallback"
	}
	m.TurnsTotal.WithLabelValues(result).Inc()
	m.AgentRequestDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) FrameDropped(reason string) {
	if m == nil {
		return
	}
	m.FramesDroppedTotal.WithLabelValues(reason).Inc()
}
