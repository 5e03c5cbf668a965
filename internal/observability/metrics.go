package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects the answer pipeline's Prometheus metrics. A nil *Metrics
// is a valid no-op collector, so components never have to guard their
// recording calls.
type Metrics struct {
	registry *prometheus.Registry

	queriesTotal   *prometheus.CounterVec
	fallbacksTotal *prometheus.CounterVec
	tokensTotal    *prometheus.CounterVec
	answerLatency  prometheus.Histogram
}

// NewMetrics creates and registers the pipeline metrics on a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		queriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rag_queries_total",
			Help: "Queries processed, by policy decision.",
		}, []string{"decision"}),
		fallbacksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rag_fallbacks_total",
			Help: "Degraded answers returned, by fallback reason.",
		}, []string{"reason"}),
		tokensTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rag_tokens_consumed_total",
			Help: "Tokens committed against query budgets, by phase.",
		}, []string{"phase"}),
		answerLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "rag_answer_duration_seconds",
			Help:    "End-to-end answer latency in seconds.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}

	registry.MustRegister(m.queriesTotal, m.fallbacksTotal, m.tokensTotal, m.answerLatency)
	return m
}

// RecordQuery counts one processed query under its policy decision.
func (m *Metrics) RecordQuery(decision string) {
	if m == nil {
		return
	}
	m.queriesTotal.WithLabelValues(decision).Inc()
}

// RecordFallback counts one degraded answer under its reason.
func (m *Metrics) RecordFallback(reason string) {
	if m == nil || reason == "" {
		return
	}
	m.fallbacksTotal.WithLabelValues(reason).Inc()
}

// RecordTokens adds committed token usage for a budget phase.
func (m *Metrics) RecordTokens(phase string, tokens int) {
	if m == nil || tokens <= 0 {
		return
	}
	m.tokensTotal.WithLabelValues(phase).Add(float64(tokens))
}

// ObserveAnswerLatency records one end-to-end answer duration.
func (m *Metrics) ObserveAnswerLatency(seconds float64) {
	if m == nil {
		return
	}
	m.answerLatency.Observe(seconds)
}

// Handler exposes the registry for a /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
