package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all custom Prometheus metrics for the application.
// All methods are safe on a nil receiver so metrics stay optional in tests.
type Metrics struct {
	// Chat metrics
	ChatRequests       prometheus.Counter
	ChatRequestLatency prometheus.Histogram
	ChatFallbacks      *prometheus.CounterVec

	// Knowledge base metrics
	KnowledgeChunks  prometheus.Gauge
	KnowledgeReloads *prometheus.CounterVec

	// Session lifecycle metrics
	SessionsCreated  prometheus.Counter
	SessionsArchived *prometheus.CounterVec
}

var globalMetrics *Metrics

// InitMetrics registers the metrics with reg (prometheus.DefaultRegisterer when nil)
func InitMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	metrics := &Metrics{
		ChatRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "healthify_chat_requests_total",
			Help: "Total number of chat requests processed",
		}),

		ChatRequestLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "healthify_chat_request_duration_seconds",
			Help:    "Chat request latency in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60}, // LLM calls dominate
		}),

		ChatFallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "healthify_chat_fallbacks_total",
			Help: "Chat answers replaced by the safety fallback, by fault kind",
		}, []string{"fault_kind"}),

		KnowledgeChunks: factory.NewGauge(prometheus.GaugeOpts{
			Name: "healthify_knowledge_chunks",
			Help: "Number of chunks in the published knowledge base",
		}),

		KnowledgeReloads: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "healthify_knowledge_reloads_total",
			Help: "Knowledge base rebuilds by result",
		}, []string{"result"}), // result: "success" or "error"

		SessionsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "healthify_sessions_created_total",
			Help: "Total number of chat sessions started",
		}),

		SessionsArchived: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "healthify_sessions_archived_total",
			Help: "Total number of sessions archived, by reason",
		}, []string{"reason"}), // reason: "manual" or "expired"
	}

	globalMetrics = metrics
	return metrics
}

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	return globalMetrics
}

// RecordChatRequest records a chat request
func (m *Metrics) RecordChatRequest() {
	if m == nil {
		return
	}
	m.ChatRequests.Inc()
}

// RecordChatLatency records chat request latency
func (m *Metrics) RecordChatLatency(seconds float64) {
	if m == nil {
		return
	}
	m.ChatRequestLatency.Observe(seconds)
}

// RecordFallback records an answer that fell back
func (m *Metrics) RecordFallback(faultKind string) {
	if m == nil {
		return
	}
	m.ChatFallbacks.WithLabelValues(faultKind).Inc()
}

// RecordKnowledgeBase records a publish of a corpus with n chunks
func (m *Metrics) RecordKnowledgeBase(n int) {
	if m == nil {
		return
	}
	m.KnowledgeChunks.Set(float64(n))
}

// RecordKnowledgeReload records the outcome of a rebuild
func (m *Metrics) RecordKnowledgeReload(err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.KnowledgeReloads.WithLabelValues(result).Inc()
}

// SessionCreated implements session.Observer
func (m *Metrics) SessionCreated(string) {
	if m == nil {
		return
	}
	m.SessionsCreated.Inc()
}

// SessionArchived implements session.Observer
func (m *Metrics) SessionArchived(_ string, reason string) {
	if m == nil {
		return
	}
	m.SessionsArchived.WithLabelValues(reason).Inc()
}
