package services

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_NilReceiverIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordChatRequest()
		m.RecordChatLatency(0.2)
		m.RecordFallback("llm")
		m.RecordKnowledgeBase(4)
		m.RecordKnowledgeReload(errors.New("boom"))
		m.SessionCreated("anonymous")
		m.SessionArchived("anonymous", "manual")
	})
}

func TestMetrics_Records(t *testing.T) {
	m := InitMetrics(prometheus.NewRegistry())
	assert.Same(t, m, GetMetrics())

	m.RecordFallback("")
	m.RecordKnowledgeBase(7)
	m.RecordKnowledgeReload(nil)
	m.SessionArchived("anonymous", "manual")
	m.SessionArchived("anonymous", "manual")

	assert.Equal(t, 7.0, testutil.ToFloat64(m.KnowledgeChunks))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.KnowledgeReloads.WithLabelValues("success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SessionsArchived.WithLabelValues("manual")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.ChatFallbacks))
}
