package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"healthify/internal/rag"
)

func newTestService(t *testing.T) (*Service, *time.Time) {
	t.Helper()
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	s := NewService(2)
	s.now = func() time.Time { return now }
	return s, &now
}

func TestRecord_ThresholdAndRecovery(t *testing.T) {
	s, _ := newTestService(t)
	s.Register(CapabilityChat, "llama", nil)

	h, err := s.Get(CapabilityChat)
	require.NoError(t, err)
	assert.Equal(t, StatusUnknown, h.Status)
	assert.True(t, s.Healthy())

	fail := &rag.LLMError{StatusCode: 502, Err: errors.New("bad gateway")}
	s.Record(CapabilityChat, fail, 0)
	h, _ = s.Get(CapabilityChat)
	assert.Equal(t, StatusUnknown, h.Status)
	assert.Equal(t, 1, h.FailureCount)

	s.Record(CapabilityChat, fail, 0)
	h, _ = s.Get(CapabilityChat)
	assert.Equal(t, StatusUnhealthy, h.Status)
	assert.False(t, s.Healthy())

	s.Record(CapabilityChat, nil, 120*time.Millisecond)
	h, _ = s.Get(CapabilityChat)
	assert.Equal(t, StatusHealthy, h.Status)
	assert.Zero(t, h.FailureCount)
	assert.Equal(t, int64(120), h.LatencyMs)
	assert.True(t, s.Healthy())
}

func TestRecord_IgnoresCancellation(t *testing.T) {
	s, _ := newTestService(t)
	s.Register(CapabilityEmbedding, "small", nil)

	s.Record(CapabilityEmbedding, &rag.EmbeddingError{Err: context.Canceled}, 0)
	h, _ := s.Get(CapabilityEmbedding)
	assert.Zero(t, h.FailureCount)

	// unknown capabilities are ignored
	s.Record("vision", errors.New("boom"), 0)
	_, err := s.Get("vision")
	assert.Error(t, err)
}

func TestRecord_QuotaErrorsCoolDown(t *testing.T) {
	s, now := newTestService(t)
	probes := 0
	s.Register(CapabilityChat, "llama", func(context.Context) error {
		probes++
		return nil
	})

	s.Record(CapabilityChat, &rag.LLMError{StatusCode: 429, Err: errors.New("slow down")}, 0)
	h, _ := s.Get(CapabilityChat)
	assert.Equal(t, StatusCooldown, h.Status)
	assert.Equal(t, now.Add(5*time.Minute), h.CooldownUntil)
	assert.False(t, s.Healthy())

	checked, _, err := s.CheckAll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, checked)
	assert.Zero(t, probes)

	*now = now.Add(6 * time.Minute)
	checked, failed, err := s.CheckAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, checked)
	assert.Zero(t, failed)
	h, _ = s.Get(CapabilityChat)
	assert.Equal(t, StatusHealthy, h.Status)
}

func TestCheckAll_ProbesInOrder(t *testing.T) {
	s, _ := newTestService(t)
	var order []CapabilityType
	s.Register(CapabilityEmbedding, "small", func(context.Context) error {
		order = append(order, CapabilityEmbedding)
		return &rag.EmbeddingError{StatusCode: 500, Err: errors.New("down")}
	})
	s.Register(CapabilityChat, "llama", func(context.Context) error {
		order = append(order, CapabilityChat)
		return nil
	})

	checked, failed, err := s.CheckAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, checked)
	assert.Equal(t, 1, failed)
	assert.Equal(t, []CapabilityType{CapabilityChat, CapabilityEmbedding}, order)

	snap := s.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, CapabilityChat, snap[0].Capability)
	assert.Equal(t, StatusHealthy, snap[0].Status)
	assert.Contains(t, snap[1].LastError, "down")
}

func TestCooldownFor(t *testing.T) {
	assert.Equal(t, 24*time.Hour, CooldownFor(errors.New("insufficient_quota: check billing")))
	assert.Equal(t, 5*time.Minute, CooldownFor(&rag.LLMError{StatusCode: 429, Err: errors.New("x")}))
	assert.Equal(t, 5*time.Minute, CooldownFor(errors.New("exceeded tokens per minute")))
	assert.Equal(t, time.Hour, CooldownFor(errors.New("rate limit")))

	assert.True(t, IsQuotaError(errors.New("Rate limit reached for model")))
	assert.False(t, IsQuotaError(errors.New("connection refused")))
	assert.False(t, IsQuotaError(nil))
}

func TestTrackedWrappers(t *testing.T) {
	s, _ := newTestService(t)
	s.Register(CapabilityEmbedding, "small", nil)
	s.Register(CapabilityChat, "llama", nil)

	emb := TrackEmbedder(s, rag.EmbedderFunc(func(context.Context, string) ([]float64, error) {
		return []float64{1}, nil
	}))
	gen := TrackGenerator(s, rag.GeneratorFunc(func(context.Context, string, rag.GenerateOptions) (string, error) {
		return "", &rag.LLMError{Err: errors.New("empty completion")}
	}))

	_, err := emb.Embed(context.Background(), "hello")
	require.NoError(t, err)
	_, err = gen.Generate(context.Background(), "hello", rag.GenerateOptions{})
	require.Error(t, err)

	h, _ := s.Get(CapabilityEmbedding)
	assert.Equal(t, StatusHealthy, h.Status)
	h, _ = s.Get(CapabilityChat)
	assert.Equal(t, 1, h.FailureCount)

	require.NoError(t, EmbedProbe(emb)(context.Background()))
	assert.Error(t, ChatProbe(gen)(context.Background()))
}
