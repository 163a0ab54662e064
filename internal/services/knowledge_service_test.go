package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"healthify/internal/document"
	"healthify/internal/rag"
)

func wordCountEmbedder() rag.Embedder {
	return rag.EmbedderFunc(func(_ context.Context, text string) ([]float64, error) {
		return []float64{float64(len(strings.Fields(text))), 1}, nil
	})
}

func newKnowledgeService(t *testing.T, path string) (*KnowledgeService, *Metrics) {
	t.Helper()
	metrics := InitMetrics(prometheus.NewRegistry())
	builder := rag.NewBuilder(wordCountEmbedder(), rag.BuilderConfig{ChunkWords: 10, Overlap: 2})
	indexer := rag.NewIndexer(path, document.ExtractText, builder, rag.NewKnowledgeStore())
	return NewKnowledgeService(indexer, metrics), metrics
}

func writeWords(t *testing.T, path string, n int) {
	t.Helper()
	words := make([]string, n)
	for i := range words {
		words[i] = "calm"
	}
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(words, " ")), 0o644))
}

func TestKnowledgeService_LoadPublishesCorpus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.txt")
	writeWords(t, path, 25)

	svc, metrics := newKnowledgeService(t, path)
	svc.Load(context.Background())

	status := svc.Status()
	assert.Equal(t, path, status.Source)
	assert.Equal(t, 3, status.Chunks)
	assert.Equal(t, 2, status.Dimension)
	assert.False(t, status.BuiltAt.IsZero())
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.KnowledgeChunks))
}

func TestKnowledgeService_LoadMissingSourceLeavesEmptyCorpus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.pdf")
	svc, _ := newKnowledgeService(t, path)

	svc.Load(context.Background())

	status := svc.Status()
	assert.Zero(t, status.Chunks)
	assert.Equal(t, path, status.Source)
}

func TestKnowledgeService_ReloadFailureKeepsCorpus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.txt")
	writeWords(t, path, 25)
	svc, metrics := newKnowledgeService(t, path)
	svc.Load(context.Background())

	require.NoError(t, os.Remove(path))
	status, err := svc.Reload(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, rag.ErrIngestion)
	assert.Nil(t, status)
	assert.Equal(t, 3, svc.Status().Chunks)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.KnowledgeReloads.WithLabelValues("error")))

	writeWords(t, path, 45)
	status, err = svc.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, status.Chunks)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.KnowledgeReloads.WithLabelValues("success")))
	assert.Equal(t, 5.0, testutil.ToFloat64(metrics.KnowledgeChunks))
}

func TestKnowledgeService_WatchReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.txt")
	writeWords(t, path, 10)
	svc, _ := newKnowledgeService(t, path)
	svc.debounce = 20 * time.Millisecond
	svc.Load(context.Background())
	require.Equal(t, 1, svc.Status().Chunks)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Watch(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	// give the watcher time to register the directory
	time.Sleep(100 * time.Millisecond)
	writeWords(t, path, 45)

	assert.Eventually(t, func() bool {
		return svc.Status().Chunks == 5
	}, 5*time.Second, 20*time.Millisecond)
}
