package services

import (
	"context"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"healthify/internal/logging"
	"healthify/internal/rag"
)

// KnowledgeStatus describes the published corpus
type KnowledgeStatus struct {
	Source    string    `json:"source"`
	Chunks    int       `json:"chunks"`
	Dimension int       `json:"dimension"`
	BuiltAt   time.Time `json:"built_at"`
}

// KnowledgeService loads, reloads and watches the knowledge source
type KnowledgeService struct {
	indexer  *rag.Indexer
	metrics  *Metrics
	debounce time.Duration
}

// NewKnowledgeService creates a knowledge service around indexer
func NewKnowledgeService(indexer *rag.Indexer, metrics *Metrics) *KnowledgeService {
	indexer.OnBuilt(func(kb *rag.KnowledgeBase) {
		metrics.RecordKnowledgeBase(kb.Len())
	})
	return &KnowledgeService{
		indexer:  indexer,
		metrics:  metrics,
		debounce: 500 * time.Millisecond,
	}
}

// Load builds the corpus at startup. Failure leaves an empty corpus in place and is only logged.
func (s *KnowledgeService) Load(ctx context.Context) {
	start := time.Now()
	if err := s.indexer.Load(ctx); err != nil {
		log.Printf("❌ Error loading knowledge base from %s: %v", s.indexer.Path(), err)
		log.Printf("⚠️  Continuing with an empty knowledge base")
		return
	}
	kb := s.indexer.Store().Current()
	log.Printf("✅ Knowledge Base Loaded: %d chunks (dim %d) in %s", kb.Len(), kb.Dimension, time.Since(start).Round(time.Millisecond))
}

// Reload rebuilds the corpus. On failure the previous corpus keeps serving.
func (s *KnowledgeService) Reload(ctx context.Context) (*KnowledgeStatus, error) {
	logger := logging.WithKnowledge(s.indexer.Path())
	kb, err := s.indexer.Reload(ctx)
	s.metrics.RecordKnowledgeReload(err)
	if err != nil {
		logger.Error("knowledge base reload failed, keeping current corpus", "error", err)
		return nil, err
	}
	logger.Info("knowledge base reloaded", "chunks", kb.Len(), "dimension", kb.Dimension)
	return statusOf(kb), nil
}

// Status reports the published corpus
func (s *KnowledgeService) Status() *KnowledgeStatus {
	return statusOf(s.indexer.Store().Current())
}

func statusOf(kb *rag.KnowledgeBase) *KnowledgeStatus {
	return &KnowledgeStatus{
		Source:    kb.Source,
		Chunks:    kb.Len(),
		Dimension: kb.Dimension,
		BuiltAt:   kb.BuiltAt,
	}
}

// Watch reloads the corpus whenever the source file is written or recreated.
// It blocks until ctx is cancelled.
func (s *KnowledgeService) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	absPath, err := filepath.Abs(s.indexer.Path())
	if err != nil {
		return err
	}

	// Watch the directory containing the file (more reliable than watching the file directly)
	dir := filepath.Dir(absPath)
	filename := filepath.Base(absPath)
	if err := watcher.Add(dir); err != nil {
		return err
	}

	log.Printf("👁️  Watching %s for changes (hot-reload enabled)", s.indexer.Path())

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != filename {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(s.debounce, func() {
				log.Printf("🔄 Detected changes in %s, rebuilding knowledge base...", s.indexer.Path())
				_, _ = s.Reload(ctx)
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("⚠️  Knowledge watcher error: %v", err)
		}
	}
}
