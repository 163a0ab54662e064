package rag

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// Chunk is an embedded slice of the knowledge source. IDs follow chunk order starting at 0.
type Chunk struct {
	ID        int       `json:"id"`
	Text      string    `json:"text"`
	Embedding []float64 `json:"-"`
}

// KnowledgeBase is an immutable embedded corpus
type KnowledgeBase struct {
	Chunks    []Chunk
	Dimension int
	Source    string
	BuiltAt   time.Time
}

// Len returns the number of chunks, treating a nil base as empty
func (kb *KnowledgeBase) Len() int {
	if kb == nil {
		return 0
	}
	return len(kb.Chunks)
}

// EmptyKnowledgeBase is served when no source could be loaded
func EmptyKnowledgeBase(source string) *KnowledgeBase {
	return &KnowledgeBase{Chunks: []Chunk{}, Source: source, BuiltAt: time.Now()}
}

// KnowledgeStore publishes the current corpus. Readers never see a half-built one.
type KnowledgeStore struct {
	current atomic.Pointer[KnowledgeBase]
}

// NewKnowledgeStore starts with an empty corpus
func NewKnowledgeStore() *KnowledgeStore {
	s := &KnowledgeStore{}
	s.current.Store(EmptyKnowledgeBase(""))
	return s
}

// Current returns the published corpus
func (s *KnowledgeStore) Current() *KnowledgeBase {
	return s.current.Load()
}

// Swap publishes kb and returns the previous corpus
func (s *KnowledgeStore) Swap(kb *KnowledgeBase) *KnowledgeBase {
	if kb == nil {
		kb = EmptyKnowledgeBase("")
	}
	return s.current.Swap(kb)
}

// BuilderConfig controls chunking and embedding fan-out
type BuilderConfig struct {
	ChunkWords  int
	Overlap     int
	Concurrency int
}

// Builder chunks source text and embeds every chunk
type Builder struct {
	embedder Embedder
	cfg      BuilderConfig
}

// NewBuilder fills unset config fields with defaults
func NewBuilder(embedder Embedder, cfg BuilderConfig) *Builder {
	if cfg.ChunkWords <= 0 {
		cfg.ChunkWords = DefaultChunkWords
	}
	if cfg.Overlap < 0 {
		cfg.Overlap = DefaultChunkOverlap
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &Builder{embedder: embedder, cfg: cfg}
}

// Build embeds every chunk of text. Any failed chunk fails the whole build.
func (b *Builder) Build(ctx context.Context, source, text string) (*KnowledgeBase, error) {
	texts := SplitIntoChunks(text, b.cfg.ChunkWords, b.cfg.Overlap)
	if len(texts) == 0 {
		return EmptyKnowledgeBase(source), nil
	}

	chunks := make([]Chunk, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.cfg.Concurrency)
	for i, t := range texts {
		g.Go(func() error {
			vec, err := b.embedder.Embed(gctx, t)
			if err != nil {
				return fmt.Errorf("chunk %d: %w", i, err)
			}
			chunks[i] = Chunk{ID: i, Text: t, Embedding: vec}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("build knowledge base: %w", err)
	}

	dim := len(chunks[0].Embedding)
	for _, c := range chunks[1:] {
		if len(c.Embedding) != dim {
			log.Printf("❌ [KNOWLEDGE] Chunk %d has dimension %d, expected %d", c.ID, len(c.Embedding), dim)
			return nil, fmt.Errorf("build knowledge base: %w", &DimensionMismatchError{Want: dim, Got: len(c.Embedding)})
		}
	}

	return &KnowledgeBase{
		Chunks:    chunks,
		Dimension: dim,
		Source:    source,
		BuiltAt:   time.Now(),
	}, nil
}

// TextExtractor reads the raw text of a knowledge source
type TextExtractor func(path string) (string, error)

// Indexer loads the configured source, builds it and publishes the result
type Indexer struct {
	path    string
	extract TextExtractor
	builder *Builder
	store   *KnowledgeStore
	onBuilt func(*KnowledgeBase)

	mu sync.Mutex // one rebuild at a time
}

// NewIndexer wires a source path to a store
func NewIndexer(path string, extract TextExtractor, builder *Builder, store *KnowledgeStore) *Indexer {
	return &Indexer{path: path, extract: extract, builder: builder, store: store}
}

// OnBuilt registers a callback invoked after every successful publish
func (ix *Indexer) OnBuilt(fn func(*KnowledgeBase)) { ix.onBuilt = fn }

// Path returns the knowledge source path
func (ix *Indexer) Path() string { return ix.path }

// Store returns the store the indexer publishes to
func (ix *Indexer) Store() *KnowledgeStore { return ix.store }

// Load is used at startup. An unavailable source publishes an empty corpus so
// the server can keep serving; the error is still returned for logging.
func (ix *Indexer) Load(ctx context.Context) error {
	kb, err := ix.build(ctx)
	if err != nil {
		ix.publish(EmptyKnowledgeBase(ix.path))
		return err
	}
	ix.publish(kb)
	return nil
}

// Reload rebuilds from the source. On failure the current corpus stays in place.
func (ix *Indexer) Reload(ctx context.Context) (*KnowledgeBase, error) {
	kb, err := ix.build(ctx)
	if err != nil {
		return nil, err
	}
	ix.publish(kb)
	return kb, nil
}

func (ix *Indexer) build(ctx context.Context) (*KnowledgeBase, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	text, err := ix.extract(ix.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrIngestion, ix.path, err)
	}
	return ix.builder.Build(ctx, ix.path, text)
}

func (ix *Indexer) publish(kb *KnowledgeBase) {
	ix.store.Swap(kb)
	if ix.onBuilt != nil {
		ix.onBuilt(kb)
	}
}
