package rag

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/patrickmn/go-cache"
)

// Embedder turns text into a vector
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// GenerateOptions tune a single completion
type GenerateOptions struct {
	Temperature float64
	MaxTokens   int
}

// Generator produces a completion for a fully composed prompt
type Generator interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}

// EmbedderFunc adapts a function to Embedder
type EmbedderFunc func(ctx context.Context, text string) ([]float64, error)

func (f EmbedderFunc) Embed(ctx context.Context, text string) ([]float64, error) { return f(ctx, text) }

// GeneratorFunc adapts a function to Generator
type GeneratorFunc func(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	return f(ctx, prompt, opts)
}

// CachingEmbedder memoizes embeddings of repeated queries
type CachingEmbedder struct {
	next  Embedder
	cache *cache.Cache
}

// NewCachingEmbedder wraps next with an in-memory cache whose entries expire after ttl
func NewCachingEmbedder(next Embedder, ttl time.Duration) *CachingEmbedder {
	return &CachingEmbedder{
		next:  next,
		cache: cache.New(ttl, 10*time.Minute),
	}
}

func (c *CachingEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	key := cacheKey(text)
	if v, ok := c.cache.Get(key); ok {
		return v.([]float64), nil
	}
	vec, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(key, vec)
	return vec, nil
}

// Len reports how many embeddings are cached
func (c *CachingEmbedder) Len() int { return c.cache.ItemCount() }

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
