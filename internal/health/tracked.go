package health

import (
	"context"
	"time"

	"healthify/internal/rag"
)

type trackedEmbedder struct {
	svc  *Service
	next rag.Embedder
}

// TrackEmbedder records the outcome of every call to next under CapabilityEmbedding
func TrackEmbedder(svc *Service, next rag.Embedder) rag.Embedder {
	return &trackedEmbedder{svc: svc, next: next}
}

func (t *trackedEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	start := time.Now()
	vec, err := t.next.Embed(ctx, text)
	t.svc.Record(CapabilityEmbedding, err, time.Since(start))
	return vec, err
}

type trackedGenerator struct {
	svc  *Service
	next rag.Generator
}

// TrackGenerator records the outcome of every call to next under CapabilityChat
func TrackGenerator(svc *Service, next rag.Generator) rag.Generator {
	return &trackedGenerator{svc: svc, next: next}
}

func (t *trackedGenerator) Generate(ctx context.Context, prompt string, opts rag.GenerateOptions) (string, error) {
	start := time.Now()
	out, err := t.next.Generate(ctx, prompt, opts)
	t.svc.Record(CapabilityChat, err, time.Since(start))
	return out, err
}

// EmbedProbe embeds a short fixed string
func EmbedProbe(e rag.Embedder) Probe {
	return func(ctx context.Context) error {
		_, err := e.Embed(ctx, "health check")
		return err
	}
}

// ChatProbe asks for a tiny completion
func ChatProbe(g rag.Generator) Probe {
	return func(ctx context.Context) error {
		_, err := g.Generate(ctx, "Reply with OK.", rag.GenerateOptions{MaxTokens: 5})
		return err
	}
}
