package provider

import (
	"context"
	"errors"

	"github.com/sashabaranov/go-openai"

	"healthify/internal/rag"
)

// DefaultEmbeddingModel is used when EMBEDDING_MODEL is unset
const DefaultEmbeddingModel = "text-embedding-3-small"

// EmbeddingClient embeds text through the embeddings API
type EmbeddingClient struct {
	*client
}

// NewEmbeddingClient creates a rag.Embedder backed by an OpenAI-compatible endpoint
func NewEmbeddingClient(cfg Config) *EmbeddingClient {
	if cfg.Model == "" {
		cfg.Model = DefaultEmbeddingModel
	}
	return &EmbeddingClient{client: newClient(cfg)}
}

// Embed returns the embedding of text as float64
func (c *EmbeddingClient) Embed(ctx context.Context, text string) ([]float64, error) {
	req := openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(c.model),
	}

	var vec []float32
	err := c.do(ctx, func(ctx context.Context) error {
		resp, err := c.api.CreateEmbeddings(ctx, req)
		if err != nil {
			return err
		}
		if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
			return errors.New("empty embedding in response")
		}
		vec = resp.Data[0].Embedding
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, &rag.EmbeddingError{Err: errors.Join(ctxErr, err)}
		}
		return nil, &rag.EmbeddingError{StatusCode: statusCode(err), Err: err}
	}

	out := make([]float64, len(vec))
	for i, v := range vec {
		out[i] = float64(v)
	}
	return out, nil
}
