package provider

import (
	"context"
	"errors"
	"strings"

	"github.com/sashabaranov/go-openai"

	"healthify/internal/rag"
)

// DefaultChatModel is the Groq-hosted model the service was built around
const DefaultChatModel = "llama-3.3-70b-versatile"

// ChatClient generates completions through the chat completions API
type ChatClient struct {
	*client
}

// NewChatClient creates a rag.Generator backed by an OpenAI-compatible endpoint
func NewChatClient(cfg Config) *ChatClient {
	if cfg.Model == "" {
		cfg.Model = DefaultChatModel
	}
	return &ChatClient{client: newClient(cfg)}
}

// Generate sends prompt as a single user message
func (c *ChatClient) Generate(ctx context.Context, prompt string, opts rag.GenerateOptions) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: float32(opts.Temperature),
		MaxTokens:   opts.MaxTokens,
		TopP:        1,
	}

	var content string
	err := c.do(ctx, func(ctx context.Context) error {
		resp, err := c.api.CreateChatCompletion(ctx, req)
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return errors.New("no choices in completion")
		}
		content = resp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", &rag.LLMError{Err: errors.Join(ctxErr, err)}
		}
		return "", &rag.LLMError{StatusCode: statusCode(err), Err: err}
	}
	if strings.TrimSpace(content) == "" {
		return "", &rag.LLMError{Err: errors.New("empty completion")}
	}
	return content, nil
}
