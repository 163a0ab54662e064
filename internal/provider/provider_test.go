package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"healthify/internal/rag"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func apiError(msg string) map[string]any {
	return map[string]any{"error": map[string]any{"message": msg, "type": "server_error"}}
}

func TestChatClient_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		if calls.Add(1) == 1 {
			writeJSON(w, http.StatusServiceUnavailable, apiError("overloaded"))
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		writeJSON(w, http.StatusOK, map[string]any{
			"id":     "cmpl-1",
			"object": "chat.completion",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": "Take a deep breath."},
				"finish_reason": "stop",
			}},
		})
	}))
	defer srv.Close()

	c := NewChatClient(Config{BaseURL: srv.URL, APIKey: "k", Timeout: time.Second})
	out, err := c.Generate(context.Background(), "hello", rag.ComplexProfile)
	require.NoError(t, err)
	assert.Equal(t, "Take a deep breath.", out)
	assert.EqualValues(t, 2, calls.Load())
	assert.Equal(t, DefaultChatModel, got["model"])
	assert.EqualValues(t, 1024, got["max_tokens"])
}

func TestChatClient_ClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusBadRequest, apiError("bad request"))
	}))
	defer srv.Close()

	c := NewChatClient(Config{BaseURL: srv.URL, APIKey: "k"})
	_, err := c.Generate(context.Background(), "hello", rag.SimpleProfile)

	var llmErr *rag.LLMError
	require.True(t, errors.As(err, &llmErr))
	assert.Equal(t, http.StatusBadRequest, llmErr.StatusCode)
	assert.ErrorIs(t, err, rag.ErrLLM)
	assert.EqualValues(t, 1, calls.Load())
}

func TestChatClient_EmptyCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"choices": []map[string]any{{"index": 0, "message": map[string]any{"role": "assistant", "content": "  "}}},
		})
	}))
	defer srv.Close()

	c := NewChatClient(Config{BaseURL: srv.URL, APIKey: "k"})
	_, err := c.Generate(context.Background(), "hello", rag.SimpleProfile)
	assert.ErrorIs(t, err, rag.ErrLLM)
}

func TestEmbeddingClient_Embed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]any{
			"object": "list",
			"data":   []map[string]any{{"object": "embedding", "index": 0, "embedding": []float32{0.5, -1, 2}}},
			"model":  DefaultEmbeddingModel,
		})
	}))
	defer srv.Close()

	c := NewEmbeddingClient(Config{BaseURL: srv.URL, APIKey: "k", RPS: 100})
	vec, err := c.Embed(context.Background(), "calm")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, -1, 2}, vec)
}

func TestEmbeddingClient_TimeoutIsClassified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := NewEmbeddingClient(Config{BaseURL: srv.URL, APIKey: "k", MaxRetries: 1})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Embed(ctx, "calm")
	require.Error(t, err)
	assert.ErrorIs(t, err, rag.ErrEmbedding)
	assert.Equal(t, rag.FaultTimeout, rag.ClassifyFault(err))
}
