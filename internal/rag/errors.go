package rag

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrIngestion means the knowledge source could not be read or parsed
	ErrIngestion = errors.New("knowledge source unavailable")
	// ErrEmbedding is matched by every *EmbeddingError
	ErrEmbedding = errors.New("embedding failed")
	// ErrLLM is matched by every *LLMError
	ErrLLM = errors.New("llm generation failed")
)

// EmbeddingError reports a failed embedding call
type EmbeddingError struct {
	StatusCode int // 0 when the request never got a response
	Err        error
}

func (e *EmbeddingError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("embedding failed (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("embedding failed: %v", e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

func (e *EmbeddingError) Is(target error) bool { return target == ErrEmbedding }

// LLMError reports a failed or empty completion
type LLMError struct {
	StatusCode int
	Err        error
}

func (e *LLMError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("llm generation failed (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("llm generation failed: %v", e.Err)
}

func (e *LLMError) Unwrap() error { return e.Err }

func (e *LLMError) Is(target error) bool { return target == ErrLLM }

// DimensionMismatchError means two vectors that must be compared have different lengths.
// Inside a corpus this is a configuration fault, not a transient one.
type DimensionMismatchError struct {
	Want int
	Got  int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("embedding dimension mismatch: want %d, got %d", e.Want, e.Got)
}

// FaultKind classifies why a response fell back
type FaultKind string

const (
	FaultNone      FaultKind = ""
	FaultEmbedding FaultKind = "embedding"
	FaultDimension FaultKind = "dimension"
	FaultLLM       FaultKind = "llm"
	FaultTimeout   FaultKind = "timeout"
	FaultInternal  FaultKind = "internal"
)

// ClassifyFault maps an error from the answer pipeline to its FaultKind
func ClassifyFault(err error) FaultKind {
	if err == nil {
		return FaultNone
	}
	var dim *DimensionMismatchError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return FaultTimeout
	case errors.As(err, &dim):
		return FaultDimension
	case errors.Is(err, ErrEmbedding):
		return FaultEmbedding
	case errors.Is(err, ErrLLM):
		return FaultLLM
	default:
		return FaultInternal
	}
}
