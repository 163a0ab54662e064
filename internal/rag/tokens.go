package rag

import (
	"log"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter counts prompt tokens
type TokenCounter interface {
	Count(text string) int
}

// TiktokenCounter counts with the cl100k_base encoding. When the encoding
// cannot be loaded it falls back to a words * 4/3 estimate.
type TiktokenCounter struct {
	once sync.Once
	enc  *tiktoken.Tiktoken
}

func (t *TiktokenCounter) Count(text string) int {
	t.once.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			log.Printf("⚠️  [TOKENS] cl100k_base unavailable, using word estimate: %v", err)
			return
		}
		t.enc = enc
	})
	if t.enc == nil {
		return EstimateTokens(text)
	}
	return len(t.enc.Encode(text, nil, nil))
}

// WordEstimateCounter never touches the network
type WordEstimateCounter struct{}

func (WordEstimateCounter) Count(text string) int { return EstimateTokens(text) }

// EstimateTokens approximates a BPE token count from the word count
func EstimateTokens(text string) int {
	words := len(strings.Fields(text))
	return (words*4 + 2) / 3
}

// TrimToBudget keeps whole chunks, in rank order, while their running total stays within budget.
// The first chunk is always kept so a tight budget never empties a non-empty retrieval.
func TrimToBudget(chunks []ScoredChunk, budget int, counter TokenCounter) []ScoredChunk {
	if budget <= 0 || counter == nil || len(chunks) == 0 {
		return chunks
	}
	used := 0
	for i, c := range chunks {
		used += counter.Count(c.Text)
		if used > budget && i > 0 {
			return chunks[:i]
		}
	}
	return chunks
}
