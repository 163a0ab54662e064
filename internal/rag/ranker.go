package rag

import (
	"math"
	"slices"
)

// ScoredChunk is a corpus chunk with its similarity to the query
type ScoredChunk struct {
	Chunk
	Score float64
}

// CosineSimilarity returns dot(a,b) / (|a|*|b|), or 0 when either vector has zero norm
func CosineSimilarity(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, &DimensionMismatchError{Want: len(a), Got: len(b)}
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), nil
}

// TopK scores every chunk against query and returns the k best in descending order.
// Ties keep corpus order. k <= 0 or an empty corpus yields an empty result.
func TopK(query []float64, corpus []Chunk, k int) ([]ScoredChunk, error) {
	if k <= 0 || len(corpus) == 0 {
		return []ScoredChunk{}, nil
	}

	scored := make([]ScoredChunk, 0, len(corpus))
	for _, c := range corpus {
		s, err := CosineSimilarity(query, c.Embedding)
		if err != nil {
			return nil, err
		}
		scored = append(scored, ScoredChunk{Chunk: c, Score: s})
	}

	slices.SortStableFunc(scored, func(x, y ScoredChunk) int {
		switch {
		case x.Score > y.Score:
			return -1
		case x.Score < y.Score:
			return 1
		default:
			return 0
		}
	})

	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k], nil
}
