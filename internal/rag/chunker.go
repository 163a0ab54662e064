package rag

import (
	"iter"
	"strings"
)

const (
	// DefaultChunkWords is the stride between chunk starts
	DefaultChunkWords = 350
	// DefaultChunkOverlap is how many words of the previous chunk are repeated
	DefaultChunkOverlap = 50
)

// ChunkText splits text into word windows of wordsPerChunk with the default overlap
func ChunkText(text string, wordsPerChunk int) iter.Seq[string] {
	return ChunkWithOverlap(text, wordsPerChunk, DefaultChunkOverlap)
}

// ChunkWithOverlap walks the words of text with a stride of wordsPerChunk.
// The chunk starting at word i covers words[max(0, i-overlap) : min(n, i+wordsPerChunk)],
// so every chunk after the first repeats up to overlap words of its predecessor.
// The sequence can be ranged over more than once.
func ChunkWithOverlap(text string, wordsPerChunk, overlap int) iter.Seq[string] {
	return func(yield func(string) bool) {
		if wordsPerChunk <= 0 {
			return
		}
		if overlap < 0 {
			overlap = 0
		}
		words := strings.Fields(text)
		for i := 0; i < len(words); i += wordsPerChunk {
			start := max(0, i-overlap)
			end := min(len(words), i+wordsPerChunk)
			if !yield(strings.Join(words[start:end], " ")) {
				return
			}
		}
	}
}

// SplitIntoChunks collects ChunkWithOverlap into a slice
func SplitIntoChunks(text string, wordsPerChunk, overlap int) []string {
	var out []string
	for c := range ChunkWithOverlap(text, wordsPerChunk, overlap) {
		out = append(out, c)
	}
	return out
}
