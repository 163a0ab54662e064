package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatReply(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "dash bullets",
			in:   "Tips:\n- sleep\n- water",
			want: "Tips:\n🔹 sleep\n🔹 water",
		},
		{
			name: "mixed markers keep indentation",
			in:   "* one\n  • two\n🔹 three",
			want: "🔹 one\n  🔹 two\n🔹 three",
		},
		{
			name: "bold is untouched",
			in:   "**Take a break** today",
			want: "**Take a break** today",
		},
		{
			name: "collapse newlines",
			in:   "a\n\n\n\n\nb",
			want: "a\n\nb",
		},
		{
			name: "headings get blank lines",
			in:   "Intro\n## Calm\nBreathe\n### Next\n\nMore",
			want: "Intro\n\n## Calm\n\nBreathe\n\n### Next\n\nMore",
		},
		{
			name: "crlf and trailing spaces",
			in:   "line one   \r\n- item\r\n",
			want: "line one\n🔹 item",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatReply(tt.in))
		})
	}
}

func TestRenderHTML(t *testing.T) {
	html, err := RenderHTML("## Calm\n\n🔹 breathe\n🔹 rest")
	require.NoError(t, err)
	assert.Contains(t, html, "<h2>Calm</h2>")
	assert.Contains(t, html, "<li>breathe</li>")
}

func TestIsSimpleQuery(t *testing.T) {
	tests := []struct {
		q    string
		want bool
	}{
		{"hi", true},
		{"Hello there, how is your day going so far?", true},
		{"thanks a lot for all the helpful advice today", true},
		{"how are you doing today my friend", true},
		{"I feel sad", true},
		{"What are good ways to handle panic attacks at work?", false},
		{"history of anxiety treatment in modern medicine", false},
		{"Hi, I have been struggling with panic attacks every night for weeks and I do not know what to do anymore", false},
		{"Okay so my therapist moved away and I feel lost without our weekly sessions, how do I cope?", false},
		{"Great, now I cannot sleep at all because my mind keeps replaying every mistake I made at work", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsSimpleQuery(tt.q), tt.q)
	}
}

func TestTrimToBudget(t *testing.T) {
	chunks := []ScoredChunk{
		{Chunk: Chunk{ID: 0, Text: "one two three"}},
		{Chunk: Chunk{ID: 1, Text: "four five six"}},
		{Chunk: Chunk{ID: 2, Text: "seven eight nine"}},
	}
	assert.Len(t, TrimToBudget(chunks, 8, WordEstimateCounter{}), 2)
	assert.Len(t, TrimToBudget(chunks, 1, WordEstimateCounter{}), 1)
	assert.Len(t, TrimToBudget(chunks, 0, WordEstimateCounter{}), 3)
}

func TestPrompts(t *testing.T) {
	ps, err := DefaultPrompts()
	require.NoError(t, err)

	out, err := ps.Compose(PromptInput{Query: "how to sleep better", Context: "CTX-TEXT", Language: "hi"})
	require.NoError(t, err)
	assert.Contains(t, out, "CTX-TEXT")
	assert.Contains(t, out, "how to sleep better")
	assert.Contains(t, out, "Devanagari")

	out, err = ps.Compose(PromptInput{Query: "q"})
	require.NoError(t, err)
	assert.Contains(t, out, "no reference material available")

	_, err = ParsePrompts([]byte("persona: x\n"))
	assert.Error(t, err)
}
