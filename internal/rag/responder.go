package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// FallbackReply is returned whenever an answer cannot be produced
const FallbackReply = "I'm sorry, I encountered an error while trying to generate an answer. " +
	"If you are feeling distressed or unsafe, please reach out to a mental health professional " +
	"or a local crisis helpline right away."

// DefaultTopK is the number of chunks retrieved per query
const DefaultTopK = 5

var (
	// SimpleProfile is used for greetings and very short queries
	SimpleProfile = GenerateOptions{Temperature: 0.7, MaxTokens: 256}
	// ComplexProfile is used for everything else
	ComplexProfile = GenerateOptions{Temperature: 0.5, MaxTokens: 1024}
)

// LanguageClassifier tags a query with a language code (en, ta, hi, ta-en, hi-en)
type LanguageClassifier interface {
	ClassifyLanguage(text string) string
}

// SentimentClassifier buckets a query into a sentiment label
type SentimentClassifier interface {
	ClassifySentiment(text string) string
}

// Result is the outcome of one Answer call. Text is always non-empty.
type Result struct {
	Text      string
	Language  string
	Sentiment string
	Simple    bool
	Sources   []int // chunk IDs used as context
	Fault     error
	FaultKind FaultKind
}

// OK reports whether the answer came from the model rather than the fallback
func (r Result) OK() bool { return r.Fault == nil }

// ResponderConfig tunes retrieval and provider time limits
type ResponderConfig struct {
	TopK            int
	TokenBudget     int
	EmbedTimeout    time.Duration
	GenerateTimeout time.Duration
}

// Responder answers queries grounded in the current knowledge base
type Responder struct {
	embedder  Embedder
	generator Generator
	store     *KnowledgeStore
	prompts   *PromptSet
	language  LanguageClassifier
	sentiment SentimentClassifier
	counter   TokenCounter
	cfg       ResponderConfig
	logger    *slog.Logger
}

// ResponderOption customizes a Responder
type ResponderOption func(*Responder)

// WithClassifiers sets the language and sentiment classifiers
func WithClassifiers(lang LanguageClassifier, sent SentimentClassifier) ResponderOption {
	return func(r *Responder) {
		r.language = lang
		r.sentiment = sent
	}
}

// WithTokenCounter sets the counter used to cap the context size
func WithTokenCounter(c TokenCounter) ResponderOption {
	return func(r *Responder) { r.counter = c }
}

// WithLogger sets the logger used for fault reporting
func WithLogger(l *slog.Logger) ResponderOption {
	return func(r *Responder) { r.logger = l }
}

// NewResponder builds a Responder. A nil prompt set uses the embedded defaults.
func NewResponder(embedder Embedder, generator Generator, store *KnowledgeStore, prompts *PromptSet, cfg ResponderConfig, opts ...ResponderOption) (*Responder, error) {
	if prompts == nil {
		var err error
		if prompts, err = DefaultPrompts(); err != nil {
			return nil, err
		}
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	r := &Responder{
		embedder:  embedder,
		generator: generator,
		store:     store,
		prompts:   prompts,
		counter:   WordEstimateCounter{},
		cfg:       cfg,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Answer runs classify, embed, retrieve, compose, generate and format.
// It never panics and never returns empty text: failures yield FallbackReply
// with Fault and FaultKind describing what went wrong.
func (r *Responder) Answer(ctx context.Context, query string) (res Result) {
	defer func() {
		if p := recover(); p != nil {
			res.Text = FallbackReply
			res.Fault = fmt.Errorf("panic in responder: %v", p)
			res.FaultKind = FaultInternal
			r.logger.Error("responder panic recovered", "panic", p)
		}
	}()

	res.Simple = IsSimpleQuery(query)
	if r.language != nil {
		res.Language = r.language.ClassifyLanguage(query)
	}
	if r.sentiment != nil {
		res.Sentiment = r.sentiment.ClassifySentiment(query)
	}

	text, sources, err := r.answer(ctx, query, res.Simple, res.Language)
	if err != nil {
		res.Text = FallbackReply
		res.Fault = err
		res.FaultKind = ClassifyFault(err)
		r.logger.Warn("answer fell back",
			"fault_kind", string(res.FaultKind),
			"error", err,
		)
		return res
	}
	res.Text = text
	res.Sources = sources
	return res
}

func (r *Responder) answer(ctx context.Context, query string, simple bool, language string) (string, []int, error) {
	embedCtx, cancel := withTimeout(ctx, r.cfg.EmbedTimeout)
	qvec, err := r.embedder.Embed(embedCtx, query)
	cancel()
	if err != nil {
		return "", nil, fmt.Errorf("embed query: %w", err)
	}

	kb := r.store.Current()
	var corpus []Chunk
	if kb != nil {
		corpus = kb.Chunks
	}
	top, err := TopK(qvec, corpus, r.cfg.TopK)
	if err != nil {
		return "", nil, fmt.Errorf("rank chunks: %w", err)
	}
	top = TrimToBudget(top, r.cfg.TokenBudget, r.counter)

	sources := make([]int, 0, len(top))
	texts := make([]string, 0, len(top))
	for _, c := range top {
		sources = append(sources, c.ID)
		texts = append(texts, c.Text)
	}

	prompt, err := r.prompts.Compose(PromptInput{
		Query:    query,
		Context:  strings.Join(texts, "\n\n"),
		Language: language,
		Simple:   simple,
	})
	if err != nil {
		return "", nil, err
	}

	opts := ComplexProfile
	if simple {
		opts = SimpleProfile
	}
	genCtx, cancel := withTimeout(ctx, r.cfg.GenerateTimeout)
	raw, err := r.generator.Generate(genCtx, prompt, opts)
	cancel()
	if err != nil {
		return "", nil, fmt.Errorf("generate: %w", err)
	}

	reply := FormatReply(raw)
	if reply == "" {
		return "", nil, &LLMError{Err: errors.New("empty completion")}
	}
	return reply, sources, nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
