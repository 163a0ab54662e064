// Package provider talks to OpenAI-compatible chat completion and embedding APIs.
package provider

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// Config describes one OpenAI-compatible endpoint
type Config struct {
	BaseURL    string
	APIKey     string
	Model      string
	Timeout    time.Duration // per attempt
	MaxRetries uint
	RPS        float64 // outbound requests per second, 0 disables throttling
	HTTPClient *http.Client
}

type client struct {
	api     *openai.Client
	model   string
	timeout time.Duration
	retries uint
	limiter *rate.Limiter
}

func newClient(cfg Config) *client {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		oc.HTTPClient = cfg.HTTPClient
	}

	var limiter *rate.Limiter
	if cfg.RPS > 0 {
		burst := int(cfg.RPS)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), burst)
	}

	retries := cfg.MaxRetries
	if retries == 0 {
		retries = 3
	}

	return &client{
		api:     openai.NewClientWithConfig(oc),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		retries: retries,
		limiter: limiter,
	}
}

// do runs fn with throttling, a per-attempt timeout and retries on transient failures
func (c *client) do(ctx context.Context, fn func(ctx context.Context) error) error {
	return retry.Do(
		func() error {
			if c.limiter != nil {
				if err := c.limiter.Wait(ctx); err != nil {
					return retry.Unrecoverable(err)
				}
			}
			attemptCtx, cancel := withTimeout(ctx, c.timeout)
			defer cancel()
			return fn(attemptCtx)
		},
		retry.Context(ctx),
		retry.Attempts(c.retries),
		retry.Delay(250*time.Millisecond),
		retry.MaxDelay(4*time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(isTransient),
		retry.LastErrorOnly(true),
	)
}

// isTransient retries rate limits, server errors and network failures
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if code := statusCode(err); code != 0 {
		return code == http.StatusTooManyRequests || code >= 500
	}
	return true
}

func statusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
