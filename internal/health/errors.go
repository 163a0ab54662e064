package health

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"healthify/internal/rag"
)

var quotaPatterns = []string{
	"quota exceeded",
	"rate limit",
	"rate_limit_exceeded",
	"too many requests",
	"tokens per minute",
	"requests per minute",
	"daily limit",
	"insufficient_quota",
	"billing",
}

// statusCodeOf extracts the HTTP status carried by provider errors, 0 if none
func statusCodeOf(err error) int {
	var embErr *rag.EmbeddingError
	if errors.As(err, &embErr) {
		return embErr.StatusCode
	}
	var llmErr *rag.LLMError
	if errors.As(err, &llmErr) {
		return llmErr.StatusCode
	}
	return 0
}

// IsQuotaError detects quota exhaustion or rate limiting
func IsQuotaError(err error) bool {
	if err == nil {
		return false
	}
	if statusCodeOf(err) == http.StatusTooManyRequests {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range quotaPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// CooldownFor picks how long to stop probing a provider after a quota error
func CooldownFor(err error) time.Duration {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "daily limit"),
		strings.Contains(msg, "billing"),
		strings.Contains(msg, "insufficient_quota"):
		return 24 * time.Hour
	case statusCodeOf(err) == http.StatusTooManyRequests,
		strings.Contains(msg, "per minute"):
		return 5 * time.Minute
	default:
		return time.Hour
	}
}
