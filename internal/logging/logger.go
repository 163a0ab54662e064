package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Init configures the global slog logger.
// In production (ENVIRONMENT=production) it uses JSON output for log aggregation.
// Otherwise it uses the human-readable text handler.
func Init() {
	slog.SetDefault(New(os.Getenv("ENVIRONMENT"), os.Stdout))
}

// New builds the logger Init installs, writing to w
func New(environment string, w io.Writer) *slog.Logger {
	var handler slog.Handler
	if strings.ToLower(environment) == "production" {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	} else {
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
	}
	return slog.New(handler)
}

// WithRequest returns a logger with the chat request context attached.
// Use this for all logging within one chat turn.
func WithRequest(userContext, sessionID string) *slog.Logger {
	return slog.With(
		"user_context", userContext,
		"session_id", sessionID,
	)
}

// WithKnowledge returns a logger scoped to one knowledge source.
func WithKnowledge(source string) *slog.Logger {
	return slog.With("knowledge_source", source)
}
