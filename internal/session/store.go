// Package session tracks the active conversation and archived history of each user context.
package session

import (
	"context"
	"errors"

	"healthify/internal/models"
)

var (
	// ErrSessionNotFound is returned when a history entry does not exist for the context
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionState is returned when a stored session violates its own invariants
	ErrSessionState = errors.New("invalid session state")
)

// Store persists active sessions and archived history, keyed by user context.
// Implementations must return copies so callers can never mutate stored state.
type Store interface {
	// GetActive returns the active session, or nil when there is none
	GetActive(ctx context.Context, userCtx string) (*models.Session, error)
	SaveActive(ctx context.Context, s *models.Session) error
	DeleteActive(ctx context.Context, userCtx string) error
	// ListActive returns every active session across all contexts
	ListActive(ctx context.Context) ([]*models.Session, error)

	// AppendHistory adds an archived session, replacing one with the same ID
	AppendHistory(ctx context.Context, s *models.Session) error
	// ListHistory returns archived sessions in archive order
	ListHistory(ctx context.Context, userCtx string) ([]*models.Session, error)
	// DeleteHistory reports whether an entry was removed
	DeleteHistory(ctx context.Context, userCtx, id string) (bool, error)
	ClearHistory(ctx context.Context, userCtx string) error

	Kind() string
	Close(ctx context.Context) error
}
