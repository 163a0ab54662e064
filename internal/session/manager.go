package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"healthify/internal/models"
)

// DefaultExpiry is how long a session may sit idle before the next turn starts a new one
const DefaultExpiry = 30 * time.Minute

// AnonymousContext is the shared context used when a request carries no identity
const AnonymousContext = "anonymous"

// Observer is notified about lifecycle transitions
type Observer interface {
	SessionCreated(userCtx string)
	SessionArchived(userCtx string, reason string)
}

// Manager applies the session lifecycle rules on top of a Store.
// Every operation holds the per-context lock, so reading the active
// session and creating or appending to it happen atomically.
type Manager struct {
	store    Store
	locker   Locker
	expiry   time.Duration
	now      func() time.Time
	newID    func() string
	observer Observer
}

// Option customizes a Manager
type Option func(*Manager)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithLocker replaces the in-process KeyedMutex
func WithLocker(l Locker) Option {
	return func(m *Manager) { m.locker = l }
}

// WithExpiry sets the idle window
func WithExpiry(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.expiry = d
		}
	}
}

// WithObserver registers a lifecycle observer
func WithObserver(o Observer) Option {
	return func(m *Manager) { m.observer = o }
}

// WithIDGenerator replaces uuid generation
func WithIDGenerator(fn func() string) Option {
	return func(m *Manager) { m.newID = fn }
}

func NewManager(store Store, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		locker: NewKeyedMutex(),
		expiry: DefaultExpiry,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Expiry returns the idle window
func (m *Manager) Expiry() time.Duration { return m.expiry }

// StoreKind names the backing store
func (m *Manager) StoreKind() string { return m.store.Kind() }

func (m *Manager) withLock(ctx context.Context, userCtx string, fn func() error) error {
	unlock, err := m.locker.Lock(ctx, userCtx)
	if err != nil {
		return err
	}
	defer unlock()
	return fn()
}

func (m *Manager) expired(s *models.Session, now time.Time) bool {
	return now.Sub(s.Timestamp) > m.expiry
}

// GetActive returns the active session, or nil if there is none.
// A session idle for longer than the expiry window is archived and nil is returned.
func (m *Manager) GetActive(ctx context.Context, userCtx string) (*models.Session, error) {
	var out *models.Session
	err := m.withLock(ctx, userCtx, func() error {
		active, err := m.store.GetActive(ctx, userCtx)
		if err != nil {
			return fmt.Errorf("load active session: %w", err)
		}
		if active == nil {
			return nil
		}
		if m.expired(active, m.now()) {
			return m.archiveLocked(ctx, active, "expired")
		}
		out = active
		return nil
	})
	return out, err
}

// AppendTurn records a completed turn. It appends to the active session, or
// archives a stale one and starts a new session seeded with this turn.
func (m *Manager) AppendTurn(ctx context.Context, userCtx string, msg models.Message) (*models.Session, error) {
	var out *models.Session
	err := m.withLock(ctx, userCtx, func() error {
		now := m.now()
		if msg.Timestamp.IsZero() {
			msg.Timestamp = now
		}

		active, err := m.store.GetActive(ctx, userCtx)
		if err != nil {
			return fmt.Errorf("load active session: %w", err)
		}
		if active != nil && !active.IsActive {
			return fmt.Errorf("%w: active slot holds archived session %s", ErrSessionState, active.ID)
		}

		if active != nil && m.expired(active, now) {
			if err := m.archiveLocked(ctx, active, "expired"); err != nil {
				return err
			}
			active = nil
		}

		if active == nil {
			active = &models.Session{
				ID:          m.newID(),
				UserContext: userCtx,
				IsActive:    true,
				CreatedAt:   now,
			}
			if m.observer != nil {
				m.observer.SessionCreated(userCtx)
			}
		}

		active.Messages = append(active.Messages, msg)
		active.Timestamp = now
		active.RecomputeDuration()

		if err := m.store.SaveActive(ctx, active); err != nil {
			return fmt.Errorf("save active session: %w", err)
		}
		out = active.Clone()
		return nil
	})
	return out, err
}

// Archive moves the active session into history. With no active session it is a no-op.
func (m *Manager) Archive(ctx context.Context, userCtx string) error {
	return m.withLock(ctx, userCtx, func() error {
		active, err := m.store.GetActive(ctx, userCtx)
		if err != nil {
			return fmt.Errorf("load active session: %w", err)
		}
		if active == nil {
			return nil
		}
		return m.archiveLocked(ctx, active, "manual")
	})
}

func (m *Manager) archiveLocked(ctx context.Context, active *models.Session, reason string) error {
	archived := active.Clone()
	archived.IsActive = false
	archivedAt := m.now()
	archived.ArchivedAt = &archivedAt
	archived.RecomputeDuration()

	if len(archived.Messages) > 0 {
		if err := m.store.AppendHistory(ctx, archived); err != nil {
			return fmt.Errorf("archive session: %w", err)
		}
	}
	if err := m.store.DeleteActive(ctx, active.UserContext); err != nil {
		return fmt.Errorf("clear active session: %w", err)
	}
	if m.observer != nil {
		m.observer.SessionArchived(active.UserContext, reason)
	}
	return nil
}

// Clear drops the active session without archiving it
func (m *Manager) Clear(ctx context.Context, userCtx string) error {
	return m.withLock(ctx, userCtx, func() error {
		if err := m.store.DeleteActive(ctx, userCtx); err != nil {
			return fmt.Errorf("clear active session: %w", err)
		}
		return nil
	})
}

// ListHistory returns archived sessions in archive order
func (m *Manager) ListHistory(ctx context.Context, userCtx string) ([]*models.Session, error) {
	var out []*models.Session
	err := m.withLock(ctx, userCtx, func() error {
		var err error
		out, err = m.store.ListHistory(ctx, userCtx)
		if err != nil {
			return fmt.Errorf("list history: %w", err)
		}
		return nil
	})
	return out, err
}

// DeleteHistoryEntry removes one archived session
func (m *Manager) DeleteHistoryEntry(ctx context.Context, userCtx, id string) error {
	return m.withLock(ctx, userCtx, func() error {
		ok, err := m.store.DeleteHistory(ctx, userCtx, id)
		if err != nil {
			return fmt.Errorf("delete history entry: %w", err)
		}
		if !ok {
			return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
		}
		return nil
	})
}

// ClearHistory removes every archived session for the context
func (m *Manager) ClearHistory(ctx context.Context, userCtx string) error {
	return m.withLock(ctx, userCtx, func() error {
		if err := m.store.ClearHistory(ctx, userCtx); err != nil {
			return fmt.Errorf("clear history: %w", err)
		}
		return nil
	})
}

// SweepExpired archives every active session idle past the expiry window
// and returns how many were archived.
func (m *Manager) SweepExpired(ctx context.Context) (int, error) {
	actives, err := m.store.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("list active sessions: %w", err)
	}

	archived := 0
	for _, s := range actives {
		if !m.expired(s, m.now()) {
			continue
		}
		err := m.withLock(ctx, s.UserContext, func() error {
			// re-read under the lock; a turn may have landed since ListActive
			current, err := m.store.GetActive(ctx, s.UserContext)
			if err != nil {
				return err
			}
			if current == nil || !m.expired(current, m.now()) {
				return nil
			}
			archived++
			return m.archiveLocked(ctx, current, "expired")
		})
		if err != nil {
			return archived, fmt.Errorf("sweep %s: %w", s.ID, err)
		}
	}
	return archived, nil
}
