package session

import (
	"context"
	"sort"
	"sync"

	"healthify/internal/models"
)

// MemoryStore keeps sessions in process memory
type MemoryStore struct {
	mu      sync.RWMutex
	active  map[string]*models.Session
	history map[string][]*models.Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		active:  make(map[string]*models.Session),
		history: make(map[string][]*models.Session),
	}
}

func (m *MemoryStore) Kind() string { return "memory" }

func (m *MemoryStore) GetActive(_ context.Context, userCtx string) (*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active[userCtx].Clone(), nil
}

func (m *MemoryStore) SaveActive(_ context.Context, s *models.Session) error {
	m.mu.Lock()
	m.active[s.UserContext] = s.Clone()
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) DeleteActive(_ context.Context, userCtx string) error {
	m.mu.Lock()
	delete(m.active, userCtx)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) ListActive(_ context.Context) ([]*models.Session, error) {
	m.mu.RLock()
	out := make([]*models.Session, 0, len(m.active))
	for _, s := range m.active {
		out = append(out, s.Clone())
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (m *MemoryStore) AppendHistory(_ context.Context, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := m.history[s.UserContext]
	for i, e := range entries {
		if e.ID == s.ID {
			entries[i] = s.Clone()
			return nil
		}
	}
	m.history[s.UserContext] = append(entries, s.Clone())
	return nil
}

func (m *MemoryStore) ListHistory(_ context.Context, userCtx string) ([]*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := m.history[userCtx]
	out := make([]*models.Session, len(entries))
	for i, e := range entries {
		out[i] = e.Clone()
	}
	return out, nil
}

func (m *MemoryStore) DeleteHistory(_ context.Context, userCtx, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := m.history[userCtx]
	for i, e := range entries {
		if e.ID == id {
			m.history[userCtx] = append(entries[:i:i], entries[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryStore) ClearHistory(_ context.Context, userCtx string) error {
	m.mu.Lock()
	delete(m.history, userCtx)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Close(context.Context) error { return nil }
