package session

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"healthify/internal/database"
	"healthify/internal/models"
)

func newSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	require.NoError(t, db.Initialize())
	store := NewSQLiteStore(db)
	t.Cleanup(func() { _ = store.Close(context.Background()) })
	return store
}

func sampleSession(id, userCtx string, at time.Time) *models.Session {
	return &models.Session{
		ID:          id,
		UserContext: userCtx,
		IsActive:    true,
		CreatedAt:   at,
		Timestamp:   at.Add(5 * time.Minute),
		Duration:    5,
		Messages: []models.Message{
			{Query: "hi", Answer: "hello", Timestamp: at, Sentiment: "neutral", DetectedLanguage: "en"},
			{Query: "bye", Answer: "take care", Timestamp: at.Add(5 * time.Minute)},
		},
	}
}

func TestStores(t *testing.T) {
	stores := map[string]func(t *testing.T) Store{
		"memory": func(*testing.T) Store { return NewMemoryStore() },
		"sqlite": func(t *testing.T) Store { return newSQLiteStore(t) },
	}

	for name, newStore := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := newStore(t)
			at := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

			got, err := store.GetActive(ctx, "u1")
			require.NoError(t, err)
			assert.Nil(t, got)

			s := sampleSession("s1", "u1", at)
			require.NoError(t, store.SaveActive(ctx, s))

			got, err = store.GetActive(ctx, "u1")
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, "s1", got.ID)
			assert.True(t, got.IsActive)
			assert.True(t, at.Equal(got.CreatedAt))
			require.Len(t, got.Messages, 2)
			assert.Equal(t, "neutral", got.Messages[0].Sentiment)

			// callers cannot mutate stored state through returned values
			got.Messages[0].Query = "changed"
			again, err := store.GetActive(ctx, "u1")
			require.NoError(t, err)
			assert.Equal(t, "hi", again.Messages[0].Query)

			actives, err := store.ListActive(ctx)
			require.NoError(t, err)
			assert.Len(t, actives, 1)

			archivedAt := at.Add(time.Hour)
			s.IsActive = false
			s.ArchivedAt = &archivedAt
			require.NoError(t, store.AppendHistory(ctx, s))
			require.NoError(t, store.AppendHistory(ctx, s), "re-archiving the same id replaces it")
			require.NoError(t, store.AppendHistory(ctx, sampleSession("s2", "u1", at.Add(2*time.Hour))))
			require.NoError(t, store.DeleteActive(ctx, "u1"))

			got, err = store.GetActive(ctx, "u1")
			require.NoError(t, err)
			assert.Nil(t, got)

			history, err := store.ListHistory(ctx, "u1")
			require.NoError(t, err)
			require.Len(t, history, 2)
			assert.Equal(t, "s1", history[0].ID)
			assert.Equal(t, "s2", history[1].ID)
			require.NotNil(t, history[0].ArchivedAt)
			assert.True(t, archivedAt.Equal(*history[0].ArchivedAt))

			other, err := store.ListHistory(ctx, "u2")
			require.NoError(t, err)
			assert.Empty(t, other)

			ok, err := store.DeleteHistory(ctx, "u1", "s1")
			require.NoError(t, err)
			assert.True(t, ok)
			ok, err = store.DeleteHistory(ctx, "u1", "s1")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, store.ClearHistory(ctx, "u1"))
			history, err = store.ListHistory(ctx, "u1")
			require.NoError(t, err)
			assert.Empty(t, history)
		})
	}
}

func TestManagerOnSQLite(t *testing.T) {
	ctx := context.Background()
	m, clock, _ := newTestManager(t, newSQLiteStore(t))

	first, err := m.AppendTurn(ctx, "u1", turn("hi"))
	require.NoError(t, err)
	clock.Advance(DefaultExpiry + time.Second)
	second, err := m.AppendTurn(ctx, "u1", turn("hello again"))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	history, err := m.ListHistory(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, first.ID, history[0].ID)
	assert.Equal(t, "sqlite", m.StoreKind())
}

func TestKeyedMutex_ReleasesEntries(t *testing.T) {
	k := NewKeyedMutex()
	var wg sync.WaitGroup
	counter := 0
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := k.Lock(context.Background(), "ctx")
			require.NoError(t, err)
			counter++
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 32, counter)
	assert.Zero(t, k.size())
}

type fakeLockBackend struct {
	mu    sync.Mutex
	held  map[string]string
	calls int
}

func (f *fakeLockBackend) AcquireLock(_ context.Context, key, value string, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.held == nil {
		f.held = map[string]string{}
	}
	if _, ok := f.held[key]; ok {
		return false, nil
	}
	f.held[key] = value
	return true, nil
}

func (f *fakeLockBackend) ReleaseLock(_ context.Context, key, value string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.held[key] != value {
		return false, nil
	}
	delete(f.held, key)
	return true, nil
}

func TestRedisLocker(t *testing.T) {
	backend := &fakeLockBackend{}
	locker := NewRedisLocker(backend, time.Minute)

	unlock, err := locker.Lock(context.Background(), "u1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, "u1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock2, err := locker.Lock(context.Background(), "u1")
	require.NoError(t, err)
	unlock2()
	assert.Empty(t, backend.held)
}

func TestManagerWithRedisLocker(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore(), WithLocker(NewRedisLocker(&fakeLockBackend{}, time.Minute)))

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.AppendTurn(ctx, "u1", turn("q"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	active, err := m.GetActive(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, active.Messages, 8)
}
