package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"healthify/internal/models"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type countingObserver struct {
	mu       sync.Mutex
	created  int
	archived map[string]int
}

func (o *countingObserver) SessionCreated(string) {
	o.mu.Lock()
	o.created++
	o.mu.Unlock()
}

func (o *countingObserver) SessionArchived(_ string, reason string) {
	o.mu.Lock()
	if o.archived == nil {
		o.archived = map[string]int{}
	}
	o.archived[reason]++
	o.mu.Unlock()
}

func turn(q string) models.Message {
	return models.Message{Query: q, Answer: "answer to " + q}
}

func newTestManager(t *testing.T, store Store) (*Manager, *fakeClock, *countingObserver) {
	t.Helper()
	clock := newFakeClock()
	obs := &countingObserver{}
	return NewManager(store, WithClock(clock.Now), WithObserver(obs)), clock, obs
}

func TestAppendTurn_CreatesThenAppends(t *testing.T) {
	ctx := context.Background()
	m, clock, obs := newTestManager(t, NewMemoryStore())

	first, err := m.AppendTurn(ctx, "u1", turn("hi"))
	require.NoError(t, err)
	require.Len(t, first.Messages, 1)
	assert.True(t, first.IsActive)
	assert.Zero(t, first.Duration)

	clock.Advance(10 * time.Minute)
	second, err := m.AppendTurn(ctx, "u1", turn("how do I sleep better when my mind keeps racing at night"))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	require.Len(t, second.Messages, 2)
	assert.Equal(t, "hi", second.Messages[0].Query)
	assert.InDelta(t, 10.0, second.Duration, 1e-9)
	assert.Equal(t, 1, obs.created)
}

func TestAppendTurn_ExpiryBoundary(t *testing.T) {
	tests := []struct {
		name       string
		idle       time.Duration
		newSession bool
	}{
		{"just inside window", DefaultExpiry - time.Second, false},
		{"exactly at window", DefaultExpiry, false},
		{"just past window", DefaultExpiry + time.Nanosecond, true},
		{"well past window", 3 * time.Hour, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			m, clock, _ := newTestManager(t, NewMemoryStore())

			first, err := m.AppendTurn(ctx, "u1", turn("first"))
			require.NoError(t, err)

			clock.Advance(tt.idle)
			second, err := m.AppendTurn(ctx, "u1", turn("second"))
			require.NoError(t, err)

			history, err := m.ListHistory(ctx, "u1")
			require.NoError(t, err)

			if tt.newSession {
				assert.NotEqual(t, first.ID, second.ID)
				assert.Len(t, second.Messages, 1)
				require.Len(t, history, 1)
				assert.Equal(t, first.ID, history[0].ID)
				assert.False(t, history[0].IsActive)
				assert.NotNil(t, history[0].ArchivedAt)
			} else {
				assert.Equal(t, first.ID, second.ID)
				assert.Len(t, second.Messages, 2)
				assert.Empty(t, history)
			}
		})
	}
}

func TestGetActive_ExpiredSessionIsArchived(t *testing.T) {
	ctx := context.Background()
	m, clock, obs := newTestManager(t, NewMemoryStore())

	_, err := m.AppendTurn(ctx, "u1", turn("hello"))
	require.NoError(t, err)

	active, err := m.GetActive(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, active)

	clock.Advance(DefaultExpiry + time.Minute)
	active, err = m.GetActive(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, active)

	history, err := m.ListHistory(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, history, 1)
	assert.Equal(t, 1, obs.archived["expired"])
}

func TestArchive(t *testing.T) {
	ctx := context.Background()
	m, _, obs := newTestManager(t, NewMemoryStore())

	require.NoError(t, m.Archive(ctx, "nobody"), "archiving with no active session is a no-op")

	s, err := m.AppendTurn(ctx, "u1", turn("hello"))
	require.NoError(t, err)
	require.NoError(t, m.Archive(ctx, "u1"))

	active, err := m.GetActive(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, active)

	history, err := m.ListHistory(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, s.ID, history[0].ID)
	assert.Equal(t, 1, obs.archived["manual"])

	// a new turn after archiving starts a fresh session
	next, err := m.AppendTurn(ctx, "u1", turn("again"))
	require.NoError(t, err)
	assert.NotEqual(t, s.ID, next.ID)
}

func TestArchivedSessionIsImmutable(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(t, NewMemoryStore())

	_, err := m.AppendTurn(ctx, "u1", turn("hello"))
	require.NoError(t, err)
	require.NoError(t, m.Archive(ctx, "u1"))

	history, err := m.ListHistory(ctx, "u1")
	require.NoError(t, err)
	history[0].Messages[0].Query = "tampered"

	again, err := m.ListHistory(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "hello", again[0].Messages[0].Query)
}

func TestClear_DoesNotArchive(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(t, NewMemoryStore())

	_, err := m.AppendTurn(ctx, "u1", turn("hello"))
	require.NoError(t, err)
	require.NoError(t, m.Clear(ctx, "u1"))

	active, err := m.GetActive(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, active)

	history, err := m.ListHistory(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestHistoryOperations(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(t, NewMemoryStore())

	var ids []string
	for i := range 3 {
		s, err := m.AppendTurn(ctx, "u1", turn(fmt.Sprintf("q%d", i)))
		require.NoError(t, err)
		ids = append(ids, s.ID)
		require.NoError(t, m.Archive(ctx, "u1"))
	}
	active, err := m.AppendTurn(ctx, "u1", turn("current"))
	require.NoError(t, err)

	history, err := m.ListHistory(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, history, 3)
	for i, h := range history {
		assert.Equal(t, ids[i], h.ID, "archive order")
	}

	require.NoError(t, m.DeleteHistoryEntry(ctx, "u1", ids[1]))
	err = m.DeleteHistoryEntry(ctx, "u1", ids[1])
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, m.DeleteHistoryEntry(ctx, "u2", ids[0]), ErrSessionNotFound, "other contexts cannot delete")

	require.NoError(t, m.ClearHistory(ctx, "u1"))
	history, err = m.ListHistory(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, history)

	// history operations leave the active session alone
	current, err := m.GetActive(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, active.ID, current.ID)
}

func TestContextsAreIsolated(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(t, NewMemoryStore())

	a, err := m.AppendTurn(ctx, "alice", turn("hi"))
	require.NoError(t, err)
	b, err := m.AppendTurn(ctx, "bob", turn("hi"))
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)

	require.NoError(t, m.Archive(ctx, "alice"))
	active, err := m.GetActive(ctx, "bob")
	require.NoError(t, err)
	assert.NotNil(t, active)
}

func TestAppendTurn_ConcurrentSameContextKeepsOneSession(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	obs := &countingObserver{}
	// every reading moves time forward so turn timestamps are distinct
	m := NewManager(NewMemoryStore(), WithObserver(obs), WithClock(func() time.Time {
		clock.Advance(time.Millisecond)
		return clock.Now()
	}))

	const n = 64
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		landedAt = make(map[string]int, n)
	)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q := fmt.Sprintf("q%d", i)
			sess, err := m.AppendTurn(ctx, "shared", turn(q))
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			landedAt[q] = len(sess.Messages) - 1
			mu.Unlock()
		}()
	}
	wg.Wait()

	active, err := m.GetActive(ctx, "shared")
	require.NoError(t, err)
	require.NotNil(t, active)
	require.Len(t, active.Messages, n)
	assert.Equal(t, 1, obs.created)

	// each turn sits where it was when its append completed
	require.Len(t, landedAt, n)
	for q, pos := range landedAt {
		assert.Equal(t, q, active.Messages[pos].Query)
	}
	for i := 1; i < n; i++ {
		assert.True(t, active.Messages[i].Timestamp.After(active.Messages[i-1].Timestamp),
			"message %d stamped before its predecessor", i)
	}
	assert.GreaterOrEqual(t, active.Duration, 0.0)

	history, err := m.ListHistory(ctx, "shared")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestSweepExpired(t *testing.T) {
	ctx := context.Background()
	m, clock, _ := newTestManager(t, NewMemoryStore())

	_, err := m.AppendTurn(ctx, "idle", turn("hello"))
	require.NoError(t, err)
	clock.Advance(20 * time.Minute)
	_, err = m.AppendTurn(ctx, "busy", turn("hello"))
	require.NoError(t, err)
	clock.Advance(15 * time.Minute)

	n, err := m.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	idle, err := m.GetActive(ctx, "idle")
	require.NoError(t, err)
	assert.Nil(t, idle)
	busy, err := m.GetActive(ctx, "busy")
	require.NoError(t, err)
	assert.NotNil(t, busy)
}

func TestWithExpiry(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	m := NewManager(NewMemoryStore(), WithClock(clock.Now), WithExpiry(time.Minute))
	assert.Equal(t, time.Minute, m.Expiry())

	first, err := m.AppendTurn(ctx, "u1", turn("a"))
	require.NoError(t, err)
	clock.Advance(61 * time.Second)
	second, err := m.AppendTurn(ctx, "u1", turn("b"))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestAppendTurn_UsesIDGenerator(t *testing.T) {
	ctx := context.Background()
	n := 0
	m := NewManager(NewMemoryStore(), WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("s-%d", n)
	}))

	first, err := m.AppendTurn(ctx, "u1", turn("hi"))
	require.NoError(t, err)
	assert.Equal(t, "s-1", first.ID)

	require.NoError(t, m.Archive(ctx, "u1"))
	second, err := m.AppendTurn(ctx, "u1", turn("hello again"))
	require.NoError(t, err)
	assert.Equal(t, "s-2", second.ID)
}
