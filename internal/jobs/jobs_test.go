package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"healthify/internal/health"
	"healthify/internal/services"
)

type tickJob struct {
	runs  atomic.Int32
	every time.Duration
	err   error
}

func (j *tickJob) Run(context.Context) error {
	j.runs.Add(1)
	return j.err
}

func (j *tickJob) GetNextRunTime() time.Time { return time.Now().Add(j.every) }

type fakeSweeper struct {
	archived int
	err      error
	calls    int
}

func (f *fakeSweeper) SweepExpired(context.Context) (int, error) {
	f.calls++
	return f.archived, f.err
}

type fakeReloader struct{ err error }

func (f fakeReloader) Reload(context.Context) (*services.KnowledgeStatus, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &services.KnowledgeStatus{Chunks: 3}, nil
}

func TestScheduler_RunsAndReschedules(t *testing.T) {
	s := NewJobScheduler()
	job := &tickJob{every: 10 * time.Millisecond}
	s.Register("tick", job)

	s.Start()
	s.Start() // idempotent
	assert.Eventually(t, func() bool { return job.runs.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)

	s.Stop()
	stopped := job.runs.Load()
	time.Sleep(50 * time.Millisecond)
	assert.LessOrEqual(t, job.runs.Load(), stopped+1)

	status := s.GetStatus()
	require.Contains(t, status, "tick")
	require.NotNil(t, status["tick"].LastRun)
	assert.Empty(t, status["tick"].LastRun.Error)
}

func TestScheduler_RunNow(t *testing.T) {
	s := NewJobScheduler()
	job := &tickJob{every: time.Hour, err: errors.New("source unavailable")}
	s.Register("refresh", job)

	err := s.RunNow("refresh")
	require.Error(t, err)
	assert.Equal(t, int32(1), job.runs.Load())
	assert.Equal(t, "source unavailable", s.GetStatus()["refresh"].LastRun.Error)

	err = s.RunNow("missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestSessionExpiryJob(t *testing.T) {
	sweeper := &fakeSweeper{archived: 2}
	job, err := NewSessionExpiryJob(sweeper, "*/5 * * * *")
	require.NoError(t, err)

	job.schedule.now = func() time.Time { return time.Date(2025, 3, 1, 10, 3, 30, 0, time.UTC) }
	assert.Equal(t, time.Date(2025, 3, 1, 10, 5, 0, 0, time.UTC), job.GetNextRunTime())

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, sweeper.calls)

	sweeper.err = errors.New("store offline")
	assert.Error(t, job.Run(context.Background()))
}

func TestKnowledgeRefreshJob(t *testing.T) {
	job, err := NewKnowledgeRefreshJob(fakeReloader{}, "0 3 * * *")
	require.NoError(t, err)
	job.schedule.now = func() time.Time { return time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC) }
	assert.Equal(t, time.Date(2025, 3, 2, 3, 0, 0, 0, time.UTC), job.GetNextRunTime())
	assert.NoError(t, job.Run(context.Background()))

	failing, err := NewKnowledgeRefreshJob(fakeReloader{err: errors.New("bad pdf")}, "@hourly")
	require.NoError(t, err)
	assert.Error(t, failing.Run(context.Background()))
}

func TestCronSchedule_Invalid(t *testing.T) {
	_, err := NewSessionExpiryJob(&fakeSweeper{}, "every five minutes")
	assert.Error(t, err)
}

func TestProviderHealthChecker(t *testing.T) {
	svc := health.NewService(1)
	probed := 0
	svc.Register(health.CapabilityChat, "llama", func(context.Context) error {
		probed++
		return errors.New("connection refused")
	})

	job := NewProviderHealthChecker(svc, 10*time.Minute)
	assert.WithinDuration(t, time.Now().Add(30*time.Second), job.GetNextRunTime(), time.Second)

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, probed)
	assert.False(t, svc.Healthy())
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), job.GetNextRunTime(), time.Second)
}
