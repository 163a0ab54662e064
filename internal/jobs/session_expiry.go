package jobs

import (
	"context"
	"log"
	"time"
)

// SessionSweeper archives active sessions that have been idle past the expiry window
type SessionSweeper interface {
	SweepExpired(ctx context.Context) (int, error)
}

// SessionExpiryJob archives idle sessions so history fills in even when users never return
type SessionExpiryJob struct {
	sweeper  SessionSweeper
	schedule *cronSchedule
}

// NewSessionExpiryJob creates the sweep job for a cron expression such as "*/5 * * * *"
func NewSessionExpiryJob(sweeper SessionSweeper, spec string) (*SessionExpiryJob, error) {
	schedule, err := newCronSchedule(spec)
	if err != nil {
		return nil, err
	}
	return &SessionExpiryJob{sweeper: sweeper, schedule: schedule}, nil
}

// Run archives every expired active session
func (j *SessionExpiryJob) Run(ctx context.Context) error {
	start := time.Now()
	archived, err := j.sweeper.SweepExpired(ctx)
	if archived > 0 {
		log.Printf("📦 [SESSION-EXPIRY] Archived %d idle sessions in %v", archived, time.Since(start))
	}
	return err
}

// GetNextRunTime returns when the job should run next
func (j *SessionExpiryJob) GetNextRunTime() time.Time {
	return j.schedule.next()
}
