package jobs

import (
	"context"
	"time"

	"healthify/internal/services"
)

// KnowledgeReloader rebuilds the knowledge base from its source
type KnowledgeReloader interface {
	Reload(ctx context.Context) (*services.KnowledgeStatus, error)
}

// KnowledgeRefreshJob periodically rebuilds the knowledge base, for sources
// that change without filesystem events (network mounts, object storage syncs).
type KnowledgeRefreshJob struct {
	reloader KnowledgeReloader
	schedule *cronSchedule
}

// NewKnowledgeRefreshJob creates the refresh job for a cron expression
func NewKnowledgeRefreshJob(reloader KnowledgeReloader, spec string) (*KnowledgeRefreshJob, error) {
	schedule, err := newCronSchedule(spec)
	if err != nil {
		return nil, err
	}
	return &KnowledgeRefreshJob{reloader: reloader, schedule: schedule}, nil
}

// Run rebuilds the corpus; the previous corpus keeps serving on failure
func (j *KnowledgeRefreshJob) Run(ctx context.Context) error {
	_, err := j.reloader.Reload(ctx)
	return err
}

// GetNextRunTime returns when the job should run next
func (j *KnowledgeRefreshJob) GetNextRunTime() time.Time {
	return j.schedule.next()
}
