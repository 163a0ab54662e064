package jobs

import (
	"context"
	"log"
	"time"

	"healthify/internal/health"
)

// ProviderHealthChecker periodically probes the chat and embedding providers
type ProviderHealthChecker struct {
	healthService *health.Service
	interval      time.Duration
	startDelay    time.Duration
	lastRun       time.Time
}

// NewProviderHealthChecker creates a new provider health checker job
func NewProviderHealthChecker(healthService *health.Service, interval time.Duration) *ProviderHealthChecker {
	return &ProviderHealthChecker{
		healthService: healthService,
		interval:      interval,
		startDelay:    30 * time.Second,
	}
}

// Run probes every provider that is not cooling down
func (p *ProviderHealthChecker) Run(ctx context.Context) error {
	p.lastRun = time.Now()

	checked, failed, err := p.healthService.CheckAll(ctx)
	if err != nil {
		return err
	}
	if failed > 0 {
		log.Printf("⚠️  [HEALTH-JOB] %d of %d provider checks failed", failed, checked)
	}
	return nil
}

// GetNextRunTime returns when the next health check should run
func (p *ProviderHealthChecker) GetNextRunTime() time.Time {
	if p.lastRun.IsZero() {
		return time.Now().Add(p.startDelay)
	}
	return p.lastRun.Add(p.interval)
}
