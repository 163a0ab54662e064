package health

import (
	"context"
	"time"
)

// CapabilityType identifies which upstream dependency a health entry covers
type CapabilityType string

const (
	CapabilityChat      CapabilityType = "chat"
	CapabilityEmbedding CapabilityType = "embedding"
)

// HealthStatus represents the health state of a provider
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusUnhealthy HealthStatus = "unhealthy"
	StatusCooldown  HealthStatus = "cooldown"
	StatusUnknown   HealthStatus = "unknown"
)

// ProviderHealth tracks one upstream endpoint
type ProviderHealth struct {
	Capability    CapabilityType `json:"capability"`
	Model         string         `json:"model"`
	Status        HealthStatus   `json:"status"`
	LastChecked   time.Time      `json:"last_checked,omitempty"`
	LastSuccessAt time.Time      `json:"last_success_at,omitempty"`
	LatencyMs     int64          `json:"latency_ms,omitempty"`
	FailureCount  int            `json:"failure_count"`
	LastError     string         `json:"last_error,omitempty"`
	CooldownUntil time.Time      `json:"cooldown_until,omitempty"`
}

// Probe performs a lightweight live request against a provider
type Probe func(ctx context.Context) error
