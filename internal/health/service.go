package health

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"
)

const defaultFailureThreshold = 3

// Service tracks the health of the chat and embedding providers, both from
// live traffic (Record) and from periodic probes (CheckAll).
type Service struct {
	mu               sync.RWMutex
	entries          map[CapabilityType]*ProviderHealth
	probes           map[CapabilityType]Probe
	failureThreshold int
	now              func() time.Time
}

// NewService creates a new health service
func NewService(failureThreshold int) *Service {
	if failureThreshold <= 0 {
		failureThreshold = defaultFailureThreshold
	}
	return &Service{
		entries:          make(map[CapabilityType]*ProviderHealth),
		probes:           make(map[CapabilityType]Probe),
		failureThreshold: failureThreshold,
		now:              time.Now,
	}
}

// Register adds a provider. probe may be nil for passive-only tracking.
func (s *Service) Register(capability CapabilityType, model string, probe Probe) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[capability] = &ProviderHealth{
		Capability: capability,
		Model:      model,
		Status:     StatusUnknown,
	}
	if probe != nil {
		s.probes[capability] = probe
	}
}

// Record updates a provider from the outcome of one request.
// Cancellations by the caller say nothing about the provider and are ignored.
func (s *Service) Record(capability CapabilityType, err error, latency time.Duration) {
	if errors.Is(err, context.Canceled) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.entries[capability]
	if !ok {
		return
	}
	now := s.now()
	h.LastChecked = now
	h.LatencyMs = latency.Milliseconds()

	if err == nil {
		if h.Status == StatusUnhealthy || h.Status == StatusCooldown {
			log.Printf("✅ [HEALTH] %s provider %s recovered", capability, h.Model)
		}
		h.Status = StatusHealthy
		h.FailureCount = 0
		h.LastError = ""
		h.LastSuccessAt = now
		h.CooldownUntil = time.Time{}
		return
	}

	h.FailureCount++
	h.LastError = truncateStr(err.Error(), 200)

	if IsQuotaError(err) {
		h.Status = StatusCooldown
		h.CooldownUntil = now.Add(CooldownFor(err))
		log.Printf("⚠️  [HEALTH] %s provider %s in cooldown until %s: %s",
			capability, h.Model, h.CooldownUntil.Format(time.RFC3339), h.LastError)
		return
	}

	if h.FailureCount >= s.failureThreshold {
		if h.Status != StatusUnhealthy {
			log.Printf("❌ [HEALTH] %s provider %s marked UNHEALTHY after %d failures: %s",
				capability, h.Model, h.FailureCount, h.LastError)
		}
		h.Status = StatusUnhealthy
	}
}

// inCooldown reports whether probing should be skipped; callers hold s.mu
func (s *Service) inCooldown(h *ProviderHealth) bool {
	return h.Status == StatusCooldown && s.now().Before(h.CooldownUntil)
}

// CheckAll probes every registered provider that has a probe and is not cooling down
func (s *Service) CheckAll(ctx context.Context) (checked, failed int, err error) {
	s.mu.RLock()
	var due []CapabilityType
	for capability := range s.probes {
		if h := s.entries[capability]; h != nil && !s.inCooldown(h) {
			due = append(due, capability)
		}
	}
	s.mu.RUnlock()
	sort.Slice(due, func(i, j int) bool { return due[i] < due[j] })

	for _, capability := range due {
		if err := ctx.Err(); err != nil {
			return checked, failed, err
		}
		s.mu.RLock()
		probe := s.probes[capability]
		s.mu.RUnlock()

		start := s.now()
		probeErr := probe(ctx)
		s.Record(capability, probeErr, s.now().Sub(start))
		checked++
		if probeErr != nil {
			failed++
		}
	}
	return checked, failed, nil
}

// Snapshot returns a copy of every entry, ordered by capability
func (s *Service) Snapshot() []ProviderHealth {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ProviderHealth, 0, len(s.entries))
	for _, h := range s.entries {
		out = append(out, *h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Capability < out[j].Capability })
	return out
}

// Healthy reports false when any provider is unhealthy or cooling down
func (s *Service) Healthy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, h := range s.entries {
		if h.Status == StatusUnhealthy || s.inCooldown(h) {
			return false
		}
	}
	return true
}

// Get returns one entry
func (s *Service) Get(capability CapabilityType) (ProviderHealth, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.entries[capability]
	if !ok {
		return ProviderHealth{}, fmt.Errorf("provider not registered: %s", capability)
	}
	return *h, nil
}

func truncateStr(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
