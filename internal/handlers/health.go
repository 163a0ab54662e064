package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"healthify/internal/health"
	"healthify/internal/services"
	"healthify/internal/session"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	knowledge *services.KnowledgeService
	sessions  *session.Manager
	providers *health.Service
}

// NewHealthHandler creates a new health handler
// providers may be nil when provider health tracking is disabled
func NewHealthHandler(knowledge *services.KnowledgeService, sessions *session.Manager, providers *health.Service) *HealthHandler {
	return &HealthHandler{knowledge: knowledge, sessions: sessions, providers: providers}
}

// Handle responds with server health status. An empty corpus or a failing
// provider is reported as degraded; chat keeps answering with the fallback.
func (h *HealthHandler) Handle(c *fiber.Ctx) error {
	kb := h.knowledge.Status()
	status := "healthy"
	if kb.Chunks == 0 {
		status = "degraded"
	}

	body := fiber.Map{
		"knowledge_chunks": kb.Chunks,
		"session_store":    h.sessions.StoreKind(),
		"session_expiry":   h.sessions.Expiry().String(),
		"timestamp":        time.Now().Format(time.RFC3339),
	}
	if h.providers != nil {
		if !h.providers.Healthy() {
			status = "degraded"
		}
		body["providers"] = h.providers.Snapshot()
	}
	body["status"] = status
	return c.JSON(body)
}
