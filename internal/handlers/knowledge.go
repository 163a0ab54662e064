package handlers

import (
	"github.com/gofiber/fiber/v2"

	"healthify/internal/services"
)

// KnowledgeHandler reports on and rebuilds the knowledge base
type KnowledgeHandler struct {
	knowledge *services.KnowledgeService
}

// NewKnowledgeHandler creates a new knowledge handler
func NewKnowledgeHandler(knowledge *services.KnowledgeService) *KnowledgeHandler {
	return &KnowledgeHandler{knowledge: knowledge}
}

// Status returns the published corpus
// GET /api/knowledge
func (h *KnowledgeHandler) Status(c *fiber.Ctx) error {
	return c.JSON(h.knowledge.Status())
}

// Reload rebuilds the corpus from its source. On failure the previous corpus keeps serving.
// POST /api/knowledge/reload
func (h *KnowledgeHandler) Reload(c *fiber.Ctx) error {
	status, err := h.knowledge.Reload(c.UserContext())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Failed to rebuild knowledge base",
			"details": err.Error(),
			"current": h.knowledge.Status(),
		})
	}
	return c.JSON(status)
}
