package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"healthify/internal/middleware"
	"healthify/internal/models"
	"healthify/internal/session"
)

// SessionHandler exposes the active session and the archive
type SessionHandler struct {
	sessions *session.Manager
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessions *session.Manager) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

func internalError(c *fiber.Ctx, action string, err error) error {
	log.Printf("❌ Failed to %s for %s: %v", action, middleware.UserContext(c), err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Failed to " + action,
	})
}

// GetActive returns the caller's active session, or an empty message list
// GET /active-session
func (h *SessionHandler) GetActive(c *fiber.Ctx) error {
	active, err := h.sessions.GetActive(c.UserContext(), middleware.UserContext(c))
	if err != nil {
		return internalError(c, "load active session", err)
	}
	if active == nil {
		return c.JSON(fiber.Map{"messages": []models.Message{}})
	}
	return c.JSON(models.ActiveSessionResponse{
		ID:        active.ID,
		Messages:  active.Messages,
		Timestamp: active.Timestamp,
		Duration:  active.Duration,
	})
}

// ListHistory returns archived sessions in archive order
// GET /history
func (h *SessionHandler) ListHistory(c *fiber.Ctx) error {
	history, err := h.sessions.ListHistory(c.UserContext(), middleware.UserContext(c))
	if err != nil {
		return internalError(c, "load history", err)
	}
	items := make([]models.HistoryItem, 0, len(history))
	for _, s := range history {
		items = append(items, s.ToHistoryItem())
	}
	return c.JSON(items)
}

// Archive moves the active session into history
// POST /archive-session
func (h *SessionHandler) Archive(c *fiber.Ctx) error {
	if err := h.sessions.Archive(c.UserContext(), middleware.UserContext(c)); err != nil {
		return internalError(c, "archive session", err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// Clear discards the active session without archiving it
// POST /clear-session
func (h *SessionHandler) Clear(c *fiber.Ctx) error {
	if err := h.sessions.Clear(c.UserContext(), middleware.UserContext(c)); err != nil {
		return internalError(c, "clear session", err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// ClearHistory removes every archived session of the caller
// DELETE /history
func (h *SessionHandler) ClearHistory(c *fiber.Ctx) error {
	if err := h.sessions.ClearHistory(c.UserContext(), middleware.UserContext(c)); err != nil {
		return internalError(c, "clear history", err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// DeleteHistoryEntry removes one archived session
// DELETE /history/:sessionId
func (h *SessionHandler) DeleteHistoryEntry(c *fiber.Ctx) error {
	id := c.Params("sessionId")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Session ID is required",
		})
	}

	err := h.sessions.DeleteHistoryEntry(c.UserContext(), middleware.UserContext(c), id)
	if errors.Is(err, session.ErrSessionNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Session not found",
		})
	}
	if err != nil {
		return internalError(c, "delete session", err)
	}
	return c.JSON(fiber.Map{"success": true})
}
