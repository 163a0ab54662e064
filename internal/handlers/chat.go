package handlers

import (
	"github.com/gofiber/fiber/v2"

	"healthify/internal/middleware"
	"healthify/internal/models"
	"healthify/internal/services"
)

// ChatHandler handles chat turns
type ChatHandler struct {
	chatService *services.ChatService
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chatService *services.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// Chat answers one query and records it in the caller's active session.
// Provider failures are answered with the safety fallback, never an HTTP error.
// POST /chat
func (h *ChatHandler) Chat(c *fiber.Ctx) error {
	var req models.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	resp := h.chatService.Chat(c.UserContext(), middleware.UserContext(c), req.Query)
	return c.JSON(resp)
}
