package handlers

import (
	"github.com/gofiber/fiber/v2"

	"healthify/internal/middleware"
)

// Routes bundles the handlers served by the API
type Routes struct {
	Chat      *ChatHandler
	Session   *SessionHandler
	Knowledge *KnowledgeHandler
	Health    *HealthHandler
	Auth      *LocalAuthHandler // nil when JWT auth is not configured

	Identity    fiber.Handler // resolves user_id; defaults to anonymous
	ChatLimiter fiber.Handler
	AuthLimiter fiber.Handler
}

// Register mounts the chat and session routes both at the root (paths used
// by the original web client) and under /api, plus the /api-only routes.
func (r *Routes) Register(app *fiber.App) {
	identity := r.Identity
	if identity == nil {
		identity = middleware.OptionalLocalAuthMiddleware(nil)
	}

	app.Get("/health", r.Health.Handle)

	api := app.Group("/api")
	api.Get("/health", r.Health.Handle)

	for _, router := range []fiber.Router{app, api} {
		r.registerSessionRoutes(router, identity)
	}

	api.Get("/knowledge", r.Knowledge.Status)
	api.Post("/knowledge/reload", r.Knowledge.Reload)

	if r.Auth != nil {
		authRoutes := api.Group("/auth")
		if r.AuthLimiter != nil {
			authRoutes.Use(r.AuthLimiter)
		}
		authRoutes.Post("/register", r.Auth.Register)
		authRoutes.Post("/login", r.Auth.Login)
		authRoutes.Post("/refresh", r.Auth.RefreshToken)
		authRoutes.Get("/me", identity, r.Auth.GetCurrentUser)
	}
}

func (r *Routes) registerSessionRoutes(router fiber.Router, identity fiber.Handler) {
	chat := []fiber.Handler{identity}
	if r.ChatLimiter != nil {
		chat = append(chat, r.ChatLimiter)
	}
	chat = append(chat, r.Chat.Chat)

	router.Post("/chat", chat...)
	router.Get("/active-session", identity, r.Session.GetActive)
	router.Get("/history", identity, r.Session.ListHistory)
	router.Post("/archive-session", identity, r.Session.Archive)
	router.Post("/clear-session", identity, r.Session.Clear)
	router.Delete("/history", identity, r.Session.ClearHistory)
	router.Delete("/history/:sessionId", identity, r.Session.DeleteHistoryEntry)
}
