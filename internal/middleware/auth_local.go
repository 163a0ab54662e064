package middleware

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"healthify/internal/session"
	"healthify/pkg/auth"
)

// OptionalLocalAuthMiddleware resolves the caller's identity from a local JWT.
// Requests without a valid token, or any request when auth is not configured,
// share the anonymous context.
func OptionalLocalAuthMiddleware(jwtAuth *auth.LocalJWTAuth) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if jwtAuth == nil {
			c.Locals("user_id", session.AnonymousContext)
			return c.Next()
		}

		token, err := auth.ExtractToken(c.Get("Authorization"))
		if err != nil {
			c.Locals("user_id", session.AnonymousContext)
			return c.Next()
		}

		user, err := jwtAuth.VerifyAccessToken(token)
		if err != nil {
			log.Printf("⚠️  Token validation failed: %v (continuing as anonymous)", err)
			c.Locals("user_id", session.AnonymousContext)
			return c.Next()
		}

		c.Locals("user_id", user.ID)
		c.Locals("user_email", user.Email)
		c.Locals("user_role", user.Role)
		return c.Next()
	}
}

// UserContext returns the session context key of the request
func UserContext(c *fiber.Ctx) string {
	if userID, ok := c.Locals("user_id").(string); ok && userID != "" {
		return userID
	}
	return session.AnonymousContext
}
