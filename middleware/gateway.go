package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ServiceToken validates the Bearer token sent by the mobile app backend. An empty
// expected token disables the check.
func ServiceToken(expectedToken string, log *zap.Logger) fiber.Handler {
	log = log.Named("service-auth")
	if expectedToken == "" {
		log.Warn("APP_SERVICE_TOKEN is not set, service routes are unauthenticated")
		return func(c *fiber.Ctx) error { return c.Next() }
	}

	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			log.Warn("missing Authorization header", zap.String("path", c.Path()))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "service authentication token missing",
			})
		}

		// Accept both "Bearer <token>" and the raw token.
		token := strings.TrimPrefix(authHeader, "Bearer ")
		if subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
			log.Warn("invalid service token", zap.String("path", c.Path()))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid service authentication token",
			})
		}
		return c.Next()
	}
}
