package middleware

import (
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// AdminAPIKeyAuth guards the admin API with a static key.
// Expects: Authorization: Bearer <api_key>
// An empty key disables the check, which is how development and tests run.
func AdminAPIKeyAuth(key string, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if key == "" {
			return c.Next()
		}

		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing Authorization header",
			})
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid Authorization header format. Expected: Bearer <api_key>",
			})
		}

		providedKey := strings.TrimPrefix(authHeader, "Bearer ")
		// Constant-time comparison to prevent timing attacks
		if !secureCompare(providedKey, key) {
			logger.Warn("Rejected admin API request",
				slog.String("path", c.Path()),
				slog.String("ip", c.IP()))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid API key",
			})
		}

		return c.Next()
	}
}

// secureCompare performs constant-time string comparison
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	var result byte
	for i := 0; i < len(a); i++ {
		result |= a[i] ^ b[i]
	}
	return result == 0
}
