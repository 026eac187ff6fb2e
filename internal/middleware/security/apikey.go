package security

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	APIKeyHeader = "X-API-Key"
	// UserLocal is the fiber.Ctx local holding the authenticated user name.
	UserLocal = "api_user"
)

type APIKeyConfig struct {
	// Keys maps an API key to its user. Config loading lowercases map keys,
	// so keys are compared in lower case.
	Keys   map[string]string
	Logger *zap.Logger
}

// APIKeyMiddleware rejects requests without a key with 401 and requests with
// an unknown key with 403.
func APIKeyMiddleware(cfg APIKeyConfig) fiber.Handler {
	keys := make(map[string]string, len(cfg.Keys))
	for k, user := range cfg.Keys {
		keys[strings.ToLower(k)] = user
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *fiber.Ctx) error {
		key := c.Get(APIKeyHeader)
		if key == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing API key. Include X-API-Key header.",
			})
		}

		user, ok := keys[strings.ToLower(key)]
		if !ok {
			log.Warn("Rejected unknown API key",
				zap.String("ip", c.IP()),
				zap.String("path", c.Path()),
			)
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Invalid API key",
			})
		}

		c.Locals(UserLocal, user)
		return c.Next()
	}
}
