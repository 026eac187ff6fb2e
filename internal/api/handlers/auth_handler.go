package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/docqa/backend/internal/middleware/security"
)

// WhoAmI reports the user bound to the request's API key.
func WhoAmI(c *fiber.Ctx) error {
	user, _ := c.Locals(security.UserLocal).(string)
	return c.JSON(fiber.Map{
		"message": "Access granted",
		"user":    user,
	})
}
