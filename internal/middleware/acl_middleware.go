package middleware

import (
	"github.com/gofiber/fiber/v2"
)

// RequireAuth rejects anonymous callers with 401.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !ActorFrom(c).Authenticated() {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authentication credentials were not provided",
			})
		}
		return c.Next()
	}
}

// RequireStaff rejects non-staff callers. Anonymous callers get 401.
func RequireStaff() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor := ActorFrom(c)
		if !actor.Authenticated() {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authentication credentials were not provided",
			})
		}
		if !actor.Staff() {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "You do not have permission to perform this action",
			})
		}
		return c.Next()
	}
}
