package middleware

import (
	"fmt"
	"math"

	"github.com/gofiber/fiber/v2"

	"ijara_backend/pkg/logger"
	"ijara_backend/pkg/ratelimit"
)

// RateLimit caps requests per authenticated user. It must run after
// RequireAuth; anonymous requests pass through untouched.
func RateLimit(limiter ratelimit.Limiter, log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor := ActorFrom(c)
		if !actor.Authenticated() {
			return c.Next()
		}

		res, err := limiter.Allow(c.UserContext(), fmt.Sprintf("user:%d", actor.ID))
		if err != nil {
			log.Error("rate limit check failed for user %d: %v", actor.ID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Rate limit check failed",
			})
		}

		if !res.Allowed {
			wait := int(math.Ceil(res.RetryAfter.Seconds()))
			c.Set(fiber.HeaderRetryAfter, fmt.Sprintf("%d", wait))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": fmt.Sprintf("Request was throttled. Expected available in %d seconds.", wait),
			})
		}

		return c.Next()
	}
}
