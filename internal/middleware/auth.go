package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"ijara_backend/internal/ads"
)

const actorKey = "actor"

// Authenticator resolves a bearer token to an actor. An empty token is an
// anonymous caller.
type Authenticator interface {
	CurrentUser(ctx context.Context, token string) (*ads.Actor, error)
}

// Authenticate resolves the caller on every request. Missing credentials
// leave the request anonymous; invalid ones are rejected with 401.
func Authenticate(auth Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return c.Next()
		}

		token, ok := bearerToken(header)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid authorization header format",
			})
		}

		actor, err := auth.CurrentUser(c.UserContext(), token)
		if err != nil {
			if errors.Is(err, ads.ErrUnauthenticated) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "Invalid or expired token",
				})
			}
			return err
		}
		c.Locals(actorKey, actor)
		return c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// ActorFrom returns the resolved caller, or nil for anonymous requests.
func ActorFrom(c *fiber.Ctx) *ads.Actor {
	actor, _ := c.Locals(actorKey).(*ads.Actor)
	return actor
}
