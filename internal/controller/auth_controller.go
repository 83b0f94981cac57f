package controller

import (
	"github.com/gofiber/fiber/v2"

	"ijara_backend/internal/ads"
	"ijara_backend/internal/middleware"
	"ijara_backend/internal/service"
)

type AuthController struct {
	identity *service.IdentityService
}

func NewAuthController(identity *service.IdentityService) *AuthController {
	return &AuthController{identity: identity}
}

// Register POST /auth/register
func (h *AuthController) Register(c *fiber.Ctx) error {
	input := new(service.RegisterInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	user, token, err := h.identity.Register(c.UserContext(), *input)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Registration successful",
		"token":   token,
		"user":    user.GetPublicProfile(),
	})
}

// Login POST /auth/login
func (h *AuthController) Login(c *fiber.Ctx) error {
	input := new(service.LoginInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	user, token, err := h.identity.Authenticate(c.UserContext(), *input)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user":  user.GetPublicProfile(),
	})
}

// GetMe returns the signed-in user.
func (h *AuthController) GetMe(c *fiber.Ctx) error {
	actor := middleware.ActorFrom(c)
	if !actor.Authenticated() {
		return ads.ErrUnauthenticated
	}

	user, err := h.identity.Profile(c.UserContext(), actor.ID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"user": user.GetPublicProfile(),
	})
}
