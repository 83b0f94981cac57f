package controller

import (
	"github.com/gofiber/fiber/v2"

	"ijara_backend/internal/middleware"
	"ijara_backend/internal/service"
)

type AmenityController struct {
	amenities *service.AmenityService
}

func NewAmenityController(svc *service.AmenityService) *AmenityController {
	return &AmenityController{amenities: svc}
}

// ListAmenities GET /amenities
func (h *AmenityController) ListAmenities(c *fiber.Ctx) error {
	list, err := h.amenities.List(c.UserContext())
	if err != nil {
		return err
	}
	out := make([]fiber.Map, 0, len(list))
	for i := range list {
		out = append(out, presentAmenity(&list[i]))
	}
	return c.JSON(out)
}

// CreateAmenity POST /amenities
func (h *AmenityController) CreateAmenity(c *fiber.Ctx) error {
	input := new(service.AmenityInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	amenity, err := h.amenities.Create(c.UserContext(), middleware.ActorFrom(c), *input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(presentAmenity(amenity))
}
