package controller

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"ijara_backend/internal/ads"
	"ijara_backend/internal/middleware"
	"ijara_backend/internal/service"
)

const defaultRadiusKm = "5"

type AdController struct {
	ads *service.AdService
}

func NewAdController(svc *service.AdService) *AdController {
	return &AdController{ads: svc}
}

// ListAds GET /ads
func (h *AdController) ListAds(c *fiber.Ctx) error {
	f, err := parseFilter(c)
	if err != nil {
		return err
	}
	page, err := h.ads.List(c.UserContext(), middleware.ActorFrom(c), f, parsePage(c))
	if err != nil {
		return err
	}
	return c.JSON(presentPage(page))
}

// CreateAd POST /ads
func (h *AdController) CreateAd(c *fiber.Ctx) error {
	p, err := parsePayload(c)
	if err != nil {
		return err
	}
	d, err := h.ads.Create(c.UserContext(), middleware.ActorFrom(c), p)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(presentDetail(d))
}

// GetAd GET /ads/:id
func (h *AdController) GetAd(c *fiber.Ctx) error {
	return h.get(c, service.ScopePublic)
}

// UpdateAd PATCH|PUT /ads/:id
func (h *AdController) UpdateAd(c *fiber.Ctx) error {
	return h.update(c, service.ScopePublic)
}

// DeleteAd DELETE /ads/:id
func (h *AdController) DeleteAd(c *fiber.Ctx) error {
	return h.delete(c, service.ScopePublic)
}

func (h *AdController) ListMyAds(c *fiber.Ctx) error {
	f, err := parseFilter(c)
	if err != nil {
		return err
	}
	page, err := h.ads.ListMine(c.UserContext(), middleware.ActorFrom(c), f, parsePage(c))
	if err != nil {
		return err
	}
	return c.JSON(presentPage(page))
}

func (h *AdController) GetMyAd(c *fiber.Ctx) error {
	return h.get(c, service.ScopeMine)
}

func (h *AdController) UpdateMyAd(c *fiber.Ctx) error {
	return h.update(c, service.ScopeMine)
}

func (h *AdController) DeleteMyAd(c *fiber.Ctx) error {
	return h.delete(c, service.ScopeMine)
}

func (h *AdController) get(c *fiber.Ctx, scope service.Scope) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	d, err := h.ads.Get(c.UserContext(), middleware.ActorFrom(c), id, scope)
	if err != nil {
		return err
	}
	return c.JSON(presentDetail(d))
}

func (h *AdController) update(c *fiber.Ctx, scope service.Scope) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	p, err := parsePayload(c)
	if err != nil {
		return err
	}
	d, err := h.ads.Update(c.UserContext(), middleware.ActorFrom(c), id, p, scope)
	if err != nil {
		return err
	}
	return c.JSON(presentDetail(d))
}

func (h *AdController) delete(c *fiber.Ctx, scope service.Scope) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.ads.Delete(c.UserContext(), middleware.ActorFrom(c), id, scope); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// UploadImages POST /ads/:id/images
func (h *AdController) UploadImages(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	sources, err := parseImages(c)
	if err != nil {
		return err
	}
	created, err := h.ads.AppendImages(c.UserContext(), middleware.ActorFrom(c), id, sources)
	if err != nil {
		return err
	}
	out := make([]fiber.Map, 0, len(created))
	for i := range created {
		out = append(out, presentImage(&created[i]))
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// DeleteImage DELETE /ads/:id/images/:image_id
func (h *AdController) DeleteImage(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	imageID, err := parseID(c, "image_id")
	if err != nil {
		return err
	}
	if err := h.ads.DeleteImage(c.UserContext(), middleware.ActorFrom(c), id, imageID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Approve POST /ads/:id/approve
func (h *AdController) Approve(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	note, err := parseNote(c)
	if err != nil {
		return err
	}
	d, err := h.ads.Approve(c.UserContext(), middleware.ActorFrom(c), id, note)
	if err != nil {
		return err
	}
	return c.JSON(presentDetail(d))
}

// Reject POST /ads/:id/reject
func (h *AdController) Reject(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	note, err := parseNote(c)
	if err != nil {
		return err
	}
	d, err := h.ads.Reject(c.UserContext(), middleware.ActorFrom(c), id, note)
	if err != nil {
		return err
	}
	return c.JSON(presentDetail(d))
}

// History GET /ads/:id/history
func (h *AdController) History(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	logs, err := h.ads.History(c.UserContext(), middleware.ActorFrom(c), id)
	if err != nil {
		return err
	}
	out := make([]fiber.Map, 0, len(logs))
	for i := range logs {
		out = append(out, presentLog(&logs[i]))
	}
	return c.JSON(out)
}

// ModerationQueue GET /ads/moderation
func (h *AdController) ModerationQueue(c *fiber.Ctx) error {
	f, err := parseFilter(c)
	if err != nil {
		return err
	}
	page, err := h.ads.ModerationQueue(c.UserContext(), middleware.ActorFrom(c), f, parsePage(c))
	if err != nil {
		return err
	}
	return c.JSON(presentPage(page))
}

// Stats GET /ads/stats
func (h *AdController) Stats(c *fiber.Ctx) error {
	stats, err := h.ads.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(stats)
}

// Nearby GET /ads/nearby?lat=&lng=&radius_km=
func (h *AdController) Nearby(c *fiber.Ctx) error {
	lat, err1 := strconv.ParseFloat(c.Query("lat"), 64)
	lng, err2 := strconv.ParseFloat(c.Query("lng"), 64)
	radius, err3 := strconv.ParseFloat(c.Query("radius_km", defaultRadiusKm), 64)
	if err1 != nil || err2 != nil || err3 != nil || radius < 0 {
		return ads.ErrInvalidParams
	}
	page, err := h.ads.Nearby(c.UserContext(), middleware.ActorFrom(c), lat, lng, radius, parsePage(c))
	if err != nil {
		return err
	}
	return c.JSON(presentPage(page))
}

// Similar GET /ads/:id/similar
func (h *AdController) Similar(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	page, err := h.ads.Similar(c.UserContext(), middleware.ActorFrom(c), id)
	if err != nil {
		return err
	}
	return c.JSON(presentList(page))
}

// Locations GET /ads/locations
func (h *AdController) Locations(c *fiber.Ctx) error {
	locs, err := h.ads.Locations(c.UserContext(), middleware.ActorFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(locs)
}
