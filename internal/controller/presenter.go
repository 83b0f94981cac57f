package controller

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"ijara_backend/internal/model"
	"ijara_backend/internal/service"
)

func presentDetail(d *service.AdDetail) fiber.Map {
	return presentAd(d.Ad, d.Owner)
}

func presentAd(ad *model.Ad, owner *service.OwnerSummary) fiber.Map {
	amenities := make([]fiber.Map, 0, len(ad.Amenities))
	for _, a := range ad.Amenities {
		amenities = append(amenities, presentAmenity(&a))
	}
	images := make([]fiber.Map, 0, len(ad.Images))
	for _, img := range ad.Images {
		images = append(images, presentImage(&img))
	}

	return fiber.Map{
		"id":              ad.ID,
		"slug":            ad.Slug,
		"status":          ad.Status,
		"owner":           presentOwner(ad.OwnerID, owner),
		"title":           ad.Title,
		"description":     ad.Description,
		"monthly_rent":    ad.MonthlyRent,
		"property_type":   ad.PropertyType,
		"bedrooms":        ad.Bedrooms,
		"bathrooms":       ad.Bathrooms,
		"area_m2":         decimal(&ad.AreaM2, 2),
		"address":         ad.Address,
		"latitude":        decimal(ad.Latitude, 6),
		"longitude":       decimal(ad.Longitude, 6),
		"amenities":       amenities,
		"contact_name":    ad.ContactName,
		"contact_phone":   ad.ContactPhone,
		"images":          images,
		"is_active":       ad.IsActive,
		"created_at":      ad.CreatedAt,
		"updated_at":      ad.UpdatedAt,
		"moderation_note": ad.ModerationNote,
	}
}

func presentOwner(ownerID uint, owner *service.OwnerSummary) fiber.Map {
	if owner == nil {
		return fiber.Map{"id": strconv.FormatUint(uint64(ownerID), 10)}
	}
	return fiber.Map{
		"id":         strconv.FormatUint(uint64(owner.ID), 10),
		"username":   owner.Username,
		"full_name":  owner.FullName,
		"active_ads": owner.ActiveAds,
	}
}

func presentImage(img *model.AdImage) fiber.Map {
	return fiber.Map{
		"id":         img.ID,
		"image":      img.Image,
		"order":      img.Order,
		"created_at": img.CreatedAt,
	}
}

func presentAmenity(a *model.Amenity) fiber.Map {
	return fiber.Map{"id": a.ID, "name": a.Name, "slug": a.Slug}
}

// decimal renders a fixed-point string, or nil when v is nil.
func decimal(v *float64, places int) interface{} {
	if v == nil {
		return nil
	}
	return strconv.FormatFloat(*v, 'f', places, 64)
}

func presentPage(page *service.AdPage) fiber.Map {
	return fiber.Map{
		"count":     page.Count,
		"page":      page.Page.Number,
		"page_size": page.Page.Size,
		"results":   presentList(page),
	}
}

func presentList(page *service.AdPage) []fiber.Map {
	results := make([]fiber.Map, 0, len(page.Items))
	for i := range page.Items {
		ad := &page.Items[i]
		results = append(results, presentAd(ad, page.Owners[ad.OwnerID]))
	}
	return results
}

func presentLog(l *model.ModerationLog) fiber.Map {
	return fiber.Map{
		"id":          l.ID,
		"ad_id":       l.AdID,
		"actor_id":    l.ActorID,
		"action":      l.Action,
		"from_status": l.FromStatus,
		"to_status":   l.ToStatus,
		"note":        l.Note,
		"changes":     l.Changes,
		"created_at":  l.CreatedAt,
	}
}
