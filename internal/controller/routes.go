package controller

import (
	"github.com/gofiber/fiber/v2"

	"ijara_backend/internal/middleware"
	"ijara_backend/internal/model"
	"ijara_backend/internal/service"
	"ijara_backend/pkg/logger"
	"ijara_backend/pkg/ratelimit"
)

// bodyLimit covers a full create request: every image at the decoder cap
// plus the form fields.
const bodyLimit = (model.MaxAdImages + 1) * 10 * 1024 * 1024

// Deps are the collaborators the HTTP layer is wired to.
type Deps struct {
	Ads       *service.AdService
	Identity  *service.IdentityService
	Amenities *service.AmenityService
	Limiter   ratelimit.Limiter
	Log       *logger.Logger
}

// NewApp creates the Fiber app with the domain error mapping installed.
func NewApp(log *logger.Logger) *fiber.App {
	return fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(log),
		BodyLimit:    bodyLimit,
	})
}

func SetupRoutes(app *fiber.App, deps Deps) {
	adsCtl := NewAdController(deps.Ads)
	authCtl := NewAuthController(deps.Identity)
	amenityCtl := NewAmenityController(deps.Amenities)

	api := app.Group("/api", middleware.Authenticate(deps.Identity))

	// Auth Routes
	auth := api.Group("/auth")
	auth.Post("/register", authCtl.Register)
	auth.Post("/login", authCtl.Login)
	auth.Get("/me", middleware.RequireAuth(), authCtl.GetMe)

	// Amenity Routes
	api.Get("/amenities", amenityCtl.ListAmenities)
	api.Post("/amenities", middleware.RequireStaff(), amenityCtl.CreateAmenity)

	// Ad Routes; fixed paths are registered before /:id
	adRoutes := api.Group("/ads")
	adRoutes.Get("/", adsCtl.ListAds)
	adRoutes.Post("/", middleware.RequireAuth(), middleware.RateLimit(deps.Limiter, deps.Log), adsCtl.CreateAd)
	adRoutes.Get("/stats", adsCtl.Stats)
	adRoutes.Get("/nearby", adsCtl.Nearby)
	adRoutes.Get("/locations", adsCtl.Locations)
	adRoutes.Get("/moderation", middleware.RequireStaff(), adsCtl.ModerationQueue)

	mine := adRoutes.Group("/my", middleware.RequireAuth())
	mine.Get("/", adsCtl.ListMyAds)
	mine.Get("/:id<int>", adsCtl.GetMyAd)
	mine.Patch("/:id<int>", adsCtl.UpdateMyAd)
	mine.Put("/:id<int>", adsCtl.UpdateMyAd)
	mine.Delete("/:id<int>", adsCtl.DeleteMyAd)

	adRoutes.Get("/:id<int>", adsCtl.GetAd)
	adRoutes.Patch("/:id<int>", middleware.RequireAuth(), adsCtl.UpdateAd)
	adRoutes.Put("/:id<int>", middleware.RequireAuth(), adsCtl.UpdateAd)
	adRoutes.Delete("/:id<int>", middleware.RequireAuth(), adsCtl.DeleteAd)
	adRoutes.Get("/:id<int>/similar", adsCtl.Similar)
	adRoutes.Get("/:id<int>/history", middleware.RequireStaff(), adsCtl.History)
	adRoutes.Post("/:id<int>/approve", middleware.RequireAuth(), adsCtl.Approve)
	adRoutes.Post("/:id<int>/reject", middleware.RequireAuth(), adsCtl.Reject)
	adRoutes.Post("/:id<int>/images", middleware.RequireAuth(), adsCtl.UploadImages)
	adRoutes.Delete("/:id<int>/images/:image_id<int>", middleware.RequireAuth(), adsCtl.DeleteImage)
}
