package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"ijara_backend/internal/controller"
	"ijara_backend/internal/repository"
	"ijara_backend/internal/service"
	"ijara_backend/pkg/config"
	"ijara_backend/pkg/cron"
	"ijara_backend/pkg/database"
	"ijara_backend/pkg/logger"
	"ijara_backend/pkg/ratelimit"
	"ijara_backend/pkg/seed"
	"ijara_backend/pkg/utils/jwt"
	"ijara_backend/pkg/utils/storage"
)

const adPostPrefix = "ad_post"

type limiter interface {
	ratelimit.Limiter
	cron.Pruner
}

func main() {
	log := logger.New()
	cfg := config.Load()
	ctx := context.Background()

	var (
		store repository.Store
		db    *gorm.DB
	)
	if cfg.Database.Backend == "memory" {
		log.Warn("Using in-memory storage; data is lost on restart")
		store = repository.NewMemoryStore()
	} else {
		var err error
		db, err = database.Open(cfg.Database.DSN())
		if err != nil {
			log.Fatal("Could not connect to database: %v", err)
		}
		if err := database.MigrateDatabase(db, database.Models()...); err != nil {
			log.Warn("Migration warning: %v", err)
		}
		store = repository.NewGormStore(db)
	}

	blobs, err := newBlobStore(ctx, cfg.Blob)
	if err != nil {
		log.Fatal("Could not initialize blob storage: %v", err)
	}

	limits, err := newLimiter(ctx, cfg, db)
	if err != nil {
		log.Fatal("Could not initialize rate limiter: %v", err)
	}

	if cfg.Server.SeedAmenities {
		if _, err := seed.SeedAmenities(ctx, store, log); err != nil {
			log.Error("Could not seed amenities: %v", err)
		}
	}

	adService := service.NewAdService(store, blobs, log)

	scheduler := cron.New(log)
	if err := scheduler.AddRateLimitPrune(limits); err != nil {
		log.Error("Could not initialize rate limit prune cron: %v", err)
	}
	if err := scheduler.AddModerationReport(adService); err != nil {
		log.Error("Could not initialize moderation report cron: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	app := controller.NewApp(log)
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.CORSAllowedOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	if cfg.Blob.Backend != "s3" {
		app.Static(cfg.Blob.MediaURL, cfg.Blob.MediaRoot)
	}

	controller.SetupRoutes(app, controller.Deps{
		Ads:       adService,
		Identity:  service.NewIdentityService(store, jwt.NewManager(cfg.JWT.Secret, cfg.JWT.TTL)),
		Amenities: service.NewAmenityService(store),
		Limiter:   limits,
		Log:       log,
	})

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Info("Shutting down server...")
		if err := app.Shutdown(); err != nil {
			log.Error("Server shutdown failed: %v", err)
		}
	}()

	log.Info("Server is running on port %s", cfg.Server.Port)
	if err := app.Listen(":" + cfg.Server.Port); err != nil {
		log.Fatal("Server stopped: %v", err)
	}
}

func newBlobStore(ctx context.Context, cfg config.BlobConfig) (storage.BlobStore, error) {
	if cfg.Backend == "s3" {
		return storage.NewS3Store(ctx, storage.S3Config{
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			PublicURL: cfg.PublicURL,
		})
	}
	return storage.NewLocalStore(cfg.MediaRoot, cfg.MediaURL)
}

func newLimiter(ctx context.Context, cfg *config.Config, db *gorm.DB) (limiter, error) {
	rule := ratelimit.Rule{Limit: cfg.RateLimit.AdPostLimit, Window: cfg.RateLimit.AdPostWindow}

	switch cfg.RateLimit.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, err
		}
		return ratelimit.NewRedisLimiter(client, adPostPrefix, rule), nil
	case "database":
		if db != nil {
			return ratelimit.NewDBLimiter(db, adPostPrefix, rule), nil
		}
	}
	return ratelimit.NewMemoryLimiter(rule), nil
}
