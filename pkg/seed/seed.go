package seed

import (
	"context"
	"errors"

	"github.com/gosimple/slug"
	"gorm.io/gorm"

	"ijara_backend/internal/model"
	"ijara_backend/pkg/logger"
)

// AmenityCreator is the slice of the store the seeder needs.
type AmenityCreator interface {
	CreateAmenity(ctx context.Context, a *model.Amenity) error
}

var DefaultAmenities = []string{
	"WiFi",
	"Parking",
	"Air Conditioning",
	"Heating",
	"Washing Machine",
	"Refrigerator",
	"Furnished",
	"Balcony",
	"Elevator",
	"Security",
	"Pets Allowed",
	"Playground",
}

// SeedAmenities inserts the default amenities. Existing ones are skipped.
func SeedAmenities(ctx context.Context, store AmenityCreator, log *logger.Logger) (int, error) {
	created := 0
	for _, name := range DefaultAmenities {
		a := &model.Amenity{Name: name, Slug: slug.Make(name)}
		if err := store.CreateAmenity(ctx, a); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				continue
			}
			return created, err
		}
		created++
	}
	log.Info("Amenities seeded: %d new, %d total", created, len(DefaultAmenities))
	return created, nil
}
