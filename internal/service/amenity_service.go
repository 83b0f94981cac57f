package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gosimple/slug"
	"gorm.io/gorm"

	"ijara_backend/internal/ads"
	"ijara_backend/internal/model"
	"ijara_backend/internal/repository"
)

type AmenityInput struct {
	Name string `json:"name" validate:"required,max=100"`
}

type AmenityService struct {
	store    repository.AmenityStore
	validate *validator.Validate
}

func NewAmenityService(store repository.AmenityStore) *AmenityService {
	return &AmenityService{store: store, validate: newInputValidator()}
}

func (s *AmenityService) List(ctx context.Context) ([]model.Amenity, error) {
	return s.store.ListAmenities(ctx)
}

// Create adds an amenity. Staff only.
func (s *AmenityService) Create(ctx context.Context, actor *ads.Actor, input AmenityInput) (*model.Amenity, error) {
	if !actor.Staff() {
		return nil, ads.ErrForbidden
	}
	input.Name = strings.TrimSpace(input.Name)
	if err := s.validate.Struct(input); err != nil {
		if input.Name == "" {
			return nil, ads.MissingField("name")
		}
		return nil, ads.FieldError("name", "Ensure this field has no more than 100 characters.")
	}

	amenity := &model.Amenity{Name: input.Name, Slug: slug.Make(input.Name)}
	if amenity.Slug == "" {
		return nil, ads.FieldError("name", "Name must contain letters or digits.")
	}
	if err := s.store.CreateAmenity(ctx, amenity); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ads.FieldError("name", "amenity with this name already exists.")
		}
		return nil, err
	}
	return amenity, nil
}
