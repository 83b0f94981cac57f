package repository

import (
	"context"

	"ijara_backend/internal/model"
)

func (s *GormStore) ListAmenities(ctx context.Context) ([]model.Amenity, error) {
	var list []model.Amenity
	err := s.conn(ctx).Order("name ASC").Find(&list).Error
	return list, err
}

func (s *GormStore) CreateAmenity(ctx context.Context, amenity *model.Amenity) error {
	return s.conn(ctx).Create(amenity).Error
}
