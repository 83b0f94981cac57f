package seed

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ijara_backend/internal/model"
	"ijara_backend/internal/repository"
	"ijara_backend/pkg/logger"
)

func TestSeedAmenitiesIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	log := logger.NewWithWriter(io.Discard, io.Discard)

	n, err := SeedAmenities(ctx, store, log)
	require.NoError(t, err)
	assert.Equal(t, len(DefaultAmenities), n)

	n, err = SeedAmenities(ctx, store, log)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	list, err := store.ListAmenities(ctx)
	require.NoError(t, err)
	require.Len(t, list, len(DefaultAmenities))

	slugs := make([]string, 0, len(list))
	for _, a := range list {
		slugs = append(slugs, a.Slug)
	}
	assert.Contains(t, slugs, "air-conditioning")
	assert.Contains(t, slugs, "wifi")
}

type failingStore struct{}

func (failingStore) CreateAmenity(context.Context, *model.Amenity) error {
	return errors.New("database is down")
}

func TestSeedAmenitiesStopsOnError(t *testing.T) {
	_, err := SeedAmenities(context.Background(), failingStore{}, logger.NewWithWriter(io.Discard, io.Discard))
	assert.EqualError(t, err, "database is down")
}
