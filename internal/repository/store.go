package repository

import (
	"context"
	"fmt"

	"ijara_backend/internal/ads"
	"ijara_backend/internal/model"
)

// Store is the persistence boundary used by the services. Lookups that
// miss return ads.ErrNotFound; uniqueness violations return an error that
// wraps gorm.ErrDuplicatedKey.
type Store interface {
	// Transaction runs fn against a store bound to one transaction. The
	// transaction is rolled back when fn returns an error.
	Transaction(ctx context.Context, fn func(tx Store) error) error

	AdStore
	AmenityStore
	UserStore
}

type AdStore interface {
	CreateAd(ctx context.Context, ad *model.Ad) error
	UpdateAd(ctx context.Context, ad *model.Ad, columns ...string) error
	// FindAd loads an ad with its amenities and images if it matches scope.
	FindAd(ctx context.Context, id uint, scope ads.Predicate) (*model.Ad, error)
	// ListAds returns one page of q and the number of matches ignoring paging.
	ListAds(ctx context.Context, q ads.Query) ([]model.Ad, int64, error)
	CountAds(ctx context.Context, where ...ads.Predicate) (int64, error)
	// TitleInUse reports whether ownerID has another PENDING or APPROVED ad
	// titled title.
	TitleInUse(ctx context.Context, ownerID uint, title string, excludeID uint) (bool, error)
	ReplaceAmenities(ctx context.Context, adID uint, amenityIDs []uint) error

	CountImages(ctx context.Context, adID uint) (int, error)
	NextImageOrder(ctx context.Context, adID uint) (int, error)
	CreateImages(ctx context.Context, images []*model.AdImage) error
	FindImage(ctx context.Context, adID, imageID uint) (*model.AdImage, error)
	DeleteImage(ctx context.Context, imageID uint) error

	CreateModerationLog(ctx context.Context, entry *model.ModerationLog) error
	ListModerationLogs(ctx context.Context, adID uint) ([]model.ModerationLog, error)
}

type AmenityStore interface {
	ListAmenities(ctx context.Context) ([]model.Amenity, error)
	CreateAmenity(ctx context.Context, amenity *model.Amenity) error
}

type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	FindUser(ctx context.Context, id uint) (*model.User, error)
	FindUserByEmail(ctx context.Context, email string) (*model.User, error)
}

// titleReserved lists the statuses that hold an (owner, title) pair.
var titleReserved = []model.AdStatus{model.AdStatusPending, model.AdStatusApproved}

func unknownAmenities(missing []uint) error {
	verr := &ads.ValidationError{}
	for _, id := range missing {
		verr.Add("amenities", invalidPK(id))
	}
	return verr
}

func invalidPK(id uint) string {
	return fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", id)
}
