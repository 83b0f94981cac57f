package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ijara_backend/internal/ads"
	"ijara_backend/internal/model"
)

func preloadAd(db *gorm.DB) *gorm.DB {
	return db.Preload("Amenities", func(db *gorm.DB) *gorm.DB {
		return db.Order("amenities.id ASC")
	}).Preload("Images", func(db *gorm.DB) *gorm.DB {
		return db.Order(`"order" ASC`)
	})
}

func (s *GormStore) CreateAd(ctx context.Context, ad *model.Ad) error {
	return s.conn(ctx).Omit(clause.Associations).Create(ad).Error
}

func (s *GormStore) UpdateAd(ctx context.Context, ad *model.Ad, columns ...string) error {
	if len(columns) == 0 {
		return nil
	}
	cols := append(append([]string{}, columns...), "updated_at")
	return s.conn(ctx).Model(ad).
		Select(cols).
		Omit(clause.Associations).
		Updates(ad).Error
}

func (s *GormStore) FindAd(ctx context.Context, id uint, scope ads.Predicate) (*model.Ad, error) {
	var ad model.Ad
	err := preloadAd(where(s.conn(ctx), scope)).Where("id = ?", id).First(&ad).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &ad, nil
}

func (s *GormStore) ListAds(ctx context.Context, q ads.Query) ([]model.Ad, int64, error) {
	var total int64
	if err := where(s.conn(ctx).Model(&model.Ad{}), q.Where...).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	db := where(s.conn(ctx), q.Where...)
	order := q.OrderBy
	if len(order) == 0 {
		order = ads.DefaultOrdering
	}
	for _, o := range order {
		db = db.Order(clause.OrderByColumn{Column: clause.Column{Name: o.Column}, Desc: o.Desc})
	}
	db = db.Order("id DESC")
	if q.Limit > 0 {
		db = db.Limit(q.Limit).Offset(q.Offset)
	}

	var list []model.Ad
	if err := preloadAd(db).Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (s *GormStore) CountAds(ctx context.Context, preds ...ads.Predicate) (int64, error) {
	var n int64
	err := where(s.conn(ctx).Model(&model.Ad{}), preds...).Count(&n).Error
	return n, err
}

func (s *GormStore) TitleInUse(ctx context.Context, ownerID uint, title string, excludeID uint) (bool, error) {
	var n int64
	err := s.conn(ctx).Model(&model.Ad{}).
		Where("owner_id = ? AND title = ? AND status IN ? AND id <> ?", ownerID, title, titleReserved, excludeID).
		Count(&n).Error
	return n > 0, err
}

func (s *GormStore) ReplaceAmenities(ctx context.Context, adID uint, amenityIDs []uint) error {
	var amenities []model.Amenity
	if len(amenityIDs) > 0 {
		if err := s.conn(ctx).Where("id IN ?", amenityIDs).Find(&amenities).Error; err != nil {
			return err
		}
	}
	found := make(map[uint]bool, len(amenities))
	for _, a := range amenities {
		found[a.ID] = true
	}
	var missing []uint
	for _, id := range amenityIDs {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return unknownAmenities(missing)
	}
	assoc := s.conn(ctx).Model(&model.Ad{ID: adID}).Association("Amenities")
	if len(amenities) == 0 {
		return assoc.Clear()
	}
	return assoc.Replace(amenities)
}

func (s *GormStore) CountImages(ctx context.Context, adID uint) (int, error) {
	var n int64
	err := s.conn(ctx).Model(&model.AdImage{}).Where("ad_id = ?", adID).Count(&n).Error
	return int(n), err
}

func (s *GormStore) NextImageOrder(ctx context.Context, adID uint) (int, error) {
	var next int
	err := s.conn(ctx).Model(&model.AdImage{}).
		Where("ad_id = ?", adID).
		Select(`COALESCE(MAX("order"), -1) + 1`).
		Scan(&next).Error
	return next, err
}

func (s *GormStore) CreateImages(ctx context.Context, images []*model.AdImage) error {
	if len(images) == 0 {
		return nil
	}
	return s.conn(ctx).Create(images).Error
}

func (s *GormStore) FindImage(ctx context.Context, adID, imageID uint) (*model.AdImage, error) {
	var img model.AdImage
	if err := s.conn(ctx).Where("ad_id = ? AND id = ?", adID, imageID).First(&img).Error; err != nil {
		return nil, notFound(err)
	}
	return &img, nil
}

func (s *GormStore) DeleteImage(ctx context.Context, imageID uint) error {
	res := s.conn(ctx).Delete(&model.AdImage{}, imageID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ads.ErrNotFound
	}
	return nil
}

func (s *GormStore) CreateModerationLog(ctx context.Context, entry *model.ModerationLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	return s.conn(ctx).Create(entry).Error
}

func (s *GormStore) ListModerationLogs(ctx context.Context, adID uint) ([]model.ModerationLog, error) {
	var logs []model.ModerationLog
	err := s.conn(ctx).Where("ad_id = ?", adID).Order("created_at ASC, id ASC").Find(&logs).Error
	return logs, err
}
