package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"ijara_backend/internal/ads"
)

// GormStore is the PostgreSQL-backed Store.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(&GormStore{db: tx}); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit().Error
}

func (s *GormStore) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// where applies predicates as parenthesised conditions.
func where(db *gorm.DB, preds ...ads.Predicate) *gorm.DB {
	for _, p := range preds {
		db = db.Where("("+p.SQL+")", p.Args...)
	}
	return db
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ads.ErrNotFound
	}
	return err
}
