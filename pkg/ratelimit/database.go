package ratelimit

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ijara_backend/internal/model"
)

// DBLimiter stores fixed-window counters in the primary database. Windows
// are aligned to multiples of the rule's window.
type DBLimiter struct {
	db     *gorm.DB
	rule   Rule
	prefix string
	now    func() time.Time
}

func NewDBLimiter(db *gorm.DB, prefix string, rule Rule) *DBLimiter {
	return &DBLimiter{db: db, rule: rule, prefix: prefix, now: time.Now}
}

func (l *DBLimiter) Allow(ctx context.Context, key string) (Result, error) {
	now := l.now().UTC()
	start := now.Truncate(l.rule.Window)
	counter := model.RateLimitCounter{
		Key:         l.prefix + ":" + key,
		WindowStart: start,
		Hits:        1,
		ExpiresAt:   start.Add(l.rule.Window),
	}

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}, {Name: "window_start"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"hits": gorm.Expr("rate_limit_counters.hits + 1")}),
		}).Create(&counter).Error; err != nil {
			return err
		}
		return tx.Where("key = ? AND window_start = ?", counter.Key, start).First(&counter).Error
	})
	if err != nil {
		return Result{}, fmt.Errorf("rate limit check failed: %w", err)
	}
	return l.rule.result(counter.Hits, counter.ExpiresAt.Sub(now)), nil
}

// Prune deletes counters whose window has ended.
func (l *DBLimiter) Prune(ctx context.Context) (int64, error) {
	res := l.db.WithContext(ctx).Where("expires_at < ?", l.now().UTC()).Delete(&model.RateLimitCounter{})
	return res.RowsAffected, res.Error
}
