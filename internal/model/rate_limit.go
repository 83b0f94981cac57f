package model

import "time"

// RateLimitCounter is a fixed-window hit counter used by the database
// rate-limit backend.
type RateLimitCounter struct {
	Key         string    `gorm:"primaryKey;size:191"`
	WindowStart time.Time `gorm:"primaryKey"`
	Hits        int64     `gorm:"not null;default:0"`
	ExpiresAt   time.Time `gorm:"index;not null"`
}
