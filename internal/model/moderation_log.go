package model

import (
	"time"

	"gorm.io/datatypes"
)

type ModerationAction string

const (
	ModerationApprove ModerationAction = "approve"
	ModerationReject  ModerationAction = "reject"
	ModerationUpdate  ModerationAction = "update"
	ModerationDelete  ModerationAction = "delete"
)

// ModerationLog records every state-changing operation on an ad.
type ModerationLog struct {
	ID         uint             `json:"id" gorm:"primaryKey"`
	AdID       uint             `json:"ad_id" gorm:"index;not null"`
	ActorID    uint             `json:"actor_id" gorm:"index;not null"`
	Action     ModerationAction `json:"action" gorm:"size:32;index;not null"`
	FromStatus AdStatus         `json:"from_status" gorm:"size:20"`
	ToStatus   AdStatus         `json:"to_status" gorm:"size:20"`
	Note       string           `json:"note" gorm:"type:text"`
	Changes    datatypes.JSON   `json:"changes"`
	CreatedAt  time.Time        `json:"created_at"`
}
