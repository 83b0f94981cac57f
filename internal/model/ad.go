package model

import (
	"time"
)

// Property Types
type PropertyType string

const (
	PropertyTypeApartment  PropertyType = "APARTMENT"
	PropertyTypeHouse      PropertyType = "HOUSE"
	PropertyTypeStudio     PropertyType = "STUDIO"
	PropertyTypeCommercial PropertyType = "COMMERCIAL"
)

func (t PropertyType) Valid() bool {
	switch t {
	case PropertyTypeApartment, PropertyTypeHouse, PropertyTypeStudio, PropertyTypeCommercial:
		return true
	}
	return false
}

// Moderation status
type AdStatus string

const (
	AdStatusDraft    AdStatus = "DRAFT"
	AdStatusPending  AdStatus = "PENDING"
	AdStatusApproved AdStatus = "APPROVED"
	AdStatusRejected AdStatus = "REJECTED"
	AdStatusArchived AdStatus = "ARCHIVED"
)

const MaxAdImages = 10

// Ad is a property rental listing. Ads are never physically removed;
// IsActive=false marks a soft-deleted ad.
type Ad struct {
	ID             uint         `json:"id" gorm:"primaryKey"`
	OwnerID        uint         `json:"owner_id" gorm:"not null;index;uniqueIndex:idx_owner_title_active,where:status = 'PENDING' OR status = 'APPROVED'"`
	Title          string       `json:"title" gorm:"size:200;not null;uniqueIndex:idx_owner_title_active"`
	Description    string       `json:"description" gorm:"type:text;not null"`
	MonthlyRent    int64        `json:"monthly_rent" gorm:"not null;index;check:monthly_rent_gt_zero,monthly_rent > 0"`
	PropertyType   PropertyType `json:"property_type" gorm:"size:20;not null;index"`
	Bedrooms       int          `json:"bedrooms" gorm:"not null;default:0"`
	Bathrooms      int          `json:"bathrooms" gorm:"not null;default:0"`
	AreaM2         float64      `json:"area_m2" gorm:"column:area_m2;type:numeric(8,2);not null;check:area_gt_zero,area_m2 > 0"`
	Address        string       `json:"address" gorm:"size:255;not null"`
	Latitude       *float64     `json:"latitude" gorm:"type:numeric(9,6)"`
	Longitude      *float64     `json:"longitude" gorm:"type:numeric(9,6)"`
	ContactName    string       `json:"contact_name" gorm:"size:120;not null;default:''"`
	ContactPhone   string       `json:"contact_phone" gorm:"size:32;not null;default:''"`
	Status         AdStatus     `json:"status" gorm:"size:20;not null;default:'PENDING';index"`
	ModerationNote string       `json:"moderation_note" gorm:"type:text;not null;default:''"`
	Slug           string       `json:"slug" gorm:"size:220;uniqueIndex;not null"`
	IsActive       bool         `json:"is_active" gorm:"not null;default:true;index"`
	CreatedAt      time.Time    `json:"created_at" gorm:"index"`
	UpdatedAt      time.Time    `json:"updated_at"`

	Amenities []Amenity `json:"amenities" gorm:"many2many:ad_amenities"`
	Images    []AdImage `json:"images" gorm:"foreignKey:AdID;constraint:OnDelete:CASCADE"`
}

// AdImage belongs exclusively to its Ad. Order is zero-based and unique per ad.
type AdImage struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	AdID      uint      `json:"ad_id" gorm:"not null;uniqueIndex:idx_ad_image_order"`
	Image     string    `json:"image" gorm:"not null"`
	Order     int       `json:"order" gorm:"not null;default:0;uniqueIndex:idx_ad_image_order"`
	CreatedAt time.Time `json:"created_at"`
}

// HasLocation reports whether both coordinates are stored.
func (a *Ad) HasLocation() bool {
	return a.Latitude != nil && a.Longitude != nil
}

func (a *Ad) AmenityIDs() []uint {
	ids := make([]uint, 0, len(a.Amenities))
	for _, am := range a.Amenities {
		ids = append(ids, am.ID)
	}
	return ids
}
