package model

// Amenity is shared between ads and referenced by id.
type Amenity struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"size:100;uniqueIndex;not null"`
	Slug string `json:"slug" gorm:"size:120;uniqueIndex;not null"`
}
