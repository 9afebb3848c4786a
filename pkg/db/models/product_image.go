package models

import (
	"time"

	"github.com/google/uuid"
)

// ProductImage is a hosted image attached to a product listing.
type ProductImage struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;index"`
	URL       string    `gorm:"column:url;type:text;not null"`
	PublicID  string    `gorm:"column:public_id;type:text;not null"`
	AltText   *string   `gorm:"column:alt_text;type:text"`
	Position  int       `gorm:"column:position;not null;default:0"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
