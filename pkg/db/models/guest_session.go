package models

import (
	"time"

	"github.com/google/uuid"
)

// GuestSession is the anonymous identity a storefront visitor shops under.
type GuestSession struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Token      string          `gorm:"column:token;type:text;not null;uniqueIndex"`
	UserAgent  string          `gorm:"column:user_agent;type:text;not null;default:''"`
	SourceAddr string          `gorm:"column:source_address;type:text;not null;default:''"`
	Items      []GuestCartItem `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE"`
	ExpiresAt  time.Time       `gorm:"column:expires_at;not null"`
	LastSeenAt time.Time       `gorm:"column:last_seen_at;not null"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// Expired reports whether the session has outlived its TTL at the given instant.
func (s GuestSession) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
