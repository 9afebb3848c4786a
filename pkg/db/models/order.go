package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/benjamins-shop/storefront-backend/pkg/enums"
)

// Order is a confirmed checkout produced from a guest session's cart.
type Order struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber     string            `gorm:"column:order_number;type:text;not null;uniqueIndex"`
	SessionID       uuid.UUID         `gorm:"column:session_id;type:uuid;not null;index"`
	SessionToken    string            `gorm:"column:session_token;type:text;not null"`
	Status          enums.OrderStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	Total           decimal.Decimal   `gorm:"column:total;type:numeric(12,2);not null"`
	CustomerName    string            `gorm:"column:customer_name;type:text;not null"`
	CustomerEmail   string            `gorm:"column:customer_email;type:text;not null"`
	ShippingAddress string            `gorm:"column:shipping_address;type:text;not null"`
	Items           []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
