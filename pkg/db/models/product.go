package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product represents a seller listing. DefaultCommissionRate is a percent
// (10 means 10%) applied when an affiliate is attached to an order.
type Product struct {
	ID                    uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID              uuid.UUID       `gorm:"column:seller_id;type:uuid;not null"`
	Name                  string          `gorm:"column:name;not null"`
	ImageURL              *string         `gorm:"column:image_url"`
	Price                 int64           `gorm:"column:price;not null"`
	DefaultCommissionRate decimal.Decimal `gorm:"column:default_commission_rate;type:numeric(5,2);not null;default:0"`
	CreatedAt             time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
