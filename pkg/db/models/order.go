package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/sokonihq/sokoni-backend/pkg/enums"
)

// Order is the aggregate the lifecycle state machine runs over. Amount is the
// total in minor units; CommissionAmount is derived from the product's rate at
// the last amount write. DeliveryCodeHash holds the argon2id hash of the
// 4-digit confirmation code minted at ship time; the plaintext is never stored.
type Order struct {
	ID                    uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID               uuid.UUID         `gorm:"column:buyer_id;type:uuid;not null"`
	SellerID              uuid.UUID         `gorm:"column:seller_id;type:uuid;not null"`
	AffiliateID           *uuid.UUID        `gorm:"column:affiliate_id;type:uuid"`
	ProductID             uuid.UUID         `gorm:"column:product_id;type:uuid;not null"`
	Amount                int64             `gorm:"column:amount;not null"`
	Quantity              int               `gorm:"column:quantity;not null;default:1"`
	CommissionAmount      int64             `gorm:"column:commission_amount;not null;default:0"`
	Status                enums.OrderStatus `gorm:"column:status;type:order_status;not null;default:'pending'"`
	Source                enums.OrderSource `gorm:"column:source;type:order_source;not null;default:'direct'"`
	Notes                 *string           `gorm:"column:notes"`
	DeliveryCodeHash      *string           `gorm:"column:delivery_code_hash"`
	DeliveryCodeExpiresAt *time.Time        `gorm:"column:delivery_code_expires_at"`
	DeliveredAt           *time.Time        `gorm:"column:delivered_at"`
	CreatedAt             time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// NetSellerAmount is what settlement credits the seller: total minus the
// affiliate commission.
func (o Order) NetSellerAmount() int64 {
	return o.Amount - o.CommissionAmount
}

// HasAffiliate reports whether an affiliate is attached to the order.
func (o Order) HasAffiliate() bool {
	return o.AffiliateID != nil && *o.AffiliateID != uuid.Nil
}
