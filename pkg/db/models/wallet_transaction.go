package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sokonihq/sokoni-backend/pkg/enums"
)

// WalletTransaction is an append-only ledger row written during settlement.
// BalanceAfter snapshots the owner's wallet immediately after the write so
// statements can be rendered without replaying history. CommissionRate and
// TotalSale are populated on commission rows only.
type WalletTransaction struct {
	ID             uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID         uuid.UUID             `gorm:"column:user_id;type:uuid;not null"`
	OrderID        uuid.UUID             `gorm:"column:order_id;type:uuid;not null"`
	Kind           enums.TransactionKind `gorm:"column:kind;type:transaction_kind;not null"`
	Amount         int64                 `gorm:"column:amount;not null"`
	BalanceAfter   int64                 `gorm:"column:balance_after;not null"`
	ProductName    string                `gorm:"column:product_name;not null"`
	ProductImage   *string               `gorm:"column:product_image"`
	Quantity       int                   `gorm:"column:quantity;not null;default:1"`
	UnitPrice      int64                 `gorm:"column:unit_price;not null"`
	CommissionRate *decimal.Decimal      `gorm:"column:commission_rate;type:numeric(5,2)"`
	TotalSale      *int64                `gorm:"column:total_sale"`
	CreatedAt      time.Time             `gorm:"column:created_at;autoCreateTime"`
}
