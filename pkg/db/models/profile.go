package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/sokonihq/sokoni-backend/pkg/enums"
)

// Profile represents a marketplace account. WalletBalance is denormalized and
// only ever mutated by settlement inside the delivery transaction.
type Profile struct {
	ID            uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	FullName      string         `gorm:"column:full_name;not null"`
	Email         string         `gorm:"column:email;not null;uniqueIndex"`
	Role          enums.UserRole `gorm:"column:role;type:user_role;not null;default:'buyer'"`
	WalletBalance int64          `gorm:"column:wallet_balance;not null;default:0"`
	CreatedAt     time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
