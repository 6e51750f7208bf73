package wallets

import (
	"context"

	"github.com/google/uuid"
	"github.com/sokonihq/sokoni-backend/pkg/db/models"
	"github.com/sokonihq/sokoni-backend/pkg/pagination"
	"gorm.io/gorm"
)

// Repository defines persistence operations for wallets and their ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	GetBalance(ctx context.Context, userID uuid.UUID) (int64, error)
	CreditBalance(ctx context.Context, userID uuid.UUID, delta int64) (int64, error)
	CreateTransaction(ctx context.Context, txn *models.WalletTransaction) error
	ListTransactions(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.WalletTransaction, *pagination.Cursor, error)
}
