package orders

import (
	"context"

	"github.com/google/uuid"
	"github.com/sokonihq/sokoni-backend/pkg/db/models"
	"github.com/sokonihq/sokoni-backend/pkg/enums"
	"github.com/sokonihq/sokoni-backend/pkg/pagination"
	"gorm.io/gorm"
)

// Repository defines persistence operations for the orders table.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	Find(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	Update(ctx context.Context, orderID uuid.UUID, updates map[string]any) error

	// TransitionStatus performs the conditional status flip that guards every
	// lifecycle move: UPDATE ... WHERE id = ? AND status = from. It reports
	// whether this caller won the claim.
	TransitionStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus, updates map[string]any) (bool, error)

	List(ctx context.Context, scope ListScope, params pagination.Params, filters OrderFilters) (*OrderList, error)
	Counts(ctx context.Context, scope ListScope) (*OrderCounts, error)
	FindSnapshot(ctx context.Context, orderID uuid.UUID) (*DealSnapshot, error)
}
