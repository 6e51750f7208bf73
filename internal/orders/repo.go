package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sokonihq/sokoni-backend/pkg/db/models"
	"github.com/sokonihq/sokoni-backend/pkg/enums"
	"github.com/sokonihq/sokoni-backend/pkg/pagination"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if order == nil {
		return nil, errors.New("order required")
	}
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) Find(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) Update(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// TransitionStatus is the single write path for lifecycle moves. The WHERE on
// the current status means exactly one concurrent caller wins the claim; the
// losers see won=false and must re-read the row to decide what happened.
func (r *repository) TransitionStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus, updates map[string]any) (bool, error) {
	if !from.CanTransitionTo(to) {
		return false, fmt.Errorf("illegal order status transition %s -> %s", from, to)
	}

	values := map[string]any{"status": to}
	for column, value := range updates {
		values[column] = value
	}

	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, from).
		Updates(values)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// orderSummaryRow carries the order columns plus the joined product display
// fields for a single list page scan.
type orderSummaryRow struct {
	ID               uuid.UUID
	BuyerID          uuid.UUID
	SellerID         uuid.UUID
	AffiliateID      *uuid.UUID
	ProductID        uuid.UUID
	ProductName      *string
	ProductImage     *string
	Amount           int64
	Quantity         int
	CommissionAmount int64
	Status           enums.OrderStatus
	Source           enums.OrderSource
	CreatedAt        time.Time
}

func (r *repository) List(ctx context.Context, scope ListScope, params pagination.Params, filters OrderFilters) (*OrderList, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("orders.id, orders.buyer_id, orders.seller_id, orders.affiliate_id, orders.product_id, products.name AS product_name, products.image_url AS product_image, orders.amount, orders.quantity, orders.commission_amount, orders.status, orders.source, orders.created_at").
		Joins("LEFT JOIN products ON products.id = orders.product_id")

	query, err := applyScope(query, scope)
	if err != nil {
		return nil, err
	}
	query = applyFilters(query, filters)

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where("(orders.created_at, orders.id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []orderSummaryRow
	if err := query.Order("orders.created_at DESC, orders.id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}

	list := &OrderList{}
	if len(rows) > normalized {
		rows = rows[:normalized]
		// the cursor predicate is strictly less-than, so it must point at the
		// last row handed out or the first row of the next page is skipped
		last := rows[len(rows)-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	list.Orders = make([]OrderSummary, 0, len(rows))
	for _, row := range rows {
		list.Orders = append(list.Orders, toOrderSummary(row))
	}
	return list, nil
}

func (r *repository) Counts(ctx context.Context, scope ListScope) (*OrderCounts, error) {
	type statusAgg struct {
		Status  enums.OrderStatus
		Total   int64
		Revenue int64
	}

	query := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("orders.status, COUNT(*) AS total, COALESCE(SUM(orders.amount), 0) AS revenue").
		Group("orders.status")

	query, err := applyScope(query, scope)
	if err != nil {
		return nil, err
	}

	var aggs []statusAgg
	if err := query.Find(&aggs).Error; err != nil {
		return nil, err
	}

	counts := &OrderCounts{}
	for _, agg := range aggs {
		switch agg.Status {
		case enums.OrderStatusPending:
			counts.Pending = agg.Total
		case enums.OrderStatusPaid:
			counts.Paid = agg.Total
		case enums.OrderStatusShipped:
			counts.Shipped = agg.Total
		case enums.OrderStatusDelivered:
			counts.Delivered = agg.Total
			counts.DeliveredRevenue = agg.Revenue
		case enums.OrderStatusCancelled:
			counts.Cancelled = agg.Total
		}
	}
	return counts, nil
}

func (r *repository) FindSnapshot(ctx context.Context, orderID uuid.UUID) (*DealSnapshot, error) {
	type snapshotRow struct {
		ID           uuid.UUID
		BuyerID      uuid.UUID
		SellerID     uuid.UUID
		ProductID    uuid.UUID
		ProductName  *string
		ProductImage *string
		Amount       int64
		Quantity     int
		Status       enums.OrderStatus
		Source       enums.OrderSource
		Notes        *string
		CreatedAt    time.Time
	}

	var row snapshotRow
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("orders.id, orders.buyer_id, orders.seller_id, orders.product_id, products.name AS product_name, products.image_url AS product_image, orders.amount, orders.quantity, orders.status, orders.source, orders.notes, orders.created_at").
		Joins("LEFT JOIN products ON products.id = orders.product_id").
		Where("orders.id = ?", orderID).
		First(&row).Error
	if err != nil {
		return nil, err
	}

	return &DealSnapshot{
		OrderID:      row.ID,
		BuyerID:      row.BuyerID,
		SellerID:     row.SellerID,
		ProductID:    row.ProductID,
		ProductName:  displayName(row.ProductName),
		ProductImage: row.ProductImage,
		Amount:       row.Amount,
		Quantity:     row.Quantity,
		Status:       row.Status,
		Source:       row.Source,
		Notes:        row.Notes,
		CreatedAt:    row.CreatedAt,
	}, nil
}

func applyScope(query *gorm.DB, scope ListScope) (*gorm.DB, error) {
	switch scope.Role {
	case enums.UserRoleBuyer:
		return query.Where("orders.buyer_id = ?", scope.UserID), nil
	case enums.UserRoleSeller:
		return query.Where("orders.seller_id = ?", scope.UserID), nil
	case enums.UserRoleAffiliate:
		return query.Where("orders.affiliate_id = ?", scope.UserID), nil
	case enums.UserRoleAdmin:
		return query, nil
	default:
		return nil, fmt.Errorf("unsupported list scope role: %s", scope.Role)
	}
}

func applyFilters(query *gorm.DB, filters OrderFilters) *gorm.DB {
	if filters.Status != nil {
		query = query.Where("orders.status = ?", *filters.Status)
	}
	if filters.Source != nil {
		query = query.Where("orders.source = ?", *filters.Source)
	}
	if filters.DateFrom != nil {
		query = query.Where("orders.created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("orders.created_at < ?", *filters.DateTo)
	}
	if search := strings.TrimSpace(filters.Query); search != "" {
		query = query.Where("LOWER(products.name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}
	return query
}

func toOrderSummary(row orderSummaryRow) OrderSummary {
	return OrderSummary{
		ID:               row.ID,
		BuyerID:          row.BuyerID,
		SellerID:         row.SellerID,
		AffiliateID:      row.AffiliateID,
		ProductID:        row.ProductID,
		ProductName:      displayName(row.ProductName),
		ProductImage:     row.ProductImage,
		Amount:           row.Amount,
		Quantity:         row.Quantity,
		CommissionAmount: row.CommissionAmount,
		Status:           row.Status,
		Source:           row.Source,
		CreatedAt:        row.CreatedAt,
	}
}

func displayName(name *string) string {
	if name == nil || *name == "" {
		return "(product unavailable)"
	}
	return *name
}
