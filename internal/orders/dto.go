package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/sokonihq/sokoni-backend/pkg/enums"
	"github.com/sokonihq/sokoni-backend/pkg/types"
)

// Actor identifies who is performing an order operation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// IsAdmin reports whether the actor carries the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == enums.UserRoleAdmin
}

// ListScope restricts list/count queries to the orders the actor can see.
type ListScope struct {
	Role   enums.UserRole
	UserID uuid.UUID
}

// OrderFilters describe the inputs supported by the orders list.
type OrderFilters struct {
	Status   *enums.OrderStatus
	Source   *enums.OrderSource
	DateFrom *time.Time
	DateTo   *time.Time
	Query    string
}

// OrderSummary exposes the aggregated fields returned in the list.
type OrderSummary struct {
	ID               uuid.UUID         `json:"id"`
	BuyerID          uuid.UUID         `json:"buyer_id"`
	SellerID         uuid.UUID         `json:"seller_id"`
	AffiliateID      *uuid.UUID        `json:"affiliate_id,omitempty"`
	ProductID        uuid.UUID         `json:"product_id"`
	ProductName      string            `json:"product_name"`
	ProductImage     *string           `json:"product_image,omitempty"`
	Amount           int64             `json:"amount"`
	Quantity         int               `json:"quantity"`
	CommissionAmount int64             `json:"commission_amount"`
	Status           enums.OrderStatus `json:"status"`
	Source           enums.OrderSource `json:"source"`
	CreatedAt        time.Time         `json:"created_at"`
}

// OrderList wraps the paginated orders plus the next page cursor.
type OrderList struct {
	Orders     []OrderSummary `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// OrderCounts aggregates per-status totals for the actor's scope. Delivered
// revenue sums order amounts that reached the delivered state.
type OrderCounts struct {
	Pending          int64 `json:"pending"`
	Paid             int64 `json:"paid"`
	Shipped          int64 `json:"shipped"`
	Delivered        int64 `json:"delivered"`
	Cancelled        int64 `json:"cancelled"`
	DeliveredRevenue int64 `json:"delivered_revenue"`
}

// DealSnapshot is the denormalized read used to render deal cards in chat.
type DealSnapshot struct {
	OrderID      uuid.UUID         `json:"order_id"`
	BuyerID      uuid.UUID         `json:"buyer_id"`
	SellerID     uuid.UUID         `json:"seller_id"`
	ProductID    uuid.UUID         `json:"product_id"`
	ProductName  string            `json:"product_name"`
	ProductImage *string           `json:"product_image,omitempty"`
	Amount       int64             `json:"amount"`
	Quantity     int               `json:"quantity"`
	Status       enums.OrderStatus `json:"status"`
	Source       enums.OrderSource `json:"source"`
	Notes        *string           `json:"notes,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// CreateOrderInput captures both the direct "buy now" path and the
// chat-negotiated deal path. Amount is only honored for deals; direct orders
// always price from the product.
type CreateOrderInput struct {
	Actor       Actor
	ProductID   uuid.UUID
	Quantity    int
	Source      enums.OrderSource
	Amount      *int64
	AffiliateID *uuid.UUID
	Notes       *string
}

// UpdateOrderInput edits a pending order. Nil fields are left untouched;
// AffiliateID distinguishes "absent" from an explicit null that detaches the
// affiliate.
type UpdateOrderInput struct {
	Actor       Actor
	OrderID     uuid.UUID
	Quantity    *int
	Amount      *int64
	Notes       *string
	AffiliateID types.NullableUUID
}

// PaymentOrigin distinguishes the authoritative webhook write from the
// best-effort client return hint.
type PaymentOrigin string

const (
	PaymentOriginWebhook      PaymentOrigin = "webhook"
	PaymentOriginClientReturn PaymentOrigin = "client_return"
)

// MarkPaidInput flips a pending order to paid.
type MarkPaidInput struct {
	OrderID   uuid.UUID
	Origin    PaymentOrigin
	Reference string
	Actor     *Actor
}

// ShipOrderInput marks a paid order shipped and mints the delivery code.
type ShipOrderInput struct {
	Actor   Actor
	OrderID uuid.UUID
}

// ShipOrderResult returns the plaintext delivery code exactly once.
type ShipOrderResult struct {
	OrderID   uuid.UUID `json:"order_id"`
	Code      string    `json:"delivery_code"`
	ExpiresAt time.Time `json:"delivery_code_expires_at"`
}

// ConfirmDeliveryInput confirms receipt with the relayed delivery code.
type ConfirmDeliveryInput struct {
	Actor   Actor
	OrderID uuid.UUID
	Code    string
}

// CancelOrderInput is the support-only cancellation path.
type CancelOrderInput struct {
	Actor   Actor
	OrderID uuid.UUID
	Reason  *string
}

// OrderLifecycleEvent is the payload emitted on order state changes.
type OrderLifecycleEvent struct {
	OrderID          uuid.UUID         `json:"order_id"`
	BuyerID          uuid.UUID         `json:"buyer_id"`
	SellerID         uuid.UUID         `json:"seller_id"`
	AffiliateID      *uuid.UUID        `json:"affiliate_id,omitempty"`
	ProductID        uuid.UUID         `json:"product_id"`
	Amount           int64             `json:"amount"`
	Quantity         int               `json:"quantity"`
	CommissionAmount int64             `json:"commission_amount"`
	Status           enums.OrderStatus `json:"status"`
	Source           enums.OrderSource `json:"source"`
}

// NotificationEvent fans out to the realtime channel consumers. DeliveryCode
// is only set on the buyer-addressed ship notification; this envelope is the
// single place the plaintext code leaves the service besides the ship
// response itself.
type NotificationEvent struct {
	RecipientID  uuid.UUID `json:"recipient_id"`
	Kind         string    `json:"kind"`
	OrderID      uuid.UUID `json:"order_id"`
	DeliveryCode string    `json:"delivery_code,omitempty"`
}
