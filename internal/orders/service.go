package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sokonihq/sokoni-backend/internal/products"
	"github.com/sokonihq/sokoni-backend/internal/settlement"
	"github.com/sokonihq/sokoni-backend/pkg/config"
	"github.com/sokonihq/sokoni-backend/pkg/db/models"
	"github.com/sokonihq/sokoni-backend/pkg/enums"
	pkgerrors "github.com/sokonihq/sokoni-backend/pkg/errors"
	"github.com/sokonihq/sokoni-backend/pkg/logger"
	"github.com/sokonihq/sokoni-backend/pkg/outbox"
	"github.com/sokonihq/sokoni-backend/pkg/pagination"
	"github.com/sokonihq/sokoni-backend/pkg/security"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type deliveryLimiter interface {
	AllowDeliveryAttempt(ctx context.Context, orderID string, limit int64, window time.Duration) (bool, int64, error)
	ClearDeliveryAttempts(ctx context.Context, orderID string) error
}

// Notification kinds carried on notification_requested events.
const (
	notifyOrderCreated   = "order_created"
	notifyOrderPaid      = "order_paid"
	notifyOrderShipped   = "order_shipped"
	notifyOrderDelivered = "order_delivered"
	notifyOrderCancelled = "order_cancelled"
)

// Service defines the order lifecycle operations.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	UpdateOrder(ctx context.Context, input UpdateOrderInput) (*models.Order, error)
	GetOrder(ctx context.Context, actor Actor, orderID uuid.UUID) (*models.Order, error)
	Snapshot(ctx context.Context, actor Actor, orderID uuid.UUID) (*DealSnapshot, error)
	ListOrders(ctx context.Context, actor Actor, params pagination.Params, filters OrderFilters) (*OrderList, error)
	Counts(ctx context.Context, actor Actor) (*OrderCounts, error)
	MarkPaid(ctx context.Context, input MarkPaidInput) error
	ShipOrder(ctx context.Context, input ShipOrderInput) (*ShipOrderResult, error)
	ConfirmDelivery(ctx context.Context, input ConfirmDeliveryInput) (*models.Order, error)
	CancelOrder(ctx context.Context, input CancelOrderInput) error
}

type service struct {
	repo     Repository
	products products.Repository
	tx       txRunner
	outbox   outboxPublisher
	settler  settlement.Service
	limiter  deliveryLimiter
	codeCfg  config.DeliveryCodeConfig
	logg     *logger.Logger
}

// NewService builds the order service with the required dependencies.
func NewService(
	repo Repository,
	productRepo products.Repository,
	tx txRunner,
	publisher outboxPublisher,
	settler settlement.Service,
	limiter deliveryLimiter,
	codeCfg config.DeliveryCodeConfig,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if productRepo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if settler == nil {
		return nil, fmt.Errorf("settlement service required")
	}
	if limiter == nil {
		return nil, fmt.Errorf("delivery attempt limiter required")
	}
	return &service{
		repo:     repo,
		products: productRepo,
		tx:       tx,
		outbox:   publisher,
		settler:  settler,
		limiter:  limiter,
		codeCfg:  codeCfg,
		logg:     logg,
	}, nil
}

func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	if !input.Source.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "source must be direct or deal")
	}

	product, err := s.products.FindByID(ctx, input.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if product.SellerID == input.Actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot order your own product")
	}

	var amount int64
	switch input.Source {
	case enums.OrderSourceDirect:
		// direct orders always price from the product, any client-sent amount
		// is ignored
		amount = product.Price * int64(input.Quantity)
	case enums.OrderSourceDeal:
		if input.Amount == nil || *input.Amount <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "deal orders require a negotiated amount")
		}
		amount = *input.Amount
	}

	affiliateID := input.AffiliateID
	if affiliateID != nil && *affiliateID == uuid.Nil {
		affiliateID = nil
	}
	if affiliateID != nil {
		if *affiliateID == input.Actor.UserID || *affiliateID == product.SellerID {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "affiliate cannot be a party to the order")
		}
	}

	// the platform fee applies to every order; an attached affiliate only
	// changes who the commission is paid out to at settlement
	commission := commissionFor(amount, product.DefaultCommissionRate)

	order := &models.Order{
		ID:               uuid.New(),
		BuyerID:          input.Actor.UserID,
		SellerID:         product.SellerID,
		AffiliateID:      affiliateID,
		ProductID:        product.ID,
		Amount:           amount,
		Quantity:         input.Quantity,
		CommissionAmount: commission,
		Status:           enums.OrderStatusPending,
		Source:           input.Source,
		Notes:            input.Notes,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		if err := s.emitLifecycle(ctx, tx, enums.EventOrderCreated, order, &input.Actor); err != nil {
			return err
		}
		return s.emitNotification(ctx, tx, order.SellerID, notifyOrderCreated, order.ID, "")
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) UpdateOrder(ctx context.Context, input UpdateOrderInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.Quantity != nil && *input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	if input.Amount != nil && *input.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.Find(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.BuyerID != input.Actor.UserID && order.SellerID != input.Actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the buyer or seller can edit an order")
		}
		if order.Status != enums.OrderStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only pending orders can be edited")
		}

		quantity := order.Quantity
		if input.Quantity != nil {
			quantity = *input.Quantity
		}
		amount := order.Amount
		if input.Amount != nil {
			if order.Source != enums.OrderSourceDeal {
				return pkgerrors.New(pkgerrors.CodeValidation, "amount can only be edited on deal orders")
			}
			amount = *input.Amount
		}

		affiliateID := order.AffiliateID
		if input.AffiliateID.Valid {
			affiliateID = input.AffiliateID.Value
		}
		if affiliateID != nil {
			if *affiliateID == order.BuyerID || *affiliateID == order.SellerID {
				return pkgerrors.New(pkgerrors.CodeValidation, "affiliate cannot be a party to the order")
			}
		}

		product, perr := s.products.WithTx(tx).FindByID(ctx, order.ProductID)
		if perr != nil && !errors.Is(perr, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, perr, "load product")
		}

		if input.Quantity != nil && order.Source == enums.OrderSourceDirect {
			if product == nil {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "product no longer available")
			}
			amount = product.Price * int64(quantity)
		}

		commission := int64(0)
		if product != nil {
			commission = commissionFor(amount, product.DefaultCommissionRate)
		}

		updates := map[string]any{
			"quantity":          quantity,
			"amount":            amount,
			"commission_amount": commission,
			"affiliate_id":      affiliateID,
		}
		if input.Notes != nil {
			updates["notes"] = input.Notes
		}
		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}

		order.Quantity = quantity
		order.Amount = amount
		order.CommissionAmount = commission
		order.AffiliateID = affiliateID
		if input.Notes != nil {
			order.Notes = input.Notes
		}
		updated = order

		return s.emitLifecycle(ctx, tx, enums.EventOrderUpdated, order, &input.Actor)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) GetOrder(ctx context.Context, actor Actor, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.Find(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if !isParty(order, actor) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
	}
	return order, nil
}

func (s *service) Snapshot(ctx context.Context, actor Actor, orderID uuid.UUID) (*DealSnapshot, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	snapshot, err := s.repo.FindSnapshot(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order snapshot")
	}
	if snapshot.BuyerID != actor.UserID && snapshot.SellerID != actor.UserID && !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
	}
	return snapshot, nil
}

func (s *service) ListOrders(ctx context.Context, actor Actor, params pagination.Params, filters OrderFilters) (*OrderList, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !actor.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "unknown role")
	}
	list, err := s.repo.List(ctx, ListScope{Role: actor.Role, UserID: actor.UserID}, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return list, nil
}

func (s *service) Counts(ctx context.Context, actor Actor) (*OrderCounts, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !actor.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "unknown role")
	}
	counts, err := s.repo.Counts(ctx, ListScope{Role: actor.Role, UserID: actor.UserID})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count orders")
	}
	return counts, nil
}

// MarkPaid flips pending to paid. The gateway webhook and the client return
// race each other here; the conditional claim means the second writer becomes
// a no-op instead of an error, so both paths are safe to retry.
func (s *service) MarkPaid(ctx context.Context, input MarkPaidInput) error {
	if input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if input.Origin == PaymentOriginClientReturn {
			order, err := repo.Find(ctx, input.OrderID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
			}
			if input.Actor == nil || order.BuyerID != input.Actor.UserID {
				return pkgerrors.New(pkgerrors.CodeForbidden, "only the buyer can report payment")
			}
		}

		won, err := repo.TransitionStatus(ctx, input.OrderID, enums.OrderStatusPending, enums.OrderStatusPaid, nil)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order paid")
		}
		if !won {
			order, err := repo.Find(ctx, input.OrderID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
			}
			switch order.Status {
			case enums.OrderStatusPaid, enums.OrderStatusShipped, enums.OrderStatusDelivered:
				// already paid through the other path
				return nil
			case enums.OrderStatusCancelled:
				return pkgerrors.New(pkgerrors.CodeStateConflict, "order was cancelled")
			default:
				return pkgerrors.New(pkgerrors.CodeDependency, "payment claim lost, retry")
			}
		}

		order, err := repo.Find(ctx, input.OrderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		if err := s.emitLifecycle(ctx, tx, enums.EventOrderPaid, order, input.Actor); err != nil {
			return err
		}
		if err := s.emitNotification(ctx, tx, order.SellerID, notifyOrderPaid, order.ID, ""); err != nil {
			return err
		}
		return s.emitNotification(ctx, tx, order.BuyerID, notifyOrderPaid, order.ID, "")
	})
}

func (s *service) ShipOrder(ctx context.Context, input ShipOrderInput) (*ShipOrderResult, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	code, err := security.GenerateDeliveryCode()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate delivery code")
	}
	hash, err := security.HashDeliveryCode(code, s.codeCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash delivery code")
	}
	expiresAt := time.Now().UTC().Add(s.codeCfg.TTL)

	var result *ShipOrderResult
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.Find(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.SellerID != input.Actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the seller can ship an order")
		}

		won, err := repo.TransitionStatus(ctx, order.ID, enums.OrderStatusPaid, enums.OrderStatusShipped, map[string]any{
			"delivery_code_hash":       hash,
			"delivery_code_expires_at": expiresAt,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order shipped")
		}
		if !won {
			if order.Status == enums.OrderStatusPending {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "order has not been paid")
			}
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order cannot be shipped in current state")
		}

		order.Status = enums.OrderStatusShipped
		order.DeliveryCodeHash = &hash
		order.DeliveryCodeExpiresAt = &expiresAt
		if err := s.emitLifecycle(ctx, tx, enums.EventOrderShipped, order, &input.Actor); err != nil {
			return err
		}
		// the only channel besides this response that carries the plaintext
		// code: the buyer notification
		if err := s.emitNotification(ctx, tx, order.BuyerID, notifyOrderShipped, order.ID, code); err != nil {
			return err
		}

		result = &ShipOrderResult{OrderID: order.ID, Code: code, ExpiresAt: expiresAt}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) ConfirmDelivery(ctx context.Context, input ConfirmDeliveryInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.Code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery code required")
	}

	// every attempt counts against the window, including ones that fail the
	// status checks below, so a guessing loop cannot probe for free
	allowed, _, err := s.limiter.AllowDeliveryAttempt(ctx, input.OrderID.String(), s.codeCfg.AttemptLimit, s.codeCfg.AttemptWindow)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check delivery attempts")
	}
	if !allowed {
		return nil, pkgerrors.New(pkgerrors.CodeRateLimit, "too many delivery attempts, try again later")
	}

	order, err := s.repo.Find(ctx, input.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if !isParty(order, input.Actor) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
	}
	if order.Status != enums.OrderStatusShipped {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not awaiting delivery")
	}
	if order.DeliveryCodeHash == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order has no delivery code")
	}
	if order.DeliveryCodeExpiresAt != nil && time.Now().After(*order.DeliveryCodeExpiresAt) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery code expired")
	}

	match, err := security.VerifyDeliveryCode(input.Code, *order.DeliveryCodeHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify delivery code")
	}
	if !match {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid delivery code")
	}

	deliveredAt := time.Now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		won, err := repo.TransitionStatus(ctx, order.ID, enums.OrderStatusShipped, enums.OrderStatusDelivered, map[string]any{
			"delivered_at":             deliveredAt,
			"delivery_code_hash":       nil,
			"delivery_code_expires_at": nil,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order delivered")
		}
		if !won {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order already confirmed")
		}

		order.Status = enums.OrderStatusDelivered
		order.DeliveredAt = &deliveredAt
		order.DeliveryCodeHash = nil
		order.DeliveryCodeExpiresAt = nil

		if _, err := s.settler.Settle(ctx, tx, order); err != nil {
			return err
		}

		if err := s.emitLifecycle(ctx, tx, enums.EventOrderDelivered, order, &input.Actor); err != nil {
			return err
		}
		if err := s.emitNotification(ctx, tx, order.SellerID, notifyOrderDelivered, order.ID, ""); err != nil {
			return err
		}
		return s.emitNotification(ctx, tx, order.BuyerID, notifyOrderDelivered, order.ID, "")
	})
	if err != nil {
		return nil, err
	}

	if cerr := s.limiter.ClearDeliveryAttempts(ctx, order.ID.String()); cerr != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithOrderID(ctx, order.ID.String()), "clear delivery attempts failed")
	}
	return order, nil
}

func (s *service) CancelOrder(ctx context.Context, input CancelOrderInput) error {
	if input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Actor.IsAdmin() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only support can cancel orders")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		updates := map[string]any{}
		if input.Reason != nil {
			updates["notes"] = input.Reason
		}
		won, err := repo.TransitionStatus(ctx, input.OrderID, enums.OrderStatusPending, enums.OrderStatusCancelled, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
		}
		if !won {
			order, err := repo.Find(ctx, input.OrderID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
			}
			if order.Status == enums.OrderStatusCancelled {
				return nil
			}
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only pending orders can be cancelled")
		}

		order, err := repo.Find(ctx, input.OrderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		if err := s.emitLifecycle(ctx, tx, enums.EventOrderCancelled, order, &input.Actor); err != nil {
			return err
		}
		if err := s.emitNotification(ctx, tx, order.BuyerID, notifyOrderCancelled, order.ID, ""); err != nil {
			return err
		}
		return s.emitNotification(ctx, tx, order.SellerID, notifyOrderCancelled, order.ID, "")
	})
}

func (s *service) emitLifecycle(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, order *models.Order, actor *Actor) error {
	event := outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Version:       1,
		Actor:         buildActor(actor),
		Data: OrderLifecycleEvent{
			OrderID:          order.ID,
			BuyerID:          order.BuyerID,
			SellerID:         order.SellerID,
			AffiliateID:      order.AffiliateID,
			ProductID:        order.ProductID,
			Amount:           order.Amount,
			Quantity:         order.Quantity,
			CommissionAmount: order.CommissionAmount,
			Status:           order.Status,
			Source:           order.Source,
		},
	}
	return s.outbox.Emit(ctx, tx, event)
}

func (s *service) emitNotification(ctx context.Context, tx *gorm.DB, recipient uuid.UUID, kind string, orderID uuid.UUID, code string) error {
	event := outbox.DomainEvent{
		EventType:     enums.EventNotificationRequested,
		AggregateType: enums.AggregateNotification,
		AggregateID:   orderID,
		Version:       1,
		Data: NotificationEvent{
			RecipientID:  recipient,
			Kind:         kind,
			OrderID:      orderID,
			DeliveryCode: code,
		},
	}
	return s.outbox.Emit(ctx, tx, event)
}

func isParty(order *models.Order, actor Actor) bool {
	if actor.IsAdmin() {
		return true
	}
	if order.BuyerID == actor.UserID || order.SellerID == actor.UserID {
		return true
	}
	return order.AffiliateID != nil && *order.AffiliateID == actor.UserID
}

func buildActor(actor *Actor) *outbox.ActorRef {
	if actor == nil {
		return nil
	}
	return &outbox.ActorRef{
		UserID: actor.UserID,
		Role:   actor.Role.String(),
	}
}
