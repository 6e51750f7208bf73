package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sokonihq/sokoni-backend/internal/products"
	"github.com/sokonihq/sokoni-backend/internal/wallets"
	"github.com/sokonihq/sokoni-backend/pkg/db/models"
	"github.com/sokonihq/sokoni-backend/pkg/enums"
	pkgerrors "github.com/sokonihq/sokoni-backend/pkg/errors"
	"github.com/sokonihq/sokoni-backend/pkg/logger"
	"github.com/sokonihq/sokoni-backend/pkg/metrics"
	"github.com/sokonihq/sokoni-backend/pkg/outbox"
)

const missingProductName = "(product unavailable)"

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Result reports what the settlement wrote.
type Result struct {
	SellerCredited    int64
	AffiliateCredited int64
	CommissionPaid    bool
}

// CompletedEvent is emitted on the outbox once all ledger rows are written.
type CompletedEvent struct {
	OrderID           uuid.UUID  `json:"order_id"`
	SellerID          uuid.UUID  `json:"seller_id"`
	BuyerID           uuid.UUID  `json:"buyer_id"`
	AffiliateID       *uuid.UUID `json:"affiliate_id,omitempty"`
	Amount            int64      `json:"amount"`
	SellerCredited    int64      `json:"seller_credited"`
	AffiliateCredited int64      `json:"affiliate_credited"`
}

// Service settles a delivered order: wallet credits plus the immutable
// transaction rows, all on the caller's transaction. The caller owns the
// delivery claim; by the time Settle runs the order row is already flipped to
// delivered inside tx, so any error here rolls the whole confirmation back.
type Service interface {
	Settle(ctx context.Context, tx *gorm.DB, order *models.Order) (*Result, error)
}

type service struct {
	wallets  wallets.Repository
	products products.Repository
	outbox   outboxPublisher
	metrics  *metrics.SettlementMetrics
	logg     *logger.Logger
}

// NewService builds the settlement engine with the required dependencies.
func NewService(walletRepo wallets.Repository, productRepo products.Repository, publisher outboxPublisher, m *metrics.SettlementMetrics, logg *logger.Logger) (Service, error) {
	if walletRepo == nil {
		return nil, fmt.Errorf("wallets repository required")
	}
	if productRepo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		wallets:  walletRepo,
		products: productRepo,
		outbox:   publisher,
		metrics:  m,
		logg:     logg,
	}, nil
}

func (s *service) Settle(ctx context.Context, tx *gorm.DB, order *models.Order) (*Result, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction required for settlement")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order required for settlement")
	}

	started := time.Now()
	result, err := s.settle(ctx, tx, order)
	if err != nil {
		s.metrics.ObserveDuration("failure", time.Since(started))
		return nil, err
	}
	s.metrics.ObserveDuration("success", time.Since(started))
	s.metrics.IncSuccess(result.CommissionPaid)
	return result, nil
}

func (s *service) settle(ctx context.Context, tx *gorm.DB, order *models.Order) (*Result, error) {
	wrepo := s.wallets.WithTx(tx)
	prepo := s.products.WithTx(tx)

	name, image, rate := s.productDisplay(ctx, prepo, order)
	unitPrice := order.Amount
	if order.Quantity > 0 {
		unitPrice = order.Amount / int64(order.Quantity)
	}

	net := order.NetSellerAmount()
	sellerBalance, err := wrepo.CreditBalance(ctx, order.SellerID, net)
	if err != nil {
		return nil, s.stepError("seller_credit", err)
	}

	saleRow := models.WalletTransaction{
		ID:           uuid.New(),
		UserID:       order.SellerID,
		OrderID:      order.ID,
		Kind:         enums.TransactionKindSale,
		Amount:       net,
		BalanceAfter: sellerBalance,
		ProductName:  name,
		ProductImage: image,
		Quantity:     order.Quantity,
		UnitPrice:    unitPrice,
	}
	if err := wrepo.CreateTransaction(ctx, &saleRow); err != nil {
		return nil, s.stepError("sale_record", err)
	}

	// the buyer paid through the gateway, so the purchase row is a receipt:
	// no wallet movement, balance snapshot only
	buyerBalance, err := wrepo.GetBalance(ctx, order.BuyerID)
	if err != nil {
		return nil, s.stepError("buyer_receipt", err)
	}
	purchaseRow := models.WalletTransaction{
		ID:           uuid.New(),
		UserID:       order.BuyerID,
		OrderID:      order.ID,
		Kind:         enums.TransactionKindPurchase,
		Amount:       order.Amount,
		BalanceAfter: buyerBalance,
		ProductName:  name,
		ProductImage: image,
		Quantity:     order.Quantity,
		UnitPrice:    unitPrice,
	}
	if err := wrepo.CreateTransaction(ctx, &purchaseRow); err != nil {
		return nil, s.stepError("purchase_record", err)
	}

	result := &Result{SellerCredited: net}

	if order.HasAffiliate() && order.CommissionAmount > 0 {
		affiliateBalance, err := wrepo.CreditBalance(ctx, *order.AffiliateID, order.CommissionAmount)
		if err != nil {
			return nil, s.stepError("affiliate_credit", err)
		}

		commissionRate := rate
		totalSale := order.Amount
		commissionRow := models.WalletTransaction{
			ID:             uuid.New(),
			UserID:         *order.AffiliateID,
			OrderID:        order.ID,
			Kind:           enums.TransactionKindCommission,
			Amount:         order.CommissionAmount,
			BalanceAfter:   affiliateBalance,
			ProductName:    name,
			ProductImage:   image,
			Quantity:       order.Quantity,
			UnitPrice:      unitPrice,
			CommissionRate: &commissionRate,
			TotalSale:      &totalSale,
		}
		if err := wrepo.CreateTransaction(ctx, &commissionRow); err != nil {
			return nil, s.stepError("commission_record", err)
		}

		result.AffiliateCredited = order.CommissionAmount
		result.CommissionPaid = true
	}

	event := outbox.DomainEvent{
		EventType:     enums.EventSettlementCompleted,
		AggregateType: enums.AggregateWallet,
		AggregateID:   order.ID,
		Version:       1,
		Data: CompletedEvent{
			OrderID:           order.ID,
			SellerID:          order.SellerID,
			BuyerID:           order.BuyerID,
			AffiliateID:       order.AffiliateID,
			Amount:            order.Amount,
			SellerCredited:    result.SellerCredited,
			AffiliateCredited: result.AffiliateCredited,
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return nil, s.stepError("outbox_emit", err)
	}

	return result, nil
}

// productDisplay resolves display metadata for the ledger rows. Products can
// be deleted between ship and delivery, so a missing row degrades to a
// placeholder and a rate derived from the stored commission.
func (s *service) productDisplay(ctx context.Context, prepo products.Repository, order *models.Order) (string, *string, decimal.Decimal) {
	product, err := prepo.FindByID(ctx, order.ProductID)
	if err == nil {
		return product.Name, product.ImageURL, product.DefaultCommissionRate
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) && s.logg != nil {
		s.logg.Warn(s.logg.WithOrderID(ctx, order.ID.String()), "settlement product lookup failed")
	}

	rate := decimal.Zero
	if order.Amount > 0 && order.CommissionAmount > 0 {
		rate = decimal.NewFromInt(order.CommissionAmount).
			Mul(decimal.NewFromInt(100)).
			DivRound(decimal.NewFromInt(order.Amount), 2)
	}
	return missingProductName, nil, rate
}

func (s *service) stepError(step string, err error) error {
	s.metrics.IncFailure(step)
	return pkgerrors.Wrap(pkgerrors.CodePartialSettlement, err, "settlement step failed").
		WithDetails(map[string]any{"step": step})
}
