package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sokonihq/sokoni-backend/internal/orders"
	"github.com/sokonihq/sokoni-backend/internal/wallets"
	"github.com/sokonihq/sokoni-backend/pkg/enums"
	pkgerrors "github.com/sokonihq/sokoni-backend/pkg/errors"
	"github.com/sokonihq/sokoni-backend/pkg/paystack"
)

type gateway interface {
	Initialize(ctx context.Context, req paystack.InitializeRequest) (*paystack.InitializeResponse, error)
}

// CheckoutSession is the hosted payment handle returned to the client.
type CheckoutSession struct {
	OrderID     uuid.UUID `json:"order_id"`
	CheckoutURL string    `json:"checkout_url"`
	AccessCode  string    `json:"access_code"`
	Reference   string    `json:"reference"`
}

// Service creates hosted checkout sessions for pending orders.
type Service interface {
	Checkout(ctx context.Context, actor orders.Actor, orderID uuid.UUID) (*CheckoutSession, error)
}

type service struct {
	orders   orders.Repository
	profiles wallets.Repository
	gateway  gateway
}

// NewService builds the payments service with the required dependencies.
func NewService(orderRepo orders.Repository, profileRepo wallets.Repository, gw gateway) (Service, error) {
	if orderRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if profileRepo == nil {
		return nil, fmt.Errorf("profiles repository required")
	}
	if gw == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	return &service{orders: orderRepo, profiles: profileRepo, gateway: gw}, nil
}

// Checkout initializes a gateway session for a pending order. The order id is
// used as the gateway reference so the webhook can route the confirmation
// back without extra state.
func (s *service) Checkout(ctx context.Context, actor orders.Actor, orderID uuid.UUID) (*CheckoutSession, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	order, err := s.orders.Find(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.BuyerID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the buyer can pay for an order")
	}
	if order.Status != enums.OrderStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not awaiting payment")
	}

	buyer, err := s.profiles.FindProfile(ctx, order.BuyerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "buyer profile not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load buyer profile")
	}

	session, err := s.gateway.Initialize(ctx, paystack.InitializeRequest{
		Reference: order.ID.String(),
		Amount:    order.Amount,
		Email:     buyer.Email,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "initialize checkout session")
	}

	return &CheckoutSession{
		OrderID:     order.ID,
		CheckoutURL: session.AuthorizationURL,
		AccessCode:  session.AccessCode,
		Reference:   session.Reference,
	}, nil
}
