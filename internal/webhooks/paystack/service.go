package paystackwebhook

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/sokonihq/sokoni-backend/internal/orders"
	pkgerrors "github.com/sokonihq/sokoni-backend/pkg/errors"
	"github.com/sokonihq/sokoni-backend/pkg/logger"
)

// Event names delivered by Paystack that this service reacts to.
const (
	EventChargeSuccess = "charge.success"
)

// Event is the outer webhook envelope. Paystack posts the event name plus an
// event-specific data object.
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type chargeData struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
	Amount    int64  `json:"amount"`
}

type orderPayer interface {
	MarkPaid(ctx context.Context, input orders.MarkPaidInput) error
}

// Service routes verified Paystack events into the order lifecycle. Signature
// verification happens at the controller; by the time an event reaches
// HandleEvent it is authentic.
type Service struct {
	orders orderPayer
	logg   *logger.Logger
}

// NewService builds the webhook service with the required dependencies.
func NewService(orderService orderPayer, logg *logger.Logger) (*Service, error) {
	if orderService == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order service required")
	}
	return &Service{orders: orderService, logg: logg}, nil
}

// HandleEvent processes a single webhook delivery. Unrecognized events are
// acknowledged without action so Paystack stops retrying them.
func (s *Service) HandleEvent(ctx context.Context, event Event) error {
	switch event.Event {
	case EventChargeSuccess:
		return s.handleChargeSuccess(ctx, event.Data)
	default:
		if s.logg != nil {
			s.logg.Info(ctx, "ignoring paystack event "+event.Event)
		}
		return nil
	}
}

func (s *Service) handleChargeSuccess(ctx context.Context, raw json.RawMessage) error {
	var charge chargeData
	if err := json.Unmarshal(raw, &charge); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode charge event")
	}
	if charge.Status != "success" {
		return nil
	}

	// the checkout flow sets the gateway reference to the order id
	orderID, err := uuid.Parse(charge.Reference)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "charge reference is not an order id")
	}

	return s.orders.MarkPaid(ctx, orders.MarkPaidInput{
		OrderID:   orderID,
		Origin:    orders.PaymentOriginWebhook,
		Reference: charge.Reference,
	})
}
