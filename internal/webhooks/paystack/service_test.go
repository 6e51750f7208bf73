package paystackwebhook

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sokonihq/sokoni-backend/internal/orders"
	pkgerrors "github.com/sokonihq/sokoni-backend/pkg/errors"
)

type stubOrderPayer struct {
	inputs []orders.MarkPaidInput
	err    error
}

func (s *stubOrderPayer) MarkPaid(ctx context.Context, input orders.MarkPaidInput) error {
	s.inputs = append(s.inputs, input)
	return s.err
}

func chargeEvent(t *testing.T, reference, status string) Event {
	t.Helper()
	data, err := json.Marshal(map[string]any{
		"reference": reference,
		"status":    status,
		"amount":    25000,
	})
	if err != nil {
		t.Fatalf("marshal charge data: %v", err)
	}
	return Event{Event: EventChargeSuccess, Data: data}
}

func TestHandleChargeSuccessMarksOrderPaid(t *testing.T) {
	payer := &stubOrderPayer{}
	svc, err := NewService(payer, nil)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}

	orderID := uuid.New()
	if err := svc.HandleEvent(context.Background(), chargeEvent(t, orderID.String(), "success")); err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}

	if len(payer.inputs) != 1 {
		t.Fatalf("expected 1 MarkPaid call, got %d", len(payer.inputs))
	}
	input := payer.inputs[0]
	if input.OrderID != orderID {
		t.Fatalf("expected order id %s, got %s", orderID, input.OrderID)
	}
	if input.Origin != orders.PaymentOriginWebhook {
		t.Fatalf("expected webhook origin, got %s", input.Origin)
	}
}

func TestHandleChargeWithNonSuccessStatusIsIgnored(t *testing.T) {
	payer := &stubOrderPayer{}
	svc, _ := NewService(payer, nil)

	if err := svc.HandleEvent(context.Background(), chargeEvent(t, uuid.NewString(), "failed")); err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}
	if len(payer.inputs) != 0 {
		t.Fatalf("failed charges must not mark orders paid, got %d calls", len(payer.inputs))
	}
}

func TestHandleUnknownEventIsAcknowledged(t *testing.T) {
	payer := &stubOrderPayer{}
	svc, _ := NewService(payer, nil)

	err := svc.HandleEvent(context.Background(), Event{Event: "transfer.success", Data: json.RawMessage(`{}`)})
	if err != nil {
		t.Fatalf("unknown events should be acknowledged, got %v", err)
	}
	if len(payer.inputs) != 0 {
		t.Fatalf("unknown events must not touch orders, got %d calls", len(payer.inputs))
	}
}

func TestHandleChargeWithBadReference(t *testing.T) {
	payer := &stubOrderPayer{}
	svc, _ := NewService(payer, nil)

	err := svc.HandleEvent(context.Background(), chargeEvent(t, "not-a-uuid", "success"))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
	if len(payer.inputs) != 0 {
		t.Fatalf("bad references must not reach the order service, got %d calls", len(payer.inputs))
	}
}

type stubIdempotencyStore struct {
	keys map[string]bool
}

func (s *stubIdempotencyStore) Get(ctx context.Context, key string) (string, error) {
	if s.keys[key] {
		return "1", nil
	}
	return "", nil
}

func (s *stubIdempotencyStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if s.keys == nil {
		s.keys = make(map[string]bool)
	}
	if s.keys[key] {
		return false, nil
	}
	s.keys[key] = true
	return true, nil
}

func (s *stubIdempotencyStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.keys, key)
	}
	return nil
}

func (s *stubIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "sk:idempotency:" + scope + ":" + id
}

func TestIdempotencyGuardDeduplicates(t *testing.T) {
	store := &stubIdempotencyStore{}
	guard, err := NewIdempotencyGuard(store, time.Hour, "paystack:webhook")
	if err != nil {
		t.Fatalf("NewIdempotencyGuard() error = %v", err)
	}

	reference := uuid.NewString()
	seen, err := guard.CheckAndMark(context.Background(), EventChargeSuccess, reference)
	if err != nil || seen {
		t.Fatalf("first delivery should be new, seen=%v err=%v", seen, err)
	}

	seen, err = guard.CheckAndMark(context.Background(), EventChargeSuccess, reference)
	if err != nil || !seen {
		t.Fatalf("second delivery should be deduplicated, seen=%v err=%v", seen, err)
	}

	if err := guard.Release(context.Background(), EventChargeSuccess, reference); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	seen, err = guard.CheckAndMark(context.Background(), EventChargeSuccess, reference)
	if err != nil || seen {
		t.Fatalf("released delivery should be retryable, seen=%v err=%v", seen, err)
	}
}
