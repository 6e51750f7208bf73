package webhooks

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	paystackwebhook "github.com/sokonihq/sokoni-backend/internal/webhooks/paystack"
)

type stubWebhookService struct {
	handle func(ctx context.Context, event paystackwebhook.Event) error
	calls  int
}

func (s *stubWebhookService) HandleEvent(ctx context.Context, event paystackwebhook.Event) error {
	s.calls++
	if s.handle != nil {
		return s.handle(ctx, event)
	}
	return nil
}

type stubGuard struct {
	seen     map[string]bool
	released []string
}

func newStubGuard() *stubGuard {
	return &stubGuard{seen: make(map[string]bool)}
}

func (g *stubGuard) CheckAndMark(_ context.Context, eventName, reference string) (bool, error) {
	key := eventName + ":" + reference
	if g.seen[key] {
		return true, nil
	}
	g.seen[key] = true
	return false, nil
}

func (g *stubGuard) Release(_ context.Context, eventName, reference string) error {
	key := eventName + ":" + reference
	delete(g.seen, key)
	g.released = append(g.released, key)
	return nil
}

type stubVerifier struct {
	valid bool
}

func (v *stubVerifier) VerifySignature(_ []byte, _ string) bool {
	return v.valid
}

const chargeSuccessBody = `{"event":"charge.success","data":{"reference":"ref-1","status":"success","amount":25000}}`

func webhookRequest(body string, signed bool) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/paystack", strings.NewReader(body))
	if signed {
		req.Header.Set("x-paystack-signature", "sig")
	}
	return req
}

func TestPaystackWebhookProcessesEvent(t *testing.T) {
	svc := &stubWebhookService{
		handle: func(ctx context.Context, event paystackwebhook.Event) error {
			if event.Event != paystackwebhook.EventChargeSuccess {
				t.Fatalf("unexpected event %s", event.Event)
			}
			return nil
		},
	}
	handler := PaystackWebhook(svc, &stubVerifier{valid: true}, newStubGuard(), nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, webhookRequest(chargeSuccessBody, true))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.calls != 1 {
		t.Fatalf("expected 1 service call got %d", svc.calls)
	}
}

func TestPaystackWebhookRejectsMissingSignature(t *testing.T) {
	svc := &stubWebhookService{}
	handler := PaystackWebhook(svc, &stubVerifier{valid: true}, newStubGuard(), nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, webhookRequest(chargeSuccessBody, false))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if svc.calls != 0 {
		t.Fatalf("service should not run without signature")
	}
}

func TestPaystackWebhookRejectsBadSignature(t *testing.T) {
	svc := &stubWebhookService{}
	handler := PaystackWebhook(svc, &stubVerifier{valid: false}, newStubGuard(), nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, webhookRequest(chargeSuccessBody, true))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
	if svc.calls != 0 {
		t.Fatalf("service should not run with a bad signature")
	}
}

func TestPaystackWebhookDeduplicatesRedelivery(t *testing.T) {
	svc := &stubWebhookService{}
	guard := newStubGuard()
	handler := PaystackWebhook(svc, &stubVerifier{valid: true}, guard, nil)

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, webhookRequest(chargeSuccessBody, true))
	second := httptest.NewRecorder()
	handler.ServeHTTP(second, webhookRequest(chargeSuccessBody, true))

	if first.Code != http.StatusOK || second.Code != http.StatusOK {
		t.Fatalf("expected both deliveries acknowledged, got %d and %d", first.Code, second.Code)
	}
	if svc.calls != 1 {
		t.Fatalf("expected exactly 1 processed delivery, got %d", svc.calls)
	}
}

func TestPaystackWebhookReleasesGuardOnFailure(t *testing.T) {
	svc := &stubWebhookService{
		handle: func(ctx context.Context, event paystackwebhook.Event) error {
			return context.DeadlineExceeded
		},
	}
	guard := newStubGuard()
	handler := PaystackWebhook(svc, &stubVerifier{valid: true}, guard, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, webhookRequest(chargeSuccessBody, true))
	if resp.Code == http.StatusOK {
		t.Fatalf("expected failure status, got 200")
	}
	if len(guard.released) != 1 {
		t.Fatalf("expected guard release after failure")
	}
	if guard.seen["charge.success:ref-1"] {
		t.Fatalf("redelivery should be allowed after release")
	}
}
