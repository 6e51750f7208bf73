package paystack

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sokonihq/sokoni-backend/pkg/config"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client, err := NewClient(context.Background(), config.PaystackConfig{
		SecretKey: "sk_test_abc123",
		BaseURL:   baseURL,
	}, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestNewClientRequiresSecretKey(t *testing.T) {
	if _, err := NewClient(context.Background(), config.PaystackConfig{}, nil); err == nil {
		t.Fatal("expected missing secret key error")
	}
	if _, err := NewClient(context.Background(), config.PaystackConfig{SecretKey: "pk_test_x"}, nil); err == nil {
		t.Fatal("expected malformed secret key error")
	}
}

func TestInitialize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transaction/initialize" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk_test_abc123" {
			t.Fatalf("unexpected authorization header %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":true,"message":"Authorization URL created","data":{"authorization_url":"https://checkout.paystack.com/abc","access_code":"abc","reference":"ord-1"}}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	resp, err := client.Initialize(context.Background(), InitializeRequest{
		Reference: "ord-1",
		Amount:    50000,
		Email:     "buyer@example.com",
	})
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if resp.AuthorizationURL != "https://checkout.paystack.com/abc" {
		t.Fatalf("unexpected authorization url %q", resp.AuthorizationURL)
	}
	if resp.Reference != "ord-1" {
		t.Fatalf("unexpected reference %q", resp.Reference)
	}
}

func TestInitializeRejectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":false,"message":"Invalid amount"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Initialize(context.Background(), InitializeRequest{
		Reference: "ord-1",
		Amount:    100,
		Email:     "buyer@example.com",
	})
	if err == nil {
		t.Fatal("expected rejection error")
	}
}

func TestInitializeValidatesInput(t *testing.T) {
	client := newTestClient(t, "http://localhost:0")
	if _, err := client.Initialize(context.Background(), InitializeRequest{Amount: 10, Email: "a@b.c"}); err == nil {
		t.Fatal("expected missing reference error")
	}
	if _, err := client.Initialize(context.Background(), InitializeRequest{Reference: "r", Email: "a@b.c"}); err == nil {
		t.Fatal("expected non-positive amount error")
	}
	if _, err := client.Initialize(context.Background(), InitializeRequest{Reference: "r", Amount: 10}); err == nil {
		t.Fatal("expected missing email error")
	}
}

func TestVerifySignature(t *testing.T) {
	client := newTestClient(t, "http://localhost:0")
	body := []byte(`{"event":"charge.success"}`)

	mac := hmac.New(sha512.New, []byte("sk_test_abc123"))
	mac.Write(body)
	signature := hex.EncodeToString(mac.Sum(nil))

	if !client.VerifySignature(body, signature) {
		t.Fatal("expected valid signature to verify")
	}
	if client.VerifySignature(body, "deadbeef") {
		t.Fatal("expected bogus signature to fail")
	}
	if client.VerifySignature(append(body, ' '), signature) {
		t.Fatal("expected tampered body to fail")
	}
	if client.VerifySignature(body, "") {
		t.Fatal("expected empty signature to fail")
	}
}
