package paystackwebhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sokonihq/sokoni-backend/pkg/redis"
)

// IdempotencyGuard deduplicates webhook deliveries. Paystack retries events
// aggressively and does not carry a stable event id, so the dedupe key is the
// event name plus the charge reference.
type IdempotencyGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	scope string
}

func NewIdempotencyGuard(store redis.IdempotencyStore, ttl time.Duration, scope string) (*IdempotencyGuard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	if scope == "" {
		return nil, errors.New("scope is required")
	}
	return &IdempotencyGuard{
		store: store,
		ttl:   ttl,
		scope: scope,
	}, nil
}

// CheckAndMark reports whether this delivery was already seen, marking it as
// seen otherwise.
func (g *IdempotencyGuard) CheckAndMark(ctx context.Context, eventName, reference string) (bool, error) {
	if eventName == "" || reference == "" {
		return false, errors.New("event name and reference are required")
	}
	key := g.store.IdempotencyKey(g.scope, eventName+":"+reference)
	set, err := g.store.SetNX(ctx, key, "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("set idempotency key: %w", err)
	}
	return !set, nil
}

// Release removes the mark so a failed delivery can be retried.
func (g *IdempotencyGuard) Release(ctx context.Context, eventName, reference string) error {
	if eventName == "" || reference == "" {
		return errors.New("event name and reference are required")
	}
	key := g.store.IdempotencyKey(g.scope, eventName+":"+reference)
	return g.store.Del(ctx, key)
}
