package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sokonihq/sokoni-backend/pkg/config"
	"github.com/sokonihq/sokoni-backend/pkg/db/models"
	"github.com/sokonihq/sokoni-backend/pkg/enums"
	"github.com/sokonihq/sokoni-backend/pkg/logger"
	"github.com/sokonihq/sokoni-backend/pkg/metrics"
)

type fakeRepo struct {
	events    []models.OutboxEvent
	fetchErr  error
	published []uuid.UUID
	failed    map[uuid.UUID]string
}

func (r *fakeRepo) FetchUnpublished(limit int) ([]models.OutboxEvent, error) {
	if r.fetchErr != nil {
		return nil, r.fetchErr
	}
	if limit < len(r.events) {
		return r.events[:limit], nil
	}
	return r.events, nil
}

func (r *fakeRepo) MarkPublished(id uuid.UUID) error {
	r.published = append(r.published, id)
	return nil
}

func (r *fakeRepo) MarkFailed(id uuid.UUID, err error) error {
	if r.failed == nil {
		r.failed = make(map[uuid.UUID]string)
	}
	r.failed[id] = err.Error()
	return nil
}

type fakePublishResult struct {
	err error
}

func (r fakePublishResult) Get(context.Context) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return "server-id", nil
}

type fakePublisher struct {
	messages []*gcppubsub.Message
	results  []publishResult
}

func (p *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	p.messages = append(p.messages, msg)
	if len(p.results) >= len(p.messages) {
		return p.results[len(p.messages)-1]
	}
	return fakePublishResult{}
}

func orderEvent(t *testing.T, eventType enums.OutboxEventType, attempts int) models.OutboxEvent {
	t.Helper()
	payload, err := json.Marshal(map[string]string{"order_id": uuid.NewString()})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       payload,
		AttemptCount:  attempts,
	}
}

func testService(t *testing.T, repo *fakeRepo, pub *fakePublisher, m *metrics.PublisherMetrics) *Service {
	t.Helper()
	cfg := &config.Config{}
	cfg.PubSub.OrdersTopic = "orders-events"
	cfg.Outbox.BatchSize = 10
	cfg.Outbox.MaxAttempts = 3
	svc, err := NewService(ServiceParams{
		Config:     cfg,
		Logger:     logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Repository: repo,
		Publisher:  pub,
		Metrics:    m,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestTickPublishesBatchWithAttributes(t *testing.T) {
	first := orderEvent(t, enums.EventOrderPaid, 0)
	second := orderEvent(t, enums.EventSettlementCompleted, 1)
	repo := &fakeRepo{events: []models.OutboxEvent{first, second}}
	pub := &fakePublisher{}

	count, err := testService(t, repo, pub, nil).Tick(context.Background())
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 published got %d", count)
	}
	if len(pub.messages) != 2 {
		t.Fatalf("expected 2 messages got %d", len(pub.messages))
	}
	msg := pub.messages[0]
	if msg.Attributes["event_type"] != string(enums.EventOrderPaid) {
		t.Fatalf("unexpected event_type attribute %q", msg.Attributes["event_type"])
	}
	if msg.Attributes["aggregate_type"] != string(enums.AggregateOrder) {
		t.Fatalf("unexpected aggregate_type attribute %q", msg.Attributes["aggregate_type"])
	}
	if msg.Attributes["aggregate_id"] != first.AggregateID.String() {
		t.Fatalf("unexpected aggregate_id attribute %q", msg.Attributes["aggregate_id"])
	}
	if string(msg.Data) != string(first.Payload) {
		t.Fatalf("payload not carried through")
	}
	if len(repo.published) != 2 || repo.published[0] != first.ID || repo.published[1] != second.ID {
		t.Fatalf("expected both rows marked published, got %v", repo.published)
	}
}

func TestTickContinuesAfterPublishFailure(t *testing.T) {
	first := orderEvent(t, enums.EventOrderPaid, 0)
	second := orderEvent(t, enums.EventOrderShipped, 0)
	repo := &fakeRepo{events: []models.OutboxEvent{first, second}}
	pub := &fakePublisher{
		results: []publishResult{
			fakePublishResult{err: errors.New("transient broker outage")},
			fakePublishResult{},
		},
	}

	count, err := testService(t, repo, pub, nil).Tick(context.Background())
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 published got %d", count)
	}
	if len(repo.published) != 1 || repo.published[0] != second.ID {
		t.Fatalf("expected only second row marked published, got %v", repo.published)
	}
	if cause, ok := repo.failed[first.ID]; !ok || cause != "transient broker outage" {
		t.Fatalf("expected first row marked failed with cause, got %v", repo.failed)
	}
}

func TestTickSkipsExhaustedEvents(t *testing.T) {
	exhausted := orderEvent(t, enums.EventOrderCreated, 3)
	fresh := orderEvent(t, enums.EventOrderCreated, 2)
	repo := &fakeRepo{events: []models.OutboxEvent{exhausted, fresh}}
	pub := &fakePublisher{}

	count, err := testService(t, repo, pub, nil).Tick(context.Background())
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 published got %d", count)
	}
	if len(pub.messages) != 1 {
		t.Fatalf("expected exhausted event to be skipped, got %d publishes", len(pub.messages))
	}
	if len(repo.failed) != 0 {
		t.Fatalf("skipped event must not be marked failed, got %v", repo.failed)
	}
	if len(repo.published) != 1 || repo.published[0] != fresh.ID {
		t.Fatalf("expected only fresh row published, got %v", repo.published)
	}
}

func TestTickEmptyBatchIsNoop(t *testing.T) {
	repo := &fakeRepo{}
	pub := &fakePublisher{}

	count, err := testService(t, repo, pub, nil).Tick(context.Background())
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 published got %d", count)
	}
	if len(pub.messages) != 0 {
		t.Fatalf("expected no publishes on empty batch")
	}
}

func TestTickPropagatesFetchError(t *testing.T) {
	repo := &fakeRepo{fetchErr: errors.New("db unavailable")}
	pub := &fakePublisher{}

	if _, err := testService(t, repo, pub, nil).Tick(context.Background()); err == nil {
		t.Fatal("expected fetch error to surface")
	}
	if len(pub.messages) != 0 {
		t.Fatalf("expected no publishes after fetch failure")
	}
}

func TestTickRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewPublisherMetrics(reg)

	ok := orderEvent(t, enums.EventOrderPaid, 0)
	bad := orderEvent(t, enums.EventOrderShipped, 0)
	repo := &fakeRepo{events: []models.OutboxEvent{ok, bad}}
	pub := &fakePublisher{
		results: []publishResult{
			fakePublishResult{},
			fakePublishResult{err: errors.New("boom")},
		},
	}

	if _, err := testService(t, repo, pub, m).Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}

	if got := counterValue(t, reg, "outbox_events_published", string(enums.EventOrderPaid)); got != 1 {
		t.Fatalf("expected 1 published metric got %v", got)
	}
	if got := counterValue(t, reg, "outbox_events_failed", string(enums.EventOrderShipped)); got != 1 {
		t.Fatalf("expected 1 failed metric got %v", got)
	}
}

func counterValue(t *testing.T, reg *prometheus.Registry, name, eventType string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "event_type" && label.GetValue() == eventType {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	t.Fatalf("metric %s{event_type=%q} not found", name, eventType)
	return 0
}
