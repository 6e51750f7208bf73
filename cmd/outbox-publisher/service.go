package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/sokonihq/sokoni-backend/pkg/config"
	"github.com/sokonihq/sokoni-backend/pkg/db/models"
	"github.com/sokonihq/sokoni-backend/pkg/logger"
	"github.com/sokonihq/sokoni-backend/pkg/metrics"
)

const (
	defaultBatchSize      = 50
	defaultPollMs         = 500
	defaultPublishTimeout = 15 * time.Second
	defaultMaxAttempts    = 10
)

type outboxRepository interface {
	FetchUnpublished(limit int) ([]models.OutboxEvent, error)
	MarkPublished(id uuid.UUID) error
	MarkFailed(id uuid.UUID, err error) error
}

type publisher interface {
	Publish(ctx context.Context, msg *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(ctx context.Context) (string, error)
}

// gcpPublisher adapts the Pub/Sub v2 publisher to the local interface.
type gcpPublisher struct {
	inner *gcppubsub.Publisher
}

func (p gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return p.inner.Publish(ctx, msg)
}

type ServiceParams struct {
	Config     *config.Config
	Logger     *logger.Logger
	Repository outboxRepository
	Publisher  publisher
	Metrics    *metrics.PublisherMetrics
}

// Service drains the outbox table into the orders Pub/Sub topic. Events are
// retried until MaxAttempts; rows past the cap stay unpublished for manual
// inspection rather than blocking the batch.
type Service struct {
	cfg         *config.Config
	logg        *logger.Logger
	repo        outboxRepository
	publisher   publisher
	metrics     *metrics.PublisherMetrics
	batchSize   int
	pollEvery   time.Duration
	maxAttempts int
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Repository == nil {
		return nil, errors.New("outbox repository is required")
	}
	if params.Publisher == nil {
		return nil, errors.New("publisher is required")
	}

	batchSize := params.Config.Outbox.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	pollMs := params.Config.Outbox.PollIntervalMS
	if pollMs <= 0 {
		pollMs = defaultPollMs
	}
	maxAttempts := params.Config.Outbox.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	return &Service{
		cfg:         params.Config,
		logg:        params.Logger,
		repo:        params.Repository,
		publisher:   params.Publisher,
		metrics:     params.Metrics,
		batchSize:   batchSize,
		pollEvery:   time.Duration(pollMs) * time.Millisecond,
		maxAttempts: maxAttempts,
	}, nil
}

// Run polls until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.Tick(ctx); err != nil {
				s.logError(ctx, "outbox batch failed", err)
			}
		}
	}
}

// Tick publishes one batch and returns how many events were delivered.
func (s *Service) Tick(ctx context.Context) (int, error) {
	start := time.Now()
	rows, err := s.repo.FetchUnpublished(s.batchSize)
	if err != nil {
		return 0, fmt.Errorf("fetch unpublished events: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	published := 0
	for _, event := range rows {
		if event.AttemptCount >= s.maxAttempts {
			s.logWarn(ctx, fmt.Sprintf("outbox event %s exhausted %d attempts, skipping", event.ID, event.AttemptCount))
			continue
		}
		if err := s.publishOne(ctx, event); err != nil {
			if s.metrics != nil {
				s.metrics.IncFailed(string(event.EventType))
			}
			if markErr := s.repo.MarkFailed(event.ID, err); markErr != nil {
				s.logError(ctx, "mark outbox event failed", markErr)
			}
			s.logError(ctx, fmt.Sprintf("publish outbox event %s", event.ID), err)
			continue
		}
		if err := s.repo.MarkPublished(event.ID); err != nil {
			// The event went out but the row stayed unpublished; the
			// redelivery is absorbed by consumer-side idempotency.
			s.logError(ctx, "mark outbox event published", err)
			continue
		}
		if s.metrics != nil {
			s.metrics.IncPublished(string(event.EventType))
		}
		published++
	}

	if s.metrics != nil {
		s.metrics.ObserveBatch(s.cfg.PubSub.OrdersTopic, time.Since(start))
	}
	return published, nil
}

func (s *Service) publishOne(ctx context.Context, event models.OutboxEvent) error {
	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()

	result := s.publisher.Publish(publishCtx, &gcppubsub.Message{
		Data: event.Payload,
		Attributes: map[string]string{
			"event_type":     string(event.EventType),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID.String(),
		},
	})
	_, err := result.Get(publishCtx)
	return err
}

func (s *Service) logError(ctx context.Context, msg string, err error) {
	if s.logg != nil {
		s.logg.Error(ctx, msg, err)
	}
}

func (s *Service) logWarn(ctx context.Context, msg string) {
	if s.logg != nil {
		s.logg.Warn(ctx, msg)
	}
}
