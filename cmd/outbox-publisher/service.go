package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tutorgoat/tutorgoat-backend/pkg/config"
	"github.com/tutorgoat/tutorgoat-backend/pkg/db/models"
	"github.com/tutorgoat/tutorgoat-backend/pkg/enums"
	"github.com/tutorgoat/tutorgoat-backend/pkg/logger"
	"github.com/tutorgoat/tutorgoat-backend/pkg/outbox/registry"
)

const (
	publishTimeout = 15 * time.Second
	maxBackoff     = 10 * time.Second
	jitterWindow   = 250 * time.Millisecond

	batchJob = "outbox_batch"
)

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type pubSubClient interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type dlqRepository interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type registryResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type outboxRecorder interface {
	IncPublished(eventType string)
	IncFailed(eventType string)
	IncDeadLettered(eventType, reason string)
}

type jobRecorder interface {
	ObserveDuration(job string, duration time.Duration)
	IncSuccess(job string)
	IncFailure(job string)
}

type publisherFactory func(topic string) publisher

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

type ServiceParams struct {
	Config           *config.Config
	Logger           *logger.Logger
	DB               dbClient
	PubSub           pubSubClient
	Repository       outboxRepository
	Registry         registryResolver
	PublisherFactory publisherFactory
	DLQRepository    dlqRepository
	Metrics          outboxRecorder
	Jobs             jobRecorder
}

// Service drains outbox_events into Pub/Sub. Each batch is claimed with
// SKIP LOCKED and settled in a single transaction, so publishers can be
// scaled out.
type Service struct {
	logg       *logger.Logger
	db         dbClient
	pubsub     pubSubClient
	repo       outboxRepository
	registry   registryResolver
	dlq        dlqRepository
	metrics    outboxRecorder
	jobs       jobRecorder
	newPub     publisherFactory
	publishers map[string]publisher
	settings   settings
}

type settings struct {
	batchSize   int
	maxAttempts int
	poll        time.Duration
}

func settingsFrom(cfg config.OutboxConfig) settings {
	s := settings{batchSize: 50, maxAttempts: 10, poll: 500 * time.Millisecond}
	if cfg.BatchSize > 0 {
		s.batchSize = cfg.BatchSize
	}
	if cfg.MaxAttempts > 0 {
		s.maxAttempts = cfg.MaxAttempts
	}
	if cfg.PollIntervalMS > 0 {
		s.poll = time.Duration(cfg.PollIntervalMS) * time.Millisecond
	}
	return s
}

func NewService(params ServiceParams) (*Service, error) {
	required := []struct {
		name    string
		missing bool
	}{
		{"config", params.Config == nil},
		{"logger", params.Logger == nil},
		{"database client", params.DB == nil},
		{"pubsub client", params.PubSub == nil},
		{"outbox repository", params.Repository == nil},
		{"event registry", params.Registry == nil},
		{"dlq repository", params.DLQRepository == nil},
	}
	for _, r := range required {
		if r.missing {
			return nil, fmt.Errorf("%s is required", r.name)
		}
	}

	factory := params.PublisherFactory
	if factory == nil {
		factory = func(topic string) publisher {
			if p := params.PubSub.Publisher(topic); p != nil {
				return gcpPublisher{p}
			}
			return nil
		}
	}

	return &Service{
		logg:       params.Logger,
		db:         params.DB,
		pubsub:     params.PubSub,
		repo:       params.Repository,
		registry:   params.Registry,
		dlq:        params.DLQRepository,
		metrics:    params.Metrics,
		jobs:       params.Jobs,
		newPub:     factory,
		publishers: map[string]publisher{},
		settings:   settingsFrom(params.Config.Outbox),
	}, nil
}

// Run polls until ctx is canceled. An empty poll waits one interval and a
// failed batch backs off exponentially up to maxBackoff.
func (s *Service) Run(ctx context.Context) error {
	defer s.stopPublishers()

	for name, ping := range map[string]func(context.Context) error{"database": s.db.Ping, "pubsub": s.pubsub.Ping} {
		if err := ping(ctx); err != nil {
			s.logg.Error(s.logg.WithField(ctx, "dependency", name), "outbox.dependency_unavailable", err)
			return fmt.Errorf("%s ping failed: %w", name, err)
		}
	}

	wait := s.settings.poll
	for {
		if err := ctx.Err(); err != nil {
			s.logg.Info(ctx, "outbox.stopping")
			return err
		}

		started := time.Now()
		processed, err := s.processBatch(ctx)
		if processed || err != nil {
			s.observeBatch(time.Since(started), err)
		}

		switch {
		case err != nil:
			s.logg.Error(ctx, "outbox.batch_failed", err)
			wait = nextBackoff(wait, s.settings.poll, maxBackoff)
		case processed:
			wait = s.settings.poll
			continue
		default:
			wait = s.settings.poll
		}
		if err := sleep(ctx, withJitter(wait)); err != nil {
			return err
		}
	}
}

func (s *Service) observeBatch(took time.Duration, err error) {
	if s.jobs == nil {
		return
	}
	s.jobs.ObserveDuration(batchJob, took)
	if err != nil {
		s.jobs.IncFailure(batchJob)
		return
	}
	s.jobs.IncSuccess(batchJob)
}

// pending is one claimed row on its way through a batch.
type pending struct {
	event    models.OutboxEvent
	resolved *registry.ResolvedEvent
	result   publishResult
	err      error
}

// processBatch publishes every claimed row before waiting on any result, so
// a batch costs roughly one publish round trip instead of one per row.
func (s *Service) processBatch(ctx context.Context) (bool, error) {
	processed := false
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.FetchUnpublishedForPublish(tx, s.settings.batchSize, s.settings.maxAttempts)
		if err != nil || len(events) == 0 {
			return err
		}
		processed = true

		publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()

		batch := make([]pending, len(events))
		for i, event := range events {
			batch[i] = s.dispatch(publishCtx, event)
		}
		for i := range batch {
			p := &batch[i]
			if p.err == nil {
				_, p.err = p.result.Get(publishCtx)
			}
			if err := s.settle(ctx, tx, *p); err != nil {
				return err
			}
		}
		return nil
	})
	return processed, err
}

func (s *Service) dispatch(ctx context.Context, event models.OutboxEvent) pending {
	p := pending{event: event}
	p.resolved, p.err = s.registry.Resolve(event)
	if p.err != nil {
		return p
	}
	topic := p.resolved.Descriptor.Topic
	pub := s.publisher(topic)
	if pub == nil {
		p.err = registry.NewNonRetryableError(fmt.Errorf("no publisher for topic %s", topic))
		return p
	}
	if p.result = pub.Publish(ctx, message(event, p.resolved)); p.result == nil {
		p.err = registry.NewNonRetryableError(fmt.Errorf("publisher for %s returned no result", topic))
	}
	return p
}

// settle records the outcome of one row. Only a failure to write the
// outbox or DLQ tables is returned; publish failures live on the row.
func (s *Service) settle(ctx context.Context, tx *gorm.DB, p pending) error {
	event := p.event
	fields := eventFields(event, p.resolved)

	var nonRetry registry.NonRetryableError
	switch {
	case p.err == nil:
		if err := s.repo.MarkPublishedTx(tx, event.ID); err != nil {
			return fmt.Errorf("mark published %s: %w", event.ID, err)
		}
		s.count(func(m outboxRecorder) { m.IncPublished(string(event.EventType)) })
		s.logg.Info(s.logg.WithFields(ctx, fields), "outbox.published")
		return nil
	case errors.As(p.err, &nonRetry):
		return s.deadLetter(ctx, tx, event, enums.OutboxDLQReasonNonRetryable, p.err, fields)
	case event.AttemptCount+1 >= s.settings.maxAttempts:
		fields["attempt_count"] = event.AttemptCount + 1
		return s.deadLetter(ctx, tx, event, enums.OutboxDLQReasonMaxAttempts, fmt.Errorf("max publish attempts reached: %w", p.err), fields)
	}

	fields["attempt_count"] = event.AttemptCount + 1
	fields["error"] = p.err.Error()
	s.logg.Warn(s.logg.WithFields(ctx, fields), "outbox.publish_failed")
	s.count(func(m outboxRecorder) { m.IncFailed(string(event.EventType)) })
	if err := s.repo.MarkFailedTx(tx, event.ID, p.err); err != nil {
		return fmt.Errorf("mark failure %s: %w", event.ID, err)
	}
	return nil
}

func (s *Service) deadLetter(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error, fields map[string]any) error {
	fields["error_reason"] = reason
	fields["error"] = cause.Error()
	s.logg.Warn(s.logg.WithFields(ctx, fields), "outbox.dead_lettered")

	msg := cause.Error()
	entry := models.OutboxDLQ{
		EventID:       event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		ErrorReason:   reason,
		ErrorMessage:  &msg,
		AttemptCount:  event.AttemptCount,
		FailedAt:      time.Now().UTC(),
	}
	if err := s.dlq.InsertTx(tx, entry); err != nil {
		return fmt.Errorf("insert dlq %s: %w", event.ID, err)
	}
	if err := s.repo.MarkTerminalTx(tx, event.ID, cause, s.settings.maxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", event.ID, err)
	}
	s.count(func(m outboxRecorder) { m.IncDeadLettered(string(event.EventType), string(reason)) })
	return nil
}

func (s *Service) count(fn func(outboxRecorder)) {
	if s.metrics != nil {
		fn(s.metrics)
	}
}

// publisher returns the cached publisher for topic. Pub/Sub publishers
// batch in the background and are meant to be long lived.
func (s *Service) publisher(topic string) publisher {
	if p, ok := s.publishers[topic]; ok {
		return p
	}
	p := s.newPub(topic)
	if p != nil {
		s.publishers[topic] = p
	}
	return p
}

func (s *Service) stopPublishers() {
	for topic, p := range s.publishers {
		if stopper, ok := p.(interface{ Stop() }); ok {
			stopper.Stop()
		}
		delete(s.publishers, topic)
	}
}

// message carries the stored envelope verbatim. Attributes let
// subscribers route and filter without decoding the body.
func message(event models.OutboxEvent, resolved *registry.ResolvedEvent) *gcppubsub.Message {
	return &gcppubsub.Message{
		Data: event.Payload,
		Attributes: map[string]string{
			"event_id":       resolved.Envelope.EventID,
			"event_type":     string(event.EventType),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID.String(),
			"created_at":     event.CreatedAt.Format(time.RFC3339Nano),
		},
	}
}

func eventFields(event models.OutboxEvent, resolved *registry.ResolvedEvent) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.String(),
		"attempt_count":  event.AttemptCount,
	}
	if resolved != nil {
		fields["event_id"] = resolved.Envelope.EventID
		fields["topic"] = resolved.Descriptor.Topic
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	return fields
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, ceiling time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	return min(current*2, ceiling)
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + rand.N(jitterWindow)
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return p.Publisher.Publish(ctx, msg)
}
