package registry

import (
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/tutorgoat/tutorgoat-backend/pkg/config"
	"github.com/tutorgoat/tutorgoat-backend/pkg/db/models"
	"github.com/tutorgoat/tutorgoat-backend/pkg/enums"
	"github.com/tutorgoat/tutorgoat-backend/pkg/outbox"
	"github.com/tutorgoat/tutorgoat-backend/pkg/outbox/payloads"
)

// EventDescriptor routes one event type: its aggregate, topic and payload.
type EventDescriptor struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
	decode        Decoder
}

// ResolvedEvent is an outbox row validated and decoded for publishing.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

// NonRetryableError marks a row that can never publish, so the dispatcher
// dead-letters it immediately.
type NonRetryableError struct {
	Err error
}

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

func nonRetryable(format string, args ...any) error {
	return NonRetryableError{Err: fmt.Errorf(format, args...)}
}

// EventRegistry is the publisher's routing table.
type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.InquiryTopic == "" {
		return nil, errors.New("inquiry topic is required")
	}
	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor)}
	for _, desc := range descriptors(cfg.InquiryTopic) {
		reg.entries[desc.EventType] = desc
	}
	return reg, nil
}

// descriptors lists every routed event. Contact messages share the inquiry
// topic so one notifications subscription sees all of them.
func descriptors(topic string) []EventDescriptor {
	desc := func(t enums.OutboxEventType, aggregate enums.OutboxAggregateType, decode Decoder) EventDescriptor {
		return EventDescriptor{EventType: t, AggregateType: aggregate, Topic: topic, decode: decode}
	}
	return []EventDescriptor{
		desc(enums.EventInquirySubmitted, enums.AggregateInquiry, JSONDecoder[payloads.InquirySubmittedEvent]()),
		desc(enums.EventInquiryQuoted, enums.AggregateInquiry, JSONDecoder[payloads.InquiryQuotedEvent]()),
		desc(enums.EventInquiryStatusChanged, enums.AggregateInquiry, JSONDecoder[payloads.InquiryStatusChangedEvent]()),
		desc(enums.EventContactSubmitted, enums.AggregateContactMessage, JSONDecoder[payloads.ContactSubmittedEvent]()),
	}
}

// Topics returns the distinct topics, sorted.
func (r *EventRegistry) Topics() []string {
	var out []string
	for _, desc := range r.entries {
		if !slices.Contains(out, desc.Topic) {
			out = append(out, desc.Topic)
		}
	}
	slices.Sort(out)
	return out
}

// Resolve checks the row against its descriptor and decodes the payload.
// Every failure here is non-retryable: the row itself is malformed.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	switch {
	case !ok:
		return nil, nonRetryable("unsupported event type %s", event.EventType)
	case desc.AggregateType != event.AggregateType:
		return nil, nonRetryable("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType)
	case event.AggregateID == uuid.Nil:
		return nil, nonRetryable("missing aggregate_id")
	}

	envelope, _, err := outbox.DecodeEnvelope(event.Payload)
	if err != nil {
		return nil, nonRetryable("%s: %w", event.EventType, err)
	}
	payload, err := desc.decode(envelope.Data)
	if err != nil {
		return nil, nonRetryable("decode %s payload: %w", event.EventType, err)
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: envelope, Payload: payload}, nil
}
