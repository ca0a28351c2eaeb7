package enums

import "slices"

// OutboxAggregateType names the entity an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateInquiry        OutboxAggregateType = "inquiry"
	AggregateContactMessage OutboxAggregateType = "contact_message"
)

func (a OutboxAggregateType) IsValid() bool {
	return a == AggregateInquiry || a == AggregateContactMessage
}

// OutboxEventType is both the outbox_events.event_type value and the
// event_type attribute on the published Pub/Sub message.
type OutboxEventType string

const (
	EventInquirySubmitted     OutboxEventType = "inquiry_submitted"
	EventInquiryQuoted        OutboxEventType = "inquiry_quoted"
	EventInquiryStatusChanged OutboxEventType = "inquiry_status_changed"
	EventContactSubmitted     OutboxEventType = "contact_submitted"
)

// OutboxEventTypes lists every event the publisher knows how to route.
var OutboxEventTypes = []OutboxEventType{
	EventInquirySubmitted,
	EventInquiryQuoted,
	EventInquiryStatusChanged,
	EventContactSubmitted,
}

func (e OutboxEventType) IsValid() bool {
	return slices.Contains(OutboxEventTypes, e)
}

// OutboxDLQErrorReason records why a row was moved to the dead-letter table.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

func (r OutboxDLQErrorReason) String() string { return string(r) }

func (r OutboxDLQErrorReason) IsValid() bool {
	return r == OutboxDLQReasonMaxAttempts || r == OutboxDLQReasonNonRetryable
}
