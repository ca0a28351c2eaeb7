package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorgoat/tutorgoat-backend/pkg/email"
	"github.com/tutorgoat/tutorgoat-backend/pkg/enums"
	"github.com/tutorgoat/tutorgoat-backend/pkg/logger"
	"github.com/tutorgoat/tutorgoat-backend/pkg/outbox"
	"github.com/tutorgoat/tutorgoat-backend/pkg/outbox/idempotency"
	"github.com/tutorgoat/tutorgoat-backend/pkg/outbox/payloads"
)

var sentAt = time.Date(2026, 7, 1, 15, 30, 0, 0, time.UTC)

type harness struct {
	consumer *Consumer
	sender   *recordingSender
	quotes   *recordingQuotes
	store    *memoryStore
}

func newHarness(t *testing.T, staffEmail string) *harness {
	t.Helper()
	store := &memoryStore{keys: map[string]string{}}
	manager, err := idempotency.NewManager(store, time.Hour)
	require.NoError(t, err)
	sender := &recordingSender{}
	quotes := &recordingQuotes{}
	consumer, err := NewConsumer(ConsumerParams{
		Source:      noopSource{},
		Idempotency: manager,
		Sender:      sender,
		Quotes:      quotes,
		Settings:    Settings{PublicURL: "https://tutorgoat.com/", StaffEmail: staffEmail},
		Logger:      logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}}),
	})
	require.NoError(t, err)
	consumer.now = func() time.Time { return sentAt }
	return &harness{consumer: consumer, sender: sender, quotes: quotes, store: store}
}

func contact() payloads.InquiryContact {
	return payloads.InquiryContact{
		InquiryID:    uuid.MustParse("7b1b3a4e-9f0c-4a55-b1f4-2b8d3c1e9a10"),
		Reference:    "TG-1767225600000-ABCDEFGHI",
		Name:         "Sam",
		ContactEmail: "sam@student.edu",
		CourseName:   "Calculus II",
		ServiceType:  enums.ServiceTypeAssignment,
		Urgency:      enums.UrgencyUrgent,
	}
}

func message(t *testing.T, eventType enums.OutboxEventType, eventID uuid.UUID, data any) (map[string]string, []byte) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	body, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID.String(),
		OccurredAt: sentAt,
		Data:       raw,
	})
	require.NoError(t, err)
	return map[string]string{"event_type": string(eventType)}, body
}

func TestSubmittedSendsConfirmationAndStaffAlert(t *testing.T) {
	h := newHarness(t, "staff@tutorgoat.com")
	attrs, body := message(t, enums.EventInquirySubmitted, uuid.New(), payloads.InquirySubmittedEvent{
		InquiryContact:    contact(),
		AssignmentDetails: "Integration by parts worksheet",
		AttachmentCount:   2,
		SubmittedAt:       sentAt,
	})

	require.True(t, h.consumer.process(context.Background(), "m-1", attrs, body))

	require.Len(t, h.sender.sent, 2)
	assert.Equal(t, []string{"sam@student.edu"}, h.sender.sent[0].To)
	assert.Equal(t, "Inquiry Received - TutorGoat", h.sender.sent[0].Subject)
	assert.Equal(t, []string{"staff@tutorgoat.com"}, h.sender.sent[1].To)
	assert.Contains(t, h.sender.sent[1].Text, "https://tutorgoat.com/admin/inquiries/7b1b3a4e-9f0c-4a55-b1f4-2b8d3c1e9a10")
}

func TestSubmittedWithoutStaffAddressOnlyConfirms(t *testing.T) {
	h := newHarness(t, "")
	attrs, body := message(t, enums.EventInquirySubmitted, uuid.New(), payloads.InquirySubmittedEvent{InquiryContact: contact()})

	require.True(t, h.consumer.process(context.Background(), "m-1", attrs, body))
	require.Len(t, h.sender.sent, 1)
}

func TestQuotedSendsQuoteAndMarksInquiry(t *testing.T) {
	h := newHarness(t, "")
	attrs, body := message(t, enums.EventInquiryQuoted, uuid.New(), payloads.InquiryQuotedEvent{
		InquiryContact: contact(),
		QuoteAmount:    decimal.RequireFromString("149.5"),
		QuotedBy:       uuid.New(),
	})

	require.True(t, h.consumer.process(context.Background(), "m-2", attrs, body))

	require.Len(t, h.sender.sent, 1)
	assert.Contains(t, h.sender.sent[0].Text, "$149.50")
	assert.Contains(t, h.sender.sent[0].Text, "https://tutorgoat.com/pay/TG-1767225600000-ABCDEFGHI")
	require.Len(t, h.quotes.marked, 1)
	assert.Equal(t, contact().InquiryID, h.quotes.marked[0])
}

func TestStatusChangedEmailsOnlyNotifiedStatuses(t *testing.T) {
	cases := []struct {
		status enums.InquiryStatus
		emails int
	}{
		{enums.InquiryStatusAssigned, 1},
		{enums.InquiryStatusCompleted, 1},
		{enums.InquiryStatusRejected, 1},
		{enums.InquiryStatusCancelled, 1},
		{enums.InquiryStatusInProgress, 0},
		{enums.InquiryStatusOnHold, 0},
		{enums.InquiryStatusRefuted, 0},
	}
	for _, tc := range cases {
		t.Run(string(tc.status), func(t *testing.T) {
			h := newHarness(t, "")
			attrs, body := message(t, enums.EventInquiryStatusChanged, uuid.New(), payloads.InquiryStatusChangedEvent{
				InquiryContact: contact(),
				Seq:            1,
				PreviousStatus: enums.InquiryStatusPending,
				NewStatus:      tc.status,
				Reason:         "schedule conflict",
				ChangedBy:      uuid.New(),
				ChangedAt:      sentAt,
			})
			require.True(t, h.consumer.process(context.Background(), "m-3", attrs, body))
			assert.Len(t, h.sender.sent, tc.emails)
		})
	}
}

func contactEvent() payloads.ContactSubmittedEvent {
	return payloads.ContactSubmittedEvent{
		MessageID:   uuid.New(),
		Name:        "Jordan",
		Email:       "jordan@example.com",
		Subject:     "Group rates",
		Message:     "Do you offer rates for study groups?",
		SubmittedAt: sentAt,
	}
}

func TestContactForwardsToStaffAndConfirms(t *testing.T) {
	h := newHarness(t, "staff@tutorgoat.com")
	attrs, body := message(t, enums.EventContactSubmitted, uuid.New(), contactEvent())

	require.True(t, h.consumer.process(context.Background(), "m-8", attrs, body))

	require.Len(t, h.sender.sent, 2)
	assert.Equal(t, []string{"staff@tutorgoat.com"}, h.sender.sent[0].To)
	assert.Equal(t, "jordan@example.com", h.sender.sent[0].ReplyTo)
	assert.Equal(t, "Contact Form: Group rates", h.sender.sent[0].Subject)
	assert.Equal(t, []string{"jordan@example.com"}, h.sender.sent[1].To)
	assert.Empty(t, h.quotes.marked)
}

func TestContactWithoutStaffAddressStillConfirms(t *testing.T) {
	h := newHarness(t, "")
	attrs, body := message(t, enums.EventContactSubmitted, uuid.New(), contactEvent())

	require.True(t, h.consumer.process(context.Background(), "m-9", attrs, body))
	require.Len(t, h.sender.sent, 1)
	assert.Equal(t, "Thank you for contacting TutorGoat", h.sender.sent[0].Subject)
}

func TestDuplicateDeliveryIsSkipped(t *testing.T) {
	h := newHarness(t, "")
	attrs, body := message(t, enums.EventInquirySubmitted, uuid.New(), payloads.InquirySubmittedEvent{InquiryContact: contact()})

	require.True(t, h.consumer.process(context.Background(), "m-1", attrs, body))
	require.True(t, h.consumer.process(context.Background(), "m-1-redelivered", attrs, body))
	assert.Len(t, h.sender.sent, 1)
}

func TestSendFailureNacksAndAllowsRetry(t *testing.T) {
	h := newHarness(t, "")
	h.sender.err = errors.New("smtp timeout")
	attrs, body := message(t, enums.EventInquiryQuoted, uuid.New(), payloads.InquiryQuotedEvent{
		InquiryContact: contact(),
		QuoteAmount:    decimal.NewFromInt(80),
	})

	assert.False(t, h.consumer.process(context.Background(), "m-4", attrs, body))
	assert.Empty(t, h.quotes.marked)
	assert.Empty(t, h.store.keys, "the processed mark is released for redelivery")

	h.sender.err = nil
	assert.True(t, h.consumer.process(context.Background(), "m-4", attrs, body))
	assert.Len(t, h.quotes.marked, 1)
}

func TestPoisonMessagesAreAcked(t *testing.T) {
	h := newHarness(t, "")

	assert.True(t, h.consumer.process(context.Background(), "m-5", map[string]string{}, []byte("{not json")))

	attrs, body := message(t, enums.OutboxEventType("inquiry_archived"), uuid.New(), map[string]string{})
	assert.True(t, h.consumer.process(context.Background(), "m-6", attrs, body))

	bad, err := json.Marshal(outbox.PayloadEnvelope{Version: 1, EventID: "nope", Data: json.RawMessage(`{}`)})
	require.NoError(t, err)
	assert.True(t, h.consumer.process(context.Background(), "m-7", map[string]string{"event_type": "inquiry_quoted"}, bad))
	assert.Empty(t, h.sender.sent)
}

func TestNewConsumerRequiresDependencies(t *testing.T) {
	_, err := NewConsumer(ConsumerParams{})
	require.Error(t, err)
}

type noopSource struct{}

func (noopSource) Receive(context.Context, func(context.Context, *pubsub.Message)) error { return nil }

type recordingSender struct {
	mu   sync.Mutex
	sent []email.Message
	err  error
}

func (r *recordingSender) Send(_ context.Context, msg email.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, msg)
	return nil
}

type recordingQuotes struct {
	marked []uuid.UUID
}

func (r *recordingQuotes) MarkQuoteEmailSent(_ context.Context, id uuid.UUID, at time.Time) error {
	r.marked = append(r.marked, id)
	return nil
}

type memoryStore struct {
	mu   sync.Mutex
	keys map[string]string
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.keys[key], nil
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.keys[key]; ok {
		return false, nil
	}
	m.keys[key] = fmt.Sprint(value)
	return true, nil
}

func (m *memoryStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[key] = fmt.Sprint(value)
	return nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string { return scope + ":" + id }

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.keys, key)
	}
	return nil
}
