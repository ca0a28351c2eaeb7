package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/tutorgoat/tutorgoat-backend/pkg/email"
	"github.com/tutorgoat/tutorgoat-backend/pkg/enums"
	"github.com/tutorgoat/tutorgoat-backend/pkg/logger"
	"github.com/tutorgoat/tutorgoat-backend/pkg/outbox"
	"github.com/tutorgoat/tutorgoat-backend/pkg/outbox/idempotency"
	"github.com/tutorgoat/tutorgoat-backend/pkg/outbox/payloads"
	"github.com/tutorgoat/tutorgoat-backend/pkg/outbox/registry"
)

const consumerName = "inquiry-notifications"

// Statuses that trigger a status update email to the student.
var notifiedStatuses = map[enums.InquiryStatus]bool{
	enums.InquiryStatusAssigned:  true,
	enums.InquiryStatusCompleted: true,
	enums.InquiryStatusRejected:  true,
	enums.InquiryStatusCancelled: true,
}

type messageSource interface {
	Receive(ctx context.Context, f func(context.Context, *pubsub.Message)) error
}

type idempotencyRunner interface {
	Run(ctx context.Context, consumer string, eventID uuid.UUID, handle func(context.Context) error) (bool, error)
}

type quoteMarker interface {
	MarkQuoteEmailSent(ctx context.Context, id uuid.UUID, at time.Time) error
}

// Settings carries the links and addresses rendered into emails.
type Settings struct {
	PublicURL  string
	StaffEmail string
}

// Consumer turns inquiry domain events into student and staff emails.
type Consumer struct {
	source   messageSource
	idem     idempotencyRunner
	decoders *registry.DecoderRegistry
	sender   email.Sender
	quotes   quoteMarker
	settings Settings
	logg     *logger.Logger
	now      func() time.Time
}

// ConsumerParams bundles the consumer dependencies.
type ConsumerParams struct {
	Source      messageSource
	Idempotency idempotencyRunner
	Sender      email.Sender
	Quotes      quoteMarker
	Settings    Settings
	Logger      *logger.Logger
}

func NewConsumer(params ConsumerParams) (*Consumer, error) {
	if params.Source == nil {
		return nil, fmt.Errorf("inquiry subscription required")
	}
	if params.Idempotency == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if params.Sender == nil {
		return nil, fmt.Errorf("email sender required")
	}
	if params.Quotes == nil {
		return nil, fmt.Errorf("quote marker required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		source:   params.Source,
		idem:     params.Idempotency,
		decoders: registry.NewEventDecoders(),
		sender:   params.Sender,
		quotes:   params.Quotes,
		settings: Settings{
			PublicURL:  strings.TrimRight(params.Settings.PublicURL, "/"),
			StaffEmail: strings.TrimSpace(params.Settings.StaffEmail),
		},
		logg: params.Logger,
		now:  func() time.Time { return time.Now().UTC() },
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.source.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.process(ctx, msg.ID, msg.Attributes, msg.Data) {
			msg.Ack()
			return
		}
		msg.Nack()
	})
}

// process reports whether the message should be acked. Undecodable messages
// are acked so they do not loop forever.
func (c *Consumer) process(ctx context.Context, messageID string, attrs map[string]string, data []byte) bool {
	eventType := enums.OutboxEventType(attrs["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": messageID,
		"event_type": string(eventType),
	})

	envelope, eventID, err := outbox.DecodeEnvelope(data)
	if err != nil {
		c.logg.Error(logCtx, "dropping undecodable envelope", err)
		return true
	}
	payload, err := c.decoders.Decode(eventType, envelope.Version, envelope.Data)
	if err != nil {
		c.logg.Warn(logCtx, "skipping undecodable event: "+err.Error())
		return true
	}

	skipped, err := c.idem.Run(ctx, consumerName, eventID, func(ctx context.Context) error {
		return c.dispatch(ctx, payload)
	})
	switch {
	case errors.Is(err, idempotency.ErrInFlight):
		c.logg.Info(logCtx, "event in flight elsewhere, redelivering later")
		return false
	case err != nil:
		c.logg.Error(logCtx, "notification handling failed", err)
		return false
	case skipped:
		c.logg.Info(logCtx, "event already processed")
	}
	return true
}

func (c *Consumer) dispatch(ctx context.Context, payload any) error {
	switch event := payload.(type) {
	case *payloads.InquirySubmittedEvent:
		return c.onSubmitted(ctx, event)
	case *payloads.InquiryQuotedEvent:
		return c.onQuoted(ctx, event)
	case *payloads.InquiryStatusChangedEvent:
		return c.onStatusChanged(ctx, event)
	case *payloads.ContactSubmittedEvent:
		return c.onContact(ctx, event)
	}
	return nil
}

func (c *Consumer) onSubmitted(ctx context.Context, event *payloads.InquirySubmittedEvent) error {
	data := inquiryData(event.InquiryContact)
	data.AssignmentDetails = event.AssignmentDetails
	data.AttachmentCount = event.AttachmentCount
	data.SubmittedAt = event.SubmittedAt

	var errs error
	confirmation, err := email.InquiryConfirmation(data)
	if err != nil {
		return err
	}
	errs = multierr.Append(errs, c.sender.Send(ctx, confirmation))

	if c.settings.StaffEmail != "" {
		adminURL := fmt.Sprintf("%s/admin/inquiries/%s", c.settings.PublicURL, event.InquiryID)
		alert, err := email.StaffAlert(data, c.settings.StaffEmail, adminURL)
		if err != nil {
			return multierr.Append(errs, err)
		}
		errs = multierr.Append(errs, c.sender.Send(ctx, alert))
	}
	return errs
}

func (c *Consumer) onQuoted(ctx context.Context, event *payloads.InquiryQuotedEvent) error {
	paymentLink := fmt.Sprintf("%s/pay/%s", c.settings.PublicURL, event.Reference)
	msg, err := email.Quote(inquiryData(event.InquiryContact), event.QuoteAmount.StringFixed(2), paymentLink)
	if err != nil {
		return err
	}
	if err := c.sender.Send(ctx, msg); err != nil {
		return err
	}
	return c.quotes.MarkQuoteEmailSent(ctx, event.InquiryID, c.now())
}

func (c *Consumer) onStatusChanged(ctx context.Context, event *payloads.InquiryStatusChangedEvent) error {
	if !notifiedStatuses[event.NewStatus] {
		return nil
	}
	msg, err := email.StatusUpdate(
		inquiryData(event.InquiryContact),
		string(event.PreviousStatus),
		string(event.NewStatus),
		event.Reason,
		event.ChangedAt,
	)
	if err != nil {
		return err
	}
	return c.sender.Send(ctx, msg)
}

// onContact mails staff before confirming to the sender.
func (c *Consumer) onContact(ctx context.Context, event *payloads.ContactSubmittedEvent) error {
	data := email.ContactData{
		Name:        event.Name,
		Email:       event.Email,
		Subject:     event.Subject,
		Message:     event.Message,
		SubmittedAt: event.SubmittedAt,
	}
	if c.settings.StaffEmail != "" {
		forward, err := email.ContactStaff(data, c.settings.StaffEmail)
		if err != nil {
			return err
		}
		if err := c.sender.Send(ctx, forward); err != nil {
			return err
		}
	} else {
		c.logg.Warn(c.logg.WithField(ctx, "message_id", event.MessageID.String()), "no staff address configured, contact message not forwarded")
	}

	confirmation, err := email.ContactConfirmation(data)
	if err != nil {
		return err
	}
	return c.sender.Send(ctx, confirmation)
}

func inquiryData(contact payloads.InquiryContact) email.InquiryData {
	return email.InquiryData{
		Reference:    contact.Reference,
		Name:         contact.Name,
		ContactEmail: contact.ContactEmail,
		CourseName:   contact.CourseName,
		ServiceType:  string(contact.ServiceType),
		Urgency:      string(contact.Urgency),
	}
}
