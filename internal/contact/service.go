// Package contact accepts messages from the public contact form and queues
// them for the notifications worker.
package contact

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tutorgoat/tutorgoat-backend/pkg/enums"
	pkgerrors "github.com/tutorgoat/tutorgoat-backend/pkg/errors"
	"github.com/tutorgoat/tutorgoat-backend/pkg/logger"
	"github.com/tutorgoat/tutorgoat-backend/pkg/outbox"
	"github.com/tutorgoat/tutorgoat-backend/pkg/outbox/payloads"
)

type bounds struct{ min, max int }

var (
	nameBounds    = bounds{2, 100}
	subjectBounds = bounds{5, 200}
	messageBounds = bounds{10, 2000}
)

// Message is one contact form submission.
type Message struct {
	Name    string
	Email   string
	Subject string
	Message string
}

// Receipt is returned once the message is queued.
type Receipt struct {
	ID          uuid.UUID `json:"id"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type Service struct {
	tx     txRunner
	outbox outboxEmitter
	logg   *logger.Logger
	now    func() time.Time
}

func NewService(tx txRunner, emitter outboxEmitter, logg *logger.Logger) (*Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &Service{tx: tx, outbox: emitter, logg: logg, now: time.Now}, nil
}

// Submit validates msg and queues the staff forward and sender confirmation.
func (s *Service) Submit(ctx context.Context, msg Message) (*Receipt, error) {
	if err := normalize(&msg); err != nil {
		return nil, err
	}

	receipt := &Receipt{ID: uuid.New(), SubmittedAt: s.now().UTC()}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventContactSubmitted,
			AggregateType: enums.AggregateContactMessage,
			AggregateID:   receipt.ID,
			OccurredAt:    receipt.SubmittedAt,
			Data: payloads.ContactSubmittedEvent{
				MessageID:   receipt.ID,
				Name:        msg.Name,
				Email:       msg.Email,
				Subject:     msg.Subject,
				Message:     msg.Message,
				SubmittedAt: receipt.SubmittedAt,
			},
		})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, err, "queue contact message")
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "contact_message_id", receipt.ID.String()), "contact message queued")
	}
	return receipt, nil
}

func normalize(msg *Message) error {
	msg.Name = strings.TrimSpace(msg.Name)
	msg.Email = strings.ToLower(strings.TrimSpace(msg.Email))
	msg.Subject = strings.TrimSpace(msg.Subject)
	msg.Message = strings.TrimSpace(msg.Message)

	if err := check("name", "Name", msg.Name, nameBounds); err != nil {
		return err
	}
	if addr, err := mail.ParseAddress(msg.Email); err != nil || addr.Address != msg.Email {
		return validationError("email", "please provide a valid email address")
	}
	if err := check("subject", "Subject", msg.Subject, subjectBounds); err != nil {
		return err
	}
	return check("message", "Message", msg.Message, messageBounds)
}

func check(field, label, value string, b bounds) error {
	if n := utf8.RuneCountInString(value); n < b.min || n > b.max {
		return validationError(field, fmt.Sprintf("%s must be between %d and %d characters", label, b.min, b.max))
	}
	return nil
}

func validationError(field, message string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, message).WithDetails(map[string]string{"field": field})
}
