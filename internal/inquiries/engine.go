package inquiries

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tutorgoat/tutorgoat-backend/pkg/db/models"
	"github.com/tutorgoat/tutorgoat-backend/pkg/enums"
	pkgerrors "github.com/tutorgoat/tutorgoat-backend/pkg/errors"
	"github.com/tutorgoat/tutorgoat-backend/pkg/logger"
	"github.com/tutorgoat/tutorgoat-backend/pkg/metrics"
	"github.com/tutorgoat/tutorgoat-backend/pkg/outbox"
	"github.com/tutorgoat/tutorgoat-backend/pkg/outbox/payloads"
	"github.com/tutorgoat/tutorgoat-backend/pkg/redis"
)

const lockResource = "inquiry"

// Engine is the only writer of inquiry status. Every transition it applies
// appends exactly one history record in the same transaction.
type Engine struct {
	repo    Repository
	tx      txRunner
	locker  inquiryLocker
	emitter outboxEmitter
	metrics transitionRecorder
	logg    *logger.Logger
	now     func() time.Time
}

// EngineOption configures optional collaborators.
type EngineOption func(*Engine)

// WithLocker serialises transitions of one inquiry across API instances.
func WithLocker(l inquiryLocker) EngineOption {
	return func(e *Engine) { e.locker = l }
}

// WithEmitter enables the inquiry_status_changed outbox event.
func WithEmitter(em outboxEmitter) EngineOption {
	return func(e *Engine) { e.emitter = em }
}

func WithMetrics(m transitionRecorder) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

func WithLogger(l *logger.Logger) EngineOption {
	return func(e *Engine) { e.logg = l }
}

// NewEngine builds the transition engine.
func NewEngine(repo Repository, tx txRunner, opts ...EngineOption) (*Engine, error) {
	if repo == nil {
		return nil, fmt.Errorf("inquiries repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	e := &Engine{
		repo: repo,
		tx:   tx,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// UpdateStatus validates and applies one transition.
func (e *Engine) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*TransitionResult, error) {
	started := time.Now()
	var from enums.InquiryStatus

	result, err := e.updateStatus(ctx, input, &from)
	e.observe(from, input.NewStatus, err, time.Since(started))
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (e *Engine) updateStatus(ctx context.Context, input UpdateStatusInput, from *enums.InquiryStatus) (*TransitionResult, error) {
	if input.InquiryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "inquiry id required")
	}
	if !input.NewStatus.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown status %q", input.NewStatus))
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "actor is not an active administrator")
	}

	if e.locker != nil {
		lock, err := e.locker.Obtain(ctx, lockResource, input.InquiryID.String())
		switch {
		case errors.Is(err, redis.ErrLockNotObtained):
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "inquiry is being updated by another request")
		case err != nil:
			e.warn(ctx, "inquiry lock unavailable, relying on compare-and-set: "+err.Error())
		default:
			defer func() {
				if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
					e.warn(ctx, "inquiry lock release failed: "+err.Error())
				}
			}()
		}
	}

	reason := strings.TrimSpace(input.Reason)
	notes := strings.TrimSpace(input.Notes)

	var result *TransitionResult
	err := e.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := e.repo.WithTx(tx)

		inquiry, err := repo.FindInquiryForUpdate(ctx, input.InquiryID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "inquiry not found")
			}
			return err
		}
		*from = inquiry.Status

		actor, err := repo.FindAdmin(ctx, input.ActorID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if actor == nil || !actor.IsActive {
			return pkgerrors.New(pkgerrors.CodeForbidden, "actor is not an active administrator")
		}

		if err := checkTransition(inquiry.Status, input.NewStatus, reason); err != nil {
			return err
		}
		if err := checkLengths(reason, notes, input); err != nil {
			return err
		}

		changedAt := e.now().UTC()
		updates := map[string]any{
			"status":            input.NewStatus,
			"status_changed_at": changedAt,
			"updated_at":        changedAt,
		}
		if input.InternalNotes.Set {
			updates["internal_notes"] = input.InternalNotes.Value
		}
		if input.AssignedTutor.Set {
			updates["assigned_tutor"] = input.AssignedTutor.Value
		}

		applied, err := repo.CompareAndSetStatus(ctx, inquiry.ID, inquiry.Status, inquiry.HistoryCount, updates)
		if err != nil {
			return err
		}
		if !applied {
			return pkgerrors.New(pkgerrors.CodeConflict, "inquiry was modified concurrently, retry the update")
		}

		record := models.InquiryStatusHistory{
			InquiryID:       inquiry.ID,
			Seq:             inquiry.HistoryCount + 1,
			FromStatus:      inquiry.Status,
			Status:          input.NewStatus,
			ChangedAt:       changedAt,
			ChangedBy:       actor.ID,
			FromStatusSince: inquiry.StatusChangedAt,
			Reason:          optional(reason),
			Notes:           optional(notes),
		}
		if err := repo.AppendHistory(ctx, &record); err != nil {
			return err
		}

		updated, err := repo.FindInquiry(ctx, inquiry.ID)
		if err != nil {
			return err
		}

		if e.emitter != nil {
			if err := e.emitter.Emit(ctx, tx, statusChangedEvent(updated, actor, record)); err != nil {
				return err
			}
		}

		result = &TransitionResult{
			Inquiry:        updated,
			PreviousStatus: record.FromStatus,
			NewStatus:      record.Status,
			ActorID:        actor.ID,
			ActorUsername:  actor.Username,
			ChangedAt:      changedAt,
			Record:         record,
		}
		return nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		if pkgerrors.IsSerializationFailure(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "inquiry was modified concurrently, retry the update")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, err, "status update could not be persisted")
	}

	if e.logg != nil {
		logCtx := e.logg.WithInquiryID(ctx, input.InquiryID.String())
		logCtx = e.logg.WithFields(logCtx, map[string]any{
			"from_status": result.PreviousStatus,
			"to_status":   result.NewStatus,
			"seq":         result.Record.Seq,
		})
		e.logg.Info(logCtx, "inquiry status changed")
	}
	return result, nil
}

func checkTransition(from, to enums.InquiryStatus, reason string) error {
	if !IsValidTransition(from, to) {
		return pkgerrors.New(pkgerrors.CodeInvalidTransition,
			fmt.Sprintf("invalid status transition from %s to %s", from, to)).
			WithDetails(map[string]any{"from": from, "to": to, "allowed": Successors(from)})
	}
	if RequiresReason(to) && reason == "" {
		return pkgerrors.New(pkgerrors.CodeMissingReason, fmt.Sprintf("reason is required for status %s", to)).
			WithDetails(map[string]any{"status": to})
	}
	return nil
}

func checkLengths(reason, notes string, input UpdateStatusInput) error {
	switch {
	case utf8.RuneCountInString(reason) > maxReasonLen:
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("reason must be at most %d characters", maxReasonLen))
	case utf8.RuneCountInString(notes) > maxNotesLen:
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("notes must be at most %d characters", maxNotesLen))
	case input.InternalNotes.Len() > maxInternalNotesLen:
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("internal notes must be at most %d characters", maxInternalNotesLen))
	case input.AssignedTutor.Len() > maxTutorLen:
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("assigned tutor must be at most %d characters", maxTutorLen))
	}
	return nil
}

func statusChangedEvent(inquiry *models.Inquiry, actor *models.Admin, record models.InquiryStatusHistory) outbox.DomainEvent {
	actorID := actor.ID
	reason := ""
	if record.Reason != nil {
		reason = *record.Reason
	}
	return outbox.DomainEvent{
		EventType:     enums.EventInquiryStatusChanged,
		AggregateType: enums.AggregateInquiry,
		AggregateID:   inquiry.ID,
		Actor:         &outbox.ActorRef{AdminID: &actorID, Username: actor.Username, Role: string(actor.Role)},
		OccurredAt:    record.ChangedAt,
		Data: payloads.InquiryStatusChangedEvent{
			InquiryContact: contactOf(inquiry),
			Seq:            record.Seq,
			PreviousStatus: record.FromStatus,
			NewStatus:      record.Status,
			Reason:         reason,
			ChangedBy:      actorID,
			ChangedAt:      record.ChangedAt,
		},
	}
}

func contactOf(inquiry *models.Inquiry) payloads.InquiryContact {
	name := ""
	if inquiry.Name != nil {
		name = *inquiry.Name
	}
	return payloads.InquiryContact{
		InquiryID:    inquiry.ID,
		Reference:    inquiry.Reference,
		Name:         name,
		ContactEmail: inquiry.ContactEmail,
		CourseName:   inquiry.CourseName,
		ServiceType:  inquiry.ServiceType,
		Urgency:      inquiry.Urgency,
	}
}

func (e *Engine) observe(from, to enums.InquiryStatus, err error, took time.Duration) {
	if e.metrics == nil {
		return
	}
	outcome := metrics.OutcomeApplied
	if err != nil {
		switch pkgerrors.CodeOf(err) {
		case pkgerrors.CodeConflict:
			outcome = metrics.OutcomeConflict
		case pkgerrors.CodePersistenceFailure, pkgerrors.CodeInternal:
			outcome = metrics.OutcomeFailed
		default:
			outcome = metrics.OutcomeRejected
		}
	}
	e.metrics.ObserveTransition(string(from), string(to), outcome, took)
}

func (e *Engine) warn(ctx context.Context, msg string) {
	if e.logg != nil {
		e.logg.Warn(ctx, msg)
	}
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
