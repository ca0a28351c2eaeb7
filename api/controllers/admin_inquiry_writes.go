package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tutorgoat/tutorgoat-backend/api/middleware"
	"github.com/tutorgoat/tutorgoat-backend/api/responses"
	"github.com/tutorgoat/tutorgoat-backend/api/validators"
	"github.com/tutorgoat/tutorgoat-backend/internal/audit"
	"github.com/tutorgoat/tutorgoat-backend/internal/inquiries"
	"github.com/tutorgoat/tutorgoat-backend/internal/realtime"
	"github.com/tutorgoat/tutorgoat-backend/pkg/db/models"
	"github.com/tutorgoat/tutorgoat-backend/pkg/enums"
	pkgerrors "github.com/tutorgoat/tutorgoat-backend/pkg/errors"
	"github.com/tutorgoat/tutorgoat-backend/pkg/logger"
	"github.com/tutorgoat/tutorgoat-backend/pkg/types"
)

type StatusEngine interface {
	UpdateStatus(ctx context.Context, input inquiries.UpdateStatusInput) (*inquiries.TransitionResult, error)
	BulkUpdateStatus(ctx context.Context, actorID uuid.UUID, updates []inquiries.BulkStatusUpdate) inquiries.BulkResult
}

type InquiryEditor interface {
	UpdateQuote(ctx context.Context, input inquiries.UpdateQuoteInput) (*inquiries.InquiryDTO, error)
	UpdateDetails(ctx context.Context, input inquiries.UpdateDetailsInput) (*inquiries.InquiryDTO, error)
	Delete(ctx context.Context, id uuid.UUID) (*models.Inquiry, error)
	AttachmentDownloadURL(ctx context.Context, inquiryID, attachmentID uuid.UUID) (string, *models.InquiryAttachment, error)
}

type updateStatusRequest struct {
	Status        string               `json:"status" validate:"required"`
	Reason        string               `json:"reason" validate:"max=500"`
	Notes         string               `json:"notes" validate:"max=1000"`
	InternalNotes types.NullableString `json:"internal_notes"`
	AssignedTutor types.NullableString `json:"assigned_tutor"`
}

type bulkStatusRequest struct {
	Updates []inquiries.BulkStatusUpdate `json:"updates" validate:"required,min=1,max=100"`
}

type updateQuoteRequest struct {
	QuoteAmount *decimal.Decimal `json:"quote_amount" validate:"required"`
}

type patchInquiryRequest struct {
	InternalNotes   types.NullableString `json:"internal_notes"`
	AssignedTutor   types.NullableString `json:"assigned_tutor"`
	PaymentReceived *bool                `json:"payment_received"`
}

// statusChange is the response body of a single transition.
type statusChange struct {
	Inquiry        inquiries.InquiryDTO       `json:"inquiry"`
	PreviousStatus enums.InquiryStatus        `json:"previous_status"`
	NewStatus      enums.InquiryStatus        `json:"new_status"`
	ChangedAt      time.Time                  `json:"changed_at"`
	Record         inquiries.HistoryRecordDTO `json:"record"`
}

// AdminUpdateStatus moves one inquiry through the lifecycle and broadcasts the
// change to connected admins.
func AdminUpdateStatus(engine StatusEngine, events EventPublisher, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if engine == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "status engine unavailable"))
			return
		}

		id, err := validators.ParseURLUUID(r, "id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var body updateStatusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		requested := enums.InquiryStatus(body.Status)
		middleware.AuditDetail(ctx, "requested_status", body.Status)
		if body.Reason != "" {
			middleware.AuditDetail(ctx, "reason", body.Reason)
		}

		result, err := engine.UpdateStatus(ctx, inquiries.UpdateStatusInput{
			InquiryID:     id,
			NewStatus:     requested,
			ActorID:       middleware.AdminIDFromContext(ctx),
			Reason:        body.Reason,
			Notes:         body.Notes,
			InternalNotes: body.InternalNotes,
			AssignedTutor: body.AssignedTutor,
		})
		if err != nil {
			middleware.AuditError(ctx, pkgerrors.PublicMessage(err))
			responses.WriteError(ctx, logg, w, err)
			return
		}

		middleware.AuditDetail(ctx, "previous_status", string(result.PreviousStatus))
		middleware.AuditDetail(ctx, "new_status", string(result.NewStatus))
		publishStatus(ctx, events, result, middleware.UsernameFromContext(ctx))

		responses.WriteSuccess(w, statusChange{
			Inquiry:        inquiries.ToDTO(result.Inquiry),
			PreviousStatus: result.PreviousStatus,
			NewStatus:      result.NewStatus,
			ChangedAt:      result.ChangedAt,
			Record:         inquiries.ToHistoryDTO(result),
		})
	}
}

// AdminBulkUpdateStatus applies up to MaxBulkItems transitions. Each item is
// audited on its own; failures do not stop the batch.
func AdminBulkUpdateStatus(engine StatusEngine, events EventPublisher, recorder middleware.AuditRecorder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if engine == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "status engine unavailable"))
			return
		}

		var body bulkStatusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		actorID := middleware.AdminIDFromContext(ctx)
		username := middleware.UsernameFromContext(ctx)
		result := engine.BulkUpdateStatus(ctx, actorID, body.Updates)

		middleware.AuditDetail(ctx, "requested", len(body.Updates))
		middleware.AuditDetail(ctx, "succeeded", len(result.Successful))
		middleware.AuditDetail(ctx, "failed", len(result.Failed))

		for _, applied := range result.Applied {
			publishStatus(ctx, events, applied, username)
		}
		if recorder != nil {
			recordBulkItems(ctx, recorder, r, actorID, username, result)
		}
		responses.WriteSuccess(w, result)
	}
}

func recordBulkItems(ctx context.Context, recorder middleware.AuditRecorder, r *http.Request, actorID uuid.UUID, username string, result inquiries.BulkResult) {
	ip, ua := middleware.ClientInfo(r)
	base := audit.Entry{
		AdminUsername: username,
		Action:        enums.AuditActionUpdateInquiryStatus,
		Resource:      "inquiry",
		IPAddress:     ip,
		UserAgent:     ua,
	}
	if actorID != uuid.Nil {
		base.AdminID = &actorID
	}
	for _, ok := range result.Successful {
		entry := base
		entry.ResourceID = ok.InquiryID.String()
		entry.Success = true
		entry.Details = map[string]any{
			"bulk":            true,
			"previous_status": string(ok.PreviousStatus),
			"new_status":      string(ok.NewStatus),
		}
		recorder.Record(ctx, entry)
	}
	for _, failed := range result.Failed {
		entry := base
		entry.ResourceID = failed.InquiryID.String()
		entry.ErrorMessage = failed.Error
		entry.Details = map[string]any{"bulk": true, "code": string(failed.Code)}
		recorder.Record(ctx, entry)
	}
}

func publishStatus(ctx context.Context, events EventPublisher, result *inquiries.TransitionResult, fallbackUser string) {
	if events == nil || result == nil || result.Inquiry == nil {
		return
	}
	updatedBy := result.ActorUsername
	if updatedBy == "" {
		updatedBy = fallbackUser
	}
	events.Publish(ctx, realtime.StatusUpdate(result.Inquiry.ID, result.NewStatus, updatedBy, result.ChangedAt))
}

// AdminUpdateQuote sets the quote amount; the quote email follows through the outbox.
func AdminUpdateQuote(svc InquiryEditor, events EventPublisher, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inquiry service unavailable"))
			return
		}

		id, err := validators.ParseURLUUID(r, "id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var body updateQuoteRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		middleware.AuditDetail(ctx, "quote_amount", body.QuoteAmount.StringFixed(2))

		updated, err := svc.UpdateQuote(ctx, inquiries.UpdateQuoteInput{
			InquiryID: id,
			Amount:    *body.QuoteAmount,
			ActorID:   middleware.AdminIDFromContext(ctx),
		})
		if err != nil {
			middleware.AuditError(ctx, pkgerrors.PublicMessage(err))
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if events != nil {
			events.Publish(ctx, realtime.InquiryChanged(realtime.EventInquiryUpdated, id, middleware.UsernameFromContext(ctx), time.Now()))
		}
		responses.WriteSuccess(w, updated)
	}
}

// AdminPatchInquiry updates notes, tutor and payment flags. Absent fields are
// left untouched; null clears a text field.
func AdminPatchInquiry(svc InquiryEditor, events EventPublisher, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inquiry service unavailable"))
			return
		}

		id, err := validators.ParseURLUUID(r, "id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var body patchInquiryRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		fields := make([]string, 0, 3)
		if body.InternalNotes.Set {
			fields = append(fields, "internal_notes")
		}
		if body.AssignedTutor.Set {
			fields = append(fields, "assigned_tutor")
		}
		if body.PaymentReceived != nil {
			fields = append(fields, "payment_received")
		}
		if len(fields) == 0 {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update"))
			return
		}
		middleware.AuditDetail(ctx, "fields", fields)

		updated, err := svc.UpdateDetails(ctx, inquiries.UpdateDetailsInput{
			InquiryID:       id,
			InternalNotes:   body.InternalNotes,
			AssignedTutor:   body.AssignedTutor,
			PaymentReceived: body.PaymentReceived,
		})
		if err != nil {
			middleware.AuditError(ctx, pkgerrors.PublicMessage(err))
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if events != nil {
			events.Publish(ctx, realtime.InquiryChanged(realtime.EventInquiryUpdated, id, middleware.UsernameFromContext(ctx), time.Now()))
		}
		responses.WriteSuccess(w, updated)
	}
}

// AdminDeleteInquiry removes an inquiry with its history and attachments.
func AdminDeleteInquiry(svc InquiryEditor, events EventPublisher, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inquiry service unavailable"))
			return
		}

		id, err := validators.ParseURLUUID(r, "id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		deleted, err := svc.Delete(ctx, id)
		if err != nil {
			middleware.AuditError(ctx, pkgerrors.PublicMessage(err))
			responses.WriteError(ctx, logg, w, err)
			return
		}
		middleware.AuditDetail(ctx, "reference", deleted.Reference)
		middleware.AuditDetail(ctx, "attachments", len(deleted.Attachments))

		if events != nil {
			events.Publish(ctx, realtime.InquiryChanged(realtime.EventInquiryDeleted, id, middleware.UsernameFromContext(ctx), time.Now()))
		}
		responses.WriteSuccess(w, map[string]any{"id": id, "deleted": true})
	}
}

// AdminDownloadAttachment redirects to a short-lived signed URL.
func AdminDownloadAttachment(svc InquiryEditor, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inquiry service unavailable"))
			return
		}

		id, err := validators.ParseURLUUID(r, "id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		attachmentID, err := validators.ParseURLUUID(r, "attachmentId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		middleware.AuditDetail(ctx, "attachment_id", attachmentID.String())

		url, attachment, err := svc.AttachmentDownloadURL(ctx, id, attachmentID)
		if err != nil {
			middleware.AuditError(ctx, pkgerrors.PublicMessage(err))
			responses.WriteError(ctx, logg, w, err)
			return
		}
		middleware.AuditDetail(ctx, "file_name", attachment.OriginalName)
		http.Redirect(w, r, url, http.StatusFound)
	}
}
