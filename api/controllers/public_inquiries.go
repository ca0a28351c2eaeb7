package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tutorgoat/tutorgoat-backend/api/responses"
	"github.com/tutorgoat/tutorgoat-backend/api/validators"
	"github.com/tutorgoat/tutorgoat-backend/internal/inquiries"
	"github.com/tutorgoat/tutorgoat-backend/internal/realtime"
	"github.com/tutorgoat/tutorgoat-backend/pkg/enums"
	pkgerrors "github.com/tutorgoat/tutorgoat-backend/pkg/errors"
	"github.com/tutorgoat/tutorgoat-backend/pkg/logger"
	"github.com/tutorgoat/tutorgoat-backend/pkg/storage/gcs"
)

type PublicInquiryService interface {
	Submit(ctx context.Context, input inquiries.SubmitInput) (*inquiries.SubmitResult, error)
	RequestUpload(ctx context.Context, req inquiries.UploadRequest) (*gcs.SignedUpload, error)
	Lookup(ctx context.Context, reference string) (*inquiries.PublicInquiryStatus, error)
}

// EventPublisher pushes realtime events to connected admins.
type EventPublisher interface {
	Publish(ctx context.Context, event realtime.Event)
}

type submitInquiryRequest struct {
	CourseName        string                      `json:"course_name" validate:"required,max=200"`
	AssignmentDetails string                      `json:"assignment_details" validate:"required,max=5000"`
	ServiceType       string                      `json:"service_type" validate:"required,oneof=quiz exam class assignment project"`
	Urgency           string                      `json:"urgency" validate:"omitempty,oneof=urgent normal flexible"`
	ContactEmail      string                      `json:"contact_email" validate:"required,email,max=254"`
	Name              string                      `json:"name" validate:"max=100"`
	PhoneNumber       string                      `json:"phone_number" validate:"required,max=30"`
	ClientType        string                      `json:"client_type" validate:"required,oneof=first-time repeat"`
	Attachments       []inquiries.AttachmentInput `json:"attachments" validate:"max=5"`
}

type uploadURLRequest struct {
	Filename    string `json:"filename" validate:"required,max=255"`
	ContentType string `json:"content_type" validate:"required"`
	SizeBytes   int64  `json:"size_bytes" validate:"required,gte=1"`
}

// SubmitInquiry stores a public inquiry and notifies connected admins.
func SubmitInquiry(svc PublicInquiryService, events EventPublisher, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inquiry service unavailable"))
			return
		}

		var body submitInquiryRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Submit(r.Context(), inquiries.SubmitInput{
			CourseName:        body.CourseName,
			AssignmentDetails: body.AssignmentDetails,
			ServiceType:       enums.ServiceType(body.ServiceType),
			Urgency:           enums.Urgency(body.Urgency),
			ContactEmail:      body.ContactEmail,
			Name:              validators.SanitizeString(body.Name, 100),
			PhoneNumber:       body.PhoneNumber,
			ClientType:        enums.ClientType(body.ClientType),
			Attachments:       body.Attachments,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if events != nil {
			events.Publish(r.Context(), realtime.NewInquiry(result.ID, result.Reference, result.CreatedAt))
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// RequestUploadURL signs a PUT URL for one attachment.
func RequestUploadURL(svc PublicInquiryService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inquiry service unavailable"))
			return
		}

		var body uploadURLRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		upload, err := svc.RequestUpload(r.Context(), inquiries.UploadRequest{
			Filename:    body.Filename,
			ContentType: strings.ToLower(strings.TrimSpace(body.ContentType)),
			SizeBytes:   body.SizeBytes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, upload)
	}
}

// LookupInquiry exposes status and quote by reference.
func LookupInquiry(svc PublicInquiryService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inquiry service unavailable"))
			return
		}

		reference := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "reference")))
		if !inquiries.ValidReference(reference) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "inquiry not found"))
			return
		}
		status, err := svc.Lookup(r.Context(), reference)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.Header().Set("Cache-Control", "no-store")
		responses.WriteSuccess(w, status)
	}
}
