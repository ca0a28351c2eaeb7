package controllers

import (
	"context"
	"net/http"

	"github.com/tutorgoat/tutorgoat-backend/api/responses"
	"github.com/tutorgoat/tutorgoat-backend/api/validators"
	"github.com/tutorgoat/tutorgoat-backend/internal/contact"
	pkgerrors "github.com/tutorgoat/tutorgoat-backend/pkg/errors"
	"github.com/tutorgoat/tutorgoat-backend/pkg/logger"
)

type ContactService interface {
	Submit(ctx context.Context, msg contact.Message) (*contact.Receipt, error)
}

type contactRequest struct {
	Name    string `json:"name" validate:"required,max=100"`
	Email   string `json:"email" validate:"required,email,max=254"`
	Subject string `json:"subject" validate:"required,max=200"`
	Message string `json:"message" validate:"required,max=2000"`
}

// SubmitContact queues a contact form message for staff.
func SubmitContact(svc ContactService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "contact service unavailable"))
			return
		}

		var body contactRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		receipt, err := svc.Submit(r.Context(), contact.Message{
			Name:    validators.SanitizeString(body.Name, 100),
			Email:   body.Email,
			Subject: validators.SanitizeString(body.Subject, 200),
			Message: body.Message,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, receipt)
	}
}
