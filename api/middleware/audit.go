package middleware

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tutorgoat/tutorgoat-backend/internal/audit"
	"github.com/tutorgoat/tutorgoat-backend/pkg/enums"
)

// AuditRecorder stores admin actions.
type AuditRecorder interface {
	Record(ctx context.Context, entry audit.Entry)
}

type auditDetails struct {
	mu     sync.Mutex
	values map[string]any
	errMsg string
}

// AuditDetail attaches a key to the audit entry written for this request.
func AuditDetail(ctx context.Context, key string, value any) {
	details, _ := ctx.Value(ctxAudit).(*auditDetails)
	if details == nil {
		return
	}
	details.mu.Lock()
	details.values[key] = value
	details.mu.Unlock()
}

// AuditError stores the failure message for the audit entry.
func AuditError(ctx context.Context, msg string) {
	details, _ := ctx.Value(ctxAudit).(*auditDetails)
	if details == nil {
		return
	}
	details.mu.Lock()
	details.errMsg = msg
	details.mu.Unlock()
}

// Audit records action once the handler finishes. Any status below 400
// counts as success. The chi {id} route param becomes the resource id.
func Audit(recorder AuditRecorder, action enums.AuditAction, resource string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if recorder == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			details := &auditDetails{values: map[string]any{}}
			ctx := context.WithValue(r.Context(), ctxAudit, details)
			rec := &statusRecorder{ResponseWriter: w}

			next.ServeHTTP(rec, r.WithContext(ctx))

			status := rec.code()
			entry := audit.Entry{
				AdminUsername: UsernameFromContext(ctx),
				Action:        action,
				Resource:      resource,
				ResourceID:    chi.URLParam(r, "id"),
				Success:       status < http.StatusBadRequest,
			}
			if adminID := AdminIDFromContext(ctx); adminID != uuid.Nil {
				entry.AdminID = &adminID
			}
			entry.IPAddress, entry.UserAgent = ClientInfo(r)

			details.mu.Lock()
			if len(details.values) > 0 {
				entry.Details = details.values
			}
			if !entry.Success {
				entry.ErrorMessage = details.errMsg
				if entry.ErrorMessage == "" {
					entry.ErrorMessage = http.StatusText(status)
				}
			}
			details.mu.Unlock()

			recorder.Record(ctx, entry)
		})
	}
}

// ClientInfo returns the caller IP and user agent.
func ClientInfo(r *http.Request) (string, string) {
	return clientIP(r), strings.TrimSpace(r.UserAgent())
}
