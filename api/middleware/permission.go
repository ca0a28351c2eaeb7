package middleware

import (
	"net/http"

	"github.com/tutorgoat/tutorgoat-backend/api/responses"
	"github.com/tutorgoat/tutorgoat-backend/internal/audit"
	"github.com/tutorgoat/tutorgoat-backend/pkg/enums"
	pkgerrors "github.com/tutorgoat/tutorgoat-backend/pkg/errors"
	"github.com/tutorgoat/tutorgoat-backend/pkg/logger"
)

// RequirePermission rejects admins whose token lacks p and records the
// denial in the audit log.
func RequirePermission(p enums.Permission, recorder AuditRecorder, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			claims := ClaimsFromContext(ctx)
			if claims == nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
				return
			}
			if !claims.Has(p) {
				if recorder != nil {
					adminID := claims.AdminID
					ip, ua := ClientInfo(r)
					recorder.Record(ctx, audit.Entry{
						AdminID:       &adminID,
						AdminUsername: claims.Username,
						Action:        enums.AuditActionPermissionDenied,
						Resource:      r.URL.Path,
						Details:       map[string]any{"method": r.Method, "required_permission": string(p)},
						IPAddress:     ip,
						UserAgent:     ua,
						Success:       false,
						ErrorMessage:  "insufficient permissions",
					})
				}
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient permissions"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
