package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/tutorgoat/tutorgoat-backend/api/middleware"
	"github.com/tutorgoat/tutorgoat-backend/api/responses"
	"github.com/tutorgoat/tutorgoat-backend/api/validators"
	"github.com/tutorgoat/tutorgoat-backend/internal/audit"
	"github.com/tutorgoat/tutorgoat-backend/internal/inquiries"
	pkgerrors "github.com/tutorgoat/tutorgoat-backend/pkg/errors"
	"github.com/tutorgoat/tutorgoat-backend/pkg/logger"
	"github.com/tutorgoat/tutorgoat-backend/pkg/pagination"
)

type DashboardService interface {
	Dashboard(ctx context.Context, period inquiries.DashboardPeriod) (*inquiries.Dashboard, error)
}

type AuditLister interface {
	List(ctx context.Context, params audit.ListParams) (*audit.ListResult, error)
}

// AdminDashboard summarises inquiries for period=7d|30d|90d (default 30d).
func AdminDashboard(svc DashboardService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inquiry service unavailable"))
			return
		}

		period := inquiries.ParseDashboardPeriod(strings.TrimSpace(r.URL.Query().Get("period")))
		middleware.AuditDetail(r.Context(), "period", string(period))

		dashboard, err := svc.Dashboard(r.Context(), period)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dashboard)
	}
}

// AdminAuditLogs pages through the audit trail with cursor pagination.
func AdminAuditLogs(svc AuditLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "audit service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		adminID, err := validators.ParseQueryUUID(r, "admin_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		success, err := validators.ParseQueryBool(r, "success")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		from, err := validators.ParseQueryTime(r, "from", false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		to, err := validators.ParseQueryTime(r, "to", true)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		q := r.URL.Query()
		result, err := svc.List(r.Context(), audit.ListParams{
			AdminID:  adminID,
			Action:   strings.TrimSpace(q.Get("action")),
			Resource: strings.TrimSpace(q.Get("resource")),
			Success:  success,
			From:     from,
			To:       to,
			Limit:    limit,
			Cursor:   strings.TrimSpace(q.Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
