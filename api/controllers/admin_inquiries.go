package controllers

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tutorgoat/tutorgoat-backend/api/middleware"
	"github.com/tutorgoat/tutorgoat-backend/api/responses"
	"github.com/tutorgoat/tutorgoat-backend/api/validators"
	"github.com/tutorgoat/tutorgoat-backend/internal/inquiries"
	"github.com/tutorgoat/tutorgoat-backend/pkg/enums"
	pkgerrors "github.com/tutorgoat/tutorgoat-backend/pkg/errors"
	"github.com/tutorgoat/tutorgoat-backend/pkg/logger"
	"github.com/tutorgoat/tutorgoat-backend/pkg/pagination"
)

const defaultMetricsWindow = 30 * 24 * time.Hour

type InquiryLister interface {
	List(ctx context.Context, filters inquiries.ListFilters, page pagination.Page) (*inquiries.InquiryList, error)
	Export(ctx context.Context, filters inquiries.ListFilters, w io.Writer) (int, error)
}

type HistoryReader interface {
	GetInquiryWithHistory(ctx context.Context, id uuid.UUID) (*inquiries.InquiryDetail, error)
	GetStatusMetrics(ctx context.Context, start, end time.Time) (*inquiries.StatusMetrics, error)
}

// AdminListInquiries returns one page of inquiries plus per-status counts.
func AdminListInquiries(svc InquiryLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inquiry service unavailable"))
			return
		}

		filters, err := parseListFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		pageNumber, err := validators.ParseQueryInt(r, "page", 1, 1, 1_000_000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.List(r.Context(), filters, pagination.NewPage(pageNumber, limit))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		middleware.AuditDetail(r.Context(), "results", len(list.Inquiries))
		responses.WriteSuccess(w, list)
	}
}

// AdminExportInquiries streams the filtered inquiries as an XLSX download.
func AdminExportInquiries(svc InquiryLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inquiry service unavailable"))
			return
		}

		filters, err := parseListFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var buf bytes.Buffer
		rows, err := svc.Export(r.Context(), filters, &buf)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		middleware.AuditDetail(r.Context(), "rows", rows)

		w.Header().Set("Content-Type", inquiries.ExportContentType)
		w.Header().Set("Content-Disposition", `attachment; filename="`+inquiries.ExportFilename(time.Now())+`"`)
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
		w.WriteHeader(http.StatusOK)
		if _, err := buf.WriteTo(w); err != nil && logg != nil {
			logg.Error(r.Context(), "export.write_failed", err)
		}
	}
}

// AdminTransitionTable lists each status with its legal successors.
func AdminTransitionTable() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]any{"statuses": inquiries.TransitionTable()})
	}
}

// AdminStatusMetrics aggregates transitions recorded in [start_date, end_date].
// The window defaults to the last 30 days.
func AdminStatusMetrics(reader HistoryReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if reader == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "history reader unavailable"))
			return
		}

		start, err := validators.ParseQueryTime(r, "start_date", false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		end, err := validators.ParseQueryTime(r, "end_date", true)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if end == nil {
			now := time.Now().UTC()
			end = &now
		}
		if start == nil {
			from := end.Add(-defaultMetricsWindow)
			start = &from
		}

		metrics, err := reader.GetStatusMetrics(r.Context(), *start, *end)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, metrics)
	}
}

// AdminInquiryDetail returns one inquiry with its history, newest first.
func AdminInquiryDetail(reader HistoryReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if reader == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "history reader unavailable"))
			return
		}

		id, err := validators.ParseURLUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		detail, err := reader.GetInquiryWithHistory(r.Context(), id)
		if err != nil {
			middleware.AuditError(r.Context(), pkgerrors.PublicMessage(err))
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

func parseListFilters(r *http.Request) (inquiries.ListFilters, error) {
	q := r.URL.Query()
	var filters inquiries.ListFilters

	if raw := strings.TrimSpace(q.Get("status")); raw != "" && raw != "all" {
		status, err := enums.ParseInquiryStatus(strings.ToUpper(raw))
		if err != nil {
			return filters, invalidQuery("status", err)
		}
		filters.Status = status
	}
	if raw := strings.TrimSpace(q.Get("service_type")); raw != "" && raw != "all" {
		st, err := enums.ParseServiceType(raw)
		if err != nil {
			return filters, invalidQuery("service_type", err)
		}
		filters.ServiceType = st
	}
	if raw := strings.TrimSpace(q.Get("urgency")); raw != "" && raw != "all" {
		u, err := enums.ParseUrgency(raw)
		if err != nil {
			return filters, invalidQuery("urgency", err)
		}
		filters.Urgency = u
	}
	filters.AssignedTutor = validators.SanitizeString(q.Get("assigned_tutor"), 100)
	filters.Search = validators.SanitizeString(q.Get("search"), 200)

	var err error
	if filters.DateFrom, err = validators.ParseQueryTime(r, "date_from", false); err != nil {
		return filters, err
	}
	if filters.DateTo, err = validators.ParseQueryTime(r, "date_to", true); err != nil {
		return filters, err
	}
	if filters.MinQuote, err = validators.ParseQueryDecimal(r, "min_quote"); err != nil {
		return filters, err
	}
	if filters.MaxQuote, err = validators.ParseQueryDecimal(r, "max_quote"); err != nil {
		return filters, err
	}

	filters.SortBy = inquiries.ParseSortField(strings.TrimSpace(q.Get("sort_by")))
	filters.SortAsc = strings.EqualFold(strings.TrimSpace(q.Get("sort_order")), "asc")
	return filters, nil
}

func invalidQuery(field string, err error) error {
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+field).WithDetails(map[string]any{"field": field})
}
