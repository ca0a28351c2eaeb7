package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tutorgoat/tutorgoat-backend/api/controllers"
	"github.com/tutorgoat/tutorgoat-backend/api/middleware"
	"github.com/tutorgoat/tutorgoat-backend/internal/auth"
	"github.com/tutorgoat/tutorgoat-backend/pkg/auth/session"
	"github.com/tutorgoat/tutorgoat-backend/pkg/config"
	"github.com/tutorgoat/tutorgoat-backend/pkg/enums"
	"github.com/tutorgoat/tutorgoat-backend/pkg/logger"
	"github.com/tutorgoat/tutorgoat-backend/pkg/metrics"
)

// InquiryService is the inquiry surface the HTTP layer needs.
type InquiryService interface {
	controllers.PublicInquiryService
	controllers.InquiryLister
	controllers.InquiryEditor
	controllers.DashboardService
}

// RedisStore backs rate limiting and idempotency.
type RedisStore interface {
	middleware.IdempotencyStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// Deps carries everything the router wires into handlers. Nil members
// disable the routes or middleware that depend on them.
type Deps struct {
	Config    *config.Config
	Logger    *logger.Logger
	Sessions  session.AccessSessionChecker
	Redis     RedisStore
	Auth      auth.Service
	Contact   controllers.ContactService
	Inquiries InquiryService
	Engine    controllers.StatusEngine
	Reader    controllers.HistoryReader
	Audit     middleware.AuditRecorder
	AuditLogs controllers.AuditLister
	Events    controllers.EventPublisher
	Hub       controllers.EventHub
	Readiness map[string]controllers.Pinger
	Gatherer  prometheus.Gatherer
	HTTP      *metrics.HTTPMetrics
}

func NewRouter(d Deps) http.Handler {
	cfg, logg := d.Config, d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Recoverer(logg),
		middleware.Metrics(httpObserver(d.HTTP)),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Get("/health/live", controllers.HealthLive(cfg))
	r.Get("/health/ready", controllers.HealthReady(cfg, d.Readiness, logg))
	if d.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	loginPolicy := middleware.RateLimitPolicy{
		Name:       "login",
		Window:     cfg.AuthRateLimit.LoginWindow,
		IPLimit:    cfg.AuthRateLimit.LoginIPLimit,
		EmailLimit: cfg.AuthRateLimit.LoginEmailLimit,
	}
	submitPolicy := middleware.RateLimitPolicy{
		Name:    "inquiry",
		Window:  cfg.AuthRateLimit.InquiryWindow,
		IPLimit: cfg.AuthRateLimit.InquiryIPLimit,
	}
	passwordPolicy := loginPolicy
	passwordPolicy.Name = "change_password"
	contactPolicy := middleware.RateLimitPolicy{
		Name:    "contact",
		Window:  cfg.AuthRateLimit.ContactWindow,
		IPLimit: cfg.AuthRateLimit.ContactIPLimit,
	}

	// Public submissions deduplicate when the client sends a key; admin
	// writes must send one.
	optionalKey := middleware.IdempotencyPolicy{}
	requiredKey := middleware.IdempotencyPolicy{Required: true}

	r.Route("/api/v1", func(r chi.Router) {
		r.With(
			middleware.RateLimit(submitPolicy, d.Redis, logg),
			middleware.Idempotency(optionalKey, d.Redis, logg),
		).Post("/inquiries", controllers.SubmitInquiry(d.Inquiries, d.Events, logg))
		r.With(middleware.RateLimit(submitPolicy, d.Redis, logg)).
			Post("/inquiries/uploads", controllers.RequestUploadURL(d.Inquiries, logg))
		r.Get("/inquiries/{reference}", controllers.LookupInquiry(d.Inquiries, logg))

		r.With(middleware.RateLimit(loginPolicy, d.Redis, logg)).
			Post("/auth/login", controllers.AuthLogin(d.Auth, logg))
		r.Post("/auth/refresh", controllers.AuthRefresh(d.Auth, logg))
		r.Post("/auth/logout", controllers.AuthLogout(d.Auth, logg))

		signedIn := r.With(middleware.Auth(cfg.JWT, d.Sessions, logg))
		signedIn.Get("/auth/me", controllers.AuthMe(d.Auth, logg))
		signedIn.With(middleware.RateLimit(passwordPolicy, d.Redis, logg)).
			Post("/auth/change-password", controllers.AuthChangePassword(d.Auth, logg))

		r.With(
			middleware.RateLimit(contactPolicy, d.Redis, logg),
			middleware.Idempotency(optionalKey, d.Redis, logg),
		).Post("/contact", controllers.SubmitContact(d.Contact, logg))
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, d.Sessions, logg))

		guard := func(p enums.Permission, action enums.AuditAction) chi.Router {
			return r.With(
				middleware.RequirePermission(p, d.Audit, logg),
				middleware.Audit(d.Audit, action, "inquiry"),
			)
		}
		// replays return before Audit so a retried write is recorded once
		write := func(p enums.Permission, action enums.AuditAction) chi.Router {
			return r.With(
				middleware.RequirePermission(p, d.Audit, logg),
				middleware.Idempotency(requiredKey, d.Redis, logg),
				middleware.Audit(d.Audit, action, "inquiry"),
			)
		}
		view := func(p enums.Permission) chi.Router {
			return r.With(middleware.RequirePermission(p, d.Audit, logg))
		}

		guard(enums.PermissionViewInquiries, enums.AuditActionViewInquiries).
			Get("/inquiries", controllers.AdminListInquiries(d.Inquiries, logg))
		guard(enums.PermissionViewInquiries, enums.AuditActionExportInquiries).
			Get("/inquiries/export", controllers.AdminExportInquiries(d.Inquiries, logg))
		view(enums.PermissionViewInquiries).
			Get("/inquiries/transitions", controllers.AdminTransitionTable())
		guard(enums.PermissionViewAnalytics, enums.AuditActionViewMetrics).
			Get("/inquiries/metrics", controllers.AdminStatusMetrics(d.Reader, logg))
		write(enums.PermissionEditInquiries, enums.AuditActionBulkUpdateStatus).
			Put("/inquiries/bulk-status", controllers.AdminBulkUpdateStatus(d.Engine, d.Events, d.Audit, logg))

		guard(enums.PermissionViewInquiries, enums.AuditActionViewInquiry).
			Get("/inquiries/{id}", controllers.AdminInquiryDetail(d.Reader, logg))
		write(enums.PermissionEditInquiries, enums.AuditActionUpdateInquiryStatus).
			Put("/inquiries/{id}/status", controllers.AdminUpdateStatus(d.Engine, d.Events, logg))
		write(enums.PermissionEditInquiries, enums.AuditActionUpdateQuote).
			Put("/inquiries/{id}/quote", controllers.AdminUpdateQuote(d.Inquiries, d.Events, logg))
		write(enums.PermissionEditInquiries, enums.AuditActionUpdateInquiry).
			Patch("/inquiries/{id}", controllers.AdminPatchInquiry(d.Inquiries, d.Events, logg))
		write(enums.PermissionDeleteInquiries, enums.AuditActionDeleteInquiry).
			Delete("/inquiries/{id}", controllers.AdminDeleteInquiry(d.Inquiries, d.Events, logg))
		guard(enums.PermissionViewInquiries, enums.AuditActionDownloadFile).
			Get("/inquiries/{id}/attachments/{attachmentId}/download", controllers.AdminDownloadAttachment(d.Inquiries, logg))

		guard(enums.PermissionViewAnalytics, enums.AuditActionViewDashboard).
			Get("/dashboard", controllers.AdminDashboard(d.Inquiries, logg))
		view(enums.PermissionManageSettings).
			Get("/audit-logs", controllers.AdminAuditLogs(d.AuditLogs, logg))
		view(enums.PermissionViewInquiries).
			Get("/events", controllers.AdminEvents(d.Hub, cfg.Realtime.KeepAlivePeriod, logg))
	})

	return r
}

// httpObserver keeps a nil *HTTPMetrics from becoming a non-nil interface.
func httpObserver(m *metrics.HTTPMetrics) interface {
	ObserveRequest(method, route string, status int, took time.Duration)
} {
	if m == nil {
		return nil
	}
	return m
}
