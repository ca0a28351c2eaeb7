package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tutorgoat/tutorgoat-backend/api/controllers"
	"github.com/tutorgoat/tutorgoat-backend/api/routes"
	"github.com/tutorgoat/tutorgoat-backend/internal/admins"
	"github.com/tutorgoat/tutorgoat-backend/internal/audit"
	"github.com/tutorgoat/tutorgoat-backend/internal/auth"
	"github.com/tutorgoat/tutorgoat-backend/internal/contact"
	"github.com/tutorgoat/tutorgoat-backend/internal/inquiries"
	"github.com/tutorgoat/tutorgoat-backend/internal/realtime"
	"github.com/tutorgoat/tutorgoat-backend/pkg/auth/session"
	"github.com/tutorgoat/tutorgoat-backend/pkg/config"
	"github.com/tutorgoat/tutorgoat-backend/pkg/db"
	"github.com/tutorgoat/tutorgoat-backend/pkg/instance"
	"github.com/tutorgoat/tutorgoat-backend/pkg/logger"
	"github.com/tutorgoat/tutorgoat-backend/pkg/metrics"
	"github.com/tutorgoat/tutorgoat-backend/pkg/migrate"
	"github.com/tutorgoat/tutorgoat-backend/pkg/outbox"
	"github.com/tutorgoat/tutorgoat-backend/pkg/redis"
	"github.com/tutorgoat/tutorgoat-backend/pkg/storage/gcs"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gcsClient, err := gcs.NewClient(context.Background(), cfg.GCS, cfg.GCP, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap gcs", err)
		os.Exit(1)
	}
	defer func() {
		if err := gcsClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing gcs client", err)
		}
	}()

	registry := metrics.NewRegistry()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	auditService, err := audit.NewService(audit.NewRepository(dbClient.DB()), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create audit service", err)
		os.Exit(1)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		AdminRepo:      admins.NewRepository(dbClient.DB()),
		SessionManager: sessionManager,
		Audit:          auditService,
		JWTConfig:      cfg.JWT,
		Lockout:        cfg.AdminLockout,
		Password:       cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	emitter := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	inquiryRepo := inquiries.NewRepository(dbClient.DB())

	inquiryService, err := inquiries.NewService(inquiryRepo, dbClient, emitter, gcsClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create inquiry service", err)
		os.Exit(1)
	}
	inquiryService.SetUploadLimits(inquiries.UploadLimitsFromConfig(cfg.Uploads))

	contactService, err := contact.NewService(dbClient, emitter, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create contact service", err)
		os.Exit(1)
	}

	engineOpts := []inquiries.EngineOption{
		inquiries.WithMetrics(metrics.NewLifecycleMetrics(registry)),
		inquiries.WithLogger(logg),
	}
	if cfg.FeatureFlags.EmitStatusEvents {
		engineOpts = append(engineOpts, inquiries.WithEmitter(emitter))
	}
	if cfg.FeatureFlags.TransitionLocking {
		locker, err := redis.NewLocker(redisClient, redis.LockOptions{
			TTL:        cfg.Lifecycle.LockTTL,
			Retries:    cfg.Lifecycle.LockRetries,
			RetryDelay: cfg.Lifecycle.LockRetryDelay,
		})
		if err != nil {
			logg.Error(context.Background(), "failed to create transition locker", err)
			os.Exit(1)
		}
		engineOpts = append(engineOpts, inquiries.WithLocker(locker))
	}
	engine, err := inquiries.NewEngine(inquiryRepo, dbClient, engineOpts...)
	if err != nil {
		logg.Error(context.Background(), "failed to create status engine", err)
		os.Exit(1)
	}
	reader, err := inquiries.NewReader(inquiryRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create inquiry reader", err)
		os.Exit(1)
	}

	hub := realtime.NewHub(cfg.Realtime.ClientBuffer, logg)
	channel := redisClient.ChannelKey(cfg.Realtime.Channel)
	publisher, err := realtime.NewPublisher(redisClient, channel, hub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create realtime publisher", err)
		os.Exit(1)
	}
	relay, err := realtime.NewRelay(redisClient, channel, hub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create realtime relay", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logg.Error(ctx, "realtime relay stopped", err)
		}
	}()

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})

	router := routes.NewRouter(routes.Deps{
		Config:    cfg,
		Logger:    logg,
		Sessions:  sessionManager,
		Redis:     redisClient,
		Auth:      authService,
		Contact:   contactService,
		Inquiries: inquiryService,
		Engine:    engine,
		Reader:    reader,
		Audit:     auditService,
		AuditLogs: auditService,
		Events:    publisher,
		Hub:       hub,
		Readiness: map[string]controllers.Pinger{
			"postgres": dbClient,
			"redis":    redisClient,
			"gcs":      gcsClient,
		},
		Gatherer: registry,
		HTTP:     metrics.NewHTTPMetrics(registry),
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "graceful shutdown failed", err)
		}
	}
}
