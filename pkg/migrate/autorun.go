package migrate

import (
	"context"
	"fmt"
	"io"

	"github.com/tutorgoat/tutorgoat-backend/pkg/config"
	"github.com/tutorgoat/tutorgoat-backend/pkg/db"
	"github.com/tutorgoat/tutorgoat-backend/pkg/logger"
)

// MaybeRunDev applies the embedded migrations on startup, but only in dev
// with TUTORGOAT_AUTO_MIGRATE enabled. Other environments run cmd/migrate.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	if err := ValidateEmbedded(); err != nil {
		return err
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{"service": cfg.Service.Kind, "source": "embedded"})
	logg.Info(ctx, "migrate.auto_run_started")
	if err := Apply(ctx, sqlDB, EmbeddedSource(), CmdUp, 0, io.Discard); err != nil {
		return err
	}

	version, err := CurrentVersion(ctx, sqlDB, EmbeddedSource())
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	logg.Info(logg.WithField(ctx, "schema_version", version), "migrate.auto_run_completed")
	return nil
}
