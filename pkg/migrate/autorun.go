package migrate

import (
	"context"
	"fmt"

	"github.com/deorejayesh9663/UniTrade/pkg/config"
	"github.com/deorejayesh9663/UniTrade/pkg/db"
	"github.com/deorejayesh9663/UniTrade/pkg/logger"
)

// MaybeRunDev applies the embedded migrations when running in dev with auto-migrate enabled.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	fsys, err := Source("")
	if err != nil {
		return err
	}

	ctx = logg.WithField(ctx, "env", cfg.App.Env)
	logg.Info(ctx, "applying embedded migrations")
	if err := Run(ctx, sqlDB, fsys, "up"); err != nil {
		return err
	}
	logg.Info(ctx, "migrations applied")
	return nil
}
