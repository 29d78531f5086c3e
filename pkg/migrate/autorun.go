package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/cartsync/pkg/config"
	"github.com/angelmondragon/cartsync/pkg/db"
	"github.com/angelmondragon/cartsync/pkg/logger"
)

// MaybeRun applies pending migrations at startup when the auto-migrate flag is
// set. SQLite databases are always migrated since they are local to the process.
func MaybeRun(ctx context.Context, cfg *config.Config, driver string, logg *logger.Logger, client *db.Client) error {
	if !cfg.FeatureFlags.AutoMigrate && driver != db.DriverSQLite {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "driver": driver})
	logg.Info(ctx, "running goose migrations")

	if err := Run(ctx, sqlDB, driver, "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}

	logg.Info(ctx, "goose migrations completed")
	return nil
}
