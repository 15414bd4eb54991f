package bootstrap

import (
	"context"
	"errors"
	"log/slog"

	"gorm.io/gorm"

	"supplychain/internal/bootstrap/config"
	"supplychain/internal/bootstrap/logging"
	"supplychain/internal/errs"
	"supplychain/internal/infrastructure/persistence/schema"
)

// App is the wired runtime shared by all commands.
type App struct {
	Config config.Config
	DB     *gorm.DB
	Logger *slog.Logger
	Schema *schema.Manager
}

// Context installs the configured logger on ctx, keeping its attributes.
func (a *App) Context(ctx context.Context) context.Context {
	if a.Logger == nil {
		return ctx
	}
	return logging.WithLogger(ctx, a.Logger)
}

// InitSchema creates missing tables, or drops every table first when
// recreate is set.
func (a *App) InitSchema(ctx context.Context, recreate bool) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	logCtx := logging.WithComponent(ctx, "bootstrap.app")
	logging.Info(logCtx, "start schema setup", slog.Bool("recreate", recreate))

	if recreate {
		if err := a.Schema.RecreateSchema(ctx); err != nil {
			return errs.Wrap(err, "recreate schema")
		}
	} else if err := a.Schema.CreateSchema(ctx); err != nil {
		return errs.Wrap(err, "create schema")
	}

	logging.Info(logCtx, "schema setup completed")
	return nil
}
