package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"supplychain/internal/bootstrap/config"
	"supplychain/internal/bootstrap/logging"
	"supplychain/internal/domain/catalog"
	"supplychain/internal/errs"
)

// Open acquires the run's session. SQLite sessions are pinned to a single
// connection: foreign-key enforcement is a per-connection pragma and the
// loader assumes one writer.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*gorm.DB, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(err, "check context")
	}

	logCtx := logging.WithComponent(ctx, "bootstrap.database")
	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}

	var (
		db     *gorm.DB
		err    error
		driver = strings.ToLower(cfg.Driver)
	)
	switch driver {
	case "sqlite", "sqlite3":
		if cfg.MustExist {
			if err := requireSQLiteFile(cfg.DSN); err != nil {
				return nil, errs.Mark(err, catalog.ErrConnection)
			}
		} else if err := ensureSQLiteDirectory(logCtx, cfg.DSN); err != nil {
			return nil, errs.Wrap(err, "ensure sqlite directory")
		}
		db, err = gorm.Open(gormsqlite.Open(sqliteDSN(cfg.DSN)), gormCfg)
		if err != nil {
			return nil, errs.Mark(errs.Wrap(err, "open sqlite db"), catalog.ErrConnection)
		}
	case "postgres", "postgresql":
		db, err = gorm.Open(postgres.Open(cfg.DSN), gormCfg)
		if err != nil {
			return nil, errs.Mark(errs.Wrap(err, "open postgres db"), catalog.ErrConnection)
		}
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errs.Mark(errs.Wrap(err, "get sql db"), catalog.ErrConnection)
	}
	if driver != "postgres" && driver != "postgresql" {
		sqlDB.SetMaxOpenConns(1)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, errs.Mark(errs.Wrap(err, "ping database"), catalog.ErrConnection)
	}

	logging.Info(logCtx, "database opened", slog.String("driver", driver), slog.String("dsn", redactDSN(cfg.DSN)))
	return db, nil
}

// Close releases the session.
func Close(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return errs.Mark(errs.Wrap(err, "get sql db"), catalog.ErrConnection)
	}
	if err := sqlDB.Close(); err != nil {
		return errs.Mark(errs.Wrap(err, "close sql db"), catalog.ErrConnection)
	}
	logging.Info(logging.WithComponent(ctx, "bootstrap.database"), "database connection closed")
	return nil
}

// sqliteDSN turns on foreign-key enforcement through the driver's pragma
// parameter unless the DSN already sets it.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "foreign_keys") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)"
}

func redactDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return dsn
	}
	return dsn[:scheme+3] + "***" + dsn[at:]
}

// sqlitePath extracts the file path from dsn. In-memory DSNs have none.
func sqlitePath(dsn string) (string, bool) {
	candidate := strings.TrimSpace(dsn)
	if candidate == "" || strings.Contains(candidate, ":memory:") {
		return "", false
	}

	if strings.HasPrefix(strings.ToLower(candidate), "file:") {
		candidate = candidate[len("file:"):]
	}
	if idx := strings.Index(candidate, "?"); idx >= 0 {
		candidate = candidate[:idx]
	}
	return candidate, candidate != ""
}

func requireSQLiteFile(dsn string) error {
	path, ok := sqlitePath(dsn)
	if !ok {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return errs.Wrapf(err, "sqlite store %q", path)
	}
	return nil
}

func ensureSQLiteDirectory(ctx context.Context, dsn string) error {
	candidate, ok := sqlitePath(dsn)
	if !ok {
		return nil
	}

	dir := filepath.Dir(candidate)
	if dir == "" || dir == "." {
		return nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errs.Wrapf(err, "create sqlite directory %q", dir)
	}

	logging.Debug(ctx, "sqlite directory ensured", slog.String("dir", dir))
	return nil
}
