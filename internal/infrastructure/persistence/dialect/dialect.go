// Package dialect holds the per-store differences the schema manager and the
// table store need: column type names, foreign-key toggling, table listing
// and date binding.
package dialect

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"supplychain/internal/domain/catalog"
	"supplychain/internal/errs"
)

type Dialect interface {
	Name() string
	ColumnType(t catalog.ColumnType) string
	// EnableForeignKeys and DisableForeignKeys return the statements that
	// toggle enforcement for the current session; empty when the store always
	// enforces.
	EnableForeignKeys() []string
	DisableForeignKeys() []string
	DropTable(name string) string
	ListTablesQuery() string
	// DateValue converts a normalized calendar date into a bind value.
	DateValue(d time.Time) any
}

func ForDriver(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "sqlite", "sqlite3":
		return SQLite{}, nil
	case "postgres", "postgresql":
		return Postgres{}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Quote quotes an identifier with ANSI double quotes, valid in both stores.
func Quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteList quotes and comma-joins identifiers.
func QuoteList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = Quote(n)
	}
	return strings.Join(quoted, ", ")
}

// ListTables runs the dialect's user-table query.
func ListTables(ctx context.Context, db *gorm.DB, d Dialect) ([]string, error) {
	var names []string
	if err := db.WithContext(ctx).Raw(d.ListTablesQuery()).Scan(&names).Error; err != nil {
		return nil, errs.Wrap(err, "list tables")
	}
	return names, nil
}

type SQLite struct{}

func (SQLite) Name() string { return "sqlite" }

func (SQLite) ColumnType(t catalog.ColumnType) string {
	switch t {
	case catalog.Integer:
		return "INTEGER"
	case catalog.Real:
		return "REAL"
	case catalog.Date:
		return "DATE"
	case catalog.DateTime:
		return "DATETIME"
	case catalog.Timestamp:
		return "TIMESTAMP"
	default:
		return "TEXT"
	}
}

func (SQLite) EnableForeignKeys() []string  { return []string{"PRAGMA foreign_keys = ON"} }
func (SQLite) DisableForeignKeys() []string { return []string{"PRAGMA foreign_keys = OFF"} }

func (SQLite) DropTable(name string) string { return "DROP TABLE IF EXISTS " + Quote(name) }

func (SQLite) ListTablesQuery() string {
	return "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name"
}

// DateValue stores dates as ISO text so range checks compare lexically.
func (SQLite) DateValue(d time.Time) any { return d.Format(time.DateOnly) }

type Postgres struct{}

func (Postgres) Name() string { return "postgres" }

func (Postgres) ColumnType(t catalog.ColumnType) string {
	switch t {
	case catalog.Integer:
		return "BIGINT"
	case catalog.Real:
		return "DOUBLE PRECISION"
	case catalog.Date:
		return "DATE"
	case catalog.DateTime, catalog.Timestamp:
		return "TIMESTAMP"
	default:
		return "TEXT"
	}
}

func (Postgres) EnableForeignKeys() []string  { return nil }
func (Postgres) DisableForeignKeys() []string { return nil }

// DropTable cascades so dependents' constraints do not block the drop.
func (Postgres) DropTable(name string) string {
	return "DROP TABLE IF EXISTS " + Quote(name) + " CASCADE"
}

func (Postgres) ListTablesQuery() string {
	return "SELECT table_name FROM information_schema.tables " +
		"WHERE table_schema = current_schema() AND table_type = 'BASE TABLE' ORDER BY table_name"
}

func (Postgres) DateValue(d time.Time) any {
	y, m, day := d.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}
