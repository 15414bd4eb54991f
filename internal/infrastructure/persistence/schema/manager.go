package schema

import (
	"context"
	"errors"
	"log/slog"

	"gorm.io/gorm"

	"supplychain/internal/bootstrap/logging"
	"supplychain/internal/domain/catalog"
	"supplychain/internal/errs"
	"supplychain/internal/infrastructure/persistence/dialect"
	"supplychain/internal/ports"
)

// Manager applies a declared table list to the store through one session.
type Manager struct {
	db      *gorm.DB
	dialect dialect.Dialect
	tables  []catalog.TableSpec
}

var _ ports.SchemaManager = (*Manager)(nil)

func NewManager(db *gorm.DB, d dialect.Dialect, tables []catalog.TableSpec) *Manager {
	return &Manager{db: db, dialect: d, tables: tables}
}

// Statements returns the full DDL in foreign-key-safe order: each table
// followed by its indexes.
func (m *Manager) Statements() ([]string, error) {
	for _, t := range m.tables {
		if err := t.Validate(); err != nil {
			return nil, err
		}
	}
	ordered, err := catalog.LoadOrder(m.tables)
	if err != nil {
		return nil, err
	}

	var stmts []string
	for _, t := range ordered {
		stmts = append(stmts, CreateTableSQL(m.dialect, t))
		stmts = append(stmts, CreateIndexSQL(t)...)
	}
	return stmts, nil
}

// CreateSchema enables foreign-key enforcement for the session and creates
// every table and index that does not exist yet. Existing rows are untouched.
func (m *Manager) CreateSchema(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	logCtx := logging.WithComponent(ctx, "persistence.schema")

	stmts, err := m.Statements()
	if err != nil {
		return errs.Wrap(err, "build schema statements")
	}
	if err := m.exec(ctx, m.dialect.EnableForeignKeys()); err != nil {
		return errs.Wrap(err, "enable foreign keys")
	}
	if err := m.exec(ctx, stmts); err != nil {
		return errs.Wrap(err, "create schema")
	}

	logging.Info(logCtx, "schema ensured",
		slog.String("dialect", m.dialect.Name()),
		slog.Int("tables", len(m.tables)),
		slog.Int("statements", len(stmts)),
	)
	return nil
}

// RecreateSchema drops every user table, including ones the catalog does not
// declare, then creates the schema from scratch. All data is lost.
func (m *Manager) RecreateSchema(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	logCtx := logging.WithComponent(ctx, "persistence.schema")

	if err := m.exec(ctx, m.dialect.DisableForeignKeys()); err != nil {
		return errs.Wrap(err, "disable foreign keys")
	}

	tables, err := dialect.ListTables(ctx, m.db, m.dialect)
	if err != nil {
		return err
	}
	for _, name := range tables {
		if err := m.db.WithContext(ctx).Exec(m.dialect.DropTable(name)).Error; err != nil {
			return errs.Wrapf(err, "drop table %s", name)
		}
	}
	logging.Warn(logCtx, "dropped all tables", slog.Any("tables", tables))

	if err := m.exec(ctx, m.dialect.EnableForeignKeys()); err != nil {
		return errs.Wrap(err, "enable foreign keys")
	}
	return m.CreateSchema(ctx)
}

func (m *Manager) exec(ctx context.Context, stmts []string) error {
	for _, stmt := range stmts {
		if err := m.db.WithContext(ctx).Exec(stmt).Error; err != nil {
			return errs.Wrapf(err, "execute %q", firstLine(stmt))
		}
	}
	return nil
}

func firstLine(stmt string) string {
	for i, r := range stmt {
		if r == '\n' {
			return stmt[:i]
		}
	}
	return stmt
}
