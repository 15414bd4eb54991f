package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"supplychain/internal/domain/catalog"
	"supplychain/internal/errs"
	"supplychain/internal/infrastructure/persistence/dialect"
	"supplychain/internal/ports"
)

// maxBindVars keeps multi-row inserts under SQLite's historical 999 limit.
const maxBindVars = 900

type TableStore struct {
	db        *gorm.DB
	dialect   dialect.Dialect
	batchSize int
}

var _ ports.TableStore = (*TableStore)(nil)

func NewTableStore(db *gorm.DB, d dialect.Dialect, batchSize int) *TableStore {
	if batchSize <= 0 {
		batchSize = 200
	}
	return &TableStore{db: db, dialect: d, batchSize: batchSize}
}

func (s *TableStore) session(ctx context.Context) (*gorm.DB, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(err, "check context")
	}
	return s.db.WithContext(ctx), nil
}

func (s *TableStore) AllowedValues(ctx context.Context, ref catalog.Reference) (map[string]struct{}, error) {
	db, err := s.session(ctx)
	if err != nil {
		return nil, err
	}

	query := "SELECT DISTINCT " + dialect.Quote(ref.Column) + " FROM " + dialect.Quote(ref.Table)
	rows, err := db.Raw(query).Rows()
	if err != nil {
		return nil, errs.Wrapf(err, "query reference %s", ref)
	}
	defer func() { _ = rows.Close() }()

	allowed := make(map[string]struct{})
	for rows.Next() {
		var v sql.NullString
		if err := rows.Scan(&v); err != nil {
			return nil, errs.Wrapf(err, "scan reference %s", ref)
		}
		if v.Valid {
			allowed[v.String] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrapf(err, "iterate reference %s", ref)
	}
	return allowed, nil
}

// ReplaceRows clears the table, then inserts rows in one transaction. The
// delete is committed first, so a failed insert leaves the table empty rather
// than restoring the previous contents.
func (s *TableStore) ReplaceRows(ctx context.Context, table catalog.TableSpec, columns []string, rows []ports.Row) (int, error) {
	db, err := s.session(ctx)
	if err != nil {
		return 0, err
	}

	if err := db.Exec("DELETE FROM " + dialect.Quote(table.Name)).Error; err != nil {
		return 0, errs.Wrapf(classify(err), "clear table %s", table.Name)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	if len(columns) == 0 {
		return 0, errs.Wrapf(catalog.ErrUnknownColumn, "insert into %s without columns", table.Name)
	}

	perStmt := s.batchSize
	if limit := maxBindVars / len(columns); limit < perStmt {
		perStmt = max(limit, 1)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		for start := 0; start < len(rows); start += perStmt {
			end := min(start+perStmt, len(rows))
			stmt, args := s.insertStatement(table.Name, columns, rows[start:end])
			if err := tx.Exec(stmt, args...).Error; err != nil {
				return errs.Wrapf(classify(err), "insert rows %d-%d into %s", start+1, end, table.Name)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

func (s *TableStore) insertStatement(table string, columns []string, rows []ports.Row) (string, []any) {
	placeholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ") + ")"

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(dialect.Quote(table))
	b.WriteString(" (")
	b.WriteString(dialect.QuoteList(columns))
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(columns))
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(placeholder)
		for _, v := range row {
			if d, ok := v.(time.Time); ok {
				args = append(args, s.dialect.DateValue(d))
				continue
			}
			args = append(args, v)
		}
	}
	return b.String(), args
}

func (s *TableStore) CountRows(ctx context.Context, table string) (int64, error) {
	db, err := s.session(ctx)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := db.Table(table).Count(&n).Error; err != nil {
		return 0, errs.Wrapf(err, "count rows in %s", table)
	}
	return n, nil
}

func (s *TableStore) ListTables(ctx context.Context) ([]string, error) {
	db, err := s.session(ctx)
	if err != nil {
		return nil, err
	}
	return dialect.ListTables(ctx, db, s.dialect)
}

// classify marks integrity failures with catalog.ErrConstraintViolation.
// Postgres reports them as SQLSTATE class 23; SQLite only through the
// message ("CHECK constraint failed", "FOREIGN KEY constraint failed", ...).
func classify(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, "23") {
		return errs.Mark(err, catalog.ErrConstraintViolation)
	}
	if strings.Contains(strings.ToLower(err.Error()), "constraint failed") {
		return errs.Mark(err, catalog.ErrConstraintViolation)
	}
	return err
}
