package ports

import (
	"context"

	"supplychain/internal/domain/catalog"
)

// Row is one normalized record: values aligned with the column list passed
// alongside it. nil means SQL NULL.
type Row []any

// TableStore is the loader's view of the relational store.
type TableStore interface {
	// AllowedValues returns the current set of values in ref's column.
	AllowedValues(ctx context.Context, ref catalog.Reference) (map[string]struct{}, error)
	// ReplaceRows deletes every row of the table, then inserts rows. The two
	// steps are not atomic: an insert failure leaves the table empty.
	ReplaceRows(ctx context.Context, table catalog.TableSpec, columns []string, rows []Row) (int, error)
	CountRows(ctx context.Context, table string) (int64, error)
	// ListTables returns user tables (system catalog excluded) in name order.
	ListTables(ctx context.Context) ([]string, error)
}

// SchemaManager applies the declared schema to the store.
type SchemaManager interface {
	CreateSchema(ctx context.Context) error
	RecreateSchema(ctx context.Context) error
}
