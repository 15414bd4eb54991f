// Package loader loads tabular extracts into the supply chain tables. A load
// deduplicates on the table's primary key, normalizes typed cells, drops rows
// whose foreign keys do not resolve, and replaces the table contents.
package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"supplychain/internal/bootstrap/logging"
	"supplychain/internal/domain/catalog"
	"supplychain/internal/errs"
	"supplychain/internal/ports"
)

type Status string

const (
	StatusLoaded  Status = "loaded"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Options tunes one load. A nil DateColumns falls back to the table's date
// columns. FKFilters maps a column of the loaded table to the key column
// whose current values it must match.
type Options struct {
	DateColumns []string
	FKFilters   map[string]catalog.Reference
}

// Result reports one table load. Err is set only when Status is failed.
type Result struct {
	Table      string
	Status     Status
	Rows       int
	Duplicates int
	Orphans    map[string]int
	Reason     string
	Err        error
}

// OrphanTotal sums dropped rows over all filtered columns.
func (r Result) OrphanTotal() int {
	total := 0
	for _, n := range r.Orphans {
		total += n
	}
	return total
}

type Loader struct {
	store ports.TableStore
}

func NewLoader(store ports.TableStore) *Loader {
	return &Loader{store: store}
}

// Load replaces the contents of table with records. Missing or empty
// records leave the table untouched and yield a skipped result.
func (l *Loader) Load(ctx context.Context, table catalog.TableSpec, records *catalog.RecordSet, opts Options) Result {
	res := Result{Table: table.Name}
	if ctx == nil {
		return failed(res, errors.New("context is required"))
	}
	if err := ctx.Err(); err != nil {
		return failed(res, errs.Wrap(err, "check context"))
	}
	if l.store == nil {
		return failed(res, errors.New("table store is required"))
	}

	logCtx := logging.WithAttrs(logging.WithComponent(ctx, "usecase.loader"), slog.String("table", table.Name))

	if records.Len() == 0 {
		res.Status = StatusSkipped
		res.Reason = "no records"
		logging.Warn(logCtx, "no records to load, table left untouched")
		return res
	}
	if err := records.CheckColumns(table); err != nil {
		return l.fail(logCtx, res, err)
	}

	rows, err := normalize(table, records, opts)
	if err != nil {
		return l.fail(logCtx, res, err)
	}

	rows, res.Duplicates, err = dedupe(table, records.Columns, rows)
	if err != nil {
		return l.fail(logCtx, res, err)
	}
	if res.Duplicates > 0 {
		logging.Warn(logCtx, "dropped duplicate keys",
			slog.Int("duplicates", res.Duplicates),
			slog.String("key", strings.Join(table.Key, ",")),
		)
	}

	rows, res.Orphans, err = l.filterOrphans(logCtx, records.Columns, rows, opts.FKFilters)
	if err != nil {
		return l.fail(logCtx, res, err)
	}

	n, err := l.store.ReplaceRows(ctx, table, records.Columns, rows)
	if err != nil {
		return l.fail(logCtx, res, errs.Wrapf(err, "replace %s", table.Name))
	}

	res.Status = StatusLoaded
	res.Rows = n
	logging.Info(logCtx, "table loaded",
		slog.Int("rows", n),
		slog.Int("duplicates", res.Duplicates),
		slog.Int("orphans", res.OrphanTotal()),
	)
	return res
}

func (l *Loader) fail(ctx context.Context, res Result, err error) Result {
	logging.Error(ctx, "table load failed", slog.Any("error", errs.Loggable(err)))
	return failed(res, err)
}

func failed(res Result, err error) Result {
	res.Status = StatusFailed
	res.Err = err
	res.Reason = err.Error()
	return res
}

// normalize converts every cell into its store value.
func normalize(table catalog.TableSpec, records *catalog.RecordSet, opts Options) ([]ports.Row, error) {
	dateCols := opts.DateColumns
	if dateCols == nil {
		dateCols = table.DateColumns()
	}
	asDate := make(map[string]bool, len(dateCols))
	for _, c := range dateCols {
		asDate[c] = true
	}

	codecs := make([]columnCodec, len(records.Columns))
	for i, name := range records.Columns {
		col, _ := table.Column(name)
		codecs[i] = codecFor(col, asDate[name])
	}

	rows := make([]ports.Row, 0, records.Len())
	for i, rec := range records.Rows {
		row := make(ports.Row, len(codecs))
		for j, codec := range codecs {
			v, err := codec(rec[j])
			if err != nil {
				// Line numbers count the header as line 1.
				return nil, fmt.Errorf("%s.%s line %d: %w", table.Name, records.Columns[j], i+2, err)
			}
			row[j] = v
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// dedupe keeps the first row per primary key and counts the rest.
func dedupe(table catalog.TableSpec, columns []string, rows []ports.Row) ([]ports.Row, int, error) {
	idx, err := positions(columns, table.Key)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %s extract lacks key column: %v", catalog.ErrUnknownColumn, table.Name, err)
	}

	seen := make(map[string]struct{}, len(rows))
	kept := rows[:0:0]
	dups := 0
	var b strings.Builder
	for _, row := range rows {
		b.Reset()
		for n, i := range idx {
			if n > 0 {
				b.WriteByte('\x1f')
			}
			b.WriteString(keyString(row[i]))
		}
		k := b.String()
		if _, ok := seen[k]; ok {
			dups++
			continue
		}
		seen[k] = struct{}{}
		kept = append(kept, row)
	}
	return kept, dups, nil
}

// filterOrphans drops rows whose filtered column value is absent from the
// referenced key set. Filters on columns the extract lacks are ignored.
func (l *Loader) filterOrphans(ctx context.Context, columns []string, rows []ports.Row, filters map[string]catalog.Reference) ([]ports.Row, map[string]int, error) {
	orphans := map[string]int{}
	if len(filters) == 0 {
		return rows, orphans, nil
	}

	names := make([]string, 0, len(filters))
	for col := range filters {
		names = append(names, col)
	}
	sort.Strings(names)

	for _, col := range names {
		i := indexOf(columns, col)
		if i < 0 {
			continue
		}
		ref := filters[col]
		allowed, err := l.store.AllowedValues(ctx, ref)
		if err != nil {
			return nil, nil, errs.Wrapf(err, "load allowed values for %s", col)
		}

		kept := rows[:0:0]
		for _, row := range rows {
			if row[i] != nil {
				if _, ok := allowed[keyString(row[i])]; ok {
					kept = append(kept, row)
					continue
				}
			}
			orphans[col]++
		}
		rows = kept

		if n := orphans[col]; n > 0 {
			logging.Warn(ctx, "dropped rows with unresolved references",
				slog.String("column", col),
				slog.String("reference", ref.String()),
				slog.Int("orphans", n),
			)
		}
	}
	return rows, orphans, nil
}

func positions(columns, want []string) ([]int, error) {
	out := make([]int, len(want))
	for n, name := range want {
		i := indexOf(columns, name)
		if i < 0 {
			return nil, errors.New(name)
		}
		out[n] = i
	}
	return out, nil
}

func indexOf(columns []string, name string) int {
	for i, c := range columns {
		if c == name {
			return i
		}
	}
	return -1
}
