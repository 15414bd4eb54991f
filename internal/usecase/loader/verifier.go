package loader

import (
	"context"
	"errors"
	"log/slog"

	"supplychain/internal/bootstrap/logging"
	"supplychain/internal/errs"
	"supplychain/internal/ports"
)

type TableCount struct {
	Table string
	Rows  int64
}

// Verifier reports what the store currently holds. It never writes.
type Verifier struct {
	store ports.TableStore
}

func NewVerifier(store ports.TableStore) *Verifier {
	return &Verifier{store: store}
}

// Report lists user tables in name order with their row counts.
func (v *Verifier) Report(ctx context.Context) ([]TableCount, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(err, "check context")
	}
	if v.store == nil {
		return nil, errors.New("table store is required")
	}

	names, err := v.store.ListTables(ctx)
	if err != nil {
		return nil, errs.Wrap(err, "list tables")
	}

	logCtx := logging.WithComponent(ctx, "usecase.verifier")
	report := make([]TableCount, 0, len(names))
	for _, name := range names {
		n, err := v.store.CountRows(ctx, name)
		if err != nil {
			return nil, errs.Wrapf(err, "count %s", name)
		}
		report = append(report, TableCount{Table: name, Rows: n})
		logging.Debug(logCtx, "table counted", slog.String("table", name), slog.Int64("rows", n))
	}
	return report, nil
}
