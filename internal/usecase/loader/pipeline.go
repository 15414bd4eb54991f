package loader

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"supplychain/internal/bootstrap/logging"
	"supplychain/internal/domain/catalog"
	"supplychain/internal/errs"
	"supplychain/internal/ports"
)

// TablePlan describes how one table is fed.
type TablePlan struct {
	Table       catalog.TableSpec
	Source      string
	DateColumns []string
	FKFilters   map[string]catalog.Reference
}

// BuildPlan orders tables so referenced tables load first and attaches the
// per-table load options.
//
// Shipment rows are filtered against purchase orders even though the store
// already rejects dangling order ids: orphaned shipments are dropped with a
// warning instead of failing the whole load.
func BuildPlan(tables []catalog.TableSpec) ([]TablePlan, error) {
	ordered, err := catalog.LoadOrder(tables)
	if err != nil {
		return nil, err
	}
	plans := make([]TablePlan, 0, len(ordered))
	for _, t := range ordered {
		p := TablePlan{Table: t, Source: t.Source, DateColumns: t.DateColumns()}
		if t.Name == catalog.TableShipment {
			for _, fk := range t.ForeignKeys {
				if fk.RefTable == catalog.TablePurchaseOrder {
					p.FKFilters = map[string]catalog.Reference{fk.Column: fk.Reference()}
				}
			}
		}
		plans = append(plans, p)
	}
	return plans, nil
}

type RunOptions struct {
	Recreate bool
}

type Summary struct {
	RunID    string
	Results  []Result
	Report   []TableCount
	Duration time.Duration
}

// Failed returns the failed result, if any.
func (s Summary) Failed() (Result, bool) {
	for _, r := range s.Results {
		if r.Status == StatusFailed {
			return r, true
		}
	}
	return Result{}, false
}

type Pipeline struct {
	schema   ports.SchemaManager
	source   ports.SourceReader
	loader   *Loader
	verifier *Verifier
	metrics  ports.LoadMetrics
	tables   []catalog.TableSpec
}

// NewPipeline wires a full load. metrics may be nil.
func NewPipeline(
	schema ports.SchemaManager,
	source ports.SourceReader,
	loader *Loader,
	verifier *Verifier,
	metrics ports.LoadMetrics,
	tables []catalog.TableSpec,
) *Pipeline {
	return &Pipeline{
		schema:   schema,
		source:   source,
		loader:   loader,
		verifier: verifier,
		metrics:  metrics,
		tables:   tables,
	}
}

// Run prepares the schema, loads every table in dependency order and reports
// the resulting row counts. The first failed load stops the run; its error
// is returned together with the partial summary.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (Summary, error) {
	if ctx == nil {
		return Summary{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return Summary{}, errs.Wrap(err, "check context")
	}
	if p.schema == nil || p.source == nil || p.loader == nil || p.verifier == nil {
		return Summary{}, errors.New("pipeline is not fully wired")
	}

	started := time.Now()
	summary := Summary{RunID: uuid.NewString()}
	logCtx := logging.WithAttrs(logging.WithComponent(ctx, "usecase.pipeline"), slog.String("run_id", summary.RunID))
	logging.Info(logCtx, "load run started", slog.Bool("recreate", opts.Recreate))

	err := p.run(logCtx, opts, &summary)
	summary.Duration = time.Since(started)

	if p.metrics != nil {
		p.metrics.ObserveRun(summary.Duration, err != nil)
		if ferr := p.metrics.Flush(logCtx); ferr != nil {
			logging.Warn(logCtx, "flush load metrics failed", slog.Any("error", errs.Loggable(ferr)))
		}
	}
	if err != nil {
		logging.Error(logCtx, "load run failed", slog.Any("error", errs.Loggable(err)))
		return summary, err
	}

	logging.Info(logCtx, "load run completed",
		slog.Int("tables", len(summary.Results)),
		slog.Duration("duration", summary.Duration),
	)
	return summary, nil
}

func (p *Pipeline) run(ctx context.Context, opts RunOptions, summary *Summary) error {
	if opts.Recreate {
		if err := p.schema.RecreateSchema(ctx); err != nil {
			return errs.Wrap(err, "recreate schema")
		}
	} else if err := p.schema.CreateSchema(ctx); err != nil {
		return errs.Wrap(err, "create schema")
	}

	plans, err := BuildPlan(p.tables)
	if err != nil {
		return errs.Wrap(err, "build load plan")
	}

	for _, plan := range plans {
		res := p.loadTable(ctx, plan)
		summary.Results = append(summary.Results, res)
		p.observe(res)
		if res.Status == StatusFailed {
			return errs.Wrapf(res.Err, "load %s", plan.Table.Name)
		}
	}

	report, err := p.verifier.Report(ctx)
	if err != nil {
		return errs.Wrap(err, "verify load")
	}
	summary.Report = report
	return nil
}

func (p *Pipeline) loadTable(ctx context.Context, plan TablePlan) Result {
	tableCtx := logging.WithAttrs(ctx, slog.String("table", plan.Table.Name))

	records, err := p.source.Read(tableCtx, plan.Source)
	switch {
	case errors.Is(err, catalog.ErrMissingSource):
		logging.Warn(tableCtx, "source extract missing, table skipped", slog.String("source", plan.Source))
		return Result{Table: plan.Table.Name, Status: StatusSkipped, Reason: "missing source " + plan.Source}
	case err != nil:
		return Result{
			Table:  plan.Table.Name,
			Status: StatusFailed,
			Err:    errs.Wrapf(err, "read %s", plan.Source),
			Reason: err.Error(),
		}
	}

	return p.loader.Load(tableCtx, plan.Table, records, Options{
		DateColumns: plan.DateColumns,
		FKFilters:   plan.FKFilters,
	})
}

func (p *Pipeline) observe(res Result) {
	if p.metrics == nil {
		return
	}
	p.metrics.ObserveLoad(ports.LoadObservation{
		Table:      res.Table,
		Status:     string(res.Status),
		Rows:       res.Rows,
		Duplicates: res.Duplicates,
		Orphans:    res.Orphans,
	})
}
