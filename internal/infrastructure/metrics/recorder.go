// Package metrics exposes load outcomes as Prometheus series. A run writes
// its registry to a node-exporter textfile when a path is configured.
package metrics

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"supplychain/internal/bootstrap/logging"
	"supplychain/internal/errs"
	"supplychain/internal/ports"
)

const namespace = "supplychain"

var statuses = []string{"loaded", "skipped", "failed"}

// Recorder implements ports.LoadMetrics on its own registry.
type Recorder struct {
	registry   *prometheus.Registry
	rows       *prometheus.CounterVec
	duplicates *prometheus.CounterVec
	orphans    *prometheus.CounterVec
	status     *prometheus.GaugeVec
	lastRun    prometheus.Gauge
	runFailed  prometheus.Gauge
	textfile   string
}

var _ ports.LoadMetrics = (*Recorder)(nil)

// NewRecorder builds a recorder. An empty textfile disables Flush output.
func NewRecorder(textfile string) *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "load_rows_total",
			Help:      "Rows inserted per table.",
		}, []string{"table"}),
		duplicates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "load_duplicates_total",
			Help:      "Rows dropped for repeating a primary key.",
		}, []string{"table"}),
		orphans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "load_orphans_total",
			Help:      "Rows dropped for unresolved references.",
		}, []string{"table", "column"}),
		status: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "load_status",
			Help:      "1 for the latest status of each table load.",
		}, []string{"table", "status"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "load_last_run_seconds",
			Help:      "Duration of the latest load run.",
		}),
		runFailed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "load_last_run_failed",
			Help:      "1 when the latest load run failed.",
		}),
		textfile: textfile,
	}
	r.registry.MustRegister(r.rows, r.duplicates, r.orphans, r.status, r.lastRun, r.runFailed)
	return r
}

func (r *Recorder) ObserveLoad(obs ports.LoadObservation) {
	r.rows.WithLabelValues(obs.Table).Add(float64(obs.Rows))
	r.duplicates.WithLabelValues(obs.Table).Add(float64(obs.Duplicates))
	for col, n := range obs.Orphans {
		r.orphans.WithLabelValues(obs.Table, col).Add(float64(n))
	}
	for _, s := range statuses {
		v := 0.0
		if s == obs.Status {
			v = 1
		}
		r.status.WithLabelValues(obs.Table, s).Set(v)
	}
}

func (r *Recorder) ObserveRun(duration time.Duration, failed bool) {
	r.lastRun.Set(duration.Seconds())
	if failed {
		r.runFailed.Set(1)
	} else {
		r.runFailed.Set(0)
	}
}

// Flush writes the registry atomically to the textfile, if configured.
func (r *Recorder) Flush(ctx context.Context) error {
	if r.textfile == "" {
		return nil
	}
	if dir := filepath.Dir(r.textfile); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errs.Wrapf(err, "create metrics directory %q", dir)
		}
	}
	if err := prometheus.WriteToTextfile(r.textfile, r.registry); err != nil {
		return errs.Wrapf(err, "write metrics textfile %q", r.textfile)
	}
	logging.Debug(logging.WithComponent(ctx, "infrastructure.metrics"), "metrics written", slog.String("path", r.textfile))
	return nil
}
