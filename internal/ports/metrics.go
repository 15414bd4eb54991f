package ports

import (
	"context"
	"time"
)

// LoadObservation summarizes one table load for metrics.
type LoadObservation struct {
	Table      string
	Status     string
	Rows       int
	Duplicates int
	Orphans    map[string]int
}

// LoadMetrics records load outcomes. Flush persists them at the end of a run.
type LoadMetrics interface {
	ObserveLoad(obs LoadObservation)
	ObserveRun(duration time.Duration, failed bool)
	Flush(ctx context.Context) error
}
