package ports

import (
	"context"

	"supplychain/internal/domain/catalog"
)

// SourceReader fetches a named extract. A missing extract is reported as
// catalog.ErrMissingSource.
type SourceReader interface {
	Read(ctx context.Context, name string) (*catalog.RecordSet, error)
}
