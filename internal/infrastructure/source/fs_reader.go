package source

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"supplychain/internal/bootstrap/logging"
	"supplychain/internal/domain/catalog"
	"supplychain/internal/errs"
	"supplychain/internal/ports"
)

// FSReader reads extracts from a local directory.
type FSReader struct {
	Dir string
}

var _ ports.SourceReader = (*FSReader)(nil)

func NewFSReader(dir string) *FSReader {
	return &FSReader{Dir: dir}
}

func (r *FSReader) Read(ctx context.Context, name string) (*catalog.RecordSet, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(err, "check context")
	}

	p := filepath.Join(r.Dir, name)
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errs.Mark(errs.Wrapf(err, "open extract %s", p), catalog.ErrMissingSource)
	}
	if err != nil {
		return nil, errs.Wrapf(err, "open extract %s", p)
	}
	defer func() { _ = f.Close() }()

	rs, err := Decode(name, f)
	if err != nil {
		return nil, errs.Wrapf(err, "decode %s", p)
	}
	logging.Debug(logging.WithComponent(ctx, "source.fs"), "extract read",
		slog.String("path", p),
		slog.Int("rows", rs.Len()),
	)
	return rs, nil
}
