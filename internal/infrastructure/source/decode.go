// Package source reads per-table extracts from a directory or an S3 bucket
// and decodes them into record sets.
package source

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/xuri/excelize/v2"

	"supplychain/internal/domain/catalog"
	"supplychain/internal/errs"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported extract format")
	ErrRaggedRow         = errors.New("extract row wider than header")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Decode parses an extract by its file extension. A header-only or empty
// extract yields a record set without rows. Short rows are padded; a row
// with more cells than the header is rejected.
func Decode(name string, r io.Reader) (*catalog.RecordSet, error) {
	switch strings.ToLower(path.Ext(name)) {
	case ".csv":
		return decodeCSV(r)
	case ".xlsx":
		return decodeXLSX(r)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}
}

func decodeCSV(r io.Reader) (*catalog.RecordSet, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return catalog.NewRecordSet(nil), nil
	}
	if err != nil {
		return nil, errs.Wrap(err, "read csv header")
	}

	rs := catalog.NewRecordSet(cleanHeader(header))
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errs.Wrap(err, "read csv record")
		}
		if blank(rec) {
			continue
		}
		if len(rec) > len(rs.Columns) {
			line, _ := cr.FieldPos(0)
			return nil, raggedRow(line, len(rec), len(rs.Columns))
		}
		rs.Append(rec)
	}
	return rs, nil
}

// decodeXLSX reads the first sheet; its first row is the header.
func decodeXLSX(r io.Reader) (*catalog.RecordSet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errs.Wrap(err, "open xlsx")
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return catalog.NewRecordSet(nil), nil
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errs.Wrapf(err, "read sheet %s", sheet)
	}
	if len(rows) == 0 {
		return catalog.NewRecordSet(nil), nil
	}

	rs := catalog.NewRecordSet(cleanHeader(rows[0]))
	for i, row := range rows[1:] {
		if blank(row) {
			continue
		}
		if len(row) > len(rs.Columns) {
			return nil, raggedRow(i+2, len(row), len(rs.Columns))
		}
		rs.Append(row)
	}
	return rs, nil
}

func raggedRow(line, cells, width int) error {
	return errs.Mark(
		fmt.Errorf("%w: line %d has %d cells, header has %d", ErrRaggedRow, line, cells, width),
		catalog.ErrInvalidValue,
	)
}

func cleanHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		out[i] = strings.TrimSpace(h)
	}
	return out
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
