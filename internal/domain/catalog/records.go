package catalog

import (
	"fmt"
	"strings"
)

// RecordSet is a tabular extract: a header and rows of raw text cells.
// An empty cell stands for a missing value.
type RecordSet struct {
	Columns []string
	Rows    [][]string
}

// NewRecordSet builds a record set; short rows are padded with empty cells.
func NewRecordSet(columns []string, rows ...[]string) *RecordSet {
	rs := &RecordSet{Columns: append([]string(nil), columns...)}
	for _, row := range rows {
		rs.Append(row)
	}
	return rs
}

// Append adds a row, padding it to the header width. Cells beyond the
// header are dropped; decoders reject such rows before appending.
func (rs *RecordSet) Append(row []string) {
	cells := make([]string, len(rs.Columns))
	copy(cells, row)
	rs.Rows = append(rs.Rows, cells)
}

func (rs *RecordSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.Rows)
}

// Index returns the position of column, or -1.
func (rs *RecordSet) Index(column string) int {
	for i, c := range rs.Columns {
		if c == column {
			return i
		}
	}
	return -1
}

// Value returns the cell of row i in column, or "" if the column is absent.
func (rs *RecordSet) Value(i int, column string) string {
	idx := rs.Index(column)
	if idx < 0 {
		return ""
	}
	return rs.Rows[i][idx]
}

// CheckColumns verifies the header against the table: every column must be a
// declared, non-generated column and appear once.
func (rs *RecordSet) CheckColumns(t TableSpec) error {
	if len(rs.Columns) == 0 {
		return fmt.Errorf("%w: %s extract has no header", ErrUnknownColumn, t.Name)
	}
	seen := make(map[string]bool, len(rs.Columns))
	var unknown []string
	for _, name := range rs.Columns {
		if seen[name] {
			return fmt.Errorf("%w: %s extract repeats column %s", ErrUnknownColumn, t.Name, name)
		}
		seen[name] = true
		col, ok := t.Column(name)
		if !ok || col.Generated {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf("%w: %s does not accept %s", ErrUnknownColumn, t.Name, strings.Join(unknown, ", "))
	}
	return nil
}
