// Package catalog declares the relational schema as data: tables, typed
// columns with range and enum checks, primary keys, cascading foreign keys and
// indexes. Store adapters render it to DDL; the loader reads key columns and
// column types from it.
package catalog

import (
	"fmt"
	"strings"
)

type ColumnType string

const (
	Text      ColumnType = "text"
	Integer   ColumnType = "integer"
	Real      ColumnType = "real"
	Date      ColumnType = "date"
	DateTime  ColumnType = "datetime"
	Timestamp ColumnType = "timestamp"
)

// IsDate reports whether values of the type are normalized to calendar dates.
func (t ColumnType) IsDate() bool { return t == Date || t == DateTime }

// IsNumeric reports whether values of the type are parsed as numbers.
func (t ColumnType) IsNumeric() bool { return t == Integer || t == Real }

// Range is a numeric bound check. Nil ends are open.
type Range struct {
	Min          *float64
	Max          *float64
	MinExclusive bool
}

func AtLeast(min float64) *Range      { return &Range{Min: &min} }
func GreaterThan(min float64) *Range  { return &Range{Min: &min, MinExclusive: true} }
func Between(min, max float64) *Range { return &Range{Min: &min, Max: &max} }

type Column struct {
	Name    string
	Type    ColumnType
	NotNull bool
	// Default is a literal SQL default expression, e.g. "0" or "CURRENT_TIMESTAMP".
	Default string
	Range   *Range
	Enum    []string
	// Generated columns are filled by the store and never read from extracts.
	Generated bool
}

type ForeignKey struct {
	Column    string
	RefTable  string
	RefColumn string
	Cascade   bool
}

// Reference returns the lookup rule for the referenced key set.
func (fk ForeignKey) Reference() Reference {
	return Reference{Table: fk.RefTable, Column: fk.RefColumn}
}

// Reference names a key column whose current values form an allowed set.
type Reference struct {
	Table  string
	Column string
}

func (r Reference) String() string { return r.Table + "." + r.Column }

type Index struct {
	Name    string
	Columns []string
}

// Check is a table-level rule spanning several columns.
type Check struct {
	Name string
	Expr string
}

type TableSpec struct {
	Name        string
	Columns     []Column
	Key         []string
	ForeignKeys []ForeignKey
	Checks      []Check
	Indexes     []Index
	// Source is the default extract name for the table.
	Source string
}

// PrimaryKey returns a copy of the key column list.
func (t TableSpec) PrimaryKey() []string {
	return append([]string(nil), t.Key...)
}

func (t TableSpec) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// InputColumns lists the columns an extract may carry, in declaration order.
func (t TableSpec) InputColumns() []string {
	out := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		if !c.Generated {
			out = append(out, c.Name)
		}
	}
	return out
}

func (t TableSpec) DateColumns() []string {
	var out []string
	for _, c := range t.Columns {
		if c.Type.IsDate() {
			out = append(out, c.Name)
		}
	}
	return out
}

// DependsOn lists referenced tables other than t itself, without duplicates.
func (t TableSpec) DependsOn() []string {
	seen := map[string]bool{}
	var out []string
	for _, fk := range t.ForeignKeys {
		if fk.RefTable == t.Name || seen[fk.RefTable] {
			continue
		}
		seen[fk.RefTable] = true
		out = append(out, fk.RefTable)
	}
	return out
}

// Validate checks that every key, foreign key, index and range refers to a
// declared column of a compatible type.
func (t TableSpec) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("%w: table name is required", ErrInvalidSpec)
	}
	if len(t.Columns) == 0 {
		return fmt.Errorf("%w: table %s has no columns", ErrInvalidSpec, t.Name)
	}
	seen := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		if c.Name == "" {
			return fmt.Errorf("%w: table %s has an unnamed column", ErrInvalidSpec, t.Name)
		}
		if seen[c.Name] {
			return fmt.Errorf("%w: table %s declares column %s twice", ErrInvalidSpec, t.Name, c.Name)
		}
		seen[c.Name] = true
		if c.Range != nil && !c.Type.IsNumeric() {
			return fmt.Errorf("%w: %s.%s has a range on a %s column", ErrInvalidSpec, t.Name, c.Name, c.Type)
		}
	}
	if len(t.Key) == 0 {
		return fmt.Errorf("%w: table %s has no primary key", ErrInvalidSpec, t.Name)
	}
	for _, k := range t.Key {
		if !seen[k] {
			return fmt.Errorf("%w: %s key column %s is not declared", ErrInvalidSpec, t.Name, k)
		}
	}
	for _, fk := range t.ForeignKeys {
		if !seen[fk.Column] {
			return fmt.Errorf("%w: %s foreign key column %s is not declared", ErrInvalidSpec, t.Name, fk.Column)
		}
		if fk.RefTable == "" || fk.RefColumn == "" {
			return fmt.Errorf("%w: %s.%s foreign key has no target", ErrInvalidSpec, t.Name, fk.Column)
		}
	}
	for _, idx := range t.Indexes {
		if idx.Name == "" || len(idx.Columns) == 0 {
			return fmt.Errorf("%w: %s has an incomplete index", ErrInvalidSpec, t.Name)
		}
		for _, col := range idx.Columns {
			if !seen[col] {
				return fmt.Errorf("%w: index %s column %s is not declared", ErrInvalidSpec, idx.Name, col)
			}
		}
	}
	return nil
}
