package schema

import (
	"fmt"
	"strconv"
	"strings"

	"supplychain/internal/domain/catalog"
	"supplychain/internal/infrastructure/persistence/dialect"
)

// CreateTableSQL renders an idempotent CREATE TABLE statement.
func CreateTableSQL(d dialect.Dialect, t catalog.TableSpec) string {
	var lines []string
	for _, c := range t.Columns {
		lines = append(lines, columnSQL(d, c))
	}
	lines = append(lines, "PRIMARY KEY ("+dialect.QuoteList(t.Key)+")")
	for _, fk := range t.ForeignKeys {
		line := fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s)",
			dialect.Quote(fk.Column), dialect.Quote(fk.RefTable), dialect.Quote(fk.RefColumn))
		if fk.Cascade {
			line += " ON DELETE CASCADE"
		}
		lines = append(lines, line)
	}
	for _, chk := range t.Checks {
		lines = append(lines, fmt.Sprintf("CONSTRAINT %s CHECK (%s)", dialect.Quote(chk.Name), chk.Expr))
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n    %s\n)",
		dialect.Quote(t.Name), strings.Join(lines, ",\n    "))
}

// CreateIndexSQL renders one idempotent CREATE INDEX statement per index.
func CreateIndexSQL(t catalog.TableSpec) []string {
	out := make([]string, 0, len(t.Indexes))
	for _, idx := range t.Indexes {
		out = append(out, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
			dialect.Quote(idx.Name), dialect.Quote(t.Name), dialect.QuoteList(idx.Columns)))
	}
	return out
}

func columnSQL(d dialect.Dialect, c catalog.Column) string {
	var b strings.Builder
	b.WriteString(dialect.Quote(c.Name))
	b.WriteByte(' ')
	b.WriteString(d.ColumnType(c.Type))
	if c.NotNull {
		b.WriteString(" NOT NULL")
	}
	if c.Default != "" {
		b.WriteString(" DEFAULT ")
		b.WriteString(c.Default)
	}
	if expr := rangeExpr(dialect.Quote(c.Name), c.Range); expr != "" {
		b.WriteString(" CHECK (" + expr + ")")
	}
	if len(c.Enum) > 0 {
		quoted := make([]string, len(c.Enum))
		for i, v := range c.Enum {
			quoted[i] = "'" + strings.ReplaceAll(v, "'", "''") + "'"
		}
		b.WriteString(" CHECK (" + dialect.Quote(c.Name) + " IN (" + strings.Join(quoted, ", ") + "))")
	}
	return b.String()
}

func rangeExpr(col string, r *catalog.Range) string {
	if r == nil {
		return ""
	}
	switch {
	case r.Min != nil && r.Max != nil && !r.MinExclusive:
		return fmt.Sprintf("%s BETWEEN %s AND %s", col, number(*r.Min), number(*r.Max))
	case r.Min != nil && r.Max != nil:
		return fmt.Sprintf("%s > %s AND %s <= %s", col, number(*r.Min), col, number(*r.Max))
	case r.Min != nil && r.MinExclusive:
		return fmt.Sprintf("%s > %s", col, number(*r.Min))
	case r.Min != nil:
		return fmt.Sprintf("%s >= %s", col, number(*r.Min))
	case r.Max != nil:
		return fmt.Sprintf("%s <= %s", col, number(*r.Max))
	default:
		return ""
	}
}

func number(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
