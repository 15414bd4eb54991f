package schema

import (
	"context"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"gorm.io/gorm"

	"supplychain/internal/bootstrap/config"
	"supplychain/internal/bootstrap/database"
	"supplychain/internal/domain/catalog"
	"supplychain/internal/infrastructure/persistence/dialect"
)

func setupManager(t *testing.T) (*Manager, *gorm.DB) {
	t.Helper()

	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "supply_chain.db")
	db, err := database.Open(ctx, config.DatabaseConfig{Driver: "sqlite", DSN: dsn})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = database.Close(ctx, db) })

	return NewManager(db, dialect.SQLite{}, catalog.SupplyChain()), db
}

func listTables(t *testing.T, db *gorm.DB) []string {
	t.Helper()
	names, err := dialect.ListTables(context.Background(), db, dialect.SQLite{})
	if err != nil {
		t.Fatalf("list tables: %v", err)
	}
	return names
}

func count(t *testing.T, db *gorm.DB, table string) int64 {
	t.Helper()
	var n int64
	if err := db.Table(table).Count(&n).Error; err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func mustExec(t *testing.T, db *gorm.DB, sql string, args ...any) {
	t.Helper()
	if err := db.Exec(sql, args...).Error; err != nil {
		t.Fatalf("exec %q: %v", sql, err)
	}
}

func TestCreateTableSQL(t *testing.T) {
	po, _ := catalog.Lookup(catalog.SupplyChain(), catalog.TablePurchaseOrder)
	ddl := CreateTableSQL(dialect.SQLite{}, po)

	for _, fragment := range []string{
		`CREATE TABLE IF NOT EXISTS "purchase_order"`,
		`"po_qty" REAL NOT NULL CHECK ("po_qty" > 0)`,
		`"inspection_results" TEXT CHECK ("inspection_results" IN ('pass', 'fail', 'pending'))`,
		`"created_at" TIMESTAMP DEFAULT CURRENT_TIMESTAMP`,
		`PRIMARY KEY ("po_id")`,
		`FOREIGN KEY ("vendor_id") REFERENCES "vendor" ("vendor_id") ON DELETE CASCADE`,
		`CONSTRAINT "chk_po_promised_after_order" CHECK (promised_delivery_date >= po_date)`,
	} {
		if !strings.Contains(ddl, fragment) {
			t.Fatalf("DDL missing %q:\n%s", fragment, ddl)
		}
	}

	vendor, _ := catalog.Lookup(catalog.SupplyChain(), catalog.TableVendor)
	if ddl := CreateTableSQL(dialect.Postgres{}, vendor); !strings.Contains(ddl, `"defect_rate" DOUBLE PRECISION CHECK ("defect_rate" BETWEEN 0 AND 1)`) {
		t.Fatalf("postgres DDL:\n%s", ddl)
	}
}

func TestStatementsIncludeIndexes(t *testing.T) {
	m := NewManager(nil, dialect.SQLite{}, catalog.SupplyChain())
	stmts, err := m.Statements()
	if err != nil {
		t.Fatalf("Statements() error = %v", err)
	}

	var indexes []string
	for _, s := range stmts {
		if strings.HasPrefix(s, "CREATE INDEX") {
			indexes = append(indexes, s)
		}
	}
	if len(indexes) != 9 {
		t.Fatalf("index statements = %d, want 9: %v", len(indexes), indexes)
	}
	if !strings.HasPrefix(stmts[0], `CREATE TABLE IF NOT EXISTS "product"`) {
		t.Fatalf("first statement = %q, want product table", stmts[0])
	}
}

func TestCreateSchemaIsIdempotent(t *testing.T) {
	m, db := setupManager(t)
	ctx := context.Background()

	if err := m.CreateSchema(ctx); err != nil {
		t.Fatalf("CreateSchema() error = %v", err)
	}
	mustExec(t, db, `INSERT INTO product (sku_id, product_type) VALUES (?, ?)`, "S1", "widget")

	if err := m.CreateSchema(ctx); err != nil {
		t.Fatalf("CreateSchema() second call error = %v", err)
	}

	want := []string{"demand", "inventory", "product", "purchase_order", "shipment", "vendor", "warehouse"}
	if got := listTables(t, db); !reflect.DeepEqual(got, want) {
		t.Fatalf("tables = %v, want %v", got, want)
	}
	if n := count(t, db, "product"); n != 1 {
		t.Fatalf("product rows = %d, want 1", n)
	}
}

func TestRecreateSchemaWipesState(t *testing.T) {
	m, db := setupManager(t)
	ctx := context.Background()

	if err := m.RecreateSchema(ctx); err != nil {
		t.Fatalf("RecreateSchema() on empty store error = %v", err)
	}
	mustExec(t, db, `INSERT INTO product (sku_id, product_type) VALUES ('S1', 'widget')`)
	mustExec(t, db, `INSERT INTO warehouse (warehouse_id, location) VALUES ('W1', 'Lagos')`)
	mustExec(t, db, `INSERT INTO inventory (warehouse_id, sku_id, stock_available) VALUES ('W1', 'S1', 4)`)
	mustExec(t, db, `CREATE TABLE scratch (id TEXT)`)

	if err := m.RecreateSchema(ctx); err != nil {
		t.Fatalf("RecreateSchema() error = %v", err)
	}
	if err := m.CreateSchema(ctx); err != nil {
		t.Fatalf("CreateSchema() error = %v", err)
	}

	tables := listTables(t, db)
	for _, name := range tables {
		if name == "scratch" {
			t.Fatal("recreate kept an undeclared table")
		}
		if n := count(t, db, name); n != 0 {
			t.Fatalf("%s rows = %d, want 0", name, n)
		}
	}
	if len(tables) != 7 {
		t.Fatalf("tables = %v", tables)
	}

	var fk int
	if err := db.Raw("PRAGMA foreign_keys").Scan(&fk).Error; err != nil {
		t.Fatalf("read pragma: %v", err)
	}
	if fk != 1 {
		t.Fatalf("foreign_keys = %d after recreate, want 1", fk)
	}
}

func TestSchemaEnforcesConstraints(t *testing.T) {
	m, db := setupManager(t)
	if err := m.CreateSchema(context.Background()); err != nil {
		t.Fatalf("CreateSchema() error = %v", err)
	}

	rejected := []struct {
		name string
		sql  string
	}{
		{"defect rate above one", `INSERT INTO vendor (vendor_id, supplier_name, defect_rate) VALUES ('V1', 'Acme', 1.5)`},
		{"unknown inspection result", `INSERT INTO purchase_order (po_id, sku_id, vendor_id, po_date, po_qty, promised_delivery_date, inspection_results) VALUES ('P1', 'S1', 'V1', '2024-01-01', 1, '2024-01-02', 'maybe')`},
		{"dangling foreign key", `INSERT INTO inventory (warehouse_id, sku_id) VALUES ('W9', 'S9')`},
		{"latitude out of range", `INSERT INTO shipment (shipment_id, order_id, origin_lat, status, event_timestamp, shipping_carrier) VALUES ('X', 'P1', 91, 'pending', '2024-01-01', 'DHL')`},
	}
	for _, tt := range rejected {
		t.Run(tt.name, func(t *testing.T) {
			if err := db.Exec(tt.sql).Error; err == nil {
				t.Fatalf("insert accepted: %s", tt.sql)
			}
		})
	}
}

func TestDeletingProductCascades(t *testing.T) {
	m, db := setupManager(t)
	if err := m.CreateSchema(context.Background()); err != nil {
		t.Fatalf("CreateSchema() error = %v", err)
	}

	mustExec(t, db, `INSERT INTO product (sku_id, product_type) VALUES ('S1', 'widget')`)
	mustExec(t, db, `INSERT INTO vendor (vendor_id, supplier_name) VALUES ('V1', 'Acme')`)
	mustExec(t, db, `INSERT INTO purchase_order (po_id, sku_id, vendor_id, po_date, po_qty, promised_delivery_date) VALUES ('P1', 'S1', 'V1', '2024-01-01', 10, '2024-01-10')`)
	mustExec(t, db, `INSERT INTO shipment (shipment_id, order_id, status, event_timestamp, shipping_carrier) VALUES ('SH1', 'P1', 'pending', '2024-01-02', 'DHL')`)

	mustExec(t, db, `DELETE FROM product WHERE sku_id = 'S1'`)

	if n := count(t, db, "purchase_order"); n != 0 {
		t.Fatalf("purchase_order rows = %d, want 0", n)
	}
	if n := count(t, db, "shipment"); n != 0 {
		t.Fatalf("shipment rows = %d, want 0 (transitive cascade)", n)
	}
	if n := count(t, db, "vendor"); n != 1 {
		t.Fatalf("vendor rows = %d, want 1", n)
	}
}
