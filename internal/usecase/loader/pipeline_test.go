package loader

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"gorm.io/gorm"

	"supplychain/internal/bootstrap/config"
	"supplychain/internal/bootstrap/database"
	"supplychain/internal/domain/catalog"
	"supplychain/internal/infrastructure/persistence/dialect"
	"supplychain/internal/infrastructure/persistence/repository"
	"supplychain/internal/infrastructure/persistence/schema"
	"supplychain/internal/ports"
)

type memSource map[string]*catalog.RecordSet

func (m memSource) Read(_ context.Context, name string) (*catalog.RecordSet, error) {
	rs, ok := m[name]
	if !ok {
		return nil, catalog.ErrMissingSource
	}
	return rs, nil
}

type stubMetrics struct {
	loads   []ports.LoadObservation
	runs    int
	failed  bool
	flushed int
}

func (m *stubMetrics) ObserveLoad(obs ports.LoadObservation) { m.loads = append(m.loads, obs) }
func (m *stubMetrics) ObserveRun(_ time.Duration, failed bool) {
	m.runs++
	m.failed = failed
}
func (m *stubMetrics) Flush(context.Context) error {
	m.flushed++
	return nil
}

type fixture struct {
	db       *gorm.DB
	schema   *schema.Manager
	store    *repository.TableStore
	loader   *Loader
	verifier *Verifier
}

func setupFixture(t *testing.T) *fixture {
	t.Helper()

	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "supply_chain.db")
	db, err := database.Open(ctx, config.DatabaseConfig{Driver: "sqlite", DSN: dsn})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = database.Close(ctx, db) })

	store := repository.NewTableStore(db, dialect.SQLite{}, 50)
	return &fixture{
		db:       db,
		schema:   schema.NewManager(db, dialect.SQLite{}, catalog.SupplyChain()),
		store:    store,
		loader:   NewLoader(store),
		verifier: NewVerifier(store),
	}
}

func (f *fixture) pipeline(source ports.SourceReader, metrics ports.LoadMetrics) *Pipeline {
	return NewPipeline(f.schema, source, f.loader, f.verifier, metrics, catalog.SupplyChain())
}

func mustTable(t *testing.T, name string) catalog.TableSpec {
	t.Helper()
	spec, ok := catalog.Lookup(catalog.SupplyChain(), name)
	if !ok {
		t.Fatalf("unknown table %s", name)
	}
	return spec
}

func counts(report []TableCount) map[string]int64 {
	out := make(map[string]int64, len(report))
	for _, c := range report {
		out[c.Table] = c.Rows
	}
	return out
}

func scenario() memSource {
	return memSource{
		"products_data.csv": catalog.NewRecordSet([]string{"sku_id", "product_type"}, []string{"S1", "widget"}),
		"vendor_data.csv":   catalog.NewRecordSet([]string{"vendor_id", "supplier_name", "defect_rate"}, []string{"V1", "Acme", "0.02"}),
		"purchase_order_data.csv": catalog.NewRecordSet(
			[]string{"po_id", "sku_id", "vendor_id", "po_date", "po_qty", "promised_delivery_date"},
			[]string{"P1", "S1", "V1", "2024-01-01", "10", "2024-01-10"},
		),
	}
}

func TestPipelineEndToEndAndCascade(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	metrics := &stubMetrics{}

	summary, err := f.pipeline(scenario(), metrics).Run(ctx, RunOptions{Recreate: true})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.RunID == "" {
		t.Fatal("summary has no run id")
	}

	got := counts(summary.Report)
	want := map[string]int64{
		"demand": 0, "inventory": 0, "product": 1, "purchase_order": 1,
		"shipment": 0, "vendor": 1, "warehouse": 0,
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("report = %v, want %v", got, want)
	}

	var statuses []Status
	for _, r := range summary.Results {
		statuses = append(statuses, r.Status)
	}
	wantStatuses := []Status{StatusLoaded, StatusSkipped, StatusLoaded, StatusLoaded, StatusSkipped, StatusSkipped, StatusSkipped}
	if !reflect.DeepEqual(statuses, wantStatuses) {
		t.Fatalf("statuses = %v, want %v", statuses, wantStatuses)
	}
	if len(metrics.loads) != 7 || metrics.runs != 1 || metrics.failed || metrics.flushed != 1 {
		t.Fatalf("metrics = %+v", metrics)
	}

	if err := f.db.Exec(`DELETE FROM product WHERE sku_id = 'S1'`).Error; err != nil {
		t.Fatalf("delete product: %v", err)
	}
	report, err := f.verifier.Report(ctx)
	if err != nil {
		t.Fatalf("Report() error = %v", err)
	}
	if n := counts(report)["purchase_order"]; n != 0 {
		t.Fatalf("purchase_order rows after product delete = %d, want 0", n)
	}
}

func TestPipelineFiltersOrphanShipments(t *testing.T) {
	f := setupFixture(t)
	source := scenario()
	source["shipment_data.csv"] = catalog.NewRecordSet(
		[]string{"shipment_id", "order_id", "status", "event_timestamp", "shipping_carrier"},
		[]string{"SH1", "P1", "in_transit", "2024-01-02 08:00:00", "DHL"},
		[]string{"SH2", "P404", "pending", "2024-01-02", "UPS"},
	)

	summary, err := f.pipeline(source, nil).Run(context.Background(), RunOptions{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var shipment Result
	for _, r := range summary.Results {
		if r.Table == catalog.TableShipment {
			shipment = r
		}
	}
	if shipment.Status != StatusLoaded || shipment.Rows != 1 || shipment.Orphans["order_id"] != 1 {
		t.Fatalf("shipment result = %+v", shipment)
	}
}

func TestPipelineStopsAtFirstFailure(t *testing.T) {
	f := setupFixture(t)
	source := scenario()
	source["vendor_data.csv"] = catalog.NewRecordSet(
		[]string{"vendor_id", "supplier_name", "defect_rate"},
		[]string{"V1", "Acme", "1.5"},
	)
	metrics := &stubMetrics{}

	summary, err := f.pipeline(source, metrics).Run(context.Background(), RunOptions{Recreate: true})
	if !errors.Is(err, catalog.ErrConstraintViolation) {
		t.Fatalf("Run() error = %v, want ErrConstraintViolation", err)
	}
	failed, ok := summary.Failed()
	if !ok || failed.Table != catalog.TableVendor {
		t.Fatalf("failed result = %+v", failed)
	}
	if len(summary.Results) != 3 {
		t.Fatalf("results = %d, want load to stop after vendor", len(summary.Results))
	}
	if !metrics.failed {
		t.Fatal("run not observed as failed")
	}

	n, err := f.store.CountRows(context.Background(), "purchase_order")
	if err != nil || n != 0 {
		t.Fatalf("purchase_order rows = %d, %v; want untouched", n, err)
	}
}

func TestLoaderReplacesInsteadOfMerging(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	if err := f.schema.CreateSchema(ctx); err != nil {
		t.Fatalf("CreateSchema() error = %v", err)
	}
	warehouse := mustTable(t, catalog.TableWarehouse)
	cols := []string{"warehouse_id", "location"}

	first := catalog.NewRecordSet(cols, []string{"W1", "Oslo"}, []string{"W2", "Lima"}, []string{"W3", "Pune"})
	if res := f.loader.Load(ctx, warehouse, first, Options{}); res.Status != StatusLoaded {
		t.Fatalf("first load = %+v", res)
	}
	second := catalog.NewRecordSet(cols, []string{"W8", "Kiev"}, []string{"W9", "Quito"})
	if res := f.loader.Load(ctx, warehouse, second, Options{}); res.Status != StatusLoaded || res.Rows != 2 {
		t.Fatalf("second load = %+v", res)
	}

	n, err := f.store.CountRows(ctx, "warehouse")
	if err != nil || n != 2 {
		t.Fatalf("warehouse rows = %d, %v; want 2", n, err)
	}
}

func TestLoaderConstraintFailureEmptiesTable(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	if err := f.schema.CreateSchema(ctx); err != nil {
		t.Fatalf("CreateSchema() error = %v", err)
	}
	vendor := mustTable(t, catalog.TableVendor)
	cols := []string{"vendor_id", "supplier_name", "defect_rate"}

	if res := f.loader.Load(ctx, vendor, catalog.NewRecordSet(cols, []string{"V0", "Old", "0.1"}), Options{}); res.Status != StatusLoaded {
		t.Fatalf("seed load = %+v", res)
	}

	res := f.loader.Load(ctx, vendor, catalog.NewRecordSet(cols, []string{"V1", "Acme", "1.5"}), Options{})
	if res.Status != StatusFailed || !errors.Is(res.Err, catalog.ErrConstraintViolation) {
		t.Fatalf("Load() = %s, %v; want constraint violation", res.Status, res.Err)
	}
	n, err := f.store.CountRows(ctx, "vendor")
	if err != nil || n != 0 {
		t.Fatalf("vendor rows = %d, %v; want 0", n, err)
	}
}

func TestInventoryDefaultsApplyToOmittedColumns(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	source := memSource{
		"products_data.csv":  catalog.NewRecordSet([]string{"sku_id", "product_type"}, []string{"S1", "widget"}),
		"warehouse_data.csv": catalog.NewRecordSet([]string{"warehouse_id", "location"}, []string{"W1", "Oslo"}),
		"inventory_data.csv": catalog.NewRecordSet([]string{"warehouse_id", "sku_id", "stock_available"}, []string{"W1", "S1", "7"}),
	}
	if _, err := f.pipeline(source, nil).Run(ctx, RunOptions{}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var onHand int64 = -1
	if err := f.db.Raw(`SELECT on_hand_qty FROM inventory WHERE warehouse_id = 'W1'`).Scan(&onHand).Error; err != nil {
		t.Fatalf("query inventory: %v", err)
	}
	if onHand != 0 {
		t.Fatalf("on_hand_qty = %d, want default 0", onHand)
	}
}

func TestBuildPlan(t *testing.T) {
	plans, err := BuildPlan(catalog.SupplyChain())
	if err != nil {
		t.Fatalf("BuildPlan() error = %v", err)
	}
	var order []string
	for _, p := range plans {
		order = append(order, p.Table.Name)
		if p.Table.Name == catalog.TableShipment {
			ref, ok := p.FKFilters["order_id"]
			if !ok || ref != (catalog.Reference{Table: "purchase_order", Column: "po_id"}) {
				t.Fatalf("shipment filters = %v", p.FKFilters)
			}
		} else if len(p.FKFilters) != 0 {
			t.Fatalf("%s has filters %v", p.Table.Name, p.FKFilters)
		}
	}
	want := []string{"product", "warehouse", "vendor", "purchase_order", "inventory", "shipment", "demand"}
	if !reflect.DeepEqual(order, want) {
		t.Fatalf("plan order = %v, want %v", order, want)
	}
}

func TestBuildPlanFollowsDeclaredOrderReference(t *testing.T) {
	tables := []catalog.TableSpec{
		{
			Name:    catalog.TableShipment,
			Columns: []catalog.Column{{Name: "shipment_id", Type: catalog.Text}, {Name: "order_ref", Type: catalog.Text}},
			Key:     []string{"shipment_id"},
			ForeignKeys: []catalog.ForeignKey{
				{Column: "order_ref", RefTable: catalog.TablePurchaseOrder, RefColumn: "order_no"},
			},
		},
		{
			Name:    catalog.TablePurchaseOrder,
			Columns: []catalog.Column{{Name: "order_no", Type: catalog.Text}},
			Key:     []string{"order_no"},
		},
	}

	plans, err := BuildPlan(tables)
	if err != nil {
		t.Fatalf("BuildPlan() error = %v", err)
	}
	if len(plans) != 2 || plans[1].Table.Name != catalog.TableShipment {
		t.Fatalf("plans = %+v", plans)
	}
	want := map[string]catalog.Reference{"order_ref": {Table: "purchase_order", Column: "order_no"}}
	if !reflect.DeepEqual(plans[1].FKFilters, want) {
		t.Fatalf("shipment filters = %v, want %v", plans[1].FKFilters, want)
	}
}
