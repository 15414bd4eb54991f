package catalog

const (
	TableVendor        = "vendor"
	TableWarehouse     = "warehouse"
	TableProduct       = "product"
	TablePurchaseOrder = "purchase_order"
	TableInventory     = "inventory"
	TableShipment      = "shipment"
	TableDemand        = "demand"
)

var (
	InspectionResults = []string{"pass", "fail", "pending"}
	ShipmentStatuses  = []string{"pending", "in_transit", "delivered", "delayed", "cancelled"}
)

// SupplyChain returns the seven supply chain tables in declaration order.
// Each call returns fresh values.
func SupplyChain() []TableSpec {
	return []TableSpec{
		productTable(),
		warehouseTable(),
		vendorTable(),
		purchaseOrderTable(),
		inventoryTable(),
		shipmentTable(),
		demandTable(),
	}
}

// Lookup finds a table by name.
func Lookup(tables []TableSpec, name string) (TableSpec, bool) {
	for _, t := range tables {
		if t.Name == name {
			return t, true
		}
	}
	return TableSpec{}, false
}

func withTimestamps(cols ...Column) []Column {
	return append(cols,
		Column{Name: "created_at", Type: Timestamp, Default: "CURRENT_TIMESTAMP", Generated: true},
		Column{Name: "updated_at", Type: Timestamp, Default: "CURRENT_TIMESTAMP", Generated: true},
	)
}

func key(name string) Column { return Column{Name: name, Type: Text, NotNull: true} }

func cascade(column, refTable, refColumn string) ForeignKey {
	return ForeignKey{Column: column, RefTable: refTable, RefColumn: refColumn, Cascade: true}
}

func vendorTable() TableSpec {
	return TableSpec{
		Name: TableVendor,
		Columns: withTimestamps(
			key("vendor_id"),
			Column{Name: "supplier_name", Type: Text, NotNull: true},
			Column{Name: "defect_rate", Type: Real, Range: Between(0, 1)},
			Column{Name: "lead_time_days", Type: Integer, Range: AtLeast(0)},
			Column{Name: "quality_score", Type: Real, Range: Between(0, 5)},
		),
		Key:    []string{"vendor_id"},
		Source: "vendor_data.csv",
	}
}

func warehouseTable() TableSpec {
	return TableSpec{
		Name: TableWarehouse,
		Columns: withTimestamps(
			key("warehouse_id"),
			Column{Name: "location", Type: Text, NotNull: true},
		),
		Key:    []string{"warehouse_id"},
		Source: "warehouse_data.csv",
	}
}

func productTable() TableSpec {
	return TableSpec{
		Name: TableProduct,
		Columns: withTimestamps(
			key("sku_id"),
			Column{Name: "product_type", Type: Text, NotNull: true},
		),
		Key:    []string{"sku_id"},
		Source: "products_data.csv",
	}
}

func purchaseOrderTable() TableSpec {
	return TableSpec{
		Name: TablePurchaseOrder,
		Columns: withTimestamps(
			key("po_id"),
			key("sku_id"),
			key("vendor_id"),
			Column{Name: "po_date", Type: Date, NotNull: true},
			Column{Name: "po_qty", Type: Real, NotNull: true, Range: GreaterThan(0)},
			Column{Name: "promised_delivery_date", Type: Date, NotNull: true},
			Column{Name: "actual_receipt_qty", Type: Real, Range: AtLeast(0)},
			Column{Name: "inspection_results", Type: Text, Enum: InspectionResults},
			Column{Name: "manufacturing_costs", Type: Real, Range: AtLeast(0)},
		),
		Key: []string{"po_id"},
		ForeignKeys: []ForeignKey{
			cascade("sku_id", TableProduct, "sku_id"),
			cascade("vendor_id", TableVendor, "vendor_id"),
		},
		Checks: []Check{
			{Name: "chk_po_promised_after_order", Expr: "promised_delivery_date >= po_date"},
		},
		Indexes: []Index{
			{Name: "idx_po_sku", Columns: []string{"sku_id"}},
			{Name: "idx_po_vendor", Columns: []string{"vendor_id"}},
			{Name: "idx_po_dates", Columns: []string{"po_date", "promised_delivery_date"}},
		},
		Source: "purchase_order_data.csv",
	}
}

func inventoryTable() TableSpec {
	qty := func(name string) Column {
		return Column{Name: name, Type: Integer, NotNull: true, Default: "0", Range: AtLeast(0)}
	}
	return TableSpec{
		Name: TableInventory,
		Columns: withTimestamps(
			key("warehouse_id"),
			key("sku_id"),
			qty("stock_available"),
			qty("on_hand_qty"),
			qty("in_transit_qty"),
			qty("reorder_point"),
			qty("safety_stock"),
		),
		Key: []string{"warehouse_id", "sku_id"},
		ForeignKeys: []ForeignKey{
			cascade("warehouse_id", TableWarehouse, "warehouse_id"),
			cascade("sku_id", TableProduct, "sku_id"),
		},
		Indexes: []Index{
			{Name: "idx_inventory_warehouse", Columns: []string{"warehouse_id"}},
			{Name: "idx_inventory_sku", Columns: []string{"sku_id"}},
		},
		Source: "inventory_data.csv",
	}
}

func shipmentTable() TableSpec {
	return TableSpec{
		Name: TableShipment,
		Columns: withTimestamps(
			key("shipment_id"),
			key("order_id"),
			Column{Name: "origin_lat", Type: Real, Range: Between(-90, 90)},
			Column{Name: "origin_lng", Type: Real, Range: Between(-180, 180)},
			Column{Name: "destination_lat", Type: Real, Range: Between(-90, 90)},
			Column{Name: "destination_lng", Type: Real, Range: Between(-180, 180)},
			Column{Name: "status", Type: Text, NotNull: true, Enum: ShipmentStatuses},
			Column{Name: "event_timestamp", Type: DateTime, NotNull: true},
			Column{Name: "estimated_delivery_date", Type: Date},
			Column{Name: "actual_delivery_date", Type: Date},
			Column{Name: "delay_hours", Type: Real, Default: "0", Range: AtLeast(0)},
			Column{Name: "shipping_carrier", Type: Text, NotNull: true},
			Column{Name: "shipping_time_days", Type: Integer, Range: AtLeast(0)},
			Column{Name: "shipping_cost", Type: Real, Range: AtLeast(0)},
		),
		Key: []string{"shipment_id"},
		ForeignKeys: []ForeignKey{
			cascade("order_id", TablePurchaseOrder, "po_id"),
		},
		Checks: []Check{
			{
				Name: "chk_shipment_delivered_after_event",
				Expr: "actual_delivery_date IS NULL OR actual_delivery_date >= event_timestamp",
			},
		},
		Indexes: []Index{
			{Name: "idx_shipment_status", Columns: []string{"status"}},
			{Name: "idx_shipment_dates", Columns: []string{"event_timestamp"}},
		},
		Source: "shipment_data.csv",
	}
}

func demandTable() TableSpec {
	return TableSpec{
		Name: TableDemand,
		Columns: withTimestamps(
			Column{Name: "date", Type: Date, NotNull: true},
			key("sku_id"),
			Column{Name: "price", Type: Real, Range: AtLeast(0)},
			Column{Name: "discount_percent", Type: Real, Range: Between(0, 100)},
			Column{Name: "competitor_price", Type: Real, Range: AtLeast(0)},
			Column{Name: "web_traffic", Type: Integer, Range: AtLeast(0)},
			Column{Name: "units_sold", Type: Integer, Range: AtLeast(0)},
		),
		Key: []string{"date", "sku_id"},
		ForeignKeys: []ForeignKey{
			cascade("sku_id", TableProduct, "sku_id"),
		},
		Indexes: []Index{
			{Name: "idx_demand_date", Columns: []string{"date"}},
			{Name: "idx_demand_sku", Columns: []string{"sku_id"}},
		},
		Source: "demand_data.csv",
	}
}
