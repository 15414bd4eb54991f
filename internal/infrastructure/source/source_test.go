package source

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/xuri/excelize/v2"

	"supplychain/internal/domain/catalog"
)

func TestDecodeCSV(t *testing.T) {
	in := "\ufeffsku_id, product_type\nS1,widget\n\nS2\n\"S3\",\"gadget, large\"\n"
	rs, err := Decode("products_data.csv", strings.NewReader(in))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !reflect.DeepEqual(rs.Columns, []string{"sku_id", "product_type"}) {
		t.Fatalf("Columns = %q", rs.Columns)
	}
	want := [][]string{{"S1", "widget"}, {"S2", ""}, {"S3", "gadget, large"}}
	if !reflect.DeepEqual(rs.Rows, want) {
		t.Fatalf("Rows = %q, want %q", rs.Rows, want)
	}
}

func TestDecodeEmptyExtracts(t *testing.T) {
	for _, in := range []string{"", "sku_id,product_type\n"} {
		rs, err := Decode("x.csv", strings.NewReader(in))
		if err != nil {
			t.Fatalf("Decode(%q) error = %v", in, err)
		}
		if rs.Len() != 0 {
			t.Fatalf("Decode(%q) rows = %d, want 0", in, rs.Len())
		}
	}
	if _, err := Decode("x.parquet", strings.NewReader("")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("Decode(parquet) error = %v", err)
	}
}

func TestDecodeRejectsRowsWiderThanHeader(t *testing.T) {
	in := "vendor_id,supplier_name\nV0,Globex\nV1,Acme,Inc,0.5\n"
	_, err := Decode("vendor_data.csv", strings.NewReader(in))
	if !errors.Is(err, ErrRaggedRow) || !errors.Is(err, catalog.ErrInvalidValue) {
		t.Fatalf("Decode() error = %v, want ErrRaggedRow", err)
	}
	if !strings.Contains(err.Error(), "line 3") {
		t.Fatalf("Decode() error = %v, want line 3", err)
	}

	if _, err := Decode("vendor_data.csv", strings.NewReader("vendor_id,supplier_name\nV1,Acme,\n")); !errors.Is(err, ErrRaggedRow) {
		t.Fatalf("Decode(trailing cell) error = %v, want ErrRaggedRow", err)
	}
}

func TestDecodeXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, row := range [][]any{
		{"warehouse_id", "location"},
		{"W1", "Oslo"},
		{"W2"},
	} {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("SetSheetRow() error = %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer() error = %v", err)
	}
	_ = f.Close()

	rs, err := Decode("warehouse_data.XLSX", bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !reflect.DeepEqual(rs.Columns, []string{"warehouse_id", "location"}) {
		t.Fatalf("Columns = %q", rs.Columns)
	}
	if want := [][]string{{"W1", "Oslo"}, {"W2", ""}}; !reflect.DeepEqual(rs.Rows, want) {
		t.Fatalf("Rows = %q, want %q", rs.Rows, want)
	}
}

func TestDecodeXLSXRejectsRowsWiderThanHeader(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	if err := f.SetSheetRow(sheet, "A1", &[]any{"warehouse_id", "location"}); err != nil {
		t.Fatalf("SetSheetRow() error = %v", err)
	}
	if err := f.SetSheetRow(sheet, "A2", &[]any{"W1", "Oslo", "stray"}); err != nil {
		t.Fatalf("SetSheetRow() error = %v", err)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer() error = %v", err)
	}
	_ = f.Close()

	_, err = Decode("warehouse_data.xlsx", bytes.NewReader(buf.Bytes()))
	if !errors.Is(err, ErrRaggedRow) || !strings.Contains(err.Error(), "line 2") {
		t.Fatalf("Decode() error = %v, want ErrRaggedRow on line 2", err)
	}
}

func TestFSReader(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "vendor_data.csv"), []byte("vendor_id,supplier_name\nV1,Acme\n"), 0o644); err != nil {
		t.Fatalf("write extract: %v", err)
	}
	r := NewFSReader(dir)

	rs, err := r.Read(context.Background(), "vendor_data.csv")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if rs.Len() != 1 || rs.Value(0, "supplier_name") != "Acme" {
		t.Fatalf("Read() = %+v", rs)
	}

	if _, err := r.Read(context.Background(), "demand_data.csv"); !errors.Is(err, catalog.ErrMissingSource) {
		t.Fatalf("Read(missing) error = %v, want ErrMissingSource", err)
	}
}

type fakeS3 map[string]string

func (f fakeS3) RoundTrip(req *http.Request) (*http.Response, error) {
	key := strings.TrimPrefix(req.URL.Path, "/extracts/")
	body, ok := f[key]
	if req.Method != http.MethodGet || !ok {
		return &http.Response{
			StatusCode: http.StatusNotFound,
			Header:     http.Header{"Content-Type": {"application/xml"}},
			Body: io.NopCloser(strings.NewReader(
				`<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`,
			)),
			Request: req,
		}, nil
	}
	return &http.Response{
		StatusCode:    http.StatusOK,
		Header:        http.Header{"Content-Type": {"text/csv"}},
		ContentLength: int64(len(body)),
		Body:          io.NopCloser(strings.NewReader(body)),
		Request:       req,
	}, nil
}

func TestS3Reader(t *testing.T) {
	client := s3.New(s3.Options{
		Region:       "us-east-1",
		Credentials:  aws.AnonymousCredentials{},
		BaseEndpoint: aws.String("https://mock.s3.local"),
		UsePathStyle: true,
		HTTPClient:   &http.Client{Transport: fakeS3{"daily/products_data.csv": "sku_id,product_type\nS1,widget\n"}},
	})
	r := newS3Reader(client, "extracts", "daily")

	rs, err := r.Read(context.Background(), "products_data.csv")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if rs.Len() != 1 || rs.Value(0, "sku_id") != "S1" {
		t.Fatalf("Read() = %+v", rs)
	}

	if _, err := r.Read(context.Background(), "demand_data.csv"); !errors.Is(err, catalog.ErrMissingSource) {
		t.Fatalf("Read(missing) error = %v, want ErrMissingSource", err)
	}
}

func TestNewS3ReaderRequiresBucket(t *testing.T) {
	if _, err := NewS3Reader(context.Background(), S3Config{}); err == nil {
		t.Fatal("NewS3Reader() expected error without bucket")
	}
}
