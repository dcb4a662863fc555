package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"collection-kpi/models"
	"collection-kpi/services"
	"collection-kpi/utils"
)

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	table := models.Table{
		Name:    "summary",
		Columns: []string{"Metric", "All Units"},
		Rows:    [][]string{{"Units Booked", "1,204"}, {"Amount", "₹ 0.50 Cr (50.0%)"}},
	}
	if err := WriteCSV(&buf, table); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	want := "Metric,All Units\nUnits Booked,\"1,204\"\nAmount,₹ 0.50 Cr (50.0%)\n"
	if buf.String() != want {
		t.Errorf("output: got %q, want %q", buf.String(), want)
	}
}

func TestCSVWriterWriteTables(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	w, err := NewCSVWriter(dir)
	if err != nil {
		t.Fatalf("NewCSVWriter: %v", err)
	}
	paths, err := w.WriteTables([]models.Table{
		{Name: "a", Columns: []string{"x"}, Rows: [][]string{{"1"}}},
		{Name: "b", Columns: []string{"y"}},
	})
	if err != nil {
		t.Fatalf("WriteTables: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("paths: got %v", paths)
	}
	data, err := os.ReadFile(filepath.Join(dir, "a.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "x\n1\n" {
		t.Errorf("a.csv: got %q", data)
	}
}

func TestWriteItemsRoundTrip(t *testing.T) {
	raw, err := ReadCSV(strings.NewReader(
		"Booking ID,Property,Booking Date,Amount Due,Payment Received\n"+
			"B1, Green Acres ,5/1/2024,\"₹ 1,00,000\",nan\n"+
			"B2,Blue,2024-02-10,(500),250.50\n"), "items.csv")
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	cols := models.ColumnMap{
		models.FieldBookingID:       "Booking ID",
		models.FieldPropertyName:    "Property",
		models.FieldBookingDate:     "Booking Date",
		models.FieldAmountDue:       "Amount Due",
		models.FieldPaymentReceived: "Payment Received",
	}
	cleaner := services.NewCleaner(utils.NewLogger())
	ds := cleaner.Clean(raw, cols)

	var buf bytes.Buffer
	if err := WriteItems(&buf, ds); err != nil {
		t.Fatalf("WriteItems: %v", err)
	}
	want := "Booking ID,Property,Booking Date,Amount Due,Payment Received\n" +
		"B1,Green Acres,05/01/2024,100000,\n" +
		"B2,Blue,10/02/2024,-500,250.5\n"
	if buf.String() != want {
		t.Errorf("items: got %q, want %q", buf.String(), want)
	}

	again, err := ReadCSV(&buf, "items.csv")
	if err != nil {
		t.Fatalf("ReadCSV again: %v", err)
	}
	first := services.CanonicalTable(ds)
	second := services.CanonicalTable(cleaner.Clean(again, ds.Columns))
	if !reflect.DeepEqual(first.Rows, second.Rows) {
		t.Errorf("round trip: got %q, want %q", second.Rows, first.Rows)
	}
}
