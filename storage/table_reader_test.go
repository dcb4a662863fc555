package storage

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestReadCSV(t *testing.T) {
	data := "\uFEFF Booking ID ,Property,Amount Due\n" +
		"B1,\"Green, Acres\",\"5,00,000\"\n" +
		",,\n" +
		"B2,Blue\n"

	table, err := ReadCSV(strings.NewReader(data), "sample.csv")
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}

	wantHeaders := []string{"Booking ID", "Property", "Amount Due"}
	if !reflect.DeepEqual(table.Headers, wantHeaders) {
		t.Errorf("headers: got %q, want %q", table.Headers, wantHeaders)
	}
	wantRows := [][]string{
		{"B1", "Green, Acres", "5,00,000"},
		{"B2", "Blue", ""},
	}
	if !reflect.DeepEqual(table.Rows, wantRows) {
		t.Errorf("rows: got %q, want %q", table.Rows, wantRows)
	}
	if table.Source != "sample.csv" {
		t.Errorf("source: got %q, want sample.csv", table.Source)
	}
	if want := []int{2, 4}; !reflect.DeepEqual(table.Lines, want) {
		t.Errorf("lines: got %v, want %v", table.Lines, want)
	}
	if table.DateSerials {
		t.Error("date serials: got true for csv input")
	}
}

func TestReadCSVLinesSkipGaps(t *testing.T) {
	data := "\n" +
		"Booking ID,Note\n" +
		"\n" +
		"B1,\"two\nlines\"\n" +
		"\n" +
		",\n" +
		"B2,x\n"

	table, err := ReadCSV(strings.NewReader(data), "gaps.csv")
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("rows: got %q", table.Rows)
	}
	if want := []int{4, 8}; !reflect.DeepEqual(table.Lines, want) {
		t.Errorf("lines: got %v, want %v", table.Lines, want)
	}
}

func TestReadCSVLatin1(t *testing.T) {
	// "Café" with é as a single 0xE9 byte
	data := []byte("Customer,Amount\nCaf\xe9,10\n")

	table, err := ReadCSV(strings.NewReader(string(data)), "latin1.csv")
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if got := table.Rows[0][0]; got != "Café" {
		t.Errorf("customer: got %q, want %q", got, "Café")
	}
}

func TestReadCSVEmpty(t *testing.T) {
	for _, data := range []string{"", "\n\n", "A,B,C\n", "A,B\n,\n"} {
		_, err := ReadCSV(strings.NewReader(data), "empty.csv")
		if !errors.Is(err, ErrEmptyTable) {
			t.Errorf("ReadCSV(%q): got %v, want ErrEmptyTable", data, err)
		}
	}
}

func TestReadTableUnsupported(t *testing.T) {
	_, err := ReadTable("report.json")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("error: got %v, want ErrUnsupportedFormat", err)
	}
}

func TestReadTableCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bookings.CSV")
	if err := os.WriteFile(path, []byte("Booking ID,Amount\nB1,10\n"), 0644); err != nil {
		t.Fatal(err)
	}
	table, err := ReadTable(path)
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if len(table.Rows) != 1 || table.Source != "bookings.CSV" {
		t.Errorf("table: got %+v", table)
	}
}

func TestReadTableXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bookings.xlsx")

	f := excelize.NewFile()
	rows := [][]interface{}{
		{"Booking ID", "Booking Date", "Amount Due", "Note"},
		{"B1", 45306, 500000, "first"},
		{"B2", 45307, 300000.5},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		r := row
		if err := f.SetSheetRow("Sheet1", cell, &r); err != nil {
			t.Fatal(err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	f.Close()

	table, err := ReadTable(path)
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if len(table.Headers) != 4 {
		t.Fatalf("headers: got %q", table.Headers)
	}
	want := [][]string{
		{"B1", "45306", "500000", "first"},
		{"B2", "45307", "300000.5", ""},
	}
	if !reflect.DeepEqual(table.Rows, want) {
		t.Errorf("rows: got %q, want %q", table.Rows, want)
	}
	if !table.DateSerials {
		t.Error("date serials: got false for xlsx input")
	}
	if wantLines := []int{2, 3}; !reflect.DeepEqual(table.Lines, wantLines) {
		t.Errorf("lines: got %v, want %v", table.Lines, wantLines)
	}
}
