package services

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestPrintReport(t *testing.T) {
	color.NoColor = true
	svc := NewInsightService(newTestLogger())
	r, err := svc.Generate(mixedDataset(), testOptions())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	var buf bytes.Buffer
	svc.Print(&buf, r)
	out := buf.String()

	for _, want := range []string{"COLLECTION KPIs as of 01 Jun 2024", "Units Booked", "Uday", "₹ 2.49 L", "Overdue Amount by Days Past Demand"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestPrintChecks(t *testing.T) {
	color.NoColor = true
	v := NewValidator(newTestLogger())
	ds := mixedDataset()
	delete(ds.Columns, "amount_percent")
	cr := v.Run(ds, DefaultValidationOptions(testAsOf))

	var buf bytes.Buffer
	v.PrintChecks(&buf, cr)
	out := buf.String()

	if !strings.Contains(out, "skipped: missing required field: amount_percent") {
		t.Errorf("output missing skipped percent check:\n%s", out)
	}
	if !strings.Contains(out, "ok") {
		t.Errorf("output missing passing check:\n%s", out)
	}
}

func TestReportTables(t *testing.T) {
	r, err := NewInsightService(newTestLogger()).Generate(mixedDataset(), testOptions())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	tables := ReportTables(r)

	var names []string
	for _, tbl := range tables {
		names = append(names, tbl.Name)
		for i, row := range tbl.Rows {
			if len(row) != len(tbl.Columns) {
				t.Errorf("%s row %d: got %d cells, want %d", tbl.Name, i, len(row), len(tbl.Columns))
			}
		}
	}
	want := "kpis,summary,bookings,unregistered_booking_age,registration_turnaround,overdue_ageing,trend,future_demand,overdue_customers"
	if got := strings.Join(names, ","); got != want {
		t.Errorf("tables: got %s, want %s", got, want)
	}

	bookings := tables[2]
	if bookings.Rows[0][0] != "R1" || bookings.Rows[0][14] != "110000.00" {
		t.Errorf("first booking row: got %v", bookings.Rows[0])
	}
	customers := tables[len(tables)-1]
	if customers.Rows[0][3] != "2.49" {
		t.Errorf("overdue lakhs: got %s, want 2.49", customers.Rows[0][3])
	}
}
