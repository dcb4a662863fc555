package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"collection-kpi/models"
	"collection-kpi/utils"
)

func day(s string) *time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return &t
}

func amt(v int64) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.NewFromInt(v))
}

func newTestServer() *Server {
	cols := make(models.ColumnMap, len(models.AllFields))
	for _, f := range models.AllFields {
		cols[f] = string(f)
	}
	ds := &models.Dataset{
		Source:  "bookings.csv",
		Columns: cols,
		Items: []models.LineItem{
			{
				Row: 2, BookingID: "B1", PropertyName: "A-101", CustomerName: "Asha",
				BookingDate: day("2024-01-01"), DemandDate: day("2024-01-10"), BudgetedDate: day("2024-01-05"),
				AmountDue: amt(500000), PaymentReceived: amt(400000), Tax: amt(20000),
			},
			{
				Row: 3, BookingID: "B1", PropertyName: "A-101", CustomerName: "Asha",
				BudgetedDate: day("2024-12-01"), AmountDue: amt(300000),
			},
			{
				Row: 4, BookingID: "B1", PropertyName: "A-101", CustomerName: "Asha",
				PaymentReceived: amt(5000),
			},
		},
	}
	s := NewServer(ds, Options{
		OverdueThreshold:  decimal.NewFromInt(1000),
		OverdueGraceDays:  15,
		TrendMonths:       12,
		MismatchTolerance: decimal.NewFromInt(1000),
	}, utils.NewLoggerTo(io.Discard, io.Discard, utils.LevelInfo))
	s.now = func() time.Time { return time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC) }
	return s
}

func get(t *testing.T, s *Server, url string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
	return rec
}

func TestHealth(t *testing.T) {
	rec := get(t, newTestServer(), "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" || body["rows"] != float64(3) {
		t.Errorf("body: got %v", body)
	}
}

func TestSummaryUsesDefaultsAndCaches(t *testing.T) {
	s := newTestServer()
	rec := get(t, s, "/api/summary")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body.String())
	}

	var body summaryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.AsOf != "2024-06-01" {
		t.Errorf("as_of: got %s, want 2024-06-01", body.AsOf)
	}
	if !body.OverdueThreshold.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("threshold: got %s, want 1000", body.OverdueThreshold)
	}
	if body.Bookings != 1 {
		t.Errorf("bookings: got %d, want 1", body.Bookings)
	}
	if len(body.Summary) == 0 || body.Summary[0].Metric != "Units Booked" {
		t.Errorf("summary: got %+v", body.Summary)
	}

	get(t, s, "/api/bookings")
	if s.reports.Size() != 1 {
		t.Errorf("cache size: got %d, want 1", s.reports.Size())
	}
	get(t, s, "/api/summary?threshold=5000")
	if s.reports.Size() != 2 {
		t.Errorf("cache size after new threshold: got %d, want 2", s.reports.Size())
	}
}

func TestSummaryRejectsBadParams(t *testing.T) {
	s := newTestServer()
	for _, url := range []string{
		"/api/summary?as_of=01-06-2024",
		"/api/summary?threshold=-1",
		"/api/summary?threshold=abc",
	} {
		rec := get(t, s, url)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: got %d, want 400", url, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"success":false`) {
			t.Errorf("%s: body %s", url, rec.Body.String())
		}
	}
}

func TestBookings(t *testing.T) {
	rec := get(t, newTestServer(), "/api/bookings?as_of=2024-06-01")
	var out []bookingJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("bookings: got %d, want 1", len(out))
	}
	if out[0].BookingID != "B1" || out[0].BookingDate != "2024-01-01" || out[0].Registered {
		t.Errorf("booking: got %+v", out[0])
	}
	if !out[0].DemandGenerated.Equal(decimal.NewFromInt(500000)) {
		t.Errorf("demand generated: got %s, want 500000", out[0].DemandGenerated)
	}
}

func TestTrend(t *testing.T) {
	rec := get(t, newTestServer(), "/api/trend?as_of=2024-06-01")
	var out trendResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Trend) != 13 {
		t.Errorf("trend points: got %d, want 13", len(out.Trend))
	}
	if len(out.FutureDemand) != 1 || out.FutureDemand[0].Month != "2024-12" {
		t.Errorf("future demand: got %+v", out.FutureDemand)
	}
}

func TestChecks(t *testing.T) {
	rec := get(t, newTestServer(), "/api/checks?as_of=2024-06-01")
	var out checksResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Checks) != 12 {
		t.Fatalf("checks: got %d, want 12", len(out.Checks))
	}
	var found bool
	for _, c := range out.Checks {
		if c.Code == "payment_without_demand" {
			found = true
			if c.Count != 1 || c.Passed {
				t.Errorf("payment_without_demand: got count=%d passed=%v", c.Count, c.Passed)
			}
		}
	}
	if !found {
		t.Error("payment_without_demand missing from response")
	}
}

func TestCheckCSV(t *testing.T) {
	s := newTestServer()
	rec := get(t, s, "/api/checks/payment_without_demand.csv")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("content type: got %s", ct)
	}
	want := "property_name,booking_id,customer_name,payment_received,Row\nA-101,B1,Asha,5000,4\n"
	if rec.Body.String() != want {
		t.Errorf("csv: got %q, want %q", rec.Body.String(), want)
	}

	rec = get(t, s, "/api/checks/no_such_check.csv")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown check: got %d, want 404", rec.Code)
	}
}

func TestSummaryMissingFieldIsUnprocessable(t *testing.T) {
	s := newTestServer()
	delete(s.ds.Columns, models.FieldAmountDue)
	rec := get(t, s, "/api/summary")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status: got %d, want 422", rec.Code)
	}
}
