package jobs

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"collection-kpi/models"
	"collection-kpi/services"
	"collection-kpi/utils"
)

type fakeStore struct {
	saved []*models.Report
	err   error
}

func (f *fakeStore) SaveRun(r *models.Report) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.saved = append(f.saved, r)
	return "run-1", nil
}

func (f *fakeStore) FetchRuns(int) ([]*models.Run, error) { return nil, nil }
func (f *fakeStore) Close() error                         { return nil }

func testLogger() *utils.Logger {
	return utils.NewLoggerTo(io.Discard, io.Discard, utils.LevelInfo)
}

func testDataset() *models.Dataset {
	cols := make(models.ColumnMap, len(models.AllFields))
	for _, f := range models.AllFields {
		cols[f] = string(f)
	}
	demand := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	return &models.Dataset{
		Source:  "bookings.csv",
		Columns: cols,
		Items: []models.LineItem{{
			Row: 2, BookingID: "B1", DemandDate: &demand,
			AmountDue:       decimal.NewNullDecimal(decimal.NewFromInt(500000)),
			PaymentReceived: decimal.NewNullDecimal(decimal.NewFromInt(400000)),
		}},
	}
}

func TestSnapshotJobRun(t *testing.T) {
	store := &fakeStore{}
	loc := time.FixedZone("IST", 5*3600+1800)
	job := NewSnapshotJob(testDataset(), store, services.DefaultReportOptions(time.Time{}), loc, testLogger())
	// 20:00 UTC is already the next day in IST.
	job.now = func() time.Time { return time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC) }

	id, err := job.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if id != "run-1" {
		t.Errorf("id: got %s, want run-1", id)
	}
	if len(store.saved) != 1 {
		t.Fatalf("saved: got %d, want 1", len(store.saved))
	}
	if got := store.saved[0].AsOf.Format("2006-01-02"); got != "2024-06-02" {
		t.Errorf("as of: got %s, want 2024-06-02", got)
	}
}

func TestSnapshotJobStoreError(t *testing.T) {
	store := &fakeStore{err: errors.New("connection refused")}
	job := NewSnapshotJob(testDataset(), store, services.DefaultReportOptions(time.Time{}), nil, testLogger())
	if _, err := job.Run(); err == nil {
		t.Error("Run: got nil error, want store failure")
	}
}

func TestStartScheduler(t *testing.T) {
	job := NewSnapshotJob(testDataset(), &fakeStore{}, services.DefaultReportOptions(time.Time{}), nil, testLogger())
	if _, err := StartScheduler("not a schedule", job, testLogger()); err == nil {
		t.Error("StartScheduler: got nil error, want parse failure")
	}

	c, err := StartScheduler("0 6 * * *", job, testLogger())
	if err != nil {
		t.Fatalf("StartScheduler: %v", err)
	}
	defer c.Stop()
	if n := len(c.Entries()); n != 1 {
		t.Errorf("entries: got %d, want 1", n)
	}
}

func TestLoadLocation(t *testing.T) {
	if loc := LoadLocation("", testLogger()); loc != time.UTC {
		t.Errorf("empty: got %v, want UTC", loc)
	}
	if loc := LoadLocation("Not/AZone", testLogger()); loc != time.UTC {
		t.Errorf("invalid: got %v, want UTC", loc)
	}
}
