package services

import (
	"testing"

	"collection-kpi/models"
)

func TestBucket(t *testing.T) {
	tests := []struct {
		days int
		want string
		ok   bool
	}{
		{-1, "", false},
		{0, BucketUnder30, true},
		{29, BucketUnder30, true},
		{30, Bucket31To60, true},
		{60, Bucket31To60, true},
		{61, Bucket61To90, true},
		{90, Bucket61To90, true},
		{91, BucketOver90, true},
		{1000, BucketOver90, true},
	}
	for _, tt := range tests {
		got, ok := Bucket(tt.days)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Bucket(%d): got (%q, %v), want (%q, %v)", tt.days, got, ok, tt.want, tt.ok)
		}
	}
}

func TestBucketsAreDisjoint(t *testing.T) {
	for d := 0; d < 400; d++ {
		label, ok := Bucket(d)
		if !ok {
			t.Fatalf("Bucket(%d): no bucket", d)
		}
		matches := 0
		for _, l := range BucketOrder {
			if l == label {
				matches++
			}
		}
		if matches != 1 {
			t.Errorf("Bucket(%d) = %q matched %d labels", d, label, matches)
		}
	}
}

func TestBookingAgeing(t *testing.T) {
	bookings := Bookings(mixedDataset(), testAsOf)
	tables := bookingAgeing(bookings, testAsOf)

	unreg, turnaround := tables[0], tables[1]
	if unreg.Buckets[1].Count != 1 {
		t.Errorf("unregistered 31-60: got %d, want 1", unreg.Buckets[1].Count)
	}
	if unreg.Unbucketed != 1 {
		t.Errorf("unregistered unbucketed: got %d, want 1", unreg.Unbucketed)
	}
	if turnaround.Buckets[1].Count != 1 {
		t.Errorf("turnaround 31-60: got %d, want 1", turnaround.Buckets[1].Count)
	}
}

func TestOverdueAgeing(t *testing.T) {
	ds := dataset(
		models.LineItem{BookingID: "X", DemandDate: day("2024-05-20"), AmountDue: amt(5000)},
		models.LineItem{BookingID: "Y", DemandDate: day("2024-04-01"), AmountDue: amt(3000)},
		models.LineItem{BookingID: "Y", DemandDate: day("2024-04-05"), AmountDue: amt(2000)},
		models.LineItem{BookingID: "Z", DemandDate: day("2024-01-01"), AmountDue: amt(500)},
	)
	bookings := Bookings(ds, testAsOf)
	table := overdueAgeing(ds, bookings, dec(1000), 15, testAsOf)

	mid := table.Buckets[1]
	if mid.Count != 1 {
		t.Errorf("31-60 bookings: got %d, want 1", mid.Count)
	}
	assertDecimal(t, "31-60 amount", mid.Amount, dec(5000))
	if table.Unbucketed != 1 {
		t.Errorf("unbucketed: got %d, want 1", table.Unbucketed)
	}
	if table.Buckets[3].Count != 0 {
		t.Errorf("> 90 bookings: got %d, want 0 (below threshold)", table.Buckets[3].Count)
	}
}
