package services

import (
	"time"

	"github.com/shopspring/decimal"

	"collection-kpi/models"
)

// Bucket labels in display order.
const (
	BucketUnder30 = "< 30 Days"
	Bucket31To60  = "31 - 60 Days"
	Bucket61To90  = "61 - 90 Days"
	BucketOver90  = "> 90 Days"
)

// BucketOrder lists the ageing buckets in display order.
var BucketOrder = []string{BucketUnder30, Bucket31To60, Bucket61To90, BucketOver90}

// Bucket returns the ageing bucket for a day count. Negative counts fall in
// no bucket.
func Bucket(days int) (string, bool) {
	switch {
	case days < 0:
		return "", false
	case days < 30:
		return BucketUnder30, true
	case days < 61:
		return Bucket31To60, true
	case days < 91:
		return Bucket61To90, true
	default:
		return BucketOver90, true
	}
}

// DaysBetween counts whole calendar days from from to to.
func DaysBetween(from, to time.Time) int {
	return int(DateOnly(to).Sub(DateOnly(from)).Hours() / 24)
}

// ageingBuilder fills an AgeingTable. Count is either entries or distinct
// keys, depending on whether add is given a key.
type ageingBuilder struct {
	table models.AgeingTable
	index map[string]int
	seen  []map[string]struct{}
}

func newAgeingBuilder(name, title string) *ageingBuilder {
	b := &ageingBuilder{
		table: models.AgeingTable{Name: name, Title: title},
		index: make(map[string]int, len(BucketOrder)),
		seen:  make([]map[string]struct{}, len(BucketOrder)),
	}
	for i, label := range BucketOrder {
		b.table.Buckets = append(b.table.Buckets, models.AgeingBucket{Label: label, Amount: decimal.Zero})
		b.index[label] = i
		b.seen[i] = make(map[string]struct{})
	}
	return b
}

// add places one entry. days is nil when the day count is unknown. A
// non-empty key is counted once per bucket.
func (b *ageingBuilder) add(days *int, key string, amount decimal.Decimal) {
	if days == nil {
		b.table.Unbucketed++
		return
	}
	label, ok := Bucket(*days)
	if !ok {
		b.table.Unbucketed++
		return
	}
	i := b.index[label]
	bucket := &b.table.Buckets[i]
	bucket.Amount = bucket.Amount.Add(amount)
	if key == "" {
		bucket.Count++
		return
	}
	if _, dup := b.seen[i][key]; !dup {
		b.seen[i][key] = struct{}{}
		bucket.Count++
	}
}

func (b *ageingBuilder) build() models.AgeingTable {
	return b.table
}

func daysSince(from *time.Time, to time.Time) *int {
	if from == nil {
		return nil
	}
	d := DaysBetween(*from, to)
	return &d
}
