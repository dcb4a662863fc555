package services

import (
	"time"

	"github.com/shopspring/decimal"

	"collection-kpi/models"
)

func day(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func amt(v float64) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.NewFromFloat(v))
}

func dec(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

func allColumns() models.ColumnMap {
	cols := make(models.ColumnMap, len(models.AllFields))
	for _, f := range models.AllFields {
		cols[f] = string(f)
	}
	return cols
}

func dataset(items ...models.LineItem) *models.Dataset {
	for i := range items {
		items[i].Row = i + 2
	}
	return &models.Dataset{Source: "test", Columns: allColumns(), Items: items}
}

func assertDecimal(t interface {
	Helper()
	Errorf(string, ...any)
}, name string, got, want decimal.Decimal) {
	t.Helper()
	if !got.Equal(want) {
		t.Errorf("%s: got %s, want %s", name, got, want)
	}
}
