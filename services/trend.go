package services

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"collection-kpi/models"
)

// monthStart returns the first day of t's month at UTC midnight.
func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// MonthlyTrend compares expected collections (amount due by budgeted month)
// with actuals (net payment by payment month) for the months months before
// asOf's month through asOf's month inclusive. Misses never go negative.
func MonthlyTrend(items []models.LineItem, asOf time.Time, months int) []models.TrendPoint {
	if months < 0 {
		months = 0
	}
	end := monthStart(asOf)
	start := end.AddDate(0, -months, 0)

	expected := make(map[time.Time]decimal.Decimal)
	actuals := make(map[time.Time]decimal.Decimal)
	for i := range items {
		li := &items[i]
		if li.BudgetedDate != nil && li.AmountDue.Valid {
			m := monthStart(*li.BudgetedDate)
			expected[m] = expected[m].Add(li.AmountDue.Decimal)
		}
		if li.PaymentDate != nil {
			m := monthStart(*li.PaymentDate)
			actuals[m] = actuals[m].Add(li.NetPayment())
		}
	}

	points := make([]models.TrendPoint, 0, months+1)
	for m := start; !m.After(end); m = m.AddDate(0, 1, 0) {
		exp, act := expected[m], actuals[m]
		misses := exp.Sub(act)
		if misses.IsNegative() {
			misses = decimal.Zero
		}
		points = append(points, models.TrendPoint{Month: m, Expected: exp, Actuals: act, Misses: misses})
	}
	return points
}

// FutureDemandByMonth sums the amount due of future-demand rows by budgeted
// month, earliest first.
func FutureDemandByMonth(items []models.LineItem, asOf time.Time) []models.MonthlyAmount {
	byMonth := make(map[time.Time]decimal.Decimal)
	for i := range items {
		li := &items[i]
		if ClassifyDemand(li, asOf) != DemandFuture || !li.AmountDue.Valid {
			continue
		}
		m := monthStart(*li.BudgetedDate)
		byMonth[m] = byMonth[m].Add(li.AmountDue.Decimal)
	}

	out := make([]models.MonthlyAmount, 0, len(byMonth))
	for m, amt := range byMonth {
		out = append(out, models.MonthlyAmount{Month: m, Amount: amt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.Before(out[j].Month) })
	return out
}
