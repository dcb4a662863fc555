package services

import (
	"strconv"

	"github.com/shopspring/decimal"

	"collection-kpi/models"
)

const monthLayout = "Jan 2006"

// ReportTables renders every section of r as a string table, in export order.
func ReportTables(r *models.Report) []models.Table {
	tables := []models.Table{
		KPITable(r.KPIs),
		SummaryTable(r.Summary),
		BookingsTable(r.Bookings),
	}
	for _, a := range r.Ageing {
		tables = append(tables, AgeingTableRows(a))
	}
	if r.Trend != nil {
		tables = append(tables, TrendTable(r.Trend))
	}
	tables = append(tables, FutureDemandTable(r.FutureDemand), OverdueCustomersTable(r.OverdueCustomers))
	return tables
}

// CheckTables returns the flagged rows of every check that found something.
func CheckTables(cr *models.CheckReport) []models.Table {
	var out []models.Table
	for _, res := range cr.Results {
		if res.Err == nil && res.Count > 0 {
			out = append(out, res.Table)
		}
	}
	return out
}

func KPITable(k models.KPIMetrics) models.Table {
	count := func(n int) string { return FormatCount(n) }
	t := models.Table{
		Name:    "kpis",
		Columns: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Total Units", count(k.TotalUnits)},
			{"Property Units", count(k.PropertyUnits)},
			{"Units Sold", count(k.UnitsSold)},
			{"Units Unsold", count(k.UnitsUnsold)},
			{"Units Registered", count(k.UnitsRegistered)},
			{"Units Unregistered", count(k.UnitsUnregistered)},
			{"Value of Units", FormatCrore(k.ValueOfUnits)},
			{"Total Agreement Value", FormatCrore(k.TotalAgreementValue)},
			{"Corpus + Maintenance", FormatCrore(k.CorpusMaintenance)},
			{"Total Tax", FormatCrore(k.TotalTax)},
			{"Total Demand Generated", FormatCrore(k.TotalDemandGenerated)},
			{"Tax on Demand", FormatCrore(k.TaxOnDemand)},
			{"Demand + Tax", FormatCrore(k.DemandPlusTax)},
			{"Demand Without Tax", FormatCrore(k.DemandWithoutTax)},
			{"Total Collection", FormatCrore(k.TotalCollection)},
			{"Gross Collection on Demand", FormatCrore(k.GrossCollectionOnDemand)},
			{"Tax on Collections", FormatCrore(k.TaxOnCollections)},
			{"Amount Yet to be Collected", FormatCrore(k.AmountYetToBeCollected)},
			{"Expected Future Collection", FormatCrore(k.ExpectedFutureCollection)},
		},
	}
	for _, row := range t.Rows {
		if k.IsUnavailable(row[0]) {
			row[1] = unavailableValue
		}
	}
	return t
}

func SummaryTable(rows []models.SummaryRow) models.Table {
	t := models.Table{Name: "summary", Columns: []string{"Metric", "All Units", "Registered", "Unregistered"}}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{r.Metric, r.All, r.Registered, r.Unregistered})
	}
	return t
}

// BookingsTable lists booking rollups with plain decimal amounts so the
// export stays machine readable.
func BookingsTable(bookings []*models.BookingSummary) models.Table {
	t := models.Table{
		Name: "bookings",
		Columns: []string{
			"Booking ID", "Property", "Customer", "Booking Date", "Registration Date", "Registered", "Rows",
			"Total Agreement Value", "Other Charges", "Agreement Value", "Demand Generated",
			"Budget Passed Not Raised", "Expected Future Demand", "Net Payment", "Amount Overdue",
		},
	}
	for _, b := range bookings {
		registered := "No"
		if b.Registered {
			registered = "Yes"
		}
		t.Rows = append(t.Rows, []string{
			b.BookingID, b.PropertyName, b.CustomerName,
			formatDate(b.BookingDate), formatDate(b.RegistrationDate), registered, strconv.Itoa(b.Rows),
			plain(b.TotalAgreementValue), plain(b.OtherCharges), plain(b.AgreementValue), plain(b.DemandGenerated),
			plain(b.BudgetPassedNotRaised), plain(b.ExpectedFutureDemand), plain(b.NetPayment), plain(b.AmountOverdue),
		})
	}
	return t
}

func AgeingTableRows(a models.AgeingTable) models.Table {
	t := models.Table{Name: a.Name, Columns: []string{"Bucket", "Count", "Amount"}}
	for _, b := range a.Buckets {
		t.Rows = append(t.Rows, []string{b.Label, strconv.Itoa(b.Count), FormatCrore(b.Amount)})
	}
	t.Rows = append(t.Rows, []string{"Unbucketed", strconv.Itoa(a.Unbucketed), ""})
	return t
}

func TrendTable(points []models.TrendPoint) models.Table {
	t := models.Table{Name: "trend", Columns: []string{"Month", "Expected", "Actuals", "Misses"}}
	for _, p := range points {
		t.Rows = append(t.Rows, []string{p.Month.Format(monthLayout), plain(p.Expected), plain(p.Actuals), plain(p.Misses)})
	}
	return t
}

func FutureDemandTable(months []models.MonthlyAmount) models.Table {
	t := models.Table{Name: "future_demand", Columns: []string{"Month", "Expected Demand"}}
	for _, m := range months {
		t.Rows = append(t.Rows, []string{m.Month.Format(monthLayout), plain(m.Amount)})
	}
	return t
}

func OverdueCustomersTable(customers []models.OverdueCustomer) models.Table {
	t := models.Table{Name: "overdue_customers", Columns: []string{"Customer", "Property", "Bookings", "Amount (Lakhs)"}}
	for _, c := range customers {
		t.Rows = append(t.Rows, []string{c.CustomerName, c.PropertyName, strconv.Itoa(c.Bookings), ToLakh(c.Amount).StringFixed(2)})
	}
	return t
}

func plain(d decimal.Decimal) string {
	return d.StringFixed(2)
}
