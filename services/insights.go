package services

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"collection-kpi/models"
	"collection-kpi/utils"
)

// ErrNegativeThreshold is returned when the overdue threshold is below zero.
var ErrNegativeThreshold = errors.New("overdue threshold must not be negative")

// reportFields must all be resolved before a report can be generated.
var reportFields = []models.Field{
	models.FieldBookingID,
	models.FieldAmountDue,
	models.FieldPaymentReceived,
	models.FieldTax,
	models.FieldDemandDate,
	models.FieldBudgetedDate,
	models.FieldRegistrationDate,
}

// ReportOptions parameterise one report run.
type ReportOptions struct {
	AsOf             time.Time
	OverdueThreshold decimal.Decimal
	OverdueGraceDays int
	TrendMonths      int
}

// DefaultReportOptions returns the standard options for asOf.
func DefaultReportOptions(asOf time.Time) ReportOptions {
	return ReportOptions{
		AsOf:             DateOnly(asOf),
		OverdueThreshold: decimal.NewFromInt(1000),
		OverdueGraceDays: 15,
		TrendMonths:      24,
	}
}

type InsightService struct {
	logger *utils.Logger
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

// Generate computes the full report for ds. It fails with a
// *models.MissingFieldError when a required column was not resolved.
func (s *InsightService) Generate(ds *models.Dataset, opts ReportOptions) (*models.Report, error) {
	if err := ds.Require(reportFields...); err != nil {
		return nil, fmt.Errorf("insights: %w", err)
	}
	if opts.OverdueThreshold.IsNegative() {
		return nil, fmt.Errorf("insights: %w: %s", ErrNegativeThreshold, opts.OverdueThreshold)
	}
	if opts.AsOf.IsZero() {
		opts.AsOf = time.Now()
	}
	asOf := DateOnly(opts.AsOf)

	bookings := Bookings(ds, asOf)
	totals := SummarizeTotals(bookings, opts.OverdueThreshold)

	report := &models.Report{
		Source:           ds.Source,
		AsOf:             asOf,
		OverdueThreshold: opts.OverdueThreshold,
		GeneratedAt:      time.Now().UTC(),
		Bookings:         bookings,
		Totals:           totals,
		KPIs:             computeKPIs(ds, bookings, asOf),
		Summary:          SummaryRows(totals),
		FutureDemand:     FutureDemandByMonth(ds.Items, asOf),
	}

	if _, note := unavailableKPIs(ds); note != "" {
		report.Notes = append(report.Notes, note)
	}
	report.Notes = append(report.Notes, markUnavailableRows(ds, report.Summary)...)

	if err := ds.Require(models.FieldCustomerName, models.FieldPropertyName); err != nil {
		report.Notes = append(report.Notes, fmt.Sprintf("overdue customers skipped: %v", err))
	} else {
		report.OverdueCustomers = OverdueCustomers(bookings, opts.OverdueThreshold)
	}

	if ds.Has(models.FieldPaymentDate) {
		report.Trend = MonthlyTrend(ds.Items, asOf, opts.TrendMonths)
	} else {
		report.Notes = append(report.Notes, "monthly trend skipped: actual_payment_date not resolved")
	}

	if ds.Has(models.FieldBookingDate) {
		report.Ageing = append(report.Ageing, bookingAgeing(bookings, asOf)...)
	} else {
		report.Notes = append(report.Notes, "booking ageing skipped: booking_date not resolved")
	}
	report.Ageing = append(report.Ageing, overdueAgeing(ds, bookings, opts.OverdueThreshold, opts.OverdueGraceDays, asOf))

	s.logger.Info("[insights] %d bookings (%d registered, %d unregistered) as of %s",
		totals.Units.All, totals.Units.Registered, totals.Units.Unregistered, asOf.Format("2006-01-02"))
	for _, note := range report.Notes {
		s.logger.Warn("[insights] %s", note)
	}

	return report, nil
}

// Bookings rolls line items up per booking ID in order of first appearance.
// Rows without a booking ID are left out.
func Bookings(ds *models.Dataset, asOf time.Time) []*models.BookingSummary {
	asOf = DateOnly(asOf)
	byID := make(map[string]*models.BookingSummary)
	// firsts records which first-value amounts have been taken per booking
	type firsts struct{ tav, other bool }
	taken := make(map[string]*firsts)
	var out []*models.BookingSummary

	for i := range ds.Items {
		li := &ds.Items[i]
		if li.BookingID == "" {
			continue
		}

		b, ok := byID[li.BookingID]
		if !ok {
			b = &models.BookingSummary{BookingID: li.BookingID}
			byID[li.BookingID] = b
			taken[li.BookingID] = &firsts{}
			out = append(out, b)
		}
		f := taken[li.BookingID]
		b.Rows++

		// first non-missing value wins for per-booking attributes
		if b.PropertyName == "" {
			b.PropertyName = li.PropertyName
		}
		if b.CustomerName == "" {
			b.CustomerName = li.CustomerName
		}
		if b.BookingDate == nil {
			b.BookingDate = li.BookingDate
		}
		if b.RegistrationDate == nil && li.RegistrationDate != nil {
			b.RegistrationDate = li.RegistrationDate
			b.Registered = true
		}
		if !f.tav && li.TotalAgreementValue.Valid {
			b.TotalAgreementValue = li.TotalAgreementValue.Decimal
			f.tav = true
		}
		if !f.other && li.OtherCharges.Valid {
			b.OtherCharges = li.OtherCharges.Decimal
			f.other = true
		}

		due := orZero(li.AmountDue)
		b.AgreementValue = b.AgreementValue.Add(due)
		b.GrossPayment = b.GrossPayment.Add(orZero(li.PaymentReceived))

		switch ClassifyDemand(li, asOf) {
		case DemandRaised:
			b.DemandGenerated = b.DemandGenerated.Add(due)
			b.TaxOnDemand = b.TaxOnDemand.Add(orZero(li.Tax))
		case DemandBudgetPassed:
			b.BudgetPassedNotRaised = b.BudgetPassedNotRaised.Add(due)
		case DemandFuture:
			b.ExpectedFutureDemand = b.ExpectedFutureDemand.Add(due)
		}

		if li.HasDemand() {
			b.NetPayment = b.NetPayment.Add(li.NetPayment())
		}
		if overdue, ok := li.Overdue(); ok {
			b.AmountOverdue = b.AmountOverdue.Add(overdue)
		}
	}

	return out
}

// SummarizeTotals sums every booking metric overall and per registration
// partition. Overdue above threshold counts only bookings whose summed
// overdue exceeds threshold.
func SummarizeTotals(bookings []*models.BookingSummary, threshold decimal.Decimal) models.Totals {
	var t models.Totals
	for _, b := range bookings {
		reg := b.Registered
		t.Units.Add(reg)
		t.TotalAgreementValue.Add(reg, b.TotalAgreementValue)
		t.OtherCharges.Add(reg, b.OtherCharges)
		t.AgreementValue.Add(reg, b.AgreementValue)
		t.DemandGenerated.Add(reg, b.DemandGenerated)
		t.BudgetPassedNotRaised.Add(reg, b.BudgetPassedNotRaised)
		t.ExpectedFutureDemand.Add(reg, b.ExpectedFutureDemand)
		t.NetPayment.Add(reg, b.NetPayment)
		t.AmountOverdue.Add(reg, b.AmountOverdue)
		if b.AmountOverdue.GreaterThan(threshold) {
			t.OverdueAboveThreshold.Add(reg, b.AmountOverdue)
			t.OverdueBookings.Add(reg)
		}
	}
	return t
}

// SummaryRows renders the All / Registered / Unregistered table. Demand and
// collection rows show each value as a share of that column's sum of dues.
func SummaryRows(t models.Totals) []models.SummaryRow {
	dues := t.AgreementValue

	money := func(metric string, p models.Partitioned) models.SummaryRow {
		return models.SummaryRow{
			Metric:       metric,
			All:          FormatCrore(p.All),
			Registered:   FormatCrore(p.Registered),
			Unregistered: FormatCrore(p.Unregistered),
		}
	}
	share := func(metric string, p models.Partitioned) models.SummaryRow {
		return models.SummaryRow{
			Metric:       metric,
			All:          Percent(p.All, dues.All),
			Registered:   Percent(p.Registered, dues.Registered),
			Unregistered: Percent(p.Unregistered, dues.Unregistered),
		}
	}
	count := func(metric string, u models.UnitSplit) models.SummaryRow {
		return models.SummaryRow{
			Metric:       metric,
			All:          FormatCount(u.All),
			Registered:   FormatCount(u.Registered),
			Unregistered: FormatCount(u.Unregistered),
		}
	}

	tavPlusCorpus := models.Partitioned{
		All:          t.TotalAgreementValue.All.Add(t.OtherCharges.All),
		Registered:   t.TotalAgreementValue.Registered.Add(t.OtherCharges.Registered),
		Unregistered: t.TotalAgreementValue.Unregistered.Add(t.OtherCharges.Unregistered),
	}

	return []models.SummaryRow{
		count("Units Booked", t.Units),
		money("Total Agreement Value", t.TotalAgreementValue),
		money("Corpus + Maintenance", t.OtherCharges),
		money("TAV + Corpus", tavPlusCorpus),
		money("Agreement Value (Sum of Dues)", t.AgreementValue),
		share("Demand Generated Till Date", t.DemandGenerated),
		share("Budget Passed, Demand Not Generated", t.BudgetPassedNotRaised),
		share("Expected Future Demand", t.ExpectedFutureDemand),
		share("Amount Collected (Without Tax)", t.NetPayment),
		share("Amount Overdue", t.OverdueAboveThreshold),
		count("Overdue Bookings", t.OverdueBookings),
	}
}

// unavailableValue is shown in place of a figure whose columns are missing.
const unavailableValue = "n/a"

// summaryFields names the optional columns behind individual summary rows.
var summaryFields = map[string][]models.Field{
	"Total Agreement Value": {models.FieldTotalAgreement},
	"Corpus + Maintenance":  {models.FieldOtherCharges},
	"TAV + Corpus":          {models.FieldTotalAgreement, models.FieldOtherCharges},
}

// markUnavailableRows replaces summary rows whose columns are missing from ds
// with n/a and returns one note per replaced row.
func markUnavailableRows(ds *models.Dataset, rows []models.SummaryRow) []string {
	var notes []string
	for i, row := range rows {
		err := ds.Require(summaryFields[row.Metric]...)
		if err == nil {
			continue
		}
		rows[i] = models.SummaryRow{
			Metric:       row.Metric,
			All:          unavailableValue,
			Registered:   unavailableValue,
			Unregistered: unavailableValue,
		}
		notes = append(notes, fmt.Sprintf("summary row %q unavailable: %v", row.Metric, err))
	}
	return notes
}

// OverdueCustomers groups bookings above threshold by customer and property,
// largest amount first.
func OverdueCustomers(bookings []*models.BookingSummary, threshold decimal.Decimal) []models.OverdueCustomer {
	type key struct{ customer, property string }
	index := make(map[key]int)
	var out []models.OverdueCustomer

	for _, b := range bookings {
		if !b.AmountOverdue.GreaterThan(threshold) {
			continue
		}
		k := key{b.CustomerName, b.PropertyName}
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, models.OverdueCustomer{CustomerName: b.CustomerName, PropertyName: b.PropertyName})
		}
		out[i].Bookings++
		out[i].Amount = out[i].Amount.Add(b.AmountOverdue)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Amount.GreaterThan(out[j].Amount)
	})
	return out
}

func bookingAgeing(bookings []*models.BookingSummary, asOf time.Time) []models.AgeingTable {
	unreg := newAgeingBuilder("unregistered_booking_age", "Unregistered Bookings by Days Since Booking")
	turnaround := newAgeingBuilder("registration_turnaround", "Registered Bookings by Booking to Registration Days")

	for _, b := range bookings {
		if b.Registered {
			var days *int
			if b.BookingDate != nil {
				d := DaysBetween(*b.BookingDate, *b.RegistrationDate)
				days = &d
			}
			turnaround.add(days, "", b.AgreementValue)
			continue
		}
		unreg.add(daysSince(b.BookingDate, asOf), "", b.AgreementValue)
	}
	return []models.AgeingTable{unreg.build(), turnaround.build()}
}

// overdueAgeing buckets the positive overdue rows of bookings above threshold
// by days past demand date plus the grace period. Counts are distinct
// bookings per bucket.
func overdueAgeing(ds *models.Dataset, bookings []*models.BookingSummary, threshold decimal.Decimal, graceDays int, asOf time.Time) models.AgeingTable {
	above := make(map[string]struct{})
	for _, b := range bookings {
		if b.AmountOverdue.GreaterThan(threshold) {
			above[b.BookingID] = struct{}{}
		}
	}

	builder := newAgeingBuilder("overdue_ageing", "Overdue Amount by Days Past Demand")
	for i := range ds.Items {
		li := &ds.Items[i]
		if _, ok := above[li.BookingID]; !ok {
			continue
		}
		overdue, ok := li.Overdue()
		if !ok || !overdue.IsPositive() {
			continue
		}
		due := li.DemandDate.AddDate(0, 0, graceDays)
		builder.add(daysSince(&due, asOf), li.BookingID, overdue)
	}
	return builder.build()
}
