package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BookingSummary is the rollup of every line item sharing one booking ID.
type BookingSummary struct {
	BookingID        string
	PropertyName     string
	CustomerName     string
	BookingDate      *time.Time
	RegistrationDate *time.Time
	Registered       bool
	Rows             int

	TotalAgreementValue decimal.Decimal
	OtherCharges        decimal.Decimal

	AgreementValue        decimal.Decimal
	DemandGenerated       decimal.Decimal
	BudgetPassedNotRaised decimal.Decimal
	ExpectedFutureDemand  decimal.Decimal
	NetPayment            decimal.Decimal
	AmountOverdue         decimal.Decimal
	GrossPayment          decimal.Decimal
	TaxOnDemand           decimal.Decimal
}

// Partitioned carries one metric for all bookings and for each
// registration partition.
type Partitioned struct {
	All          decimal.Decimal
	Registered   decimal.Decimal
	Unregistered decimal.Decimal
}

// Add accumulates v into the overall total and into the partition.
func (p *Partitioned) Add(registered bool, v decimal.Decimal) {
	p.All = p.All.Add(v)
	if registered {
		p.Registered = p.Registered.Add(v)
	} else {
		p.Unregistered = p.Unregistered.Add(v)
	}
}

// UnitSplit counts bookings overall and per registration partition.
type UnitSplit struct {
	All          int
	Registered   int
	Unregistered int
}

func (u *UnitSplit) Add(registered bool) {
	u.All++
	if registered {
		u.Registered++
	} else {
		u.Unregistered++
	}
}

// Totals holds the project-wide sums behind the three-column summary.
type Totals struct {
	Units                 UnitSplit
	TotalAgreementValue   Partitioned
	OtherCharges          Partitioned
	AgreementValue        Partitioned
	DemandGenerated       Partitioned
	BudgetPassedNotRaised Partitioned
	ExpectedFutureDemand  Partitioned
	NetPayment            Partitioned
	AmountOverdue         Partitioned
	OverdueAboveThreshold Partitioned
	OverdueBookings       UnitSplit
}

// KPIMetrics is the headline strip shown above the summary table.
type KPIMetrics struct {
	TotalUnits        int
	PropertyUnits     int
	UnitsSold         int
	UnitsUnsold       int
	UnitsRegistered   int
	UnitsUnregistered int

	ValueOfUnits             decimal.Decimal
	TotalAgreementValue      decimal.Decimal
	CorpusMaintenance        decimal.Decimal
	TotalTax                 decimal.Decimal
	TotalDemandGenerated     decimal.Decimal
	TaxOnDemand              decimal.Decimal
	DemandPlusTax            decimal.Decimal
	DemandWithoutTax         decimal.Decimal
	TotalCollection          decimal.Decimal
	GrossCollectionOnDemand  decimal.Decimal
	TaxOnCollections         decimal.Decimal
	AmountYetToBeCollected   decimal.Decimal
	ExpectedFutureCollection decimal.Decimal

	// Unavailable lists the metrics (by display label) whose columns were not
	// resolved. Their values are zero and must not be shown as figures.
	Unavailable []string
}

// IsUnavailable reports whether the metric with the given label could not be
// computed.
func (k *KPIMetrics) IsUnavailable(label string) bool {
	for _, u := range k.Unavailable {
		if u == label {
			return true
		}
	}
	return false
}

// SummaryRow is one line of the All / Registered / Unregistered table.
type SummaryRow struct {
	Metric       string
	All          string
	Registered   string
	Unregistered string
}

// AgeingBucket is one day-range slot of an ageing table.
type AgeingBucket struct {
	Label  string
	Count  int
	Amount decimal.Decimal
}

// AgeingTable groups bookings (or overdue rows) into fixed day buckets.
// Unbucketed counts entries whose day count was missing or negative.
type AgeingTable struct {
	Name       string
	Title      string
	Buckets    []AgeingBucket
	Unbucketed int
}

// TrendPoint is one calendar month of expected versus actual collections.
type TrendPoint struct {
	Month    time.Time
	Expected decimal.Decimal
	Actuals  decimal.Decimal
	Misses   decimal.Decimal
}

// MonthlyAmount is an amount attributed to a calendar month.
type MonthlyAmount struct {
	Month  time.Time
	Amount decimal.Decimal
}

// OverdueCustomer is a customer/property pair whose bookings exceed the
// overdue threshold.
type OverdueCustomer struct {
	CustomerName string
	PropertyName string
	Bookings     int
	Amount       decimal.Decimal
}

// Report is everything computed for one dataset at one as-of date.
type Report struct {
	Source           string
	AsOf             time.Time
	OverdueThreshold decimal.Decimal
	GeneratedAt      time.Time

	Bookings         []*BookingSummary
	Totals           Totals
	KPIs             KPIMetrics
	Summary          []SummaryRow
	Ageing           []AgeingTable
	Trend            []TrendPoint
	FutureDemand     []MonthlyAmount
	OverdueCustomers []OverdueCustomer

	// Notes lists report sections skipped because an optional column was
	// not resolved.
	Notes []string
}

// Table is a rendered, string-only view used by the CSV, XLSX and HTTP
// outputs.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]string
}

// CheckResult is the output of one discrepancy rule.
type CheckResult struct {
	Code     string
	Title    string
	Message  string
	Count    int
	Bookings []string
	Table    Table
	Err      error
}

// Passed reports whether the check ran and flagged nothing.
func (c *CheckResult) Passed() bool {
	return c.Err == nil && c.Count == 0
}

// CheckReport collects every discrepancy rule run against one dataset.
type CheckReport struct {
	Source   string
	AsOf     time.Time
	Results  []*CheckResult
	Messages []string
}

// Result returns the check with the given code, or nil.
func (r *CheckReport) Result(code string) *CheckResult {
	for _, res := range r.Results {
		if res.Code == code {
			return res
		}
	}
	return nil
}

// Flagged counts rows flagged across all checks.
func (r *CheckReport) Flagged() int {
	n := 0
	for _, res := range r.Results {
		n += res.Count
	}
	return n
}
