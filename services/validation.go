package services

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"collection-kpi/models"
	"collection-kpi/utils"
)

// Check codes.
const (
	CheckOrphanBooking             = "orphan_booking"
	CheckOrphanRegistration        = "orphan_registration"
	CheckPaymentWithoutDemand      = "payment_without_demand"
	CheckMilestoneWithoutDemand    = "milestone_without_demand"
	CheckBudgetPassedWithoutDemand = "budget_passed_without_demand"
	CheckBookingValueMismatch      = "booking_value_mismatch"
	CheckRegistrationBeforeBooking = "registration_before_booking"
	CheckPaymentBeforeBooking      = "payment_before_booking"
	CheckDemandBeforeBooking       = "demand_before_booking"
	CheckDuplicatePayments         = "duplicate_payments"
	CheckMilestonePercentMismatch  = "milestone_percent_mismatch"
	CheckTaxExceedsPayment         = "tax_exceeds_payment"
)

// ErrUnknownCheck is returned by RunCheck for a code that is not registered.
var ErrUnknownCheck = errors.New("unknown check")

// ValidationOptions parameterise the discrepancy checks.
type ValidationOptions struct {
	AsOf              time.Time
	MismatchTolerance decimal.Decimal
	// Workers bounds how many checks run at once. Zero means one per CPU.
	Workers int
}

// DefaultValidationOptions returns the standard options for asOf.
func DefaultValidationOptions(asOf time.Time) ValidationOptions {
	return ValidationOptions{
		AsOf:              DateOnly(asOf),
		MismatchTolerance: decimal.NewFromInt(1000),
	}
}

type checkFunc func(ds *models.Dataset, opts ValidationOptions, res *models.CheckResult)

type checkDef struct {
	code   string
	title  string
	fields []models.Field
	run    checkFunc
}

var checks = []checkDef{
	{CheckOrphanBooking, "Booking Without Property",
		[]models.Field{models.FieldBookingID, models.FieldPropertyName}, checkOrphanBooking},
	{CheckOrphanRegistration, "Registration Without Booking ID",
		[]models.Field{models.FieldRegistrationDate, models.FieldBookingID}, checkOrphanRegistration},
	{CheckPaymentWithoutDemand, "Payment Without Demand",
		[]models.Field{models.FieldPaymentReceived, models.FieldDemandDate}, checkPaymentWithoutDemand},
	{CheckMilestoneWithoutDemand, "Milestone Completed Without Demand",
		[]models.Field{models.FieldMilestoneCompleted, models.FieldDemandDate}, checkMilestoneWithoutDemand},
	{CheckBudgetPassedWithoutDemand, "Budget Passed Without Demand",
		[]models.Field{models.FieldBudgetedDate, models.FieldDemandDate}, checkBudgetPassedWithoutDemand},
	{CheckBookingValueMismatch, "Booking Value Mismatch",
		[]models.Field{models.FieldBookingID, models.FieldTotalAgreement, models.FieldOtherCharges, models.FieldAmountDue},
		checkBookingValueMismatch},
	{CheckRegistrationBeforeBooking, "Registration Date Before Booking Date",
		[]models.Field{models.FieldRegistrationDate, models.FieldBookingDate},
		dateBeforeBooking(models.FieldRegistrationDate, "Registration Date")},
	{CheckPaymentBeforeBooking, "Payment Date Before Booking Date",
		[]models.Field{models.FieldPaymentDate, models.FieldBookingDate},
		dateBeforeBooking(models.FieldPaymentDate, "Payment Date")},
	{CheckDemandBeforeBooking, "Demand Date Before Booking Date",
		[]models.Field{models.FieldDemandDate, models.FieldBookingDate},
		dateBeforeBooking(models.FieldDemandDate, "Demand Generation Date")},
	{CheckDuplicatePayments, "Duplicate Payments for Same Milestone",
		[]models.Field{models.FieldBookingID, models.FieldMilestoneName, models.FieldPaymentReceived}, checkDuplicatePayments},
	{CheckMilestonePercentMismatch, "Milestone Percentage Not Equal to 100",
		[]models.Field{models.FieldBookingID, models.FieldAmountPercent}, checkMilestonePercent},
	{CheckTaxExceedsPayment, "Tax Greater Than Payment",
		[]models.Field{models.FieldPaymentReceived, models.FieldTax}, checkTaxExceedsPayment},
}

// CheckCodes lists every registered check code in run order.
func CheckCodes() []string {
	codes := make([]string, len(checks))
	for i, c := range checks {
		codes[i] = c.code
	}
	return codes
}

type Validator struct {
	logger *utils.Logger
}

func NewValidator(logger *utils.Logger) *Validator {
	return &Validator{logger: logger}
}

// Run executes every check against ds. A check whose columns are missing
// carries the error in its result and does not affect the others.
func (v *Validator) Run(ds *models.Dataset, opts ValidationOptions) *models.CheckReport {
	opts = normaliseValidationOptions(opts)
	report := &models.CheckReport{Source: ds.Source, AsOf: opts.AsOf}

	results := make([]*models.CheckResult, len(checks))
	pool := utils.NewPool(opts.Workers)
	for i, c := range checks {
		pool.Submit(func() { results[i] = runCheck(c, ds, opts) })
	}
	pool.Wait()

	for i, c := range checks {
		res := results[i]
		if res.Err != nil {
			v.logger.Warn("[validation] %s skipped: %v", c.code, res.Err)
		} else if res.Count > 0 {
			v.logger.Debug("[validation] %s flagged %d", c.code, res.Count)
		}
		if res.Message != "" {
			report.Messages = append(report.Messages, res.Message)
		}
		report.Results = append(report.Results, res)
	}

	v.logger.Info("[validation] %d checks run, %d rows flagged", len(report.Results), report.Flagged())
	return report
}

// RunCheck executes the single check named by code.
func (v *Validator) RunCheck(ds *models.Dataset, code string, opts ValidationOptions) (*models.CheckResult, error) {
	opts = normaliseValidationOptions(opts)
	for _, c := range checks {
		if c.code == code {
			return runCheck(c, ds, opts), nil
		}
	}
	return nil, fmt.Errorf("validation: %w: %q", ErrUnknownCheck, code)
}

func normaliseValidationOptions(opts ValidationOptions) ValidationOptions {
	if opts.AsOf.IsZero() {
		opts.AsOf = time.Now()
	}
	opts.AsOf = DateOnly(opts.AsOf)
	opts.MismatchTolerance = opts.MismatchTolerance.Abs()
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	return opts
}

func runCheck(c checkDef, ds *models.Dataset, opts ValidationOptions) *models.CheckResult {
	res := &models.CheckResult{Code: c.code, Title: c.title, Table: models.Table{Name: c.code}}
	if err := ds.Require(c.fields...); err != nil {
		res.Err = err
		return res
	}
	c.run(ds, opts, res)
	return res
}

// rowColumn holds the source row of each flagged line item.
const rowColumn = "Row"

// rowCollector gathers flagged rows for display. With dedupe set, rows whose
// field values repeat are shown once, under the first source row.
type rowCollector struct {
	ds       *models.Dataset
	fields   []models.Field
	dedupe   bool
	seen     map[string]struct{}
	bookings map[string]struct{}
	table    models.Table
}

func newRowCollector(ds *models.Dataset, name string, dedupe bool, fields ...models.Field) *rowCollector {
	rc := &rowCollector{
		ds:       ds,
		dedupe:   dedupe,
		seen:     make(map[string]struct{}),
		bookings: make(map[string]struct{}),
		table:    models.Table{Name: name},
	}
	for _, f := range fields {
		if ds.Has(f) {
			rc.fields = append(rc.fields, f)
			rc.table.Columns = append(rc.table.Columns, ds.Columns[f])
		}
	}
	rc.table.Columns = append(rc.table.Columns, rowColumn)
	return rc
}

func (rc *rowCollector) add(li *models.LineItem) {
	row := make([]string, len(rc.fields))
	for i, f := range rc.fields {
		row[i] = CanonicalValue(li, f)
	}
	if rc.dedupe {
		key := strings.Join(row, "\x1f")
		if _, dup := rc.seen[key]; dup {
			return
		}
		rc.seen[key] = struct{}{}
	}
	if li.BookingID != "" {
		rc.bookings[li.BookingID] = struct{}{}
	}
	rc.table.Rows = append(rc.table.Rows, append(row, strconv.Itoa(li.Row)))
}

// finish copies the collected rows into res and formats its message.
func (rc *rowCollector) finish(res *models.CheckResult, format string) {
	res.Table = rc.table
	res.Count = len(rc.table.Rows)
	res.Bookings = sortedKeys(rc.bookings)
	if res.Count > 0 {
		res.Message = fmt.Sprintf(format, res.Count)
	}
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func checkOrphanBooking(ds *models.Dataset, _ ValidationOptions, res *models.CheckResult) {
	rc := newRowCollector(ds, res.Code, true, models.FieldCustomerName, models.FieldBookingID)
	for i := range ds.Items {
		li := &ds.Items[i]
		if li.BookingID != "" && li.PropertyName == "" {
			rc.add(li)
		}
	}
	rc.finish(res, "%d bookings without a property assigned")
}

func checkOrphanRegistration(ds *models.Dataset, _ ValidationOptions, res *models.CheckResult) {
	rc := newRowCollector(ds, res.Code, true, models.FieldCustomerName, models.FieldPropertyName, models.FieldRegistrationDate)
	for i := range ds.Items {
		li := &ds.Items[i]
		if li.RegistrationDate != nil && li.BookingID == "" {
			rc.add(li)
		}
	}
	rc.finish(res, "%d registrations without a booking ID")
}

func checkPaymentWithoutDemand(ds *models.Dataset, _ ValidationOptions, res *models.CheckResult) {
	rc := newRowCollector(ds, res.Code, true,
		models.FieldPropertyName, models.FieldBookingID, models.FieldCustomerName, models.FieldPaymentReceived)
	for i := range ds.Items {
		li := &ds.Items[i]
		if li.PaymentReceived.Valid && li.PaymentReceived.Decimal.IsPositive() && !li.HasDemand() {
			rc.add(li)
		}
	}
	rc.finish(res, "%d payments received with no demand generated")
}

func checkMilestoneWithoutDemand(ds *models.Dataset, _ ValidationOptions, res *models.CheckResult) {
	rc := newRowCollector(ds, res.Code, true,
		models.FieldPropertyName, models.FieldCustomerName, models.FieldMilestoneName)
	for i := range ds.Items {
		li := &ds.Items[i]
		if li.MilestoneCompleted && !li.HasDemand() {
			rc.add(li)
		}
	}
	rc.finish(res, "%d completed milestones with no demand generated")
}

func checkBudgetPassedWithoutDemand(ds *models.Dataset, opts ValidationOptions, res *models.CheckResult) {
	rc := newRowCollector(ds, res.Code, true,
		models.FieldPropertyName, models.FieldCustomerName, models.FieldMilestoneName, models.FieldBudgetedDate)
	for i := range ds.Items {
		li := &ds.Items[i]
		if ClassifyDemand(li, opts.AsOf) == DemandBudgetPassed {
			rc.add(li)
		}
	}
	rc.finish(res, "%d milestones past their budgeted date with no demand generated")
}

func checkBookingValueMismatch(ds *models.Dataset, opts ValidationOptions, res *models.CheckResult) {
	type rollup struct {
		id, property string
		tav, other   decimal.NullDecimal
		due          decimal.Decimal
	}
	index := make(map[string]*rollup)
	var order []*rollup
	for i := range ds.Items {
		li := &ds.Items[i]
		if li.BookingID == "" {
			continue
		}
		r, ok := index[li.BookingID]
		if !ok {
			r = &rollup{id: li.BookingID}
			index[li.BookingID] = r
			order = append(order, r)
		}
		if r.property == "" {
			r.property = li.PropertyName
		}
		if !r.tav.Valid {
			r.tav = li.TotalAgreementValue
		}
		if !r.other.Valid {
			r.other = li.OtherCharges
		}
		r.due = r.due.Add(orZero(li.AmountDue))
	}

	res.Table.Columns = []string{"Property", "Booking ID", "Total Agreement Value", "Other Charges", "Total Amount Due", "Difference"}
	var flagged []string
	for _, r := range order {
		// a booking with no agreement value or other charges cannot be compared
		if !r.tav.Valid || !r.other.Valid {
			continue
		}
		diff := r.tav.Decimal.Add(r.other.Decimal).Sub(r.due)
		if diff.Abs().GreaterThan(opts.MismatchTolerance) {
			flagged = append(flagged, r.id)
			res.Table.Rows = append(res.Table.Rows, []string{
				r.property, r.id, r.tav.Decimal.String(), r.other.Decimal.String(), r.due.String(), diff.String(),
			})
		}
	}

	res.Count = len(flagged)
	sort.Strings(flagged)
	res.Bookings = flagged
	if res.Count > 0 {
		res.Message = fmt.Sprintf("%d bookings where agreement value plus other charges differs from total amount due by more than %s",
			res.Count, opts.MismatchTolerance)
	}
}

func dateBeforeBooking(field models.Field, label string) checkFunc {
	return func(ds *models.Dataset, _ ValidationOptions, res *models.CheckResult) {
		rc := newRowCollector(ds, res.Code, true, models.FieldBookingID, models.FieldBookingDate, field)
		for i := range ds.Items {
			li := &ds.Items[i]
			other := dateField(li, field)
			if other != nil && li.BookingDate != nil && other.Before(*li.BookingDate) {
				rc.add(li)
			}
		}
		rc.finish(res, "%d rows where "+label+" < Booking Date")
	}
}

func dateField(li *models.LineItem, f models.Field) *time.Time {
	switch f {
	case models.FieldRegistrationDate:
		return li.RegistrationDate
	case models.FieldPaymentDate:
		return li.PaymentDate
	case models.FieldDemandDate:
		return li.DemandDate
	case models.FieldBudgetedDate:
		return li.BudgetedDate
	case models.FieldBookingDate:
		return li.BookingDate
	}
	return nil
}

// checkDuplicatePayments reports every paid row of a (booking, milestone)
// pair that was paid more than once. Rows are never de-duplicated here.
func checkDuplicatePayments(ds *models.Dataset, _ ValidationOptions, res *models.CheckResult) {
	type key struct{ booking, milestone string }
	groups := make(map[key][]int)
	var keys []key
	for i := range ds.Items {
		li := &ds.Items[i]
		if li.BookingID == "" || li.MilestoneName == "" {
			continue
		}
		if !li.PaymentReceived.Valid || !li.PaymentReceived.Decimal.IsPositive() {
			continue
		}
		k := key{li.BookingID, li.MilestoneName}
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], i)
	}

	rc := newRowCollector(ds, res.Code, false,
		models.FieldBookingID, models.FieldPropertyName, models.FieldCustomerName, models.FieldMilestoneName,
		models.FieldPaymentDate, models.FieldPaymentReceived)
	milestones := 0
	for _, k := range keys {
		rows := groups[k]
		if len(rows) < 2 {
			continue
		}
		milestones++
		for _, i := range rows {
			rc.add(&ds.Items[i])
		}
	}
	rc.finish(res, "%d rows with multiple payments for the same milestone")
	if res.Count > 0 {
		res.Message = fmt.Sprintf("%d rows across %d milestones with multiple payments", res.Count, milestones)
	}
}

func checkMilestonePercent(ds *models.Dataset, _ ValidationOptions, res *models.CheckResult) {
	type rollup struct {
		id, property, customer string
		sum                    decimal.Decimal
		hasPercent             bool
	}
	index := make(map[string]*rollup)
	var order []*rollup
	for i := range ds.Items {
		li := &ds.Items[i]
		if li.BookingID == "" {
			continue
		}
		r, ok := index[li.BookingID]
		if !ok {
			r = &rollup{id: li.BookingID}
			index[li.BookingID] = r
			order = append(order, r)
		}
		if r.property == "" {
			r.property = li.PropertyName
		}
		if r.customer == "" {
			r.customer = li.CustomerName
		}
		if li.AmountPercent.Valid {
			r.sum = r.sum.Add(li.AmountPercent.Decimal)
			r.hasPercent = true
		}
	}

	res.Table.Columns = []string{"Property", "Booking ID", "Customer", "Total %"}
	for _, r := range order {
		if !r.hasPercent || r.sum.Round(2).Equal(hundred) {
			continue
		}
		res.Bookings = append(res.Bookings, r.id)
		res.Table.Rows = append(res.Table.Rows, []string{r.property, r.id, r.customer, r.sum.String()})
	}
	res.Count = len(res.Bookings)
	sort.Strings(res.Bookings)
	if res.Count > 0 {
		res.Message = fmt.Sprintf("%d bookings whose milestone percentages do not sum to 100", res.Count)
	}
}

func checkTaxExceedsPayment(ds *models.Dataset, _ ValidationOptions, res *models.CheckResult) {
	rc := newRowCollector(ds, res.Code, true,
		models.FieldPropertyName, models.FieldCustomerName, models.FieldTax, models.FieldPaymentReceived)
	for i := range ds.Items {
		li := &ds.Items[i]
		if li.Tax.Valid && li.PaymentReceived.Valid && li.Tax.Decimal.GreaterThan(li.PaymentReceived.Decimal) {
			rc.add(li)
		}
	}
	rc.finish(res, "%d rows where Tax > Payment Received; net payment was capped at 0")
}
