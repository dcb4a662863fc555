package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Field names a semantic column of the collection sheet, independent of the
// header spelling used by a particular CRM export.
type Field string

const (
	FieldBookingID          Field = "booking_id"
	FieldPropertyName       Field = "property_name"
	FieldCustomerName       Field = "customer_name"
	FieldBookingDate        Field = "booking_date"
	FieldRegistrationDate   Field = "registration_date"
	FieldPaymentDate        Field = "actual_payment_date"
	FieldBudgetedDate       Field = "budgeted_date"
	FieldDemandDate         Field = "demand_generation_date"
	FieldAmountDue          Field = "amount_due"
	FieldPaymentReceived    Field = "payment_received"
	FieldTax                Field = "tax_amount"
	FieldTotalAgreement     Field = "total_agreement_value"
	FieldOtherCharges       Field = "other_charges"
	FieldMilestoneName      Field = "milestone_name"
	FieldMilestoneCompleted Field = "milestone_completed"
	FieldAmountPercent      Field = "amount_percent"
	FieldActive             Field = "active"
	FieldTower              Field = "tower"
	FieldUnitType           Field = "unit_type"
)

// AllFields lists every semantic field in canonical export order.
var AllFields = []Field{
	FieldBookingID,
	FieldPropertyName,
	FieldCustomerName,
	FieldTower,
	FieldUnitType,
	FieldActive,
	FieldMilestoneName,
	FieldMilestoneCompleted,
	FieldAmountPercent,
	FieldBookingDate,
	FieldRegistrationDate,
	FieldBudgetedDate,
	FieldDemandDate,
	FieldPaymentDate,
	FieldTotalAgreement,
	FieldOtherCharges,
	FieldAmountDue,
	FieldPaymentReceived,
	FieldTax,
}

// ColumnMap binds semantic fields to the header names of one loaded table.
type ColumnMap map[Field]string

// RawTable holds an uploaded sheet exactly as read: one header row and the
// remaining rows as strings. Nothing is parsed at this stage.
type RawTable struct {
	Source  string
	Headers []string
	Rows    [][]string

	// Lines holds the 1-based source line of each entry in Rows.
	Lines []int
	// DateSerials is set for spreadsheet input, where date cells arrive as
	// Excel serial day numbers.
	DateSerials bool
}

// LineItem is one milestone/payment row after preprocessing. Dates are nil
// when missing and always sit on a UTC day boundary; amounts use
// NullDecimal so "missing" stays distinct from zero.
type LineItem struct {
	Row int

	BookingID          string
	PropertyName       string
	CustomerName       string
	MilestoneName      string
	Tower              string
	UnitType           string
	Active             string
	MilestoneCompleted bool

	BookingDate      *time.Time
	RegistrationDate *time.Time
	BudgetedDate     *time.Time
	DemandDate       *time.Time
	PaymentDate      *time.Time

	AmountDue           decimal.NullDecimal
	PaymentReceived     decimal.NullDecimal
	Tax                 decimal.NullDecimal
	TotalAgreementValue decimal.NullDecimal
	OtherCharges        decimal.NullDecimal
	AmountPercent       decimal.NullDecimal
}

// HasDemand reports whether a demand has been raised against the row.
func (li *LineItem) HasDemand() bool {
	return li.DemandDate != nil
}

// NetPayment is payment received less tax, floored at zero. Missing values
// count as zero.
func (li *LineItem) NetPayment() decimal.Decimal {
	net := orZero(li.PaymentReceived).Sub(orZero(li.Tax))
	if net.IsNegative() {
		return decimal.Zero
	}
	return net
}

// Overdue returns amount due less net payment. It is signed: a negative
// value is a credit. ok is false when the row has no demand or no amount due.
func (li *LineItem) Overdue() (amount decimal.Decimal, ok bool) {
	if !li.HasDemand() || !li.AmountDue.Valid {
		return decimal.Zero, false
	}
	return li.AmountDue.Decimal.Sub(li.NetPayment()), true
}

// Dataset is the preprocessed, read-only table a report is computed from.
type Dataset struct {
	Source  string
	Columns ColumnMap
	Items   []LineItem
}

// Has reports whether the field was resolved to a column when loading.
func (d *Dataset) Has(f Field) bool {
	_, ok := d.Columns[f]
	return ok
}

// Require returns a *MissingFieldError listing every field that is not
// backed by a column.
func (d *Dataset) Require(fields ...Field) error {
	var missing []Field
	for _, f := range fields {
		if !d.Has(f) {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return &MissingFieldError{Fields: missing}
	}
	return nil
}

func orZero(d decimal.NullDecimal) decimal.Decimal {
	if d.Valid {
		return d.Decimal
	}
	return decimal.Zero
}
