package services

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"collection-kpi/models"
	"collection-kpi/utils"
)

// CanonicalDateLayout is the day-first layout dates are written back in.
const CanonicalDateLayout = "02/01/2006"

var (
	// currencyRegexp strips currency markers and grouping from amounts
	currencyRegexp = regexp.MustCompile(`(?i)(₹|rs\.?|inr|\$|€|£|,|/-|\s)`)

	// dayFirstLayouts are tried in order; day-first forms come before ISO
	dayFirstLayouts = []string{
		"2/1/2006",
		"2-1-2006",
		"2.1.2006",
		"2/1/2006 15:04",
		"2/1/2006 15:04:05",
		"2-1-2006 15:04",
		"2-1-2006 15:04:05",
		"2/1/06",
		"2-1-06",
		"2-Jan-2006",
		"2 Jan 2006",
		"2-Jan-06",
		"2 January 2006",
		"2006-01-02",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		time.RFC3339,
		"2006/01/02",
		"Jan 2, 2006",
		"January 2, 2006",
	}

	nullTokens = map[string]struct{}{
		"nan": {}, "nat": {}, "null": {}, "none": {}, "n/a": {}, "-": {},
	}

	truthyFlags = map[string]struct{}{
		"1": {}, "1.0": {}, "true": {}, "t": {}, "yes": {}, "y": {},
		"completed": {}, "complete": {}, "done": {},
	}
)

// maxExcelSerial is 9999-12-31 in Excel's day numbering.
const maxExcelSerial = 2958465

// Cleaner coerces a RawTable into typed LineItems.
type Cleaner struct {
	logger *utils.Logger
}

// NewCleaner creates a Cleaner with the given logger.
func NewCleaner(logger *utils.Logger) *Cleaner {
	return &Cleaner{logger: logger}
}

// Clean parses every row of raw using the resolved column map. Unparseable
// dates and amounts become missing; no row is dropped.
func (c *Cleaner) Clean(raw *models.RawTable, cols models.ColumnMap) *models.Dataset {
	index := make(map[string]int, len(raw.Headers))
	for i, h := range raw.Headers {
		h = strings.TrimSpace(h)
		if _, dup := index[h]; !dup {
			index[h] = i
		}
	}

	fieldIdx := make(map[models.Field]int, len(cols))
	resolved := make(models.ColumnMap, len(cols))
	for f, h := range cols {
		if i, ok := index[strings.TrimSpace(h)]; ok {
			fieldIdx[f] = i
			resolved[f] = h
		}
	}

	var badDates, badAmounts int
	items := make([]models.LineItem, 0, len(raw.Rows))

	for r, row := range raw.Rows {
		cell := func(f models.Field) string {
			i, ok := fieldIdx[f]
			if !ok || i >= len(row) {
				return ""
			}
			return row[i]
		}
		date := func(f models.Field) *time.Time {
			s := cell(f)
			t := ParseDate(s)
			if t == nil && raw.DateSerials {
				t = ParseExcelSerial(s)
			}
			if t == nil && !isBlank(s) {
				badDates++
			}
			return t
		}
		amount := func(f models.Field) decimal.NullDecimal {
			s := cell(f)
			d := ParseAmount(s)
			if !d.Valid && !isBlank(s) {
				badAmounts++
			}
			return d
		}

		percent := func(f models.Field) decimal.NullDecimal {
			s := cell(f)
			d := ParsePercent(s)
			if !d.Valid && !isBlank(s) {
				badAmounts++
			}
			return d
		}

		line := r + 2
		if len(raw.Lines) == len(raw.Rows) {
			line = raw.Lines[r]
		}

		items = append(items, models.LineItem{
			Row:                line,
			BookingID:          NormaliseText(cell(models.FieldBookingID)),
			PropertyName:       NormaliseText(cell(models.FieldPropertyName)),
			CustomerName:       NormaliseText(cell(models.FieldCustomerName)),
			MilestoneName:      NormaliseText(cell(models.FieldMilestoneName)),
			Tower:              NormaliseText(cell(models.FieldTower)),
			UnitType:           NormaliseText(cell(models.FieldUnitType)),
			Active:             NormaliseText(cell(models.FieldActive)),
			MilestoneCompleted: ParseFlag(cell(models.FieldMilestoneCompleted)),

			BookingDate:      date(models.FieldBookingDate),
			RegistrationDate: date(models.FieldRegistrationDate),
			BudgetedDate:     date(models.FieldBudgetedDate),
			DemandDate:       date(models.FieldDemandDate),
			PaymentDate:      date(models.FieldPaymentDate),

			AmountDue:           amount(models.FieldAmountDue),
			PaymentReceived:     amount(models.FieldPaymentReceived),
			Tax:                 amount(models.FieldTax),
			TotalAgreementValue: amount(models.FieldTotalAgreement),
			OtherCharges:        amount(models.FieldOtherCharges),
			AmountPercent:       percent(models.FieldAmountPercent),
		})
	}

	c.logger.Info("[cleaner] Parsed %d rows from %s (%d unparseable dates, %d unparseable amounts)",
		len(items), raw.Source, badDates, badAmounts)

	return &models.Dataset{Source: raw.Source, Columns: resolved, Items: items}
}

// ParseDate parses s day-first and returns it at UTC midnight. Anything
// else, bare numbers included, yields nil.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if isBlank(s) {
		return nil
	}

	for _, layout := range dayFirstLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d := DateOnly(t)
			return &d
		}
	}

	return nil
}

// ParseExcelSerial reads s as an Excel serial day number, as stored in
// XLSX/XLS date cells.
func ParseExcelSerial(s string) *time.Time {
	serial, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || serial < 1 || serial > maxExcelSerial {
		return nil
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return nil
	}
	d := DateOnly(t)
	return &d
}

// DateOnly truncates t to its calendar day at UTC midnight.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseAmount strips currency symbols and thousands separators and parses
// the remainder. "(1,000)" is negative.
func ParseAmount(s string) decimal.NullDecimal {
	s = strings.TrimSpace(s)
	if isBlank(s) {
		return decimal.NullDecimal{}
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	cleaned := currencyRegexp.ReplaceAllString(s, "")
	if cleaned == "" {
		return decimal.NullDecimal{}
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.NullDecimal{}
	}
	if negative {
		d = d.Neg()
	}
	return decimal.NewNullDecimal(d)
}

// ParsePercent parses a percentage cell. A trailing "%" is allowed, so
// "40%" and "40" both read as 40.
func ParsePercent(s string) decimal.NullDecimal {
	s = strings.TrimSpace(s)
	return ParseAmount(strings.TrimSpace(strings.TrimSuffix(s, "%")))
}

// ParseFlag reads a milestone-completed style cell.
func ParseFlag(s string) bool {
	_, ok := truthyFlags[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

// NormaliseText trims surrounding whitespace. Null markers such as "nan"
// become empty. Internal spacing is kept as written.
func NormaliseText(s string) string {
	s = strings.TrimSpace(s)
	if isBlank(s) {
		return ""
	}
	return s
}

func isBlank(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return true
	}
	_, null := nullTokens[strings.ToLower(s)]
	return null
}

// CanonicalTable renders a dataset back into a RawTable using the dataset's
// own headers, with dates day-first and amounts as plain decimals. Cleaning
// the result again reproduces the dataset.
func CanonicalTable(ds *models.Dataset) *models.RawTable {
	var fields []models.Field
	var headers []string
	for _, f := range models.AllFields {
		if h, ok := ds.Columns[f]; ok {
			fields = append(fields, f)
			headers = append(headers, h)
		}
	}

	rows := make([][]string, len(ds.Items))
	lines := make([]int, len(ds.Items))
	for i := range ds.Items {
		li := &ds.Items[i]
		row := make([]string, len(fields))
		for j, f := range fields {
			row[j] = CanonicalValue(li, f)
		}
		rows[i] = row
		lines[i] = li.Row
	}
	return &models.RawTable{Source: ds.Source, Headers: headers, Rows: rows, Lines: lines}
}

// CanonicalValue renders one field of a line item in canonical form.
func CanonicalValue(li *models.LineItem, f models.Field) string {
	switch f {
	case models.FieldBookingID:
		return li.BookingID
	case models.FieldPropertyName:
		return li.PropertyName
	case models.FieldCustomerName:
		return li.CustomerName
	case models.FieldMilestoneName:
		return li.MilestoneName
	case models.FieldTower:
		return li.Tower
	case models.FieldUnitType:
		return li.UnitType
	case models.FieldActive:
		return li.Active
	case models.FieldMilestoneCompleted:
		if li.MilestoneCompleted {
			return "1"
		}
		return "0"
	case models.FieldBookingDate:
		return formatDate(li.BookingDate)
	case models.FieldRegistrationDate:
		return formatDate(li.RegistrationDate)
	case models.FieldBudgetedDate:
		return formatDate(li.BudgetedDate)
	case models.FieldDemandDate:
		return formatDate(li.DemandDate)
	case models.FieldPaymentDate:
		return formatDate(li.PaymentDate)
	case models.FieldAmountDue:
		return formatAmount(li.AmountDue)
	case models.FieldPaymentReceived:
		return formatAmount(li.PaymentReceived)
	case models.FieldTax:
		return formatAmount(li.Tax)
	case models.FieldTotalAgreement:
		return formatAmount(li.TotalAgreementValue)
	case models.FieldOtherCharges:
		return formatAmount(li.OtherCharges)
	case models.FieldAmountPercent:
		return formatAmount(li.AmountPercent)
	}
	return ""
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(CanonicalDateLayout)
}

func formatAmount(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}
