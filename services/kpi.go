package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"collection-kpi/models"
)

// kpiFields names the optional columns individual KPIs depend on.
var kpiFields = []struct {
	label  string
	fields []models.Field
}{
	{"Property Units", []models.Field{models.FieldPropertyName}},
	{"Units Sold", []models.Field{models.FieldBookingDate}},
	{"Units Unsold", []models.Field{models.FieldBookingDate}},
	{"Value of Units", []models.Field{models.FieldTotalAgreement, models.FieldOtherCharges}},
	{"Total Agreement Value", []models.Field{models.FieldTotalAgreement}},
	{"Corpus + Maintenance", []models.Field{models.FieldPropertyName, models.FieldOtherCharges}},
	{"Tax on Collections", []models.Field{models.FieldPaymentDate}},
	{"Expected Future Collection", []models.Field{models.FieldMilestoneCompleted}},
}

// unavailableKPIs returns the labels of KPIs whose columns are missing from
// ds, with a note naming the missing fields. The note is empty when every
// KPI can be computed.
func unavailableKPIs(ds *models.Dataset) ([]string, string) {
	var labels []string
	var missing []models.Field
	seen := make(map[models.Field]bool)
	for _, kf := range kpiFields {
		err := ds.Require(kf.fields...)
		if err == nil {
			continue
		}
		var mf *models.MissingFieldError
		if errors.As(err, &mf) {
			for _, f := range mf.Fields {
				if !seen[f] {
					seen[f] = true
					missing = append(missing, f)
				}
			}
		}
		labels = append(labels, kf.label)
	}
	if len(labels) == 0 {
		return nil, ""
	}
	err := &models.MissingFieldError{Fields: missing}
	return labels, fmt.Sprintf("kpis unavailable (%v): %s", err, strings.Join(labels, ", "))
}

// computeKPIs builds the headline strip from the booking rollups and a row
// pass over every row that carries a booking ID.
func computeKPIs(ds *models.Dataset, bookings []*models.BookingSummary, asOf time.Time) models.KPIMetrics {
	k := models.KPIMetrics{TotalUnits: len(bookings)}

	for _, b := range bookings {
		if b.BookingDate != nil {
			k.UnitsSold++
		}
		if b.Registered {
			k.UnitsRegistered++
		}
		k.TotalAgreementValue = k.TotalAgreementValue.Add(b.TotalAgreementValue)
		k.ValueOfUnits = k.ValueOfUnits.Add(b.TotalAgreementValue).Add(b.OtherCharges)
		k.TotalDemandGenerated = k.TotalDemandGenerated.Add(b.DemandGenerated)
		k.TaxOnDemand = k.TaxOnDemand.Add(b.TaxOnDemand)
		k.TotalCollection = k.TotalCollection.Add(b.NetPayment)
	}
	k.UnitsUnsold = k.TotalUnits - k.UnitsSold
	k.UnitsUnregistered = k.TotalUnits - k.UnitsRegistered
	k.DemandPlusTax = k.TotalDemandGenerated.Add(k.TaxOnDemand)
	k.DemandWithoutTax = k.TotalDemandGenerated.Sub(k.TaxOnDemand)

	properties := make(map[string]struct{})
	corpusByProperty := make(map[string]decimal.Decimal)
	trackCompletion := ds.Has(models.FieldMilestoneCompleted)

	for i := range ds.Items {
		li := &ds.Items[i]

		if li.PropertyName != "" {
			properties[li.PropertyName] = struct{}{}
			if _, ok := corpusByProperty[li.PropertyName]; !ok && li.OtherCharges.Valid {
				corpusByProperty[li.PropertyName] = li.OtherCharges.Decimal
			}
		}
		if li.BookingID == "" {
			continue
		}

		due := orZero(li.AmountDue)
		gross := orZero(li.PaymentReceived)
		tax := orZero(li.Tax)

		k.TotalTax = k.TotalTax.Add(tax)
		if ClassifyDemand(li, asOf) == DemandRaised {
			k.GrossCollectionOnDemand = k.GrossCollectionOnDemand.Add(gross)
		}
		if li.PaymentDate != nil && li.PaymentDate.Before(asOf) {
			k.TaxOnCollections = k.TaxOnCollections.Add(tax)
		}
		if outstanding := due.Sub(gross); outstanding.IsPositive() {
			k.AmountYetToBeCollected = k.AmountYetToBeCollected.Add(outstanding)
		}
		if trackCompletion && !li.MilestoneCompleted {
			k.ExpectedFutureCollection = k.ExpectedFutureCollection.Add(due)
		}
	}

	k.PropertyUnits = len(properties)
	for _, v := range corpusByProperty {
		k.CorpusMaintenance = k.CorpusMaintenance.Add(v)
	}
	k.Unavailable, _ = unavailableKPIs(ds)
	return k
}

func orZero(d decimal.NullDecimal) decimal.Decimal {
	if d.Valid {
		return d.Decimal
	}
	return decimal.Zero
}
