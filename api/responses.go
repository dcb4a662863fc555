package api

import (
	"github.com/shopspring/decimal"

	"collection-kpi/models"
)

const dateLayout = "2006-01-02"

type summaryResponse struct {
	Source           string                `json:"source"`
	AsOf             string                `json:"as_of"`
	OverdueThreshold decimal.Decimal       `json:"overdue_threshold"`
	Bookings         int                   `json:"bookings"`
	KPIs             kpiJSON               `json:"kpis"`
	Summary          []summaryRowJSON      `json:"summary"`
	Ageing           []ageingJSON          `json:"ageing"`
	OverdueCustomers []overdueCustomerJSON `json:"overdue_customers"`
	Notes            []string              `json:"notes,omitempty"`
}

type kpiJSON struct {
	TotalUnits               int             `json:"total_units"`
	PropertyUnits            int             `json:"property_units"`
	UnitsSold                int             `json:"units_sold"`
	UnitsUnsold              int             `json:"units_unsold"`
	UnitsRegistered          int             `json:"units_registered"`
	UnitsUnregistered        int             `json:"units_unregistered"`
	ValueOfUnits             decimal.Decimal `json:"value_of_units"`
	TotalAgreementValue      decimal.Decimal `json:"total_agreement_value"`
	CorpusMaintenance        decimal.Decimal `json:"corpus_maintenance"`
	TotalTax                 decimal.Decimal `json:"total_tax"`
	TotalDemandGenerated     decimal.Decimal `json:"total_demand_generated"`
	TaxOnDemand              decimal.Decimal `json:"tax_on_demand"`
	DemandPlusTax            decimal.Decimal `json:"demand_plus_tax"`
	DemandWithoutTax         decimal.Decimal `json:"demand_without_tax"`
	TotalCollection          decimal.Decimal `json:"total_collection"`
	GrossCollectionOnDemand  decimal.Decimal `json:"gross_collection_on_demand"`
	TaxOnCollections         decimal.Decimal `json:"tax_on_collections"`
	AmountYetToBeCollected   decimal.Decimal `json:"amount_yet_to_be_collected"`
	ExpectedFutureCollection decimal.Decimal `json:"expected_future_collection"`
	Unavailable              []string        `json:"unavailable,omitempty"`
}

type summaryRowJSON struct {
	Metric       string `json:"metric"`
	All          string `json:"all"`
	Registered   string `json:"registered"`
	Unregistered string `json:"unregistered"`
}

type bucketJSON struct {
	Label  string          `json:"label"`
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

type ageingJSON struct {
	Name       string       `json:"name"`
	Title      string       `json:"title"`
	Buckets    []bucketJSON `json:"buckets"`
	Unbucketed int          `json:"unbucketed"`
}

type overdueCustomerJSON struct {
	CustomerName string          `json:"customer_name"`
	PropertyName string          `json:"property_name"`
	Bookings     int             `json:"bookings"`
	Amount       decimal.Decimal `json:"amount"`
}

type bookingJSON struct {
	BookingID             string          `json:"booking_id"`
	PropertyName          string          `json:"property_name"`
	CustomerName          string          `json:"customer_name"`
	BookingDate           string          `json:"booking_date,omitempty"`
	RegistrationDate      string          `json:"registration_date,omitempty"`
	Registered            bool            `json:"registered"`
	Rows                  int             `json:"rows"`
	TotalAgreementValue   decimal.Decimal `json:"total_agreement_value"`
	OtherCharges          decimal.Decimal `json:"other_charges"`
	AgreementValue        decimal.Decimal `json:"agreement_value"`
	DemandGenerated       decimal.Decimal `json:"demand_generated"`
	BudgetPassedNotRaised decimal.Decimal `json:"budget_passed_not_raised"`
	ExpectedFutureDemand  decimal.Decimal `json:"expected_future_demand"`
	NetPayment            decimal.Decimal `json:"net_payment"`
	AmountOverdue         decimal.Decimal `json:"amount_overdue"`
}

type trendPointJSON struct {
	Month    string          `json:"month"`
	Expected decimal.Decimal `json:"expected"`
	Actuals  decimal.Decimal `json:"actuals"`
	Misses   decimal.Decimal `json:"misses"`
}

type monthlyJSON struct {
	Month  string          `json:"month"`
	Amount decimal.Decimal `json:"amount"`
}

type trendResponse struct {
	AsOf         string           `json:"as_of"`
	Trend        []trendPointJSON `json:"trend"`
	FutureDemand []monthlyJSON    `json:"future_demand"`
	Notes        []string         `json:"notes,omitempty"`
}

type checkJSON struct {
	Code     string   `json:"code"`
	Title    string   `json:"title"`
	Passed   bool     `json:"passed"`
	Count    int      `json:"count"`
	Message  string   `json:"message"`
	Bookings []string `json:"bookings"`
	Error    string   `json:"error,omitempty"`
}

type checksResponse struct {
	Source   string      `json:"source"`
	AsOf     string      `json:"as_of"`
	Flagged  int         `json:"flagged"`
	Checks   []checkJSON `json:"checks"`
	Messages []string    `json:"messages"`
}

func newSummaryResponse(r *models.Report) summaryResponse {
	k := r.KPIs
	out := summaryResponse{
		Source:           r.Source,
		AsOf:             r.AsOf.Format(dateLayout),
		OverdueThreshold: r.OverdueThreshold,
		Bookings:         len(r.Bookings),
		KPIs: kpiJSON{
			TotalUnits:               k.TotalUnits,
			PropertyUnits:            k.PropertyUnits,
			UnitsSold:                k.UnitsSold,
			UnitsUnsold:              k.UnitsUnsold,
			UnitsRegistered:          k.UnitsRegistered,
			UnitsUnregistered:        k.UnitsUnregistered,
			ValueOfUnits:             k.ValueOfUnits,
			TotalAgreementValue:      k.TotalAgreementValue,
			CorpusMaintenance:        k.CorpusMaintenance,
			TotalTax:                 k.TotalTax,
			TotalDemandGenerated:     k.TotalDemandGenerated,
			TaxOnDemand:              k.TaxOnDemand,
			DemandPlusTax:            k.DemandPlusTax,
			DemandWithoutTax:         k.DemandWithoutTax,
			TotalCollection:          k.TotalCollection,
			GrossCollectionOnDemand:  k.GrossCollectionOnDemand,
			TaxOnCollections:         k.TaxOnCollections,
			AmountYetToBeCollected:   k.AmountYetToBeCollected,
			ExpectedFutureCollection: k.ExpectedFutureCollection,
			Unavailable:              k.Unavailable,
		},
		Summary:          make([]summaryRowJSON, 0, len(r.Summary)),
		Ageing:           make([]ageingJSON, 0, len(r.Ageing)),
		OverdueCustomers: make([]overdueCustomerJSON, 0, len(r.OverdueCustomers)),
		Notes:            r.Notes,
	}
	for _, row := range r.Summary {
		out.Summary = append(out.Summary, summaryRowJSON(row))
	}
	for _, a := range r.Ageing {
		aj := ageingJSON{Name: a.Name, Title: a.Title, Unbucketed: a.Unbucketed}
		for _, b := range a.Buckets {
			aj.Buckets = append(aj.Buckets, bucketJSON(b))
		}
		out.Ageing = append(out.Ageing, aj)
	}
	for _, c := range r.OverdueCustomers {
		out.OverdueCustomers = append(out.OverdueCustomers, overdueCustomerJSON(c))
	}
	return out
}

func newBookingJSON(b *models.BookingSummary) bookingJSON {
	out := bookingJSON{
		BookingID:             b.BookingID,
		PropertyName:          b.PropertyName,
		CustomerName:          b.CustomerName,
		Registered:            b.Registered,
		Rows:                  b.Rows,
		TotalAgreementValue:   b.TotalAgreementValue,
		OtherCharges:          b.OtherCharges,
		AgreementValue:        b.AgreementValue,
		DemandGenerated:       b.DemandGenerated,
		BudgetPassedNotRaised: b.BudgetPassedNotRaised,
		ExpectedFutureDemand:  b.ExpectedFutureDemand,
		NetPayment:            b.NetPayment,
		AmountOverdue:         b.AmountOverdue,
	}
	if b.BookingDate != nil {
		out.BookingDate = b.BookingDate.Format(dateLayout)
	}
	if b.RegistrationDate != nil {
		out.RegistrationDate = b.RegistrationDate.Format(dateLayout)
	}
	return out
}

func newTrendResponse(r *models.Report) trendResponse {
	out := trendResponse{
		AsOf:         r.AsOf.Format(dateLayout),
		Trend:        make([]trendPointJSON, 0, len(r.Trend)),
		FutureDemand: make([]monthlyJSON, 0, len(r.FutureDemand)),
		Notes:        r.Notes,
	}
	for _, p := range r.Trend {
		out.Trend = append(out.Trend, trendPointJSON{
			Month:    p.Month.Format("2006-01"),
			Expected: p.Expected,
			Actuals:  p.Actuals,
			Misses:   p.Misses,
		})
	}
	for _, m := range r.FutureDemand {
		out.FutureDemand = append(out.FutureDemand, monthlyJSON{Month: m.Month.Format("2006-01"), Amount: m.Amount})
	}
	return out
}

func newChecksResponse(cr *models.CheckReport) checksResponse {
	out := checksResponse{
		Source:   cr.Source,
		AsOf:     cr.AsOf.Format(dateLayout),
		Flagged:  cr.Flagged(),
		Checks:   make([]checkJSON, 0, len(cr.Results)),
		Messages: cr.Messages,
	}
	for _, res := range cr.Results {
		cj := checkJSON{
			Code:     res.Code,
			Title:    res.Title,
			Passed:   res.Passed(),
			Count:    res.Count,
			Message:  res.Message,
			Bookings: res.Bookings,
		}
		if cj.Bookings == nil {
			cj.Bookings = []string{}
		}
		if res.Err != nil {
			cj.Error = res.Err.Error()
		}
		out.Checks = append(out.Checks, cj)
	}
	return out
}
