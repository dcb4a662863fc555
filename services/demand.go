package services

import (
	"time"

	"collection-kpi/models"
)

// DemandState places a line item in exactly one demand bucket relative to
// the as-of date.
type DemandState int

const (
	// DemandNone covers rows with no budgeted date and rows whose demand is
	// dated on or after the as-of date.
	DemandNone DemandState = iota
	// DemandRaised: demand generated strictly before the as-of date.
	DemandRaised
	// DemandBudgetPassed: budgeted on or before the as-of date, no demand yet.
	DemandBudgetPassed
	// DemandFuture: budgeted after the as-of date, no demand yet.
	DemandFuture
)

func (s DemandState) String() string {
	switch s {
	case DemandRaised:
		return "raised"
	case DemandBudgetPassed:
		return "budget_passed"
	case DemandFuture:
		return "future"
	}
	return "none"
}

// ClassifyDemand returns the demand state of li at asOf.
func ClassifyDemand(li *models.LineItem, asOf time.Time) DemandState {
	if li.DemandDate != nil {
		if li.DemandDate.Before(asOf) {
			return DemandRaised
		}
		return DemandNone
	}
	if li.BudgetedDate == nil {
		return DemandNone
	}
	if li.BudgetedDate.After(asOf) {
		return DemandFuture
	}
	return DemandBudgetPassed
}
