package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Run is a stored report snapshot header.
type Run struct {
	ID                    string
	Source                string
	AsOf                  time.Time
	OverdueThreshold      decimal.Decimal
	Units                 int
	RegisteredUnits       int
	AgreementValue        decimal.Decimal
	DemandGenerated       decimal.Decimal
	NetPayment            decimal.Decimal
	AmountOverdue         decimal.Decimal
	OverdueAboveThreshold decimal.Decimal
	CreatedAt             time.Time
}
