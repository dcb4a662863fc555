package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"collection-kpi/models"
)

// ColumnConfig tells the column resolver which headers may carry each
// semantic field. Candidates are tried in order; an override pins a field to
// one exact header and replaces the candidate search for that field.
type ColumnConfig struct {
	Candidates map[models.Field][]string `yaml:"candidates"`
	Overrides  map[models.Field]string   `yaml:"overrides"`
}

// DefaultColumnConfig returns the header spellings seen across CRM exports
// and hand-maintained collection sheets.
func DefaultColumnConfig() ColumnConfig {
	return ColumnConfig{
		Candidates: map[models.Field][]string{
			models.FieldBookingID:          {"Application / Booking ID", "Booking ID", "Agreement/Booking ID", "Opportunity/Booking ID"},
			models.FieldPropertyName:       {"Unit/Property Name (Application / Booking ID)", "Property Name", "Unit / Property Name", "Unit/Property Name"},
			models.FieldCustomerName:       {"Customer Name", "Account Name", "Ledger Name"},
			models.FieldBookingDate:        {"Booking Date"},
			models.FieldRegistrationDate:   {"Agreement Registration Date", "Registration Date"},
			models.FieldPaymentDate:        {"Actual Payment Date", "Payment Received Date", "Receipt Date"},
			models.FieldBudgetedDate:       {"Budgeted Date", "Planned Demand Date"},
			models.FieldDemandDate:         {"Demand Generation Date", "Demand generation date", "Demand Raised Date", "Invoice Date"},
			models.FieldAmountDue:          {"Total Amount Due", "Amount Due", "Due Amount"},
			models.FieldPaymentReceived:    {"Payment Received", "Amount Received"},
			models.FieldTax:                {"Total Service Tax On PPD", "Tax Amount", "GST Amount", "Total Tax"},
			models.FieldTotalAgreement:     {"Total Agreement Value", "Agreement Value", "Agreement Amount"},
			models.FieldOtherCharges:       {"Other Charges (Corpus+Maintenance)", "Corpus+Maintenance", "Corpus Maintenance", "Other Charges"},
			models.FieldMilestoneName:      {"Milestone Name", "Milestone", "Stage Name"},
			models.FieldMilestoneCompleted: {"Is Milestone Completed", "Milestone Completion Status", "Milestone Completed"},
			models.FieldAmountPercent:      {"Amount Percent", "Milestone Percentage", "Percentage"},
			models.FieldActive:             {"Active", "Is Active", "Status"},
			models.FieldTower:              {"Tower", "Block", "Building"},
			models.FieldUnitType:           {"Type", "Unit Type"},
		},
		Overrides: map[models.Field]string{},
	}
}

// LoadColumnConfig returns the defaults, with candidates and overrides from
// the YAML file at path layered on top. An empty path returns the defaults.
//
//	candidates:
//	  booking_id: ["Booking Ref", "Booking ID"]
//	overrides:
//	  tax_amount: "GST (18%)"
func LoadColumnConfig(path string) (ColumnConfig, error) {
	cfg := DefaultColumnConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read column map %q: %w", path, err)
	}

	var file ColumnConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return cfg, fmt.Errorf("config: parse column map %q: %w", path, err)
	}

	if err := cfg.Merge(file); err != nil {
		return cfg, fmt.Errorf("config: column map %q: %w", path, err)
	}
	return cfg, nil
}

// Merge layers other on top of c. Candidate lists replace the defaults for
// the fields they name.
func (c *ColumnConfig) Merge(other ColumnConfig) error {
	known := make(map[models.Field]bool, len(models.AllFields))
	for _, f := range models.AllFields {
		known[f] = true
	}

	if c.Candidates == nil {
		c.Candidates = map[models.Field][]string{}
	}
	if c.Overrides == nil {
		c.Overrides = map[models.Field]string{}
	}

	for f, cands := range other.Candidates {
		if !known[f] {
			return fmt.Errorf("unknown field %q", f)
		}
		c.Candidates[f] = cands
	}
	for f, header := range other.Overrides {
		if !known[f] {
			return fmt.Errorf("unknown field %q", f)
		}
		c.Overrides[f] = header
	}
	return nil
}
