package services

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"collection-kpi/models"
)

var (
	bannerColor  = color.New(color.FgMagenta, color.Bold)
	headingColor = color.New(color.FgYellow, color.Bold)
	valueColor   = color.New(color.Bold)
	goodColor    = color.New(color.FgGreen, color.Bold)
	badColor     = color.New(color.FgRed, color.Bold)
)

// Print writes a console rendering of r to w.
func (s *InsightService) Print(w io.Writer, r *models.Report) {
	sep := strings.Repeat("═", 72)
	thin := strings.Repeat("─", 72)

	bannerColor.Fprintf(w, "\n%s\n", sep)
	bannerColor.Fprintf(w, "  COLLECTION KPIs as of %s\n", r.AsOf.Format("02 Jan 2006"))
	bannerColor.Fprintf(w, "%s\n\n", sep)

	headingColor.Fprintln(w, "  Key Performance Indicators")
	fmt.Fprintf(w, "  %s\n", thin)
	kpis := KPITable(r.KPIs)
	for _, row := range kpis.Rows {
		fmt.Fprintf(w, "  %-30s : %s\n", row[0], valueColor.Sprint(row[1]))
	}
	fmt.Fprintln(w)

	headingColor.Fprintln(w, "  Summary")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  %-36s %-26s %-26s %s\n", "", "All Units", "Registered", "Unregistered")
	for _, row := range r.Summary {
		fmt.Fprintf(w, "  %-36s %-26s %-26s %s\n", truncate(row.Metric, 36), row.All, row.Registered, row.Unregistered)
	}
	fmt.Fprintln(w)

	for _, a := range r.Ageing {
		headingColor.Fprintf(w, "  %s\n", a.Title)
		fmt.Fprintf(w, "  %s\n", thin)
		for _, b := range a.Buckets {
			bar := strings.Repeat("█", min(b.Count, 40))
			fmt.Fprintf(w, "  %-14s %6d  %-18s %s\n", b.Label, b.Count, FormatCrore(b.Amount), bar)
		}
		if a.Unbucketed > 0 {
			fmt.Fprintf(w, "  %-14s %6d\n", "Unbucketed", a.Unbucketed)
		}
		fmt.Fprintln(w)
	}

	headingColor.Fprintf(w, "  Overdue Customers (above %s)\n", FormatINR(r.OverdueThreshold))
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.OverdueCustomers) == 0 {
		goodColor.Fprintln(w, "  No bookings above the overdue threshold")
	}
	for i, c := range r.OverdueCustomers {
		if i == 10 {
			fmt.Fprintf(w, "  ... %d more\n", len(r.OverdueCustomers)-i)
			break
		}
		fmt.Fprintf(w, "  %2d. %-28s %-20s %s\n", i+1, truncate(c.CustomerName, 28), truncate(c.PropertyName, 20),
			badColor.Sprint(FormatLakh(c.Amount)))
	}
	fmt.Fprintln(w)

	for _, note := range r.Notes {
		fmt.Fprintf(w, "  note: %s\n", note)
	}
	bannerColor.Fprintf(w, "%s\n\n", sep)
}

// PrintChecks writes one line per check to w.
func (v *Validator) PrintChecks(w io.Writer, cr *models.CheckReport) {
	thin := strings.Repeat("─", 72)
	headingColor.Fprintf(w, "\n  Data Checks (%s)\n", cr.Source)
	fmt.Fprintf(w, "  %s\n", thin)
	for _, res := range cr.Results {
		switch {
		case res.Err != nil:
			fmt.Fprintf(w, "  %-40s %s\n", res.Title, color.YellowString("skipped: %v", res.Err))
		case res.Count == 0:
			fmt.Fprintf(w, "  %-40s %s\n", res.Title, goodColor.Sprint("ok"))
		default:
			fmt.Fprintf(w, "  %-40s %s\n", res.Title, badColor.Sprint(res.Message))
		}
	}
	fmt.Fprintln(w)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
