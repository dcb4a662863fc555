package services

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

var (
	crore = decimal.NewFromInt(10_000_000)
	lakh  = decimal.NewFromInt(100_000)
	// hundred is used for percentages
	hundred = decimal.NewFromInt(100)
)

// ToCrore converts an amount in rupees to crores.
func ToCrore(v decimal.Decimal) decimal.Decimal {
	return v.Div(crore)
}

// ToLakh converts an amount in rupees to lakhs.
func ToLakh(v decimal.Decimal) decimal.Decimal {
	return v.Div(lakh)
}

// FormatCrore renders v as "₹ 1,234.56 Cr".
func FormatCrore(v decimal.Decimal) string {
	return "₹ " + groupedFixed2(ToCrore(v)) + " Cr"
}

// FormatLakh renders v as "₹ 12.34 L".
func FormatLakh(v decimal.Decimal) string {
	return "₹ " + groupedFixed2(ToLakh(v)) + " L"
}

// Percent renders val in crores alongside its share of total, for example
// "₹ 0.50 Cr (50.0%)". The share is 0 when total is zero.
func Percent(val, total decimal.Decimal) string {
	pct := decimal.Zero
	if !total.IsZero() {
		pct = val.Div(total).Mul(hundred)
	}
	return fmt.Sprintf("%s (%s%%)", FormatCrore(val), pct.StringFixed(1))
}

// FormatCount renders n with thousands separators.
func FormatCount(n int) string {
	return humanize.Comma(int64(n))
}

// FormatINR renders v with Indian digit grouping, e.g. "₹ 12,34,567.50".
func FormatINR(v decimal.Decimal) string {
	s := v.StringFixed(2)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign = "-"
		s = s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")
	return "₹ " + sign + indianGroup(whole) + "." + frac
}

func indianGroup(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	var parts []string
	for len(head) > 2 {
		parts = append([]string{head[len(head)-2:]}, parts...)
		head = head[:len(head)-2]
	}
	if head != "" {
		parts = append([]string{head}, parts...)
	}
	return strings.Join(parts, ",") + "," + tail
}

func groupedFixed2(v decimal.Decimal) string {
	return humanize.FormatFloat("#,###.##", v.Round(2).InexactFloat64())
}
