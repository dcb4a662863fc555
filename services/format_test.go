package services

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestPercent(t *testing.T) {
	tests := []struct {
		val, total float64
		want       string
	}{
		{0, 0, "₹ 0.00 Cr (0.0%)"},
		{123456789, 0, "₹ 12.35 Cr (0.0%)"},
		{5e6, 1e7, "₹ 0.50 Cr (50.0%)"},
		{1e7, 3e7, "₹ 1.00 Cr (33.3%)"},
		{3e7, 3e7, "₹ 3.00 Cr (100.0%)"},
	}
	for _, tt := range tests {
		got := Percent(decimal.NewFromFloat(tt.val), decimal.NewFromFloat(tt.total))
		if got != tt.want {
			t.Errorf("Percent(%v, %v): got %q, want %q", tt.val, tt.total, got, tt.want)
		}
	}
}

func TestFormatCrore(t *testing.T) {
	tests := []struct {
		val  float64
		want string
	}{
		{0, "₹ 0.00 Cr"},
		{25e6, "₹ 2.50 Cr"},
		{-25e6, "₹ -2.50 Cr"},
		{1234567890123, "₹ 123,456.79 Cr"},
	}
	for _, tt := range tests {
		if got := FormatCrore(decimal.NewFromFloat(tt.val)); got != tt.want {
			t.Errorf("FormatCrore(%v): got %q, want %q", tt.val, got, tt.want)
		}
	}
}

func TestFormatINR(t *testing.T) {
	tests := []struct {
		val  string
		want string
	}{
		{"999", "₹ 999.00"},
		{"1000", "₹ 1,000.00"},
		{"1234567.5", "₹ 12,34,567.50"},
		{"-100000", "₹ -1,00,000.00"},
		{"123456789012", "₹ 1,23,45,67,89,012.00"},
	}
	for _, tt := range tests {
		if got := FormatINR(decimal.RequireFromString(tt.val)); got != tt.want {
			t.Errorf("FormatINR(%s): got %q, want %q", tt.val, got, tt.want)
		}
	}
}

func TestFormatLakhAndCount(t *testing.T) {
	if got := FormatLakh(decimal.NewFromInt(120000)); got != "₹ 1.20 L" {
		t.Errorf("FormatLakh: got %q, want %q", got, "₹ 1.20 L")
	}
	if got := FormatCount(1234567); got != "1,234,567" {
		t.Errorf("FormatCount: got %q, want %q", got, "1,234,567")
	}
	assertDecimal(t, "ToCrore", ToCrore(decimal.NewFromInt(50_000_000)), decimal.NewFromInt(5))
	assertDecimal(t, "ToLakh", ToLakh(decimal.NewFromInt(250_000)), decimal.RequireFromString("2.5"))
}
