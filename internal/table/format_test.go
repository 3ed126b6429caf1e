package table

import (
	"math"
	"testing"

	"github.com/sarvex/model-analysis/domain/metrics"
)

// TestFormatScalar tests shortest-form five-significant-digit rendering
func TestFormatScalar(t *testing.T) {
	tests := []struct {
		input    float64
		expected string
	}{
		{0.61, "0.61"},
		{0.7, "0.7"},
		{34, "34"},
		{1.0 / 3.0, "0.33333"},
		{0.000012345, "1.2345e-05"},
		{123456, "1.2346e+05"},
		{0, "0"},
		{math.NaN(), "NaN"},
	}

	for _, test := range tests {
		if got := FormatScalar(test.input); got != test.expected {
			t.Errorf("FormatScalar(%v): expected %q, got %q", test.input, test.expected, got)
		}
	}
}

// TestFormatBounded tests "value (lower, upper)" rendering
func TestFormatBounded(t *testing.T) {
	b := metrics.Bounded{Value: 0.61, LowerBound: 0.6, UpperBound: 0.62}
	if got := FormatBounded(b); got != "0.61 (0.6, 0.62)" {
		t.Errorf("Expected '0.61 (0.6, 0.62)', got %q", got)
	}

	nan := metrics.Bounded{Value: 0.5, LowerBound: math.NaN(), UpperBound: math.NaN()}
	if got := FormatBounded(nan); got != "0.5 (NaN, NaN)" {
		t.Errorf("Expected '0.5 (NaN, NaN)', got %q", got)
	}
}

// TestFormatValue tests dispatch between scalar and bounded rendering
func TestFormatValue(t *testing.T) {
	if got := FormatValue(metrics.NewScalar(0.72)); got != "0.72" {
		t.Errorf("Expected '0.72', got %q", got)
	}
	if got := FormatValue(metrics.MustBounded(0.61, 0.6, 0.62)); got != "0.61 (0.6, 0.62)" {
		t.Errorf("Expected bounded rendering, got %q", got)
	}
}

// TestPercentDelta tests the relative-change computation
func TestPercentDelta(t *testing.T) {
	tests := []struct {
		name    string
		base    float64
		compare float64
		want    float64
		wantNaN bool
	}{
		{"increase", 0.6, 0.66, 0.1, false},
		{"decrease", 2, 1, -0.5, false},
		{"unchanged", 0.5, 0.5, 0, false},
		{"zero base", 0, 0.5, 0, true},
		{"nan base", math.NaN(), 0.5, 0, true},
		{"nan compare", 0.5, math.NaN(), 0, true},
	}

	for _, test := range tests {
		got := PercentDelta(test.base, test.compare)
		if test.wantNaN {
			if !math.IsNaN(got) {
				t.Errorf("%s: expected NaN, got %v", test.name, got)
			}
			continue
		}
		if math.Abs(got-test.want) > 1e-9 {
			t.Errorf("%s: expected %v, got %v", test.name, test.want, got)
		}
	}
}

// TestFormatPercentDelta tests signed percentage rendering
func TestFormatPercentDelta(t *testing.T) {
	tests := []struct {
		input    float64
		expected string
	}{
		{0.032, "+3.2%"},
		{-0.015, "-1.5%"},
		{0, "0.0%"},
		{1.4705882352941178, "+147.1%"},
		{math.NaN(), "NaN"},
	}

	for _, test := range tests {
		if got := FormatPercentDelta(test.input); got != test.expected {
			t.Errorf("FormatPercentDelta(%v): expected %q, got %q", test.input, test.expected, got)
		}
	}
}

// TestFormatCount tests integer count rendering
func TestFormatCount(t *testing.T) {
	tests := []struct {
		input    float64
		expected string
	}{
		{34, "34"},
		{1000, "1000"},
		{83.6, "84"},
		{math.NaN(), "NaN"},
	}

	for _, test := range tests {
		if got := FormatCount(test.input); got != test.expected {
			t.Errorf("FormatCount(%v): expected %q, got %q", test.input, test.expected, got)
		}
	}
}
