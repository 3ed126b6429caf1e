package metrics

import (
	"testing"
)

// TestDisplayName tests reporting-prefix stripping
func TestDisplayName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"post_export_metrics/false_negative_rate@0.30", "false_negative_rate@0.30"},
		{"fairness_indicators_metrics/recall@0.50", "recall@0.50"},
		{"loss", "loss"},
		{"auc", "auc"},
	}

	for _, test := range tests {
		if got := DisplayName(test.input); got != test.expected {
			t.Errorf("DisplayName(%q): expected %q, got %q", test.input, test.expected, got)
		}
	}
}

// TestSplitThreshold tests threshold suffix parsing
func TestSplitThreshold(t *testing.T) {
	tests := []struct {
		input     string
		base      string
		threshold float64
		ok        bool
	}{
		{"false_negative_rate@0.30", "false_negative_rate", 0.30, true},
		{"recall@0.55", "recall", 0.55, true},
		{"loss", "loss", 0, false},
		{"weird@name", "weird@name", 0, false},
	}

	for _, test := range tests {
		base, threshold, ok := SplitThreshold(test.input)
		if base != test.base || threshold != test.threshold || ok != test.ok {
			t.Errorf("SplitThreshold(%q): expected (%q, %v, %v), got (%q, %v, %v)",
				test.input, test.base, test.threshold, test.ok, base, threshold, ok)
		}
	}
}

// TestThresholdedName tests threshold formatting
func TestThresholdedName(t *testing.T) {
	if got := ThresholdedName(MetricFalseNegativeRate, 0.3); got != "false_negative_rate@0.30" {
		t.Errorf("Expected 'false_negative_rate@0.30', got %q", got)
	}
}

// TestIsRateMetric tests proportion classification driving CI method choice
func TestIsRateMetric(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{MetricRecall, true},
		{"recall@0.30", true},
		{"post_export_metrics/false_positive_rate@0.10", true},
		{MetricLoss, false},
		{MetricAUC, false},
		{MetricExampleCount, false},
	}

	for _, test := range tests {
		if got := IsRateMetric(test.name); got != test.want {
			t.Errorf("IsRateMetric(%q): expected %v, got %v", test.name, test.want, got)
		}
	}
}
