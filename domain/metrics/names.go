package metrics

import (
	"fmt"
	"strconv"
	"strings"
)

// Canonical metric names. Thresholded variants append "@<threshold>"
// (false_negative_rate@0.30).
const (
	MetricExampleCount      = "example_count"
	MetricLoss              = "loss"
	MetricAccuracy          = "accuracy"
	MetricPrecision         = "precision"
	MetricRecall            = "recall"
	MetricFalsePositiveRate = "false_positive_rate"
	MetricFalseNegativeRate = "false_negative_rate"
	MetricAUC               = "auc"
)

// CanonicalNames is the default metric set computed when a config names none
var CanonicalNames = []string{
	MetricExampleCount,
	MetricLoss,
	MetricAccuracy,
	MetricPrecision,
	MetricRecall,
	MetricFalsePositiveRate,
	MetricFalseNegativeRate,
	MetricAUC,
}

// reporting prefixes some producers attach to metric names
var displayPrefixes = []string{
	"post_export_metrics/",
	"fairness_indicators_metrics/",
}

// DisplayName strips reporting prefixes while preserving any threshold
// suffix: "post_export_metrics/false_negative_rate@0.30" renders as
// "false_negative_rate@0.30".
func DisplayName(name string) string {
	for _, prefix := range displayPrefixes {
		if strings.HasPrefix(name, prefix) {
			return strings.TrimPrefix(name, prefix)
		}
	}
	return name
}

// ThresholdedName builds "name@threshold" with two-decimal thresholds
func ThresholdedName(base string, threshold float64) string {
	return fmt.Sprintf("%s@%.2f", base, threshold)
}

// SplitThreshold splits "name@0.30" into its base name and threshold.
// The third return is false when the name carries no parseable threshold.
func SplitThreshold(name string) (string, float64, bool) {
	at := strings.LastIndex(name, "@")
	if at < 0 {
		return name, 0, false
	}
	threshold, err := strconv.ParseFloat(name[at+1:], 64)
	if err != nil {
		return name, 0, false
	}
	return name[:at], threshold, true
}

// IsRateMetric reports whether the (threshold-stripped) metric is a
// proportion, which determines the confidence interval method.
func IsRateMetric(name string) bool {
	base, _, _ := SplitThreshold(name)
	switch DisplayName(base) {
	case MetricAccuracy, MetricPrecision, MetricRecall,
		MetricFalsePositiveRate, MetricFalseNegativeRate:
		return true
	}
	return false
}
