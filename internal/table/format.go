package table

import (
	"fmt"
	"math"
	"strconv"

	"github.com/sarvex/model-analysis/domain/metrics"
)

// scalarDigits caps cell width at five significant figures
const scalarDigits = 5

// NaNText is the rendered form of NaN cells
const NaNText = "NaN"

// FormatScalar renders a point estimate in shortest form at five
// significant figures: "0.61", "34", "1.2345e-05".
func FormatScalar(v float64) string {
	if math.IsNaN(v) {
		return NaNText
	}
	return strconv.FormatFloat(v, 'g', scalarDigits, 64)
}

// FormatBounded renders "value (lowerBound, upperBound)"
func FormatBounded(b metrics.Bounded) string {
	return fmt.Sprintf("%s (%s, %s)",
		FormatScalar(b.Value), FormatScalar(b.LowerBound), FormatScalar(b.UpperBound))
}

// FormatValue renders any metric value
func FormatValue(v metrics.Value) string {
	if bound, ok := v.Bound(); ok {
		return FormatBounded(bound)
	}
	return FormatScalar(v.Scalar())
}

// FormatCount renders an example count as a plain integer
func FormatCount(v float64) string {
	if math.IsNaN(v) {
		return NaNText
	}
	return strconv.FormatInt(int64(math.Round(v)), 10)
}

// PercentDelta computes compare/base - 1. A zero base has no meaningful
// relative change and yields NaN, as do NaN inputs.
func PercentDelta(base, compare float64) float64 {
	if base == 0 || math.IsNaN(base) || math.IsNaN(compare) {
		return math.NaN()
	}
	return compare/base - 1
}

// FormatPercentDelta renders a relative change as a signed one-decimal
// percentage: "+3.2%", "-1.5%", "0.0%".
func FormatPercentDelta(ratio float64) string {
	if math.IsNaN(ratio) {
		return NaNText
	}
	percent := ratio * 100
	if percent > 0 {
		return fmt.Sprintf("+%.1f%%", percent)
	}
	return fmt.Sprintf("%.1f%%", percent)
}
