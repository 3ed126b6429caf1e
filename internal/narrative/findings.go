// Package narrative turns evaluation results into readable findings:
// slices that deviate from the overall metrics, intervals too wide to
// act on, undersized slices, and model-to-model regressions. Reports
// render as Markdown and HTML.
package narrative

import (
	"fmt"
	"math"
	"sort"

	"github.com/sarvex/model-analysis/domain/metrics"
	"github.com/sarvex/model-analysis/domain/slicing"
	"github.com/sarvex/model-analysis/models"
)

// Finding kinds
const (
	FindingDisparity       = "disparity"
	FindingWideInterval    = "wide_interval"
	FindingSmallSlice      = "small_slice"
	FindingUndefinedMetric = "undefined_metric"
	FindingRegression      = "regression"
)

// Severity levels
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// Finding is one detected issue in a run's results
type Finding struct {
	Kind     string  `json:"kind"`
	Severity string  `json:"severity"`
	Metric   string  `json:"metric,omitempty"`
	Slice    string  `json:"slice,omitempty"`
	Gap      float64 `json:"gap,omitempty"`
	Detail   string  `json:"detail"`
}

// Report collects the findings for one model of one run
type Report struct {
	RunID    string    `json:"run_id"`
	RunName  string    `json:"run_name,omitempty"`
	Model    string    `json:"model"`
	Compared string    `json:"compared,omitempty"`
	Findings []Finding `json:"findings"`
}

// Thresholds tune the detectors
type Thresholds struct {
	// DisparityGap is the relative deviation from the overall value that
	// flags a slice; SevereGap upgrades the finding to high severity
	DisparityGap float64
	SevereGap    float64
	// IntervalWidth flags bounded metrics whose interval spans more
	IntervalWidth float64
	// MinSliceCount flags slices with fewer examples
	MinSliceCount float64
	// RegressionDelta flags metric movement in the harmful direction
	RegressionDelta float64
}

// DefaultThresholds returns the detector defaults
func DefaultThresholds() Thresholds {
	return Thresholds{
		DisparityGap:    0.2,
		SevereGap:       0.5,
		IntervalWidth:   0.25,
		MinSliceCount:   50,
		RegressionDelta: 0.05,
	}
}

// Generator produces findings reports using rule-based detection
type Generator struct {
	thresholds Thresholds
}

// NewGenerator creates a findings generator with default thresholds
func NewGenerator() *Generator {
	return &Generator{thresholds: DefaultThresholds()}
}

// NewGeneratorWithThresholds creates a findings generator with custom
// thresholds. Zero fields fall back to the defaults.
func NewGeneratorWithThresholds(t Thresholds) *Generator {
	defaults := DefaultThresholds()
	if t.DisparityGap <= 0 {
		t.DisparityGap = defaults.DisparityGap
	}
	if t.SevereGap <= 0 {
		t.SevereGap = defaults.SevereGap
	}
	if t.IntervalWidth <= 0 {
		t.IntervalWidth = defaults.IntervalWidth
	}
	if t.MinSliceCount <= 0 {
		t.MinSliceCount = defaults.MinSliceCount
	}
	if t.RegressionDelta <= 0 {
		t.RegressionDelta = defaults.RegressionDelta
	}
	return &Generator{thresholds: t}
}

// Analyze inspects one model's results and reports every finding,
// ordered high severity first
func (g *Generator) Analyze(file *models.ResultsFile, model string) (*Report, error) {
	sliceMetrics, ok := file.SliceMetricsFor(model)
	if !ok {
		return nil, fmt.Errorf("results carry no metrics for model %q", model)
	}

	report := &Report{
		RunID:   file.Manifest.RunID,
		RunName: file.Manifest.Name,
		Model:   model,
	}
	report.Findings = append(report.Findings, g.detectDisparities(sliceMetrics)...)
	report.Findings = append(report.Findings, g.detectWideIntervals(sliceMetrics)...)
	report.Findings = append(report.Findings, g.detectSmallSlices(file.ExampleCounts)...)
	report.Findings = append(report.Findings, g.detectUndefinedMetrics(sliceMetrics)...)
	sortFindings(report.Findings)
	return report, nil
}

// AnalyzeComparison adds regression findings between two models on top
// of the base model's single-model findings
func (g *Generator) AnalyzeComparison(file *models.ResultsFile, baseModel, compareModel string) (*Report, error) {
	report, err := g.Analyze(file, compareModel)
	if err != nil {
		return nil, err
	}
	base, ok := file.SliceMetricsFor(baseModel)
	if !ok {
		return nil, fmt.Errorf("results carry no metrics for model %q", baseModel)
	}
	compare, _ := file.SliceMetricsFor(compareModel)

	report.Compared = baseModel
	report.Findings = append(report.Findings, g.detectRegressions(base, compare, baseModel, compareModel)...)
	sortFindings(report.Findings)
	return report, nil
}

// detectDisparities flags slices whose metric deviates from the overall
// value by more than the configured relative gap
func (g *Generator) detectDisparities(sliceMetrics []metrics.SliceMetrics) []Finding {
	overall, ok := findOverall(sliceMetrics)
	if !ok {
		return nil
	}

	var findings []Finding
	for _, sm := range sliceMetrics {
		if sm.Slice == slicing.OverallName {
			continue
		}
		for _, metric := range sm.Names() {
			if !comparableMetric(metric) {
				continue
			}
			reference, ok := overall.Get(metric)
			if !ok {
				continue
			}
			ref, value := reference.Scalar(), mustScalar(sm, metric)
			if math.IsNaN(ref) || math.IsNaN(value) || ref == 0 {
				continue
			}

			gap := value/ref - 1
			if math.Abs(gap) < g.thresholds.DisparityGap {
				continue
			}

			severity := SeverityMedium
			if math.Abs(gap) >= g.thresholds.SevereGap {
				severity = SeverityHigh
			}
			direction := "above"
			if gap < 0 {
				direction = "below"
			}
			findings = append(findings, Finding{
				Kind:     FindingDisparity,
				Severity: severity,
				Metric:   metric,
				Slice:    sm.Slice,
				Gap:      gap,
				Detail: fmt.Sprintf("%s on %s is %.1f%% %s the overall value (%.4g vs %.4g)",
					metrics.DisplayName(metric), sm.Slice, math.Abs(gap)*100, direction, value, ref),
			})
		}
	}
	return findings
}

// detectWideIntervals flags bounded metrics whose confidence interval is
// too wide to support a comparison
func (g *Generator) detectWideIntervals(sliceMetrics []metrics.SliceMetrics) []Finding {
	var findings []Finding
	for _, sm := range sliceMetrics {
		for _, metric := range sm.Names() {
			value, _ := sm.Get(metric)
			bound, ok := value.Bound()
			if !ok {
				continue
			}
			width := bound.UpperBound - bound.LowerBound
			if math.IsNaN(width) || width < g.thresholds.IntervalWidth {
				continue
			}
			findings = append(findings, Finding{
				Kind:     FindingWideInterval,
				Severity: SeverityLow,
				Metric:   metric,
				Slice:    sm.Slice,
				Gap:      width,
				Detail: fmt.Sprintf("%s on %s has a %.2f-wide interval (%.4g, %.4g), too uncertain to compare",
					metrics.DisplayName(metric), sm.Slice, width, bound.LowerBound, bound.UpperBound),
			})
		}
	}
	return findings
}

// detectSmallSlices flags slices below the minimum example count
func (g *Generator) detectSmallSlices(counts map[string]float64) []Finding {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	var findings []Finding
	for _, name := range names {
		if name == slicing.OverallName {
			continue
		}
		count := counts[name]
		if count >= g.thresholds.MinSliceCount {
			continue
		}
		findings = append(findings, Finding{
			Kind:     FindingSmallSlice,
			Severity: SeverityMedium,
			Slice:    name,
			Gap:      count,
			Detail: fmt.Sprintf("%s holds only %.0f examples (minimum %.0f), its metrics are unreliable",
				name, count, g.thresholds.MinSliceCount),
		})
	}
	return findings
}

// detectUndefinedMetrics flags NaN readings, usually a single-class
// slice or an empty denominator
func (g *Generator) detectUndefinedMetrics(sliceMetrics []metrics.SliceMetrics) []Finding {
	var findings []Finding
	for _, sm := range sliceMetrics {
		for _, metric := range sm.Names() {
			value, _ := sm.Get(metric)
			if !value.IsNaN() {
				continue
			}
			findings = append(findings, Finding{
				Kind:     FindingUndefinedMetric,
				Severity: SeverityLow,
				Metric:   metric,
				Slice:    sm.Slice,
				Detail: fmt.Sprintf("%s is undefined on %s, the slice lacks the examples the metric needs",
					metrics.DisplayName(metric), sm.Slice),
			})
		}
	}
	return findings
}

// detectRegressions flags metrics that moved in the harmful direction
// between the base and compare models
func (g *Generator) detectRegressions(base, compare []metrics.SliceMetrics, baseModel, compareModel string) []Finding {
	compareIdx := metrics.IndexBySlice(compare)

	var findings []Finding
	for _, sm := range base {
		other, ok := compareIdx[sm.Slice]
		if !ok {
			continue
		}
		for _, metric := range sm.Names() {
			direction, comparable := metricDirection(metric)
			if !comparable {
				continue
			}
			baseValue := mustScalar(sm, metric)
			compareValue, ok := other.Get(metric)
			if !ok {
				continue
			}
			if math.IsNaN(baseValue) || math.IsNaN(compareValue.Scalar()) || baseValue == 0 {
				continue
			}

			delta := compareValue.Scalar()/baseValue - 1
			harmful := delta * direction
			if harmful >= -g.thresholds.RegressionDelta {
				continue
			}

			severity := SeverityMedium
			if harmful <= -2*g.thresholds.RegressionDelta {
				severity = SeverityHigh
			}
			findings = append(findings, Finding{
				Kind:     FindingRegression,
				Severity: severity,
				Metric:   metric,
				Slice:    sm.Slice,
				Gap:      delta,
				Detail: fmt.Sprintf("%s on %s moved %+.1f%% from %s to %s (%.4g to %.4g)",
					metrics.DisplayName(metric), sm.Slice, delta*100, baseModel, compareModel,
					baseValue, compareValue.Scalar()),
			})
		}
	}
	return findings
}

// findOverall locates the overall slice in a metric set
func findOverall(sliceMetrics []metrics.SliceMetrics) (metrics.SliceMetrics, bool) {
	for _, sm := range sliceMetrics {
		if sm.Slice == slicing.OverallName {
			return sm, true
		}
	}
	return metrics.SliceMetrics{}, false
}

// comparableMetric reports whether cross-slice comparison makes sense
// for a metric. Example counts differ by construction.
func comparableMetric(name string) bool {
	_, ok := metricDirection(name)
	return ok
}

// metricDirection returns +1 for higher-is-better metrics, -1 for
// lower-is-better, and false for metrics with no quality direction
func metricDirection(name string) (float64, bool) {
	base, _, hasThreshold := metrics.SplitThreshold(name)
	if !hasThreshold {
		base = name
	}
	switch metrics.DisplayName(base) {
	case metrics.MetricAccuracy, metrics.MetricPrecision, metrics.MetricRecall, metrics.MetricAUC:
		return 1, true
	case metrics.MetricLoss, metrics.MetricFalsePositiveRate, metrics.MetricFalseNegativeRate:
		return -1, true
	}
	return 0, false
}

func mustScalar(sm metrics.SliceMetrics, name string) float64 {
	value, ok := sm.Get(name)
	if !ok {
		return math.NaN()
	}
	return value.Scalar()
}

// severityRank orders severities for display
var severityRank = map[string]int{
	SeverityHigh:   0,
	SeverityMedium: 1,
	SeverityLow:    2,
}

// sortFindings orders findings by severity, then kind, then slice
func sortFindings(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		if severityRank[findings[i].Severity] != severityRank[findings[j].Severity] {
			return severityRank[findings[i].Severity] < severityRank[findings[j].Severity]
		}
		if findings[i].Kind != findings[j].Kind {
			return findings[i].Kind < findings[j].Kind
		}
		return findings[i].Slice < findings[j].Slice
	})
}
