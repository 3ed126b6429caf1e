package narrative

import (
	"math"
	"strings"
	"testing"

	"github.com/sarvex/model-analysis/domain/metrics"
	"github.com/sarvex/model-analysis/models"
)

func narrativeResults() *models.ResultsFile {
	overall := metrics.NewSliceMetrics("Overall")
	overall.Set("accuracy", metrics.MustBounded(0.8, 0.78, 0.82))
	overall.Set("auc", metrics.MustBounded(0.85, 0.82, 0.88))

	// 25% below overall accuracy, flagged as a disparity
	female := metrics.NewSliceMetrics("sex:female")
	female.Set("accuracy", metrics.MustBounded(0.6, 0.5, 0.7))
	female.Set("auc", metrics.MustBounded(0.84, 0.8, 0.88))

	// 62.5% below overall accuracy plus a wide interval and a NaN AUC
	other := metrics.NewSliceMetrics("sex:other")
	other.Set("accuracy", metrics.MustBounded(0.3, 0.1, 0.6))
	other.Set("auc", metrics.NewScalar(math.NaN()))

	return &models.ResultsFile{
		Version: models.ResultsFileVersion,
		Manifest: models.RunManifest{
			RunID:      "run-1",
			Name:       "march eval",
			ModelNames: []string{"candidate"},
		},
		PerModel: map[string][]metrics.SliceMetrics{
			"candidate": {overall, female, other},
		},
		ExampleCounts: map[string]float64{
			"Overall": 510, "sex:female": 490, "sex:other": 20,
		},
	}
}

func findingsOfKind(report *Report, kind string) []Finding {
	var out []Finding
	for _, f := range report.Findings {
		if f.Kind == kind {
			out = append(out, f)
		}
	}
	return out
}

func TestAnalyzeDetectsDisparities(t *testing.T) {
	report, err := NewGenerator().Analyze(narrativeResults(), "candidate")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	disparities := findingsOfKind(report, FindingDisparity)
	if len(disparities) != 2 {
		t.Fatalf("got %d disparities, want 2: %+v", len(disparities), disparities)
	}

	bySlice := make(map[string]Finding)
	for _, f := range disparities {
		bySlice[f.Slice] = f
	}

	female, ok := bySlice["sex:female"]
	if !ok {
		t.Fatal("no disparity for sex:female")
	}
	if female.Severity != SeverityMedium {
		t.Errorf("female severity = %s, want medium", female.Severity)
	}
	if !strings.Contains(female.Detail, "below") {
		t.Errorf("female detail lacks direction: %s", female.Detail)
	}

	other, ok := bySlice["sex:other"]
	if !ok {
		t.Fatal("no disparity for sex:other")
	}
	if other.Severity != SeverityHigh {
		t.Errorf("other severity = %s, want high for a 62%% gap", other.Severity)
	}
}

func TestAnalyzeDetectsWideIntervalAndNaN(t *testing.T) {
	report, err := NewGenerator().Analyze(narrativeResults(), "candidate")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	wide := findingsOfKind(report, FindingWideInterval)
	if len(wide) != 1 || wide[0].Slice != "sex:other" || wide[0].Metric != "accuracy" {
		t.Errorf("wide interval findings = %+v, want one on sex:other accuracy", wide)
	}

	undefined := findingsOfKind(report, FindingUndefinedMetric)
	if len(undefined) != 1 || undefined[0].Metric != "auc" {
		t.Errorf("undefined findings = %+v, want one NaN auc", undefined)
	}
}

func TestAnalyzeDetectsSmallSlices(t *testing.T) {
	report, err := NewGenerator().Analyze(narrativeResults(), "candidate")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	small := findingsOfKind(report, FindingSmallSlice)
	if len(small) != 1 || small[0].Slice != "sex:other" {
		t.Fatalf("small slice findings = %+v, want one for sex:other", small)
	}
	if !strings.Contains(small[0].Detail, "20 examples") {
		t.Errorf("detail lacks the count: %s", small[0].Detail)
	}
}

func TestAnalyzeOrdersBySeverity(t *testing.T) {
	report, err := NewGenerator().Analyze(narrativeResults(), "candidate")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(report.Findings) == 0 {
		t.Fatal("expected findings")
	}

	last := 0
	for i, f := range report.Findings {
		rank := severityRank[f.Severity]
		if rank < last {
			t.Fatalf("finding %d (%s) ranked above a previous lower severity", i, f.Severity)
		}
		last = rank
	}
	if report.Findings[0].Severity != SeverityHigh {
		t.Errorf("first finding severity = %s, want high", report.Findings[0].Severity)
	}
}

func TestAnalyzeUnknownModel(t *testing.T) {
	_, err := NewGenerator().Analyze(narrativeResults(), "ghost")
	if err == nil || !strings.Contains(err.Error(), "ghost") {
		t.Fatalf("error = %v, want the model named", err)
	}
}

func TestAnalyzeComparisonDetectsRegressions(t *testing.T) {
	file := narrativeResults()

	// The candidate drops recall 12% on one slice relative to the baseline
	baseOverall := metrics.NewSliceMetrics("Overall")
	baseOverall.Set("recall", metrics.MustBounded(0.9, 0.88, 0.92))
	baseFemale := metrics.NewSliceMetrics("sex:female")
	baseFemale.Set("recall", metrics.MustBounded(0.9, 0.85, 0.95))
	file.PerModel["baseline"] = []metrics.SliceMetrics{baseOverall, baseFemale}

	candOverall := metrics.NewSliceMetrics("Overall")
	candOverall.Set("recall", metrics.MustBounded(0.89, 0.87, 0.91))
	candFemale := metrics.NewSliceMetrics("sex:female")
	candFemale.Set("recall", metrics.MustBounded(0.79, 0.74, 0.84))
	file.PerModel["candidate"] = []metrics.SliceMetrics{candOverall, candFemale}

	report, err := NewGenerator().AnalyzeComparison(file, "baseline", "candidate")
	if err != nil {
		t.Fatalf("AnalyzeComparison: %v", err)
	}
	if report.Compared != "baseline" {
		t.Errorf("compared = %s, want baseline", report.Compared)
	}

	regressions := findingsOfKind(report, FindingRegression)
	if len(regressions) != 1 {
		t.Fatalf("got %d regressions, want 1: %+v", len(regressions), regressions)
	}
	if regressions[0].Slice != "sex:female" || regressions[0].Metric != "recall" {
		t.Errorf("regression = %+v, want recall on sex:female", regressions[0])
	}
	if regressions[0].Severity != SeverityHigh {
		t.Errorf("severity = %s, want high for a 12%% drop", regressions[0].Severity)
	}
}

func TestRegressionIgnoresImprovedLowerBetterMetrics(t *testing.T) {
	overallBase := metrics.NewSliceMetrics("Overall")
	overallBase.Set("false_positive_rate", metrics.MustBounded(0.2, 0.15, 0.25))
	overallCand := metrics.NewSliceMetrics("Overall")
	overallCand.Set("false_positive_rate", metrics.MustBounded(0.1, 0.05, 0.15))

	file := &models.ResultsFile{
		Version:  models.ResultsFileVersion,
		Manifest: models.RunManifest{RunID: "run-2", ModelNames: []string{"base", "cand"}},
		PerModel: map[string][]metrics.SliceMetrics{
			"base": {overallBase},
			"cand": {overallCand},
		},
	}

	report, err := NewGenerator().AnalyzeComparison(file, "base", "cand")
	if err != nil {
		t.Fatalf("AnalyzeComparison: %v", err)
	}
	if regressions := findingsOfKind(report, FindingRegression); len(regressions) != 0 {
		t.Errorf("a halved false positive rate is an improvement, got %+v", regressions)
	}
}

func TestMarkdownReport(t *testing.T) {
	report, err := NewGenerator().Analyze(narrativeResults(), "candidate")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	md := Markdown(report)
	if !strings.Contains(md, "## Findings: march eval (candidate)") {
		t.Errorf("markdown lacks the title:\n%s", md)
	}
	if !strings.Contains(md, "### High severity") {
		t.Errorf("markdown lacks the high severity section:\n%s", md)
	}
	if !strings.Contains(md, "- **Disparity**:") {
		t.Errorf("markdown lacks disparity bullets:\n%s", md)
	}
}

func TestMarkdownEmptyReport(t *testing.T) {
	md := Markdown(&Report{RunID: "run-9", Model: "candidate"})
	if !strings.Contains(md, "No findings") {
		t.Errorf("empty report markdown = %q", md)
	}
}

func TestHTMLRendersList(t *testing.T) {
	report, err := NewGenerator().Analyze(narrativeResults(), "candidate")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	html := string(HTML(report))
	if !strings.Contains(html, "<h2") || !strings.Contains(html, "<li>") {
		t.Errorf("html output lacks heading or list:\n%s", html)
	}
	if !strings.Contains(html, "<strong>Disparity</strong>") {
		t.Errorf("html output lacks bolded labels:\n%s", html)
	}
}
