package app

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sarvex/model-analysis/domain/core"
	"github.com/sarvex/model-analysis/domain/metrics"
	"github.com/sarvex/model-analysis/internal/format"
	"github.com/sarvex/model-analysis/internal/table"
	"github.com/sarvex/model-analysis/models"
)

func storedResults(runID, name string) *models.ResultsFile {
	sliceSet := func(accBase, accCand float64, withAUC bool) (metrics.SliceMetrics, metrics.SliceMetrics) {
		base := metrics.NewSliceMetrics("")
		cand := metrics.NewSliceMetrics("")
		base.Set("example_count", metrics.NewScalar(6))
		cand.Set("example_count", metrics.NewScalar(6))
		base.Set("accuracy", metrics.MustBounded(accBase, accBase-0.1, accBase+0.1))
		cand.Set("accuracy", metrics.MustBounded(accCand, accCand-0.1, accCand+0.1))
		if withAUC {
			base.Set("auc", metrics.MustBounded(0.8, 0.7, 0.9))
			cand.Set("auc", metrics.MustBounded(0.72, 0.62, 0.82))
		}
		return base, cand
	}

	overallBase, overallCand := sliceSet(0.5, 0.55, true)
	overallBase.Slice, overallCand.Slice = "Overall", "Overall"
	femaleBase, femaleCand := sliceSet(0.4, 0.4, true)
	femaleBase.Slice, femaleCand.Slice = "sex:female", "sex:female"
	maleBase, maleCand := sliceSet(0.6, 0.7, false)
	maleBase.Slice, maleCand.Slice = "sex:male", "sex:male"

	return &models.ResultsFile{
		Version: models.ResultsFileVersion,
		Manifest: models.RunManifest{
			RunID:       runID,
			Name:        name,
			ModelNames:  []string{"base", "cand"},
			MetricNames: []string{"example_count", "accuracy", "auc"},
			RowCount:    6,
			CreatedAt:   time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
			CompletedAt: time.Date(2025, 3, 1, 10, 5, 0, 0, time.UTC),
		},
		PerModel: map[string][]metrics.SliceMetrics{
			"base": {overallBase, femaleBase, maleBase},
			"cand": {overallCand, femaleCand, maleCand},
		},
		ExampleCounts: map[string]float64{
			"Overall": 6, "sex:female": 3, "sex:male": 3,
		},
	}
}

func newTableFixture(t *testing.T, files ...*models.ResultsFile) (*TableService, *fakeRunRepo, *fakeMetricsRepo, *fakeResultsStore) {
	t.Helper()
	runs := newFakeRunRepo()
	metricsRepo := newFakeMetricsRepo()
	results := newFakeResultsStore()
	for _, file := range files {
		if _, err := results.WriteResults(context.Background(), file); err != nil {
			t.Fatalf("seed results: %v", err)
		}
	}
	return NewTableService(results, metricsRepo, runs), runs, metricsRepo, results
}

func cellText(t *testing.T, tab *table.Table, row, col int) string {
	t.Helper()
	if row >= len(tab.Rows) || col >= len(tab.Rows[row]) {
		t.Fatalf("cell (%d,%d) out of range for %dx%d table",
			row, col, len(tab.Rows), len(tab.Headers))
	}
	return tab.Rows[row][col].Text
}

func TestBuildRunTableDefaultsToFirstModel(t *testing.T) {
	service, _, _, _ := newTableFixture(t, storedResults("run-1", "fairness check"))

	tab, err := service.BuildRunTable(context.Background(), TableRequest{RunID: "run-1"})
	if err != nil {
		t.Fatalf("BuildRunTable: %v", err)
	}

	wantHeaders := []string{"feature", "example count", "accuracy", "auc"}
	if len(tab.Headers) != len(wantHeaders) {
		t.Fatalf("headers = %v, want %v", tab.Headers, wantHeaders)
	}
	for i, want := range wantHeaders {
		if tab.Headers[i] != want {
			t.Errorf("header[%d] = %s, want %s", i, tab.Headers[i], want)
		}
	}

	if got := cellText(t, tab, 0, 0); got != "Overall" {
		t.Errorf("first slice = %s, want Overall", got)
	}
	if got := cellText(t, tab, 0, 1); got != "6" {
		t.Errorf("overall count = %s, want 6", got)
	}
	if got := cellText(t, tab, 0, 2); got != "0.5 (0.4, 0.6)" {
		t.Errorf("overall accuracy = %q", got)
	}
	if got := cellText(t, tab, 2, 3); got != "" {
		t.Errorf("male auc should be empty, got %q", got)
	}
}

func TestBuildRunTableUnknownModel(t *testing.T) {
	service, _, _, _ := newTableFixture(t, storedResults("run-1", ""))

	_, err := service.BuildRunTable(context.Background(), TableRequest{RunID: "run-1", Model: "ghost"})
	if !errors.Is(err, core.ErrModelNotFound) {
		t.Fatalf("error = %v, want ErrModelNotFound", err)
	}
}

func TestBuildComparisonTable(t *testing.T) {
	service, _, _, _ := newTableFixture(t, storedResults("run-1", ""))

	tab, err := service.BuildComparisonTable(context.Background(), CompareRequest{
		RunID:   "run-1",
		Metrics: []string{"accuracy"},
	})
	if err != nil {
		t.Fatalf("BuildComparisonTable: %v", err)
	}

	wantHeaders := []string{
		"feature", "example count",
		"accuracy - base", "accuracy - cand", "accuracy - cand against base",
	}
	if len(tab.Headers) != len(wantHeaders) {
		t.Fatalf("headers = %v, want %v", tab.Headers, wantHeaders)
	}
	for i, want := range wantHeaders {
		if tab.Headers[i] != want {
			t.Errorf("header[%d] = %s, want %s", i, tab.Headers[i], want)
		}
	}

	if got := cellText(t, tab, 0, 4); got != "+10.0%" {
		t.Errorf("overall accuracy delta = %q, want +10.0%%", got)
	}
	if got := cellText(t, tab, 1, 4); got != "0.0%" {
		t.Errorf("female accuracy delta = %q, want 0.0%%", got)
	}
}

func TestBuildComparisonTableSingleModelRun(t *testing.T) {
	file := storedResults("run-1", "")
	file.Manifest.ModelNames = []string{"base"}
	delete(file.PerModel, "cand")
	service, _, _, _ := newTableFixture(t, file)

	_, err := service.BuildComparisonTable(context.Background(), CompareRequest{RunID: "run-1"})
	if err == nil || !strings.Contains(err.Error(), "single model") {
		t.Fatalf("error = %v, want single-model refusal", err)
	}
}

func TestBuildRunComparisonTable(t *testing.T) {
	march := storedResults("run-1", "march eval")
	april := storedResults("run-2", "april eval")
	service, _, _, _ := newTableFixture(t, march, april)

	tab, err := service.BuildRunComparisonTable(context.Background(), RunCompareRequest{
		BaseRunID:    "run-1",
		CompareRunID: "run-2",
		Model:        "base",
		Metrics:      []string{"accuracy"},
	})
	if err != nil {
		t.Fatalf("BuildRunComparisonTable: %v", err)
	}

	if tab.Headers[2] != "accuracy - march eval" {
		t.Errorf("base header = %s", tab.Headers[2])
	}
	if tab.Headers[4] != "accuracy - april eval against march eval" {
		t.Errorf("delta header = %s", tab.Headers[4])
	}
	// Same stored values on both sides, every delta is zero
	if got := cellText(t, tab, 0, 4); got != "0.0%" {
		t.Errorf("overall delta = %q, want 0.0%%", got)
	}
}

func TestLoadResultsRebuildsFromDatabase(t *testing.T) {
	service, runs, metricsRepo, _ := newTableFixture(t)

	created := time.Date(2025, 4, 2, 9, 0, 0, 0, time.UTC)
	completed := created.Add(3 * time.Minute)
	if err := runs.SaveRun(context.Background(), &models.RunRow{
		ID:          "run-db",
		Name:        "db only",
		Status:      models.StatusCompleted,
		DatasetHash: sql.NullString{String: "abc123", Valid: true},
		RowCount:    6,
		CreatedAt:   created,
		CompletedAt: sql.NullTime{Time: completed, Valid: true},
	}); err != nil {
		t.Fatalf("seed run: %v", err)
	}

	// Stored out of display order, the position column restores it
	rows := []models.SliceMetricsRow{
		{RunID: "run-db", Model: "cand", Slice: "sex:male", Position: 2,
			Metrics: models.MetricsJSON{"accuracy": metrics.NewScalar(0.7)}, ExampleCount: 3},
		{RunID: "run-db", Model: "cand", Slice: "Overall", Position: 0,
			Metrics: models.MetricsJSON{"accuracy": metrics.NewScalar(0.6)}, ExampleCount: 6},
		{RunID: "run-db", Model: "cand", Slice: "sex:female", Position: 1,
			Metrics: models.MetricsJSON{"accuracy": metrics.NewScalar(0.5)}, ExampleCount: 3},
	}
	if err := metricsRepo.SaveSliceMetrics(context.Background(), rows); err != nil {
		t.Fatalf("seed metrics: %v", err)
	}

	file, err := service.LoadResults(context.Background(), "run-db")
	if err != nil {
		t.Fatalf("LoadResults: %v", err)
	}

	if file.Manifest.Name != "db only" {
		t.Errorf("manifest name = %s", file.Manifest.Name)
	}
	if file.Manifest.DatasetHash != "abc123" {
		t.Errorf("manifest hash = %s", file.Manifest.DatasetHash)
	}
	sliceMetrics, ok := file.SliceMetricsFor("cand")
	if !ok {
		t.Fatal("rebuilt file carries no cand metrics")
	}
	wantOrder := []string{"Overall", "sex:female", "sex:male"}
	for i, want := range wantOrder {
		if sliceMetrics[i].Slice != want {
			t.Errorf("slice[%d] = %s, want %s", i, sliceMetrics[i].Slice, want)
		}
	}
	if file.ExampleCounts["Overall"] != 6 {
		t.Errorf("overall count = %v, want 6", file.ExampleCounts["Overall"])
	}

	tab, err := service.BuildRunTable(context.Background(), TableRequest{RunID: "run-db"})
	if err != nil {
		t.Fatalf("BuildRunTable from rebuilt results: %v", err)
	}
	if got := cellText(t, tab, 0, 2); got != "0.6" {
		t.Errorf("rebuilt overall accuracy = %q, want 0.6", got)
	}
}

func TestLoadResultsUnknownRun(t *testing.T) {
	service, _, _, _ := newTableFixture(t)

	_, err := service.LoadResults(context.Background(), "missing")
	if !errors.Is(err, core.ErrRunNotFound) {
		t.Fatalf("error = %v, want ErrRunNotFound", err)
	}
}

func TestRenderTextModes(t *testing.T) {
	service, _, _, _ := newTableFixture(t, storedResults("run-1", ""))

	tab, err := service.BuildRunTable(context.Background(), TableRequest{RunID: "run-1", Metrics: []string{"accuracy"}})
	if err != nil {
		t.Fatalf("BuildRunTable: %v", err)
	}

	ascii := service.RenderText(tab, format.ASCII)
	if !strings.Contains(ascii, "0.5 (0.4, 0.6)") {
		t.Errorf("ascii output lacks the bounded cell:\n%s", ascii)
	}

	markdown := service.RenderText(tab, format.Markdown)
	if !strings.Contains(markdown, "| feature |") && !strings.Contains(markdown, "feature") {
		t.Errorf("markdown output lacks the feature header:\n%s", markdown)
	}
}
