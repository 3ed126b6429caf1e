package testkit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sarvex/model-analysis/app"
	"github.com/sarvex/model-analysis/domain/metrics"
	"github.com/sarvex/model-analysis/domain/slicing"
	"github.com/sarvex/model-analysis/models"
	"github.com/sarvex/model-analysis/ports"
)

func TestSeedDemoRunEvaluatesEndToEnd(t *testing.T) {
	kit := NewTestKit()
	ctx := context.Background()

	runID, err := SeedDemoRun(ctx, kit.Evals, t.TempDir())
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	run, err := kit.Runs.GetRun(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, run.Status)
	assert.Equal(t, 500, run.RowCount)

	file, err := kit.Results.LoadResults(ctx, runID)
	require.NoError(t, err)
	require.Contains(t, file.PerModel, "baseline")
	require.Contains(t, file.PerModel, "candidate")

	// Overall plus every sex and age group slice the generator emits
	baseline := file.PerModel["baseline"]
	require.NotEmpty(t, baseline)
	assert.Equal(t, slicing.OverallName, baseline[0].Slice)
	assert.Greater(t, len(baseline), 4)
}

func TestSeededRunRendersComparisonTable(t *testing.T) {
	kit := NewTestKit()
	ctx := context.Background()

	runID, err := SeedDemoRun(ctx, kit.Evals, t.TempDir())
	require.NoError(t, err)

	tbl, err := kit.Tables.BuildComparisonTable(ctx, app.CompareRequest{
		RunID:        runID,
		BaseModel:    "baseline",
		CompareModel: "candidate",
	})
	require.NoError(t, err)

	require.NotEmpty(t, tbl.Headers)
	assert.Equal(t, "feature", tbl.Headers[0])
	assert.Equal(t, "example count", tbl.Headers[1])
	assert.Contains(t, tbl.Headers, "auc - baseline")
	assert.Contains(t, tbl.Headers, "auc - candidate")
	assert.Contains(t, tbl.Headers, "auc - candidate against baseline")
	require.NotEmpty(t, tbl.Rows)
	assert.Equal(t, slicing.OverallName, tbl.Rows[0][0].Text)
}

func TestTableRebuildsFromRepositoryWhenFileGone(t *testing.T) {
	kit := NewTestKit()
	ctx := context.Background()

	runID, err := SeedDemoRun(ctx, kit.Evals, t.TempDir())
	require.NoError(t, err)

	// Drop the results file; the database rows remain
	require.NoError(t, kit.Results.DeleteResults(ctx, runID))

	file, err := kit.Tables.LoadResults(ctx, runID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"baseline", "candidate"}, file.Manifest.ModelNames)
	require.Contains(t, file.PerModel, "baseline")
	assert.Equal(t, slicing.OverallName, file.PerModel["baseline"][0].Slice)
}

func TestInMemoryRunRepositoryFiltersAndSorts(t *testing.T) {
	repo := NewInMemoryRunRepository()
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	seed := []models.RunRow{
		{ID: "a", Status: models.StatusCompleted, CreatedAt: base},
		{ID: "b", Status: models.StatusFailed, CreatedAt: base.Add(time.Minute)},
		{ID: "c", Status: models.StatusCompleted, CreatedAt: base.Add(2 * time.Minute)},
	}
	for i := range seed {
		require.NoError(t, repo.SaveRun(ctx, &seed[i]))
	}

	all, err := repo.ListRuns(ctx, ports.RunFilters{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].ID)

	completed := models.StatusCompleted
	filtered, err := repo.ListRuns(ctx, ports.RunFilters{Status: &completed})
	require.NoError(t, err)
	require.Len(t, filtered, 2)
	assert.Equal(t, []string{"c", "a"}, []string{filtered[0].ID, filtered[1].ID})

	limited, err := repo.ListRuns(ctx, ports.RunFilters{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "b", limited[0].ID)

	require.NoError(t, repo.DeleteRun(ctx, "b"))
	assert.Error(t, repo.DeleteRun(ctx, "b"))
}

func TestSeedCompletedRunBackfillsRepositories(t *testing.T) {
	kit := NewTestKit()
	ctx := context.Background()

	now := time.Now()
	sm := metrics.NewSliceMetrics(slicing.OverallName)
	sm.Set("auc", metrics.NewScalar(0.91))

	file := &models.ResultsFile{
		Version: models.ResultsFileVersion,
		Manifest: models.RunManifest{
			RunID:       "canned-run",
			Name:        "canned",
			ModelNames:  []string{"model"},
			MetricNames: []string{"auc"},
			RowCount:    10,
			CreatedAt:   now.Add(-time.Minute),
			CompletedAt: now,
		},
		PerModel:      map[string][]metrics.SliceMetrics{"model": {sm}},
		ExampleCounts: map[string]float64{slicing.OverallName: 10},
	}
	require.NoError(t, kit.SeedCompletedRun(ctx, file))

	run, err := kit.Runs.GetRun(ctx, "canned-run")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, run.Status)
	assert.True(t, run.CompletedAt.Valid)

	rows, err := kit.Metrics.GetRunSliceMetrics(ctx, "canned-run")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, slicing.OverallName, rows[0].Slice)

	tbl, err := kit.Tables.BuildRunTable(ctx, app.TableRequest{RunID: "canned-run"})
	require.NoError(t, err)
	assert.Equal(t, []string{"feature", "example count", "auc"}, tbl.Headers)
}
