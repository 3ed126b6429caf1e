package profiling

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sarvex/model-analysis/domain/eval"
	"github.com/sarvex/model-analysis/domain/slicing"
)

func sampleRows() []map[string]string {
	rows := []map[string]string{
		{"id": "1", "sex": "male", "label": "1", "score": "0.92", "flag": "true"},
		{"id": "2", "sex": "female", "label": "0", "score": "0.18", "flag": "false"},
		{"id": "3", "sex": "female", "label": "1", "score": "0.77", "flag": "true"},
		{"id": "4", "sex": "male", "label": "0", "score": "", "flag": "true"},
		{"id": "5", "sex": "other", "label": "1", "score": "0.64", "flag": "false"},
	}
	return rows
}

func TestProfileRowsClassifiesKinds(t *testing.T) {
	profiles := NewProfiler().ProfileRows([]string{"id", "sex", "label", "score", "flag"}, sampleRows())
	require.Len(t, profiles, 5)

	byName := make(map[string]ColumnProfile)
	for _, p := range profiles {
		byName[p.Name] = p
	}

	assert.Equal(t, ColumnNumeric, byName["id"].Kind)
	assert.Equal(t, ColumnText, byName["sex"].Kind)
	assert.Equal(t, ColumnNumeric, byName["label"].Kind)
	assert.Equal(t, ColumnNumeric, byName["score"].Kind)
	assert.Equal(t, ColumnBool, byName["flag"].Kind)

	score := byName["score"]
	assert.Equal(t, 1, score.Missing)
	assert.InDelta(t, 0.2, score.MissingRate, 1e-9)
	require.NotNil(t, score.Summary)
	assert.InDelta(t, 0.18, score.Summary.Min, 1e-9)
	assert.InDelta(t, 0.92, score.Summary.Max, 1e-9)

	sex := byName["sex"]
	assert.Equal(t, 3, sex.Distinct)
	require.NotEmpty(t, sex.TopValues)
	assert.Equal(t, "female", sex.TopValues[0].Value)
	assert.Equal(t, 2, sex.TopValues[0].Count)
}

func TestProfileRowsFlagsEmptyColumn(t *testing.T) {
	rows := []map[string]string{{"blank": ""}, {"blank": "  "}}
	profiles := NewProfiler().ProfileRows([]string{"blank"}, rows)

	require.Len(t, profiles, 1)
	assert.Equal(t, ColumnEmpty, profiles[0].Kind)
	assert.Equal(t, 2, profiles[0].Missing)
}

func TestSummarizeComputesQuartilesAndOutliers(t *testing.T) {
	data := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 100}

	summary, err := Summarize(data)
	require.NoError(t, err)

	assert.InDelta(t, 14.5, summary.Mean, 1e-9)
	assert.Equal(t, 1.0, summary.Min)
	assert.Equal(t, 100.0, summary.Max)
	assert.Equal(t, 1, summary.Outliers)
	assert.Greater(t, summary.Skewness, 1.0)
	assert.False(t, summary.IsNormal)
}

func TestSummarizeRejectsEmptySample(t *testing.T) {
	_, err := Summarize(nil)
	assert.Error(t, err)
}

func TestCheckConfigWarnsOnMismatches(t *testing.T) {
	rows := sampleRows()
	profiles := NewProfiler().ProfileRows([]string{"id", "sex", "label", "score", "flag"}, rows)

	cfg := eval.Config{
		LabelColumn: "label",
		ModelSpecs: []eval.ModelSpec{
			{Name: "model", ScoreColumn: "score"},
			{Name: "ghost", ScoreColumn: "score_ghost"},
		},
		SlicingSpecs: []slicing.Spec{
			{FeatureColumns: []string{"sex"}},
			{FeatureColumns: []string{"id"}},
			{FeatureColumns: []string{"missing_feature"}},
		},
	}
	cfg.Normalize()

	warnings := CheckConfig(profiles, cfg)

	assert.Contains(t, warnings, `model "ghost" score column "score_ghost" not present in dataset`)
	assert.Contains(t, warnings, `slicing feature "id" is numeric, every distinct value becomes a slice`)
	assert.Contains(t, warnings, `slicing feature "missing_feature" not present in dataset`)

	for _, warning := range warnings {
		assert.NotContains(t, warning, `"sex"`, "clean feature should not warn")
	}
}

func TestCheckConfigAcceptsCleanDataset(t *testing.T) {
	rows := make([]map[string]string, 0, 40)
	for i := 0; i < 40; i++ {
		label := "0"
		score := fmt.Sprintf("0.%02d", i)
		if i%2 == 0 {
			label = "1"
		}
		rows = append(rows, map[string]string{"label": label, "score": score, "region": "north"})
	}

	profiles := NewProfiler().ProfileRows([]string{"label", "score", "region"}, rows)
	cfg := eval.Config{
		ModelSpecs:   []eval.ModelSpec{{Name: "model"}},
		SlicingSpecs: []slicing.Spec{{FeatureColumns: []string{"region"}}},
	}
	cfg.Normalize()

	assert.Empty(t, CheckConfig(profiles, cfg))
}

func TestCheckConfigWarnsOnHighCardinalityFeature(t *testing.T) {
	rows := make([]map[string]string, 0, 60)
	for i := 0; i < 60; i++ {
		rows = append(rows, map[string]string{"city": fmt.Sprintf("city_%d", i)})
	}

	profiles := NewProfiler().ProfileRows([]string{"city"}, rows)
	cfg := eval.Config{
		ModelSpecs:   []eval.ModelSpec{{Name: "model"}},
		SlicingSpecs: []slicing.Spec{{FeatureColumns: []string{"city"}}},
	}
	cfg.Normalize()

	warnings := CheckConfig(profiles, cfg)
	require.NotEmpty(t, warnings)

	found := false
	for _, warning := range warnings {
		if warning == `slicing feature "city" has 60 distinct values, tables beyond 50 slices are unreadable` {
			found = true
		}
	}
	assert.True(t, found, "expected cardinality warning, got %v", warnings)
}
