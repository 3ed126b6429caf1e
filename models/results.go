// Package models holds the serialized shapes shared by the API, the
// database adapter and the results files on disk.
package models

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/sarvex/model-analysis/domain/metrics"
)

// ResultsFileVersion tags the on-disk results format
const ResultsFileVersion = "1"

// RunManifest describes one completed evaluation run
type RunManifest struct {
	RunID       string    `json:"run_id"`
	Name        string    `json:"name"`
	DatasetHash string    `json:"dataset_hash,omitempty"`
	ModelNames  []string  `json:"model_names"`
	MetricNames []string  `json:"metric_names"`
	RowCount    int       `json:"row_count"`
	CreatedAt   time.Time `json:"created_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// ResultsFile is the portable JSON artifact written after every run. It
// carries everything needed to rebuild display tables without a database.
type ResultsFile struct {
	Version       string                            `json:"version"`
	Manifest      RunManifest                       `json:"manifest"`
	PerModel      map[string][]metrics.SliceMetrics `json:"per_model"`
	ExampleCounts map[string]float64                `json:"example_counts,omitempty"`
	Warnings      []string                          `json:"warnings,omitempty"`
}

// SliceMetricsFor returns the per-slice metrics of one model
func (f *ResultsFile) SliceMetricsFor(model string) ([]metrics.SliceMetrics, bool) {
	sliceMetrics, ok := f.PerModel[model]
	return sliceMetrics, ok
}

// Validate checks internal consistency: a known version, every manifest
// model present, and per-model slice lists of equal length
func (f *ResultsFile) Validate() error {
	if f.Version == "" {
		return fmt.Errorf("results file missing version")
	}
	if f.Version != ResultsFileVersion {
		return fmt.Errorf("unsupported results file version %q", f.Version)
	}
	if len(f.PerModel) == 0 {
		return fmt.Errorf("results file carries no model metrics")
	}

	sliceCount := -1
	for model, sliceMetrics := range f.PerModel {
		if sliceCount < 0 {
			sliceCount = len(sliceMetrics)
		} else if len(sliceMetrics) != sliceCount {
			return fmt.Errorf("model %q has %d slices, others have %d",
				model, len(sliceMetrics), sliceCount)
		}
	}

	for _, model := range f.Manifest.ModelNames {
		if _, ok := f.PerModel[model]; !ok {
			return fmt.Errorf("manifest names model %q with no metrics", model)
		}
	}
	return nil
}

// RunRow builds the completed eval_runs row for this results file
func (f *ResultsFile) RunRow() *RunRow {
	return &RunRow{
		ID:          f.Manifest.RunID,
		Name:        f.Manifest.Name,
		Status:      StatusCompleted,
		DatasetHash: sql.NullString{String: f.Manifest.DatasetHash, Valid: f.Manifest.DatasetHash != ""},
		RowCount:    f.Manifest.RowCount,
		CreatedAt:   f.Manifest.CreatedAt,
		CompletedAt: sql.NullTime{Time: f.Manifest.CompletedAt, Valid: !f.Manifest.CompletedAt.IsZero()},
	}
}

// SliceRows flattens the per-model metrics into slice_metrics table rows
func (f *ResultsFile) SliceRows() []SliceMetricsRow {
	var rows []SliceMetricsRow
	for model, sliceMetrics := range f.PerModel {
		for position, sm := range sliceMetrics {
			rows = append(rows, SliceMetricsRow{
				RunID:        f.Manifest.RunID,
				Model:        model,
				Slice:        sm.Slice,
				Position:     position,
				Metrics:      MetricsJSON(sm.Metrics),
				ExampleCount: f.ExampleCounts[sm.Slice],
				CreatedAt:    f.Manifest.CompletedAt,
			})
		}
	}
	return rows
}
