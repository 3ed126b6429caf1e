package ports

import (
	"context"

	"github.com/sarvex/model-analysis/models"
)

// SliceMetricsRepository defines the interface for per-slice metric
// persistence
type SliceMetricsRepository interface {
	// SaveSliceMetrics upserts metric rows for a run in one batch
	SaveSliceMetrics(ctx context.Context, rows []models.SliceMetricsRow) error

	// GetRunSliceMetrics returns a run's rows ordered by model then
	// display position
	GetRunSliceMetrics(ctx context.Context, runID string) ([]models.SliceMetricsRow, error)

	// DeleteRunSliceMetrics removes all metric rows of a run
	DeleteRunSliceMetrics(ctx context.Context, runID string) error
}
