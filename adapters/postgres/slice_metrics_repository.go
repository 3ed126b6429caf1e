package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/sarvex/model-analysis/models"
	"github.com/sarvex/model-analysis/ports"
)

// SliceMetricsRepositoryImpl implements SliceMetricsRepository for
// PostgreSQL
type SliceMetricsRepositoryImpl struct {
	db *sqlx.DB
}

// NewSliceMetricsRepository creates a new PostgreSQL slice metrics
// repository
func NewSliceMetricsRepository(db *sqlx.DB) ports.SliceMetricsRepository {
	return &SliceMetricsRepositoryImpl{db: db}
}

// SaveSliceMetrics upserts metric rows for a run in one transaction
func (r *SliceMetricsRepositoryImpl) SaveSliceMetrics(ctx context.Context, rows []models.SliceMetricsRow) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin slice metrics tx: %w", err)
	}
	defer tx.Rollback()

	for _, row := range rows {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO slice_metrics (
				run_id, model, slice, position, metrics, example_count, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (run_id, model, slice) DO UPDATE SET
				position = EXCLUDED.position,
				metrics = EXCLUDED.metrics,
				example_count = EXCLUDED.example_count`,
			row.RunID, row.Model, row.Slice, row.Position, row.Metrics,
			row.ExampleCount, row.CreatedAt)
		if err != nil {
			return fmt.Errorf("save slice metrics %s/%s/%s: %w",
				row.RunID, row.Model, row.Slice, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit slice metrics: %w", err)
	}
	return nil
}

// GetRunSliceMetrics returns a run's rows ordered by model then display
// position
func (r *SliceMetricsRepositoryImpl) GetRunSliceMetrics(ctx context.Context, runID string) ([]models.SliceMetricsRow, error) {
	rows := []models.SliceMetricsRow{}
	err := r.db.SelectContext(ctx, &rows, `
		SELECT run_id, model, slice, position, metrics, example_count, created_at
		FROM slice_metrics
		WHERE run_id = $1
		ORDER BY model, position, slice`, runID)
	if err != nil {
		return nil, fmt.Errorf("get slice metrics for run %s: %w", runID, err)
	}
	return rows, nil
}

// DeleteRunSliceMetrics removes all metric rows of a run
func (r *SliceMetricsRepositoryImpl) DeleteRunSliceMetrics(ctx context.Context, runID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM slice_metrics WHERE run_id = $1`, runID); err != nil {
		return fmt.Errorf("delete slice metrics for run %s: %w", runID, err)
	}
	return nil
}

// Ensure SliceMetricsRepositoryImpl implements SliceMetricsRepository
var _ ports.SliceMetricsRepository = (*SliceMetricsRepositoryImpl)(nil)
