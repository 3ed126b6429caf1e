// Package postgres implements the persistence ports on PostgreSQL via
// sqlx. Metric dictionaries are stored as JSONB.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/sarvex/model-analysis/domain/core"
	"github.com/sarvex/model-analysis/models"
	"github.com/sarvex/model-analysis/ports"
)

// RunRepositoryImpl implements RunRepository for PostgreSQL
type RunRepositoryImpl struct {
	db *sqlx.DB
}

// NewRunRepository creates a new PostgreSQL run repository
func NewRunRepository(db *sqlx.DB) ports.RunRepository {
	return &RunRepositoryImpl{db: db}
}

// SaveRun inserts or updates a run row
func (r *RunRepositoryImpl) SaveRun(ctx context.Context, run *models.RunRow) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO eval_runs (
			id, name, status, dataset_hash, config, row_count, failure,
			created_at, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			status = EXCLUDED.status,
			dataset_hash = EXCLUDED.dataset_hash,
			config = EXCLUDED.config,
			row_count = EXCLUDED.row_count,
			failure = EXCLUDED.failure,
			completed_at = EXCLUDED.completed_at`,
		run.ID, run.Name, run.Status, run.DatasetHash, run.ConfigJSON,
		run.RowCount, run.Failure, run.CreatedAt, run.CompletedAt)
	if err != nil {
		return fmt.Errorf("save run %s: %w", run.ID, err)
	}
	return nil
}

// GetRun retrieves a run by ID
func (r *RunRepositoryImpl) GetRun(ctx context.Context, runID string) (*models.RunRow, error) {
	var run models.RunRow
	err := r.db.GetContext(ctx, &run, `
		SELECT id, name, status, dataset_hash, config, row_count, failure,
		       created_at, completed_at
		FROM eval_runs
		WHERE id = $1`, runID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", core.ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}
	return &run, nil
}

// ListRuns returns runs matching the filters, newest first
func (r *RunRepositoryImpl) ListRuns(ctx context.Context, filters ports.RunFilters) ([]models.RunRow, error) {
	query := `
		SELECT id, name, status, dataset_hash, config, row_count, failure,
		       created_at, completed_at
		FROM eval_runs`

	args := []interface{}{}
	if filters.Status != nil {
		args = append(args, *filters.Status)
		query += fmt.Sprintf(" WHERE status = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"
	if filters.Limit > 0 {
		args = append(args, filters.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filters.Offset > 0 {
		args = append(args, filters.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	runs := []models.RunRow{}
	if err := r.db.SelectContext(ctx, &runs, query, args...); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// DeleteRun removes a run; slice metrics cascade
func (r *RunRepositoryImpl) DeleteRun(ctx context.Context, runID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM eval_runs WHERE id = $1`, runID)
	if err != nil {
		return fmt.Errorf("delete run %s: %w", runID, err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("%w: %s", core.ErrRunNotFound, runID)
	}
	return nil
}

// Ensure RunRepositoryImpl implements RunRepository
var _ ports.RunRepository = (*RunRepositoryImpl)(nil)
