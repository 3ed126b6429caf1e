package migration

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/sarvex/model-analysis/internal/errors"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner handles database schema migrations
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createEvalRunsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create eval_runs table")
	}

	if err := r.createSliceMetricsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create slice_metrics table")
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create indexes")
	}

	return nil
}

func (r *MigrationRunner) createEvalRunsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS eval_runs (
			id UUID PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			status VARCHAR(50) NOT NULL DEFAULT 'pending',
			dataset_hash VARCHAR(64),
			config JSONB,
			row_count INTEGER NOT NULL DEFAULT 0,
			failure TEXT,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			completed_at TIMESTAMP WITH TIME ZONE
		)
	`)
	return err
}

func (r *MigrationRunner) createSliceMetricsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS slice_metrics (
			run_id UUID NOT NULL REFERENCES eval_runs(id) ON DELETE CASCADE,
			model VARCHAR(255) NOT NULL,
			slice VARCHAR(512) NOT NULL,
			position INTEGER NOT NULL DEFAULT 0,
			metrics JSONB NOT NULL,
			example_count DOUBLE PRECISION NOT NULL DEFAULT 0,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			PRIMARY KEY (run_id, model, slice)
		)
	`)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_eval_runs_status ON eval_runs(status)",
		"CREATE INDEX IF NOT EXISTS idx_eval_runs_created_at ON eval_runs(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_slice_metrics_run ON slice_metrics(run_id)",
		"CREATE INDEX IF NOT EXISTS idx_slice_metrics_run_model ON slice_metrics(run_id, model)",
	}

	for _, idxSQL := range indexes {
		if _, err := db.ExecContext(ctx, idxSQL); err != nil {
			// Log but don't fail on index creation errors
			fmt.Printf("Warning: failed to create index: %v\n", err)
		}
	}

	return nil
}
