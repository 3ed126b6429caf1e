package ports

import (
	"context"

	"github.com/sarvex/model-analysis/models"
)

// RunRepository defines the interface for evaluation run persistence
type RunRepository interface {
	// SaveRun inserts or updates a run row
	SaveRun(ctx context.Context, run *models.RunRow) error

	// GetRun retrieves a run by ID
	GetRun(ctx context.Context, runID string) (*models.RunRow, error)

	// ListRuns returns runs matching the filters, newest first
	ListRuns(ctx context.Context, filters RunFilters) ([]models.RunRow, error)

	// DeleteRun removes a run and its slice metrics
	DeleteRun(ctx context.Context, runID string) error
}

// RunFilters narrows ListRuns results
type RunFilters struct {
	Status *string
	Limit  int
	Offset int
}
