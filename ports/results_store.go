package ports

import (
	"context"

	"github.com/sarvex/model-analysis/models"
)

// ResultsStore persists the portable results files written after every
// run. Rendering can work entirely off these files without a database.
type ResultsStore interface {
	// WriteResults writes a results file and returns its path
	WriteResults(ctx context.Context, file *models.ResultsFile) (string, error)

	// LoadResults loads the results file of a run by run ID
	LoadResults(ctx context.Context, runID string) (*models.ResultsFile, error)

	// LoadResultsPath loads a results file from an explicit path
	LoadResultsPath(ctx context.Context, path string) (*models.ResultsFile, error)

	// ListManifests returns the manifests of all stored results,
	// newest first
	ListManifests(ctx context.Context) ([]models.RunManifest, error)

	// DeleteResults removes a run's results file. Deleting a run that
	// never wrote one is not an error.
	DeleteResults(ctx context.Context, runID string) error
}
