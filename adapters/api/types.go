package api

import (
	"time"

	"github.com/sarvex/model-analysis/domain/eval"
	"github.com/sarvex/model-analysis/models"
)

// CreateRunRequest is the POST /runs payload
type CreateRunRequest struct {
	Name      string      `json:"name"`
	InputPath string      `json:"input_path"`
	Config    eval.Config `json:"config"`
}

// RunSummary is the API shape of a stored run
type RunSummary struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Status      string     `json:"status"`
	DatasetHash string     `json:"dataset_hash,omitempty"`
	RowCount    int        `json:"row_count"`
	Failure     string     `json:"failure,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// toRunSummary flattens the nullable database columns
func toRunSummary(row *models.RunRow) RunSummary {
	summary := RunSummary{
		ID:        row.ID,
		Name:      row.Name,
		Status:    row.Status,
		RowCount:  row.RowCount,
		CreatedAt: row.CreatedAt,
	}
	if row.DatasetHash.Valid {
		summary.DatasetHash = row.DatasetHash.String
	}
	if row.Failure.Valid {
		summary.Failure = row.Failure.String
	}
	if row.CompletedAt.Valid {
		completedAt := row.CompletedAt.Time
		summary.CompletedAt = &completedAt
	}
	return summary
}
