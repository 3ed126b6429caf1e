package eval

import (
	"fmt"

	"github.com/sarvex/model-analysis/domain/core"
)

// RunStatus tracks an evaluation run's lifecycle
type RunStatus string

const (
	StatusPending   RunStatus = "pending"
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
)

// Run is one evaluation of a dataset under a config
type Run struct {
	ID          core.RunID       `json:"id"`
	Name        string           `json:"name"`
	Config      Config           `json:"config"`
	DatasetHash core.DatasetHash `json:"dataset_hash,omitempty"`
	Status      RunStatus        `json:"status"`
	Failure     string           `json:"failure,omitempty"`
	CreatedAt   core.Timestamp   `json:"created_at"`
	CompletedAt core.Timestamp   `json:"completed_at,omitempty"`
}

// NewRun creates a pending run
func NewRun(name string, cfg Config) *Run {
	return &Run{
		ID:        core.NewRunID(),
		Name:      name,
		Config:    cfg,
		Status:    StatusPending,
		CreatedAt: core.Now(),
	}
}

// Start marks the run as executing
func (r *Run) Start() {
	r.Status = StatusRunning
}

// Complete marks the run finished and stamps the completion time
func (r *Run) Complete() {
	r.Status = StatusCompleted
	r.CompletedAt = core.Now()
}

// Fail records a terminal failure
func (r *Run) Fail(reason string) {
	r.Status = StatusFailed
	r.Failure = reason
	r.CompletedAt = core.Now()
}

// IsTerminal reports whether the run reached a final state
func (r *Run) IsTerminal() bool {
	return r.Status == StatusCompleted || r.Status == StatusFailed
}

// ValidateStatus rejects unknown status strings from storage
func ValidateStatus(s string) (RunStatus, error) {
	switch RunStatus(s) {
	case StatusPending, StatusRunning, StatusCompleted, StatusFailed:
		return RunStatus(s), nil
	}
	return "", fmt.Errorf("unknown run status %q", s)
}
