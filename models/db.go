package models

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/sarvex/model-analysis/domain/metrics"
)

// MetricsJSON maps metric names to values for a PostgreSQL JSONB column
type MetricsJSON map[string]metrics.Value

// Value implements driver.Valuer
func (m MetricsJSON) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner
func (m *MetricsJSON) Scan(value interface{}) error {
	if value == nil {
		*m = make(MetricsJSON)
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		*m = make(MetricsJSON)
		return nil
	}

	if len(bytes) == 0 {
		*m = make(MetricsJSON)
		return nil
	}

	result := make(MetricsJSON)
	if err := json.Unmarshal(bytes, &result); err != nil {
		return err
	}
	*m = result
	return nil
}

// Run lifecycle statuses
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// RunRow is the eval_runs table shape
type RunRow struct {
	ID          string         `json:"id" db:"id"`
	Name        string         `json:"name" db:"name"`
	Status      string         `json:"status" db:"status"`
	DatasetHash sql.NullString `json:"dataset_hash,omitempty" db:"dataset_hash"`
	ConfigJSON  []byte         `json:"config,omitempty" db:"config"`
	RowCount    int            `json:"row_count" db:"row_count"`
	Failure     sql.NullString `json:"failure,omitempty" db:"failure"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
	CompletedAt sql.NullTime   `json:"completed_at,omitempty" db:"completed_at"`
}

// SliceMetricsRow is the slice_metrics table shape: one row per
// (run, model, slice)
type SliceMetricsRow struct {
	RunID        string      `json:"run_id" db:"run_id"`
	Model        string      `json:"model" db:"model"`
	Slice        string      `json:"slice" db:"slice"`
	Position     int         `json:"position" db:"position"`
	Metrics      MetricsJSON `json:"metrics" db:"metrics"`
	ExampleCount float64     `json:"example_count" db:"example_count"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
}

// ToSliceMetrics converts a row back to the domain shape
func (r SliceMetricsRow) ToSliceMetrics() metrics.SliceMetrics {
	sm := metrics.NewSliceMetrics(r.Slice)
	for name, value := range r.Metrics {
		sm.Set(name, value)
	}
	return sm
}
