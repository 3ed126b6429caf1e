// Package pipeline runs named extraction stages over batches of evaluation
// examples: raw rows in, typed features, per-model scores, labels and slice
// keys out. Stages are pure with respect to their input batch.
package pipeline

import (
	"github.com/sarvex/model-analysis/domain/slicing"
)

// Well-known extract keys
const (
	// InputKey holds the raw string row as read from the source file
	InputKey = "input"
	// FeaturesKey holds the typed FeatureRow
	FeaturesKey = "features"
	// PredictionsKey holds a float64 (single model) or a map[string]float64
	// keyed by model name (multi-model)
	PredictionsKey = "predictions"
	// LabelsKey holds the float64 label
	LabelsKey = "labels"
	// SliceKeysKey holds the []slicing.SliceKey the example belongs to
	SliceKeysKey = "slice_keys"
)

// Extracts carries one example through the pipeline
type Extracts map[string]any

// Clone copies the extract map so stages never mutate their input
func (e Extracts) Clone() Extracts {
	out := make(Extracts, len(e)+1)
	for k, v := range e {
		out[k] = v
	}
	return out
}

// FeatureRow maps column names to typed feature values
// (float64, string or bool)
type FeatureRow map[string]any

// Input returns the raw string row, or nil when absent
func (e Extracts) Input() map[string]string {
	row, _ := e[InputKey].(map[string]string)
	return row
}

// Features returns the typed feature row, or nil when absent
func (e Extracts) Features() FeatureRow {
	row, _ := e[FeaturesKey].(FeatureRow)
	return row
}

// Label returns the example label
func (e Extracts) Label() (float64, bool) {
	v, ok := e[LabelsKey].(float64)
	return v, ok
}

// Prediction returns the score for the named model. Single-model extracts
// store a bare float64; the name is ignored for those.
func (e Extracts) Prediction(model string) (float64, bool) {
	switch v := e[PredictionsKey].(type) {
	case float64:
		return v, true
	case map[string]float64:
		score, ok := v[model]
		return score, ok
	}
	return 0, false
}

// SliceKeys returns the example's slice membership
func (e Extracts) SliceKeys() []slicing.SliceKey {
	keys, _ := e[SliceKeysKey].([]slicing.SliceKey)
	return keys
}

// FromRawRows wraps raw reader rows into input extracts
func FromRawRows(rows []map[string]string) []Extracts {
	batch := make([]Extracts, len(rows))
	for i, row := range rows {
		batch[i] = Extracts{InputKey: row}
	}
	return batch
}
