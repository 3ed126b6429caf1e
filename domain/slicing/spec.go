package slicing

import (
	"fmt"
	"sort"
)

// Spec names the feature columns an evaluation slices on. A spec with one
// column yields single-feature slices per distinct value; multiple columns
// yield crossed slices.
type Spec struct {
	FeatureColumns []string `json:"feature_columns" yaml:"feature_columns"`
}

// NewSpec creates a slicing spec after validating the column list
func NewSpec(columns ...string) (Spec, error) {
	if len(columns) == 0 {
		return Spec{}, fmt.Errorf("slicing spec requires at least one feature column")
	}
	seen := make(map[string]bool, len(columns))
	for _, col := range columns {
		if col == "" {
			return Spec{}, fmt.Errorf("slicing spec column cannot be empty")
		}
		if seen[col] {
			return Spec{}, fmt.Errorf("duplicate slicing column %q", col)
		}
		seen[col] = true
	}
	ordered := make([]string, len(columns))
	copy(ordered, columns)
	sort.Strings(ordered)
	return Spec{FeatureColumns: ordered}, nil
}

// KeyFor builds the slice key a feature row belongs to under this spec.
// The second return is false when any spec column is absent from the row.
func (s Spec) KeyFor(features map[string]string) (SliceKey, bool) {
	pairs := make([]Pair, 0, len(s.FeatureColumns))
	for _, col := range s.FeatureColumns {
		value, ok := features[col]
		if !ok {
			return SliceKey{}, false
		}
		pairs = append(pairs, Pair{Feature: col, Value: value})
	}
	return Cross(pairs...), true
}

// KeysFor computes the slice keys a row belongs to across specs. Overall is
// always first. Rows missing a spec's column simply skip that spec.
func KeysFor(specs []Spec, features map[string]string) []SliceKey {
	keys := []SliceKey{Overall()}
	for _, spec := range specs {
		if key, ok := spec.KeyFor(features); ok {
			keys = append(keys, key)
		}
	}
	return keys
}
