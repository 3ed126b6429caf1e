package slicing

import (
	"fmt"
	"sort"
	"strings"
)

// OverallName is the rendered name of the unsliced evaluation
const OverallName = "Overall"

// Pair is one feature/value constraint of a slice key
type Pair struct {
	Feature string `json:"feature"`
	Value   string `json:"value"`
}

// SliceKey identifies a subset of the evaluation data. The empty key is the
// overall slice.
// INVARIANTS:
// - Pairs are ordered by feature name
// - Feature names and values contain no ":" or ","
type SliceKey struct {
	Pairs []Pair `json:"pairs,omitempty"`
}

// Overall returns the key of the unsliced evaluation
func Overall() SliceKey {
	return SliceKey{}
}

// SingleKey creates a one-feature slice key
func SingleKey(feature, value string) SliceKey {
	return SliceKey{Pairs: []Pair{{Feature: feature, Value: value}}}
}

// Cross creates a multi-feature slice key, ordering pairs by feature name
func Cross(pairs ...Pair) SliceKey {
	ordered := make([]Pair, len(pairs))
	copy(ordered, pairs)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Feature < ordered[j].Feature })
	return SliceKey{Pairs: ordered}
}

// IsOverall reports whether the key is the empty overall key
func (k SliceKey) IsOverall() bool {
	return len(k.Pairs) == 0
}

// String renders "feature:value" pairs joined by ", ", or "Overall"
func (k SliceKey) String() string {
	if k.IsOverall() {
		return OverallName
	}
	parts := make([]string, len(k.Pairs))
	for i, p := range k.Pairs {
		parts[i] = p.Feature + ":" + p.Value
	}
	return strings.Join(parts, ", ")
}

// ParseKey inverts String
func ParseKey(s string) (SliceKey, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return SliceKey{}, fmt.Errorf("slice key cannot be empty")
	}
	if s == OverallName {
		return Overall(), nil
	}

	parts := strings.Split(s, ",")
	pairs := make([]Pair, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		colon := strings.Index(part, ":")
		if colon <= 0 || colon == len(part)-1 {
			return SliceKey{}, fmt.Errorf("malformed slice key part %q (want feature:value)", part)
		}
		pairs = append(pairs, Pair{Feature: part[:colon], Value: part[colon+1:]})
	}
	return Cross(pairs...), nil
}

// Equal reports key equality
func (k SliceKey) Equal(other SliceKey) bool {
	if len(k.Pairs) != len(other.Pairs) {
		return false
	}
	for i := range k.Pairs {
		if k.Pairs[i] != other.Pairs[i] {
			return false
		}
	}
	return true
}

// Sort orders keys with Overall first, then lexicographically by String
func Sort(keys []SliceKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].IsOverall() != keys[j].IsOverall() {
			return keys[i].IsOverall()
		}
		return keys[i].String() < keys[j].String()
	})
}
