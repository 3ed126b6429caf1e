package metrics

import (
	"sort"
)

// SliceMetrics carries every metric computed for one slice of the
// evaluation data. The slice name is the rendered key ("Overall",
// "sex:male", ...).
type SliceMetrics struct {
	Slice   string           `json:"slice"`
	Metrics map[string]Value `json:"metrics"`
}

// NewSliceMetrics creates an empty metric set for a slice
func NewSliceMetrics(slice string) SliceMetrics {
	return SliceMetrics{
		Slice:   slice,
		Metrics: make(map[string]Value),
	}
}

// Get returns the named metric and whether it is present
func (s SliceMetrics) Get(name string) (Value, bool) {
	v, ok := s.Metrics[name]
	return v, ok
}

// Set stores a metric value, replacing any previous reading
func (s SliceMetrics) Set(name string, v Value) {
	s.Metrics[name] = v
}

// Names returns the metric names present, sorted
func (s SliceMetrics) Names() []string {
	names := make([]string, 0, len(s.Metrics))
	for name := range s.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CollectNames returns the union of metric names across slices, sorted.
// Useful when callers want a table over everything that was computed.
func CollectNames(slices []SliceMetrics) []string {
	seen := make(map[string]bool)
	for _, s := range slices {
		for name := range s.Metrics {
			seen[name] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IndexBySlice builds a slice-name lookup. Later entries win on duplicates;
// callers that must reject duplicates check beforehand.
func IndexBySlice(slices []SliceMetrics) map[string]SliceMetrics {
	idx := make(map[string]SliceMetrics, len(slices))
	for _, s := range slices {
		idx[s.Slice] = s
	}
	return idx
}
