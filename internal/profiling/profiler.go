// Package profiling summarizes scored datasets column by column before
// evaluation: inferred kinds, missing rates, cardinality and numeric
// distribution markers.
package profiling

import (
	"sort"
	"strconv"
	"strings"
)

// ColumnKind classifies a column the way the extraction pipeline will
// type it
type ColumnKind string

const (
	ColumnNumeric ColumnKind = "numeric"
	ColumnBool    ColumnKind = "bool"
	ColumnText    ColumnKind = "text"
	ColumnEmpty   ColumnKind = "empty"
)

// ValueCount is one categorical value and its frequency
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// ColumnProfile describes one dataset column
type ColumnProfile struct {
	Name        string          `json:"name"`
	Kind        ColumnKind      `json:"kind"`
	Rows        int             `json:"rows"`
	Missing     int             `json:"missing"`
	MissingRate float64         `json:"missing_rate"`
	Distinct    int             `json:"distinct"`
	TopValues   []ValueCount    `json:"top_values,omitempty"`
	Summary     *NumericSummary `json:"summary,omitempty"`
}

// Profiler computes column profiles
type Profiler struct {
	topValues int
}

// NewProfiler creates a profiler keeping the five most frequent values
// per categorical column
func NewProfiler() *Profiler {
	return &Profiler{topValues: 5}
}

// ProfileRows profiles every named column over the given rows. Profiles
// come back in column order.
func (p *Profiler) ProfileRows(columns []string, rows []map[string]string) []ColumnProfile {
	profiles := make([]ColumnProfile, 0, len(columns))
	for _, column := range columns {
		profiles = append(profiles, p.profileColumn(column, rows))
	}
	return profiles
}

func (p *Profiler) profileColumn(name string, rows []map[string]string) ColumnProfile {
	profile := ColumnProfile{
		Name: name,
		Kind: ColumnNumeric,
		Rows: len(rows),
	}

	counts := make(map[string]int)
	var numeric []float64

	for _, row := range rows {
		value := strings.TrimSpace(row[name])
		if value == "" {
			profile.Missing++
			continue
		}
		counts[value]++

		switch profile.Kind {
		case ColumnNumeric:
			if v, err := strconv.ParseFloat(value, 64); err == nil {
				numeric = append(numeric, v)
				continue
			}
			if isBoolLiteral(value) {
				profile.Kind = ColumnBool
			} else {
				profile.Kind = ColumnText
			}
		case ColumnBool:
			if !isBoolLiteral(value) {
				profile.Kind = ColumnText
			}
		}
	}

	profile.Distinct = len(counts)
	if profile.Rows > 0 {
		profile.MissingRate = float64(profile.Missing) / float64(profile.Rows)
	}
	if len(counts) == 0 {
		profile.Kind = ColumnEmpty
		return profile
	}

	if profile.Kind == ColumnNumeric {
		if summary, err := Summarize(numeric); err == nil {
			profile.Summary = &summary
		}
	} else {
		profile.TopValues = topValues(counts, p.topValues)
	}
	return profile
}

func isBoolLiteral(s string) bool {
	switch strings.ToLower(s) {
	case "true", "false":
		return true
	}
	return false
}

// topValues returns the n most frequent values, ties broken by value
func topValues(counts map[string]int, n int) []ValueCount {
	values := make([]ValueCount, 0, len(counts))
	for value, count := range counts {
		values = append(values, ValueCount{Value: value, Count: count})
	}
	sort.Slice(values, func(i, j int) bool {
		if values[i].Count != values[j].Count {
			return values[i].Count > values[j].Count
		}
		return values[i].Value < values[j].Value
	})
	if len(values) > n {
		values = values[:n]
	}
	return values
}
