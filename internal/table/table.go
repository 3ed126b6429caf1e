// Package table computes the 2-D display table for per-slice fairness
// metrics: one or two models side by side, bounded values rendered with
// their intervals, and percentage-difference cells in comparison mode.
package table

import (
	"fmt"

	"github.com/sarvex/model-analysis/domain/core"
	"github.com/sarvex/model-analysis/domain/metrics"
)

// FeatureHeader labels the slice-name column
const FeatureHeader = "feature"

// CountHeader labels the example-count column
const CountHeader = "example count"

// Default eval names when comparison mode is active and none were given
const (
	defaultEvalName        = "base"
	defaultEvalCompareName = "compare"
)

// CellKind tags cells so renderers can style them
type CellKind string

const (
	CellSlice CellKind = "slice"
	CellCount CellKind = "count"
	CellValue CellKind = "value"
	CellDelta CellKind = "delta"
	CellEmpty CellKind = "empty"
)

// Cell is one rendered table cell
type Cell struct {
	Text string   `json:"text"`
	Kind CellKind `json:"kind"`
}

// Table is the computed display table
type Table struct {
	Headers []string `json:"headers"`
	Rows    [][]Cell `json:"rows"`
}

// Input describes one table computation.
// Data drives the row set; DataCompare, when non-nil, switches on model
// comparison mode and is matched to Data rows by slice name. ExampleCounts
// is keyed by slice name; a non-empty map adds the count column.
type Input struct {
	Metrics         []string
	Data            []metrics.SliceMetrics
	DataCompare     []metrics.SliceMetrics
	EvalName        string
	EvalCompareName string
	ExampleCounts   map[string]float64
}

// CompareMode reports whether the input renders two models side by side
func (in Input) CompareMode() bool {
	return in.DataCompare != nil
}

// Build computes the display table.
// INVARIANTS:
// - len(Rows) == len(Data), in Data order
// - every row has exactly len(Headers) cells
// - comparison mode triples the per-metric column count
// The only rejected input is a duplicate slice name in Data.
func Build(in Input) (*Table, error) {
	seen := make(map[string]bool, len(in.Data))
	for _, sm := range in.Data {
		if seen[sm.Slice] {
			return nil, fmt.Errorf("%w: %s", core.ErrDuplicateSlice, sm.Slice)
		}
		seen[sm.Slice] = true
	}

	compare := in.CompareMode()
	evalName, evalCompareName := in.EvalName, in.EvalCompareName
	if compare {
		if evalName == "" {
			evalName = defaultEvalName
		}
		if evalCompareName == "" {
			evalCompareName = defaultEvalCompareName
		}
	}
	hasCounts := len(in.ExampleCounts) > 0

	t := &Table{
		Headers: buildHeaders(in.Metrics, compare, evalName, evalCompareName, hasCounts),
		Rows:    make([][]Cell, 0, len(in.Data)),
	}

	compareIdx := metrics.IndexBySlice(in.DataCompare)

	for _, sm := range in.Data {
		row := make([]Cell, 0, len(t.Headers))
		row = append(row, Cell{Text: sm.Slice, Kind: CellSlice})

		if hasCounts {
			if count, ok := in.ExampleCounts[sm.Slice]; ok {
				row = append(row, Cell{Text: FormatCount(count), Kind: CellCount})
			} else {
				row = append(row, Cell{Kind: CellEmpty})
			}
		}

		for _, metric := range in.Metrics {
			base, baseOK := sm.Get(metric)
			row = append(row, valueCell(base, baseOK))

			if !compare {
				continue
			}
			other, otherOK := compareIdx[sm.Slice].Get(metric)
			row = append(row, valueCell(other, otherOK))
			row = append(row, deltaCell(base, baseOK, other, otherOK))
		}

		t.Rows = append(t.Rows, row)
	}

	return t, nil
}

// buildHeaders assembles the header row. In comparison mode each metric
// expands to "<metric> - <base>", "<metric> - <compare>" and
// "<metric> - <compare> against <base>".
func buildHeaders(metricNames []string, compare bool, evalName, evalCompareName string, hasCounts bool) []string {
	width := 1 + len(metricNames)
	if compare {
		width = 1 + 3*len(metricNames)
	}
	if hasCounts {
		width++
	}

	headers := make([]string, 0, width)
	headers = append(headers, FeatureHeader)
	if hasCounts {
		headers = append(headers, CountHeader)
	}
	for _, metric := range metricNames {
		display := metrics.DisplayName(metric)
		if !compare {
			headers = append(headers, display)
			continue
		}
		headers = append(headers,
			display+" - "+evalName,
			display+" - "+evalCompareName,
			display+" - "+evalCompareName+" against "+evalName,
		)
	}
	return headers
}

func valueCell(v metrics.Value, present bool) Cell {
	if !present {
		return Cell{Kind: CellEmpty}
	}
	return Cell{Text: FormatValue(v), Kind: CellValue}
}

// deltaCell renders the percentage difference compare/base - 1 between the
// two models' point estimates. A missing side yields an empty cell; a zero
// base or NaN on either side yields "NaN".
func deltaCell(base metrics.Value, baseOK bool, other metrics.Value, otherOK bool) Cell {
	if !baseOK || !otherOK {
		return Cell{Kind: CellEmpty}
	}
	return Cell{Text: FormatPercentDelta(PercentDelta(base.Scalar(), other.Scalar())), Kind: CellDelta}
}
