package format

import (
	modeltable "github.com/sarvex/model-analysis/internal/table"
)

// RenderTable renders a computed display table in the given mode. The
// feature column is left-aligned, everything else right-aligned so metric
// values and deltas line up.
func RenderTable(t *modeltable.Table, mode Mode) string {
	b := NewTable(mode)
	b.Header(t.Headers...)

	cfgs := make([]ColumnConfig, len(t.Headers))
	for i := range t.Headers {
		align := AlignRight
		if i == 0 {
			align = AlignLeft
		}
		cfgs[i] = ColumnConfig{Number: i + 1, Align: align}
	}
	b.Columns(cfgs...)

	for _, row := range t.Rows {
		vals := make([]any, len(row))
		for i, cell := range row {
			vals[i] = cell.Text
		}
		b.Row(vals...)
	}

	return b.String()
}
