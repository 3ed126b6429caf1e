package ui

import (
	"html/template"
	"strings"
	"time"

	"github.com/sarvex/model-analysis/internal/format"
	"github.com/sarvex/model-analysis/internal/table"
	"github.com/sarvex/model-analysis/models"
)

// CellView is one table cell with its styling class
type CellView struct {
	Text  string
	Class string
}

// TableView is a display table ready for the table fragment
type TableView struct {
	Headers []string
	Rows    [][]CellView
}

// NewTableView converts a computed display table into template cells.
// Delta cells pick up a direction class so gains and regressions color
// differently; NaN cells are dimmed.
func NewTableView(t *table.Table) *TableView {
	if t == nil {
		return nil
	}
	view := &TableView{
		Headers: t.Headers,
		Rows:    make([][]CellView, len(t.Rows)),
	}
	for i, row := range t.Rows {
		cells := make([]CellView, len(row))
		for j, cell := range row {
			cells[j] = CellView{Text: cell.Text, Class: cellClass(cell)}
		}
		view.Rows[i] = cells
	}
	return view
}

func cellClass(cell table.Cell) string {
	classes := []string{string(cell.Kind)}
	switch cell.Kind {
	case table.CellDelta:
		switch {
		case cell.Text == table.NaNText:
			classes = append(classes, "nan")
		case strings.HasPrefix(cell.Text, "+"):
			classes = append(classes, "delta-up")
		case strings.HasPrefix(cell.Text, "-"):
			classes = append(classes, "delta-down")
		}
	case table.CellValue:
		if strings.HasPrefix(cell.Text, table.NaNText) {
			classes = append(classes, "nan")
		}
	}
	return strings.Join(classes, " ")
}

// RunItemView is one run in a listing
type RunItemView struct {
	ID          string
	ShortID     string
	Name        string
	Status      string
	StatusClass string
	RowCount    int
	CreatedAt   string
	CompletedAt string
	Runtime     string
	Failure     string
}

// NewRunItemView builds the listing view of one run row
func NewRunItemView(row models.RunRow) RunItemView {
	view := RunItemView{
		ID:          row.ID,
		ShortID:     shortID(row.ID),
		Name:        row.Name,
		Status:      row.Status,
		StatusClass: "status-" + row.Status,
		RowCount:    row.RowCount,
		CreatedAt:   fmtTime(row.CreatedAt),
	}
	if row.CompletedAt.Valid {
		view.CompletedAt = fmtTime(row.CompletedAt.Time)
		view.Runtime = format.FmtDuration(row.CompletedAt.Time.Sub(row.CreatedAt))
	}
	if row.Failure.Valid {
		view.Failure = row.Failure.String
	}
	return view
}

// IndexView backs the index page
type IndexView struct {
	Runs          []RunItemView
	TotalRuns     int
	CompletedRuns int
	FailedRuns    int
	TotalExamples string
}

// RunDetailView backs the run detail page
type RunDetailView struct {
	Run           RunItemView
	ModelNames    []string
	SelectedModel string
	CompareModel  string
	DatasetHash   string
	MetricNames   []string
	Table         *TableView
	Comparison    *TableView
	FindingsHTML  template.HTML
	NotesHTML     template.HTML
	Warnings      []string
	TableError    string
}

// CompareView backs the cross-run comparison page
type CompareView struct {
	Runs         []RunItemView
	BaseRunID    string
	CompareRunID string
	Model        string
	Table        *TableView
	Error        string
}

// UploadView backs the upload form page
type UploadView struct {
	Error   string
	Example string
}

func shortID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04")
}
