package ui

import (
	"log"
	"net/http"

	"github.com/sarvex/model-analysis/internal/format"
	"github.com/sarvex/model-analysis/models"
	"github.com/sarvex/model-analysis/ports"
)

// handleIndex renders the index page: recent runs with status counts
func (a *App) handleIndex(w http.ResponseWriter, r *http.Request) {
	rows, err := a.evals.ListRuns(r.Context(), ports.RunFilters{Limit: 50})
	if err != nil {
		log.Printf("[handleIndex] Failed to list runs: %v", err)
		http.Error(w, "Failed to load runs", http.StatusInternalServerError)
		return
	}

	view := IndexView{Runs: make([]RunItemView, 0, len(rows))}
	totalExamples := 0
	for _, row := range rows {
		view.Runs = append(view.Runs, NewRunItemView(row))
		view.TotalRuns++
		switch row.Status {
		case models.StatusCompleted:
			view.CompletedRuns++
			totalExamples += row.RowCount
		case models.StatusFailed:
			view.FailedRuns++
		}
	}
	view.TotalExamples = format.FmtCount(totalExamples)

	a.renderTemplate(w, "index.html", view)
}
