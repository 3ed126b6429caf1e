package ui

import (
	"log"
	"net/http"

	"github.com/sarvex/model-analysis/app"
	"github.com/sarvex/model-analysis/models"
	"github.com/sarvex/model-analysis/ports"
)

// handleCompare renders the cross-run comparison page: two run selectors
// and, once both are chosen, one model's metrics from the base run next
// to the same model's metrics from the compare run
func (a *App) handleCompare(w http.ResponseWriter, r *http.Request) {
	completed := models.StatusCompleted
	rows, err := a.evals.ListRuns(r.Context(), ports.RunFilters{Status: &completed, Limit: 100})
	if err != nil {
		log.Printf("[handleCompare] Failed to list runs: %v", err)
		http.Error(w, "Failed to load runs", http.StatusInternalServerError)
		return
	}

	view := CompareView{
		Runs:         make([]RunItemView, 0, len(rows)),
		BaseRunID:    r.URL.Query().Get("base"),
		CompareRunID: r.URL.Query().Get("against"),
		Model:        r.URL.Query().Get("model"),
	}
	for _, row := range rows {
		view.Runs = append(view.Runs, NewRunItemView(row))
	}

	if view.BaseRunID != "" && view.CompareRunID != "" {
		t, err := a.tables.BuildRunComparisonTable(r.Context(), app.RunCompareRequest{
			BaseRunID:    view.BaseRunID,
			CompareRunID: view.CompareRunID,
			Model:        view.Model,
		})
		if err != nil {
			view.Error = err.Error()
		} else {
			view.Table = NewTableView(t)
		}
	}

	a.renderTemplate(w, "compare.html", view)
}
