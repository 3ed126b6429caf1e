package ui

import (
	"encoding/json"
	"html/template"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sarvex/model-analysis/app"
	"github.com/sarvex/model-analysis/domain/core"
	"github.com/sarvex/model-analysis/domain/eval"
	"github.com/sarvex/model-analysis/internal/narrative"
	"github.com/sarvex/model-analysis/models"
)

// handleRunDetail renders one run: its fairness table, the model
// comparison when the run evaluated two or more models, findings and
// the run's notes
func (a *App) handleRunDetail(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	row, err := a.evals.GetRun(r.Context(), runID)
	if err != nil {
		a.renderError(w, err)
		return
	}

	view := RunDetailView{Run: NewRunItemView(*row)}
	if row.DatasetHash.Valid {
		view.DatasetHash = shortID(row.DatasetHash.String)
	}
	view.NotesHTML = runNotesHTML(row)

	if row.Status != models.StatusCompleted {
		a.renderTemplate(w, "run.html", view)
		return
	}

	file, err := a.tables.LoadResults(r.Context(), runID)
	if err != nil {
		log.Printf("[handleRunDetail] Results unavailable for run %s: %v", runID, err)
		view.TableError = "Results are not available for this run."
		a.renderTemplate(w, "run.html", view)
		return
	}

	view.ModelNames = file.Manifest.ModelNames
	view.MetricNames = file.Manifest.MetricNames
	view.Warnings = file.Warnings
	view.SelectedModel = pickModel(file.Manifest.ModelNames, r.URL.Query().Get("model"))

	t, err := a.tables.BuildRunTable(r.Context(), app.TableRequest{RunID: runID, Model: view.SelectedModel})
	if err != nil {
		view.TableError = err.Error()
	} else {
		view.Table = NewTableView(t)
	}

	if len(file.Manifest.ModelNames) >= 2 {
		view.CompareModel = pickCompareModel(file.Manifest.ModelNames, view.SelectedModel, r.URL.Query().Get("compare"))
		comparison, err := a.tables.BuildComparisonTable(r.Context(), app.CompareRequest{
			RunID:        runID,
			BaseModel:    view.SelectedModel,
			CompareModel: view.CompareModel,
		})
		if err != nil {
			log.Printf("[handleRunDetail] Comparison failed for run %s: %v", runID, err)
		} else {
			view.Comparison = NewTableView(comparison)
		}
	}

	report, err := narrative.NewGenerator().Analyze(file, view.SelectedModel)
	if err != nil {
		log.Printf("[handleRunDetail] Findings failed for run %s: %v", runID, err)
	} else {
		view.FindingsHTML = findingsHTML(report)
	}

	a.renderTemplate(w, "run.html", view)
}

// handleRunDelete removes a run and returns to the index
func (a *App) handleRunDelete(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	if err := a.evals.DeleteRun(r.Context(), runID); err != nil {
		a.renderError(w, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleTableFragment returns just the table HTML for HTMX swaps. With a
// compare query parameter it returns the two-model comparison table.
func (a *App) handleTableFragment(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	model := r.URL.Query().Get("model")
	compare := r.URL.Query().Get("compare")

	var err error
	var view *TableView
	if compare != "" {
		t, buildErr := a.tables.BuildComparisonTable(r.Context(), app.CompareRequest{
			RunID:        runID,
			BaseModel:    model,
			CompareModel: compare,
		})
		err = buildErr
		view = NewTableView(t)
	} else {
		t, buildErr := a.tables.BuildRunTable(r.Context(), app.TableRequest{RunID: runID, Model: model})
		err = buildErr
		view = NewTableView(t)
	}
	if err != nil {
		a.renderError(w, err)
		return
	}

	a.renderPartial(w, "table.html", view)
}

// renderError maps domain errors onto HTTP statuses for page handlers
func (a *App) renderError(w http.ResponseWriter, err error) {
	switch {
	case core.IsNotFoundError(err):
		http.Error(w, err.Error(), http.StatusNotFound)
	case core.IsValidationError(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		log.Printf("[ui] Internal error: %v", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
	}
}

// pickModel returns the requested model when the run evaluated it, the
// first model otherwise
func pickModel(names []string, requested string) string {
	for _, name := range names {
		if name == requested {
			return requested
		}
	}
	if len(names) > 0 {
		return names[0]
	}
	return requested
}

// pickCompareModel returns the requested comparison model, defaulting to
// the first model that is not the base
func pickCompareModel(names []string, base, requested string) string {
	for _, name := range names {
		if name == requested && name != base {
			return requested
		}
	}
	for _, name := range names {
		if name != base {
			return name
		}
	}
	return ""
}

// runNotesHTML renders the run config's notes markdown, empty when the
// config carries none
func runNotesHTML(row *models.RunRow) template.HTML {
	if len(row.ConfigJSON) == 0 {
		return ""
	}
	var cfg eval.Config
	if err := json.Unmarshal(row.ConfigJSON, &cfg); err != nil || cfg.NotesMarkdown == "" {
		return ""
	}
	return template.HTML(narrative.RenderHTML(cfg.NotesMarkdown))
}

// findingsHTML renders a findings report for embedding in the run page
func findingsHTML(report *narrative.Report) template.HTML {
	if report == nil || len(report.Findings) == 0 {
		return ""
	}
	return template.HTML(narrative.HTML(report))
}
