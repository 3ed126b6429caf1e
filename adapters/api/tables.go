package api

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sarvex/model-analysis/app"
	"github.com/sarvex/model-analysis/domain/core"
	"github.com/sarvex/model-analysis/internal/format"
	"github.com/sarvex/model-analysis/internal/narrative"
	"github.com/sarvex/model-analysis/internal/table"
	"github.com/sarvex/model-analysis/models"
)

// handleRunTable renders the per-slice metrics table of one model
func (s *Server) handleRunTable(c *gin.Context) {
	req := app.TableRequest{
		RunID:   c.Param("runId"),
		Model:   c.Query("model"),
		Metrics: splitMetrics(c.Query("metrics")),
	}

	t, err := s.tables.BuildRunTable(c.Request.Context(), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.respondTable(c, t, gin.H{"run_id": req.RunID})
}

// handleModelComparison renders two models of one run side by side
func (s *Server) handleModelComparison(c *gin.Context) {
	req := app.CompareRequest{
		RunID:        c.Param("runId"),
		BaseModel:    c.Query("base"),
		CompareModel: c.Query("compare"),
		Metrics:      splitMetrics(c.Query("metrics")),
	}

	t, err := s.tables.BuildComparisonTable(c.Request.Context(), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.respondTable(c, t, gin.H{"run_id": req.RunID})
}

// handleRunComparison renders the same model across two runs
func (s *Server) handleRunComparison(c *gin.Context) {
	baseRun := c.Query("base_run")
	compareRun := c.Query("compare_run")
	if baseRun == "" || compareRun == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "base_run and compare_run parameters required"})
		return
	}

	req := app.RunCompareRequest{
		BaseRunID:    baseRun,
		CompareRunID: compareRun,
		Model:        c.Query("model"),
		Metrics:      splitMetrics(c.Query("metrics")),
	}

	t, err := s.tables.BuildRunComparisonTable(c.Request.Context(), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.respondTable(c, t, gin.H{"base_run": baseRun, "compare_run": compareRun})
}

// handleFindings runs the findings detectors over a run's results.
// With base set the report also covers regressions of model against base.
func (s *Server) handleFindings(c *gin.Context) {
	file, err := s.tables.LoadResults(c.Request.Context(), c.Param("runId"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	base := c.Query("base")
	model := c.Query("model")
	if model == "" {
		model = defaultModel(file, base)
	}
	if _, ok := file.SliceMetricsFor(model); !ok {
		s.respondError(c, fmt.Errorf("%w: %q", core.ErrModelNotFound, model))
		return
	}

	generator := narrative.NewGenerator()
	var report *narrative.Report
	if base != "" {
		if _, ok := file.SliceMetricsFor(base); !ok {
			s.respondError(c, fmt.Errorf("%w: %q", core.ErrModelNotFound, base))
			return
		}
		report, err = generator.AnalyzeComparison(file, base, model)
	} else {
		report, err = generator.Analyze(file, model)
	}
	if err != nil {
		s.respondError(c, err)
		return
	}

	switch c.Query("format") {
	case "markdown":
		c.String(http.StatusOK, narrative.Markdown(report))
	case "html":
		c.Data(http.StatusOK, "text/html; charset=utf-8", narrative.HTML(report))
	default:
		c.JSON(http.StatusOK, report)
	}
}

// respondTable writes a table as JSON cells or rendered text per the
// format query parameter
func (s *Server) respondTable(c *gin.Context, t *table.Table, extra gin.H) {
	switch c.Query("format") {
	case "text":
		c.String(http.StatusOK, s.tables.RenderText(t, format.ASCII))
	case "markdown":
		c.String(http.StatusOK, s.tables.RenderText(t, format.Markdown))
	default:
		payload := gin.H{"table": t}
		for key, value := range extra {
			payload[key] = value
		}
		c.JSON(http.StatusOK, payload)
	}
}

// splitMetrics parses the comma-separated metrics query parameter
func splitMetrics(raw string) []string {
	if raw == "" {
		return nil
	}
	var metricNames []string
	for _, name := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			metricNames = append(metricNames, trimmed)
		}
	}
	return metricNames
}

// defaultModel picks the first model other than exclude, manifest order
// first
func defaultModel(file *models.ResultsFile, exclude string) string {
	for _, name := range file.Manifest.ModelNames {
		if name != exclude {
			return name
		}
	}
	names := make([]string, 0, len(file.PerModel))
	for name := range file.PerModel {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if name != exclude {
			return name
		}
	}
	return ""
}
