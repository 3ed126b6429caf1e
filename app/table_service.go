package app

import (
	"context"
	"fmt"
	"sort"

	"github.com/sarvex/model-analysis/domain/core"
	"github.com/sarvex/model-analysis/domain/metrics"
	"github.com/sarvex/model-analysis/internal/format"
	"github.com/sarvex/model-analysis/internal/table"
	"github.com/sarvex/model-analysis/models"
	"github.com/sarvex/model-analysis/ports"
)

// TableService builds display tables from stored run results. Results
// files are the primary source; runs whose file is gone rebuild from the
// slice metrics rows in the database.
type TableService struct {
	results      ports.ResultsStore
	sliceMetrics ports.SliceMetricsRepository
	runs         ports.RunRepository
}

// TableRequest selects one model of one run
type TableRequest struct {
	RunID   string
	Model   string
	Metrics []string
}

// CompareRequest selects two models of one run
type CompareRequest struct {
	RunID        string
	BaseModel    string
	CompareModel string
	Metrics      []string
}

// RunCompareRequest selects the same model across two runs
type RunCompareRequest struct {
	BaseRunID    string
	CompareRunID string
	Model        string
	Metrics      []string
}

// NewTableService creates a table service
func NewTableService(results ports.ResultsStore, sliceMetrics ports.SliceMetricsRepository, runs ports.RunRepository) *TableService {
	return &TableService{
		results:      results,
		sliceMetrics: sliceMetrics,
		runs:         runs,
	}
}

// BuildRunTable computes the single-model display table for a run
func (s *TableService) BuildRunTable(ctx context.Context, req TableRequest) (*table.Table, error) {
	file, err := s.LoadResults(ctx, req.RunID)
	if err != nil {
		return nil, err
	}

	model, err := resolveModel(file, req.Model)
	if err != nil {
		return nil, err
	}
	data, _ := file.SliceMetricsFor(model)

	return table.Build(table.Input{
		Metrics:       s.metricColumns(file, req.Metrics),
		Data:          data,
		EvalName:      model,
		ExampleCounts: file.ExampleCounts,
	})
}

// BuildComparisonTable computes the two-model display table for a run
func (s *TableService) BuildComparisonTable(ctx context.Context, req CompareRequest) (*table.Table, error) {
	file, err := s.LoadResults(ctx, req.RunID)
	if err != nil {
		return nil, err
	}
	if len(file.Manifest.ModelNames) < 2 && (req.BaseModel == "" || req.CompareModel == "") {
		return nil, fmt.Errorf("%w: run %s evaluated a single model, nothing to compare", core.ErrInsufficientData, req.RunID)
	}

	baseModel, err := resolveModel(file, req.BaseModel)
	if err != nil {
		return nil, err
	}
	compareModel := req.CompareModel
	if compareModel == "" {
		for _, name := range file.Manifest.ModelNames {
			if name != baseModel {
				compareModel = name
				break
			}
		}
	}
	if compareModel == baseModel {
		return nil, fmt.Errorf("comparison needs two distinct models, got %q twice", baseModel)
	}

	base, _ := file.SliceMetricsFor(baseModel)
	compare, ok := file.SliceMetricsFor(compareModel)
	if !ok {
		return nil, fmt.Errorf("%w: %s in run %s", core.ErrModelNotFound, compareModel, req.RunID)
	}

	return table.Build(table.Input{
		Metrics:         s.metricColumns(file, req.Metrics),
		Data:            base,
		DataCompare:     compare,
		EvalName:        baseModel,
		EvalCompareName: compareModel,
		ExampleCounts:   file.ExampleCounts,
	})
}

// BuildRunComparisonTable compares one model's metrics across two runs.
// Rows follow the base run's slices; the compare run matches by slice
// name and contributes empty cells where a slice is absent.
func (s *TableService) BuildRunComparisonTable(ctx context.Context, req RunCompareRequest) (*table.Table, error) {
	baseFile, err := s.LoadResults(ctx, req.BaseRunID)
	if err != nil {
		return nil, err
	}
	compareFile, err := s.LoadResults(ctx, req.CompareRunID)
	if err != nil {
		return nil, err
	}

	model, err := resolveModel(baseFile, req.Model)
	if err != nil {
		return nil, err
	}
	base, _ := baseFile.SliceMetricsFor(model)
	compare, ok := compareFile.SliceMetricsFor(model)
	if !ok {
		return nil, fmt.Errorf("%w: %s in run %s", core.ErrModelNotFound, model, req.CompareRunID)
	}

	return table.Build(table.Input{
		Metrics:         s.metricColumns(baseFile, req.Metrics),
		Data:            base,
		DataCompare:     compare,
		EvalName:        runLabel(baseFile.Manifest),
		EvalCompareName: runLabel(compareFile.Manifest),
		ExampleCounts:   baseFile.ExampleCounts,
	})
}

// RenderText renders a display table as terminal or Markdown text
func (s *TableService) RenderText(t *table.Table, mode format.Mode) string {
	return format.RenderTable(t, mode)
}

// LoadResults loads a run's results, rebuilding from database rows when
// the results file is missing
func (s *TableService) LoadResults(ctx context.Context, runID string) (*models.ResultsFile, error) {
	file, err := s.results.LoadResults(ctx, runID)
	if err == nil {
		return file, nil
	}

	rebuilt, dbErr := s.rebuildFromRows(ctx, runID)
	if dbErr != nil {
		return nil, err
	}
	return rebuilt, nil
}

// rebuildFromRows reassembles a results file from the slice metrics
// table. Slice order is restored from the stored positions.
func (s *TableService) rebuildFromRows(ctx context.Context, runID string) (*models.ResultsFile, error) {
	run, err := s.runs.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	rows, err := s.sliceMetrics.GetRunSliceMetrics(ctx, runID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no slice metrics stored for %s", core.ErrRunNotFound, runID)
	}

	perModel := make(map[string][]models.SliceMetricsRow)
	counts := make(map[string]float64)
	for _, row := range rows {
		perModel[row.Model] = append(perModel[row.Model], row)
		counts[row.Slice] = row.ExampleCount
	}

	file := &models.ResultsFile{
		Version:       models.ResultsFileVersion,
		PerModel:      make(map[string][]metrics.SliceMetrics, len(perModel)),
		ExampleCounts: counts,
	}
	modelNames := make([]string, 0, len(perModel))
	for model, modelRows := range perModel {
		sort.Slice(modelRows, func(i, j int) bool {
			return modelRows[i].Position < modelRows[j].Position
		})
		sliceMetrics := make([]metrics.SliceMetrics, len(modelRows))
		for i, row := range modelRows {
			sliceMetrics[i] = row.ToSliceMetrics()
		}
		file.PerModel[model] = sliceMetrics
		modelNames = append(modelNames, model)
	}
	sort.Strings(modelNames)

	file.Manifest = models.RunManifest{
		RunID:       runID,
		Name:        run.Name,
		DatasetHash: run.DatasetHash.String,
		ModelNames:  modelNames,
		MetricNames: collectMetricNames(file.PerModel),
		RowCount:    run.RowCount,
		CreatedAt:   run.CreatedAt,
		CompletedAt: run.CompletedAt.Time,
	}
	return file, nil
}

// metricColumns picks the metric column list: an explicit request wins,
// otherwise the manifest's computed metrics. The example count renders
// as its own column, never as a metric.
func (s *TableService) metricColumns(file *models.ResultsFile, requested []string) []string {
	names := requested
	if len(names) == 0 {
		names = file.Manifest.MetricNames
	}

	columns := make([]string, 0, len(names))
	for _, name := range names {
		base, _, hasThreshold := metrics.SplitThreshold(name)
		if !hasThreshold {
			base = name
		}
		if metrics.DisplayName(base) == metrics.MetricExampleCount {
			continue
		}
		columns = append(columns, name)
	}
	return columns
}

// resolveModel picks the model to display: the request's if present in
// the file, the manifest's first model otherwise
func resolveModel(file *models.ResultsFile, requested string) (string, error) {
	if requested != "" {
		if _, ok := file.SliceMetricsFor(requested); !ok {
			return "", fmt.Errorf("%w: %s in run %s", core.ErrModelNotFound, requested, file.Manifest.RunID)
		}
		return requested, nil
	}
	if len(file.Manifest.ModelNames) > 0 {
		return file.Manifest.ModelNames[0], nil
	}
	for model := range file.PerModel {
		return model, nil
	}
	return "", fmt.Errorf("results for run %s carry no models", file.Manifest.RunID)
}

// runLabel names a run in cross-run comparison headers
func runLabel(manifest models.RunManifest) string {
	if manifest.Name != "" {
		return manifest.Name
	}
	if len(manifest.RunID) >= 8 {
		return manifest.RunID[:8]
	}
	return manifest.RunID
}

// collectMetricNames unions metric names across models, sorted
func collectMetricNames(perModel map[string][]metrics.SliceMetrics) []string {
	seen := make(map[string]bool)
	for _, sliceMetrics := range perModel {
		for _, name := range metrics.CollectNames(sliceMetrics) {
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
