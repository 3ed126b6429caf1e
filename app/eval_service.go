package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/sarvex/model-analysis/domain/core"
	"github.com/sarvex/model-analysis/domain/eval"
	"github.com/sarvex/model-analysis/internal/analysis"
	"github.com/sarvex/model-analysis/internal/events"
	"github.com/sarvex/model-analysis/internal/pipeline"
	"github.com/sarvex/model-analysis/models"
	"github.com/sarvex/model-analysis/ports"
)

// EvalService orchestrates evaluation runs end to end: read the input
// rows, run the extraction pipeline and the metric evaluator, persist
// slice metrics and the results file, and track run lifecycle.
type EvalService struct {
	reader       ports.RowReader
	runs         ports.RunRepository
	sliceMetrics ports.SliceMetricsRepository
	results      ports.ResultsStore
	hub          *events.Hub
	parallelism  int
	confidence   float64
}

// RunRequest defines the inputs for one evaluation run. RunID is
// normally left empty and assigned by the service; callers that need
// the ID before the run finishes may pre-assign one.
type RunRequest struct {
	RunID     string
	Name      string
	InputPath string
	Config    eval.Config
}

// RunOutcome contains the outputs of a completed run
type RunOutcome struct {
	RunID     string              `json:"run_id"`
	Results   *models.ResultsFile `json:"results"`
	Path      string              `json:"path"`
	Artifacts []core.Artifact     `json:"artifacts,omitempty"`
	Warnings  []string            `json:"warnings,omitempty"`
	RuntimeMs int64               `json:"runtime_ms"`
	Success   bool                `json:"success"`
}

// NewEvalService creates an evaluation service
func NewEvalService(reader ports.RowReader, runs ports.RunRepository, sliceMetrics ports.SliceMetricsRepository, results ports.ResultsStore, hub *events.Hub, parallelism int, confidence float64) *EvalService {
	return &EvalService{
		reader:       reader,
		runs:         runs,
		sliceMetrics: sliceMetrics,
		results:      results,
		hub:          hub,
		parallelism:  parallelism,
		confidence:   confidence,
	}
}

// ExecuteRun performs a full evaluation run. The run row moves through
// pending, running and completed; any failure after the row exists marks
// it failed with the error message.
func (s *EvalService) ExecuteRun(ctx context.Context, req RunRequest) (*RunOutcome, error) {
	startTime := time.Now()

	cfg := req.Config
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidConfig, err)
	}

	name := req.Name
	if name == "" {
		name = fmt.Sprintf("run %s", startTime.Format("2006-01-02 15:04:05"))
	}

	run := eval.NewRun(name, cfg)
	if req.RunID != "" {
		run.ID = core.RunID(req.RunID)
	}

	configJSON, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode run config: %w", err)
	}

	if err := s.runs.SaveRun(ctx, runRow(run, configJSON, 0)); err != nil {
		return nil, fmt.Errorf("failed to create run record: %w", err)
	}

	outcome, err := s.evaluate(ctx, run, req.InputPath, configJSON)
	if err != nil {
		s.markFailed(ctx, run, configJSON, err)
		return nil, err
	}

	outcome.RuntimeMs = time.Since(startTime).Milliseconds()
	return outcome, nil
}

// evaluate runs everything between the pending record and the completed
// record. Errors bubble to ExecuteRun which marks the run failed.
func (s *EvalService) evaluate(ctx context.Context, run *eval.Run, inputPath string, configJSON []byte) (*RunOutcome, error) {
	runID := run.ID.String()
	cfg := run.Config

	rows, err := s.reader.ReadRows(ctx, inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read input rows: %w", err)
	}
	if missing := s.missingColumns(rows, cfg); len(missing) > 0 {
		return nil, fmt.Errorf("%w: input %s lacks %v", core.ErrMissingColumn, inputPath, missing)
	}

	datasetHash, err := core.HashFile(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to hash dataset: %w", err)
	}
	run.DatasetHash = core.DatasetHash(datasetHash)

	run.Start()
	if err := s.runs.SaveRun(ctx, runRow(run, configJSON, len(rows.Rows))); err != nil {
		return nil, fmt.Errorf("failed to mark run running: %w", err)
	}
	s.hub.RunStarted(runID, map[string]interface{}{
		"name":      run.Name,
		"models":    cfg.ModelNames(),
		"row_count": len(rows.Rows),
	})
	log.Printf("[EvalService] Run %s started: %d rows, models %v", runID, len(rows.Rows), cfg.ModelNames())

	batch, err := pipeline.Default(cfg).Run(ctx, pipeline.FromRawRows(rows.Rows))
	if err != nil {
		return nil, fmt.Errorf("extraction pipeline failed: %w", err)
	}

	evaluator := analysis.NewEvaluator(cfg, s.parallelism, s.confidence)
	result, err := evaluator.Evaluate(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("metric evaluation failed: %w", err)
	}

	run.Complete()
	completedAt := run.CompletedAt.Time()
	file := s.buildResultsFile(run, result, completedAt)

	path, err := s.results.WriteResults(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("failed to write results file: %w", err)
	}

	if err := s.persistSliceMetrics(ctx, runID, cfg, result, completedAt); err != nil {
		return nil, fmt.Errorf("failed to persist slice metrics: %w", err)
	}

	if err := s.runs.SaveRun(ctx, runRow(run, configJSON, result.RowCount)); err != nil {
		return nil, fmt.Errorf("failed to mark run completed: %w", err)
	}

	s.hub.RunCompleted(runID, map[string]interface{}{
		"slices":   len(result.SliceNames()),
		"warnings": len(result.Warnings),
	})
	log.Printf("[EvalService] Run %s completed: %d slices, %d warnings",
		runID, len(result.SliceNames()), len(result.Warnings))

	return &RunOutcome{
		RunID:     runID,
		Results:   file,
		Path:      path,
		Artifacts: s.runArtifacts(cfg, file, path),
		Warnings:  result.Warnings,
		Success:   true,
	}, nil
}

// runArtifacts records the typed outputs of a completed run: the run
// manifest and one slice-metrics artifact per model
func (s *EvalService) runArtifacts(cfg eval.Config, file *models.ResultsFile, path string) []core.Artifact {
	configHash := core.ComputeConfigHash(map[string]interface{}{
		"label_column": cfg.LabelColumn,
		"models":       cfg.ModelNames(),
		"metrics":      cfg.MetricNames(),
	})

	artifacts := []core.Artifact{{
		ID:   core.NewID(),
		Kind: core.ArtifactRunManifest,
		Payload: map[string]interface{}{
			"run_id":       file.Manifest.RunID,
			"dataset_hash": file.Manifest.DatasetHash,
			"config_hash":  configHash.String(),
			"row_count":    file.Manifest.RowCount,
			"results_path": path,
		},
		CreatedAt: core.Now(),
	}}

	for _, model := range file.Manifest.ModelNames {
		sliceMetrics, ok := file.SliceMetricsFor(model)
		if !ok {
			continue
		}
		artifacts = append(artifacts, core.Artifact{
			ID:   core.NewID(),
			Kind: core.ArtifactSliceMetrics,
			Payload: map[string]interface{}{
				"run_id": file.Manifest.RunID,
				"model":  model,
				"slices": len(sliceMetrics),
			},
			CreatedAt: core.Now(),
		})
	}
	return artifacts
}

// missingColumns checks the input carries the label column and every
// configured score and slicing column
func (s *EvalService) missingColumns(rows *ports.RowSet, cfg eval.Config) []string {
	present := make(map[string]bool, len(rows.Columns))
	for _, col := range rows.Columns {
		present[col] = true
	}

	required := []string{cfg.LabelColumn}
	for _, spec := range cfg.ModelSpecs {
		required = append(required, spec.ScoreColumn)
	}
	for _, spec := range cfg.SlicingSpecs {
		required = append(required, spec.FeatureColumns...)
	}

	var missing []string
	seen := make(map[string]bool)
	for _, col := range required {
		if col == "" || present[col] || seen[col] {
			continue
		}
		seen[col] = true
		missing = append(missing, col)
	}
	return missing
}

// buildResultsFile assembles the portable results artifact for a run
func (s *EvalService) buildResultsFile(run *eval.Run, result *analysis.RunResult, completedAt time.Time) *models.ResultsFile {
	manifest := models.RunManifest{
		RunID:       run.ID.String(),
		Name:        run.Name,
		DatasetHash: run.DatasetHash.String(),
		ModelNames:  run.Config.ModelNames(),
		MetricNames: result.MetricNames(),
		RowCount:    result.RowCount,
		CreatedAt:   run.CreatedAt.Time(),
		CompletedAt: completedAt,
	}

	return &models.ResultsFile{
		Version:       models.ResultsFileVersion,
		Manifest:      manifest,
		PerModel:      result.PerModel,
		ExampleCounts: result.ExampleCounts,
		Warnings:      result.Warnings,
	}
}

// persistSliceMetrics writes one database row per (model, slice) and
// streams per-slice progress events
func (s *EvalService) persistSliceMetrics(ctx context.Context, runID string, cfg eval.Config, result *analysis.RunResult, completedAt time.Time) error {
	sliceNames := result.SliceNames()
	var dbRows []models.SliceMetricsRow

	for _, model := range cfg.ModelNames() {
		sliceMetrics, ok := result.Model(model)
		if !ok {
			return fmt.Errorf("evaluation produced no metrics for model %q", model)
		}
		for position, sm := range sliceMetrics {
			dbRows = append(dbRows, models.SliceMetricsRow{
				RunID:        runID,
				Model:        model,
				Slice:        sm.Slice,
				Position:     position,
				Metrics:      models.MetricsJSON(sm.Metrics),
				ExampleCount: result.ExampleCounts[sm.Slice],
				CreatedAt:    completedAt,
			})
		}
	}

	if err := s.sliceMetrics.SaveSliceMetrics(ctx, dbRows); err != nil {
		return err
	}

	for i, slice := range sliceNames {
		s.hub.SliceEvaluated(runID, slice, float64(i+1)/float64(len(sliceNames)))
	}
	return nil
}

// markFailed records a run failure and announces it. Best effort: the
// original error matters more than bookkeeping errors here.
func (s *EvalService) markFailed(ctx context.Context, run *eval.Run, configJSON []byte, cause error) {
	run.Fail(cause.Error())
	runID := run.ID.String()

	row := runRow(run, configJSON, 0)
	if existing, err := s.runs.GetRun(ctx, runID); err == nil {
		row.RowCount = existing.RowCount
	}
	if err := s.runs.SaveRun(ctx, row); err != nil {
		log.Printf("[EvalService] Run %s failed and could not be marked: %v", runID, err)
	}
	s.hub.RunFailed(runID, cause.Error())
	log.Printf("[EvalService] Run %s failed: %v", runID, cause)
}

// GetRun loads one run record
func (s *EvalService) GetRun(ctx context.Context, runID string) (*models.RunRow, error) {
	return s.runs.GetRun(ctx, runID)
}

// runRow flattens a domain run onto its eval_runs row. RowCount lives
// outside the run lifecycle so callers pass it explicitly.
func runRow(run *eval.Run, configJSON []byte, rowCount int) *models.RunRow {
	return &models.RunRow{
		ID:          run.ID.String(),
		Name:        run.Name,
		Status:      string(run.Status),
		DatasetHash: nullString(run.DatasetHash.String()),
		ConfigJSON:  configJSON,
		RowCount:    rowCount,
		Failure:     nullString(run.Failure),
		CreatedAt:   run.CreatedAt.Time(),
		CompletedAt: nullTime(run.CompletedAt.Time()),
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

// ListRuns lists run records, newest first
func (s *EvalService) ListRuns(ctx context.Context, filters ports.RunFilters) ([]models.RunRow, error) {
	return s.runs.ListRuns(ctx, filters)
}

// DeleteRun removes a run record, its slice metrics and its results file
func (s *EvalService) DeleteRun(ctx context.Context, runID string) error {
	if err := s.sliceMetrics.DeleteRunSliceMetrics(ctx, runID); err != nil {
		return fmt.Errorf("failed to delete slice metrics: %w", err)
	}
	if err := s.runs.DeleteRun(ctx, runID); err != nil {
		return err
	}
	if err := s.results.DeleteResults(ctx, runID); err != nil {
		return fmt.Errorf("failed to delete results file: %w", err)
	}
	return nil
}
