package testkit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/sarvex/model-analysis/adapters/excel"
	"github.com/sarvex/model-analysis/app"
	"github.com/sarvex/model-analysis/domain/core"
	"github.com/sarvex/model-analysis/domain/eval"
	"github.com/sarvex/model-analysis/domain/slicing"
	"github.com/sarvex/model-analysis/internal/events"
	"github.com/sarvex/model-analysis/models"
	"github.com/sarvex/model-analysis/ports"
)

// TestKit wires the real evaluation services onto in-memory
// implementations of the persistence ports. Tests and database-free
// tooling share it.
type TestKit struct {
	Runs    *InMemoryRunRepository
	Metrics *InMemorySliceMetricsRepository
	Results *InMemoryResultsStore
	Hub     *events.Hub

	Evals  *app.EvalService
	Tables *app.TableService
}

// NewTestKit creates a fully wired kit with empty stores
func NewTestKit() *TestKit {
	runs := NewInMemoryRunRepository()
	sliceMetrics := NewInMemorySliceMetricsRepository()
	results := NewInMemoryResultsStore()
	hub := events.NewHub()

	return &TestKit{
		Runs:    runs,
		Metrics: sliceMetrics,
		Results: results,
		Hub:     hub,
		Evals:   app.NewEvalService(excel.NewDataReader(), runs, sliceMetrics, results, hub, 2, 0.95),
		Tables:  app.NewTableService(results, sliceMetrics, runs),
	}
}

// DemoConfig is the evaluation config used for seeded demo runs: a
// baseline/candidate pair sliced by sex and age group.
func DemoConfig() eval.Config {
	cfg := eval.Config{
		ModelSpecs: []eval.ModelSpec{
			{Name: "baseline", IsBaseline: true},
			{Name: "candidate"},
		},
		Metrics: eval.MetricsSpec{Thresholds: []float64{0.5}},
		SlicingSpecs: []slicing.Spec{
			{FeatureColumns: []string{"sex"}},
			{FeatureColumns: []string{"age_group"}},
		},
		NotesMarkdown: "## Demo evaluation\n\nSynthetic scored dataset with a known " +
			"score-quality gap against the `female` slice. The candidate model " +
			"separates classes slightly better than the baseline overall.",
	}
	cfg.Normalize()
	return cfg
}

// SeedDemoRun generates a synthetic two-model dataset under dir and
// evaluates it. Returns the new run's ID.
func SeedDemoRun(ctx context.Context, evals *app.EvalService, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create seed dir %s: %w", dir, err)
	}

	generatorConfig := DefaultGeneratorConfig()
	generatorConfig.Models = []string{"baseline", "candidate"}
	generatorConfig.ModelSkew = map[string]float64{"candidate": 0.05}

	path := filepath.Join(dir, "demo_scored.csv")
	if err := NewGenerator(generatorConfig).WriteCSV(path); err != nil {
		return "", fmt.Errorf("generate demo dataset: %w", err)
	}

	outcome, err := evals.ExecuteRun(ctx, app.RunRequest{
		Name:      "demo: baseline vs candidate",
		InputPath: path,
		Config:    DemoConfig(),
	})
	if err != nil {
		return "", fmt.Errorf("evaluate demo dataset: %w", err)
	}
	return outcome.RunID, nil
}

// InMemoryRunRepository implements RunRepository with map storage
type InMemoryRunRepository struct {
	mu   sync.RWMutex
	runs map[string]models.RunRow
}

func NewInMemoryRunRepository() *InMemoryRunRepository {
	return &InMemoryRunRepository{runs: make(map[string]models.RunRow)}
}

func (r *InMemoryRunRepository) SaveRun(ctx context.Context, run *models.RunRow) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[run.ID] = *run
	return nil
}

func (r *InMemoryRunRepository) GetRun(ctx context.Context, runID string) (*models.RunRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	run, exists := r.runs[runID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", core.ErrRunNotFound, runID)
	}
	return &run, nil
}

func (r *InMemoryRunRepository) ListRuns(ctx context.Context, filters ports.RunFilters) ([]models.RunRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	runs := make([]models.RunRow, 0, len(r.runs))
	for _, run := range r.runs {
		if filters.Status != nil && run.Status != *filters.Status {
			continue
		}
		runs = append(runs, run)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})

	if filters.Offset > 0 {
		if filters.Offset >= len(runs) {
			return []models.RunRow{}, nil
		}
		runs = runs[filters.Offset:]
	}
	if filters.Limit > 0 && len(runs) > filters.Limit {
		runs = runs[:filters.Limit]
	}
	return runs, nil
}

func (r *InMemoryRunRepository) DeleteRun(ctx context.Context, runID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.runs[runID]; !exists {
		return fmt.Errorf("%w: %s", core.ErrRunNotFound, runID)
	}
	delete(r.runs, runID)
	return nil
}

// InMemorySliceMetricsRepository implements SliceMetricsRepository with
// map storage
type InMemorySliceMetricsRepository struct {
	mu   sync.RWMutex
	rows map[string][]models.SliceMetricsRow // run ID -> rows
}

func NewInMemorySliceMetricsRepository() *InMemorySliceMetricsRepository {
	return &InMemorySliceMetricsRepository{rows: make(map[string][]models.SliceMetricsRow)}
}

func (r *InMemorySliceMetricsRepository) SaveSliceMetrics(ctx context.Context, rows []models.SliceMetricsRow) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, row := range rows {
		existing := r.rows[row.RunID]
		replaced := false
		for i, candidate := range existing {
			if candidate.Model == row.Model && candidate.Slice == row.Slice {
				existing[i] = row
				replaced = true
				break
			}
		}
		if !replaced {
			existing = append(existing, row)
		}
		r.rows[row.RunID] = existing
	}
	return nil
}

func (r *InMemorySliceMetricsRepository) GetRunSliceMetrics(ctx context.Context, runID string) ([]models.SliceMetricsRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows := make([]models.SliceMetricsRow, len(r.rows[runID]))
	copy(rows, r.rows[runID])

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Model != rows[j].Model {
			return rows[i].Model < rows[j].Model
		}
		return rows[i].Position < rows[j].Position
	})
	return rows, nil
}

func (r *InMemorySliceMetricsRepository) DeleteRunSliceMetrics(ctx context.Context, runID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, runID)
	return nil
}

// InMemoryResultsStore implements ResultsStore with map storage. Paths
// take the form mem://<run-id>.
type InMemoryResultsStore struct {
	mu    sync.RWMutex
	files map[string]models.ResultsFile // run ID -> file
	order []string                      // insertion order, oldest first
}

func NewInMemoryResultsStore() *InMemoryResultsStore {
	return &InMemoryResultsStore{files: make(map[string]models.ResultsFile)}
}

func (s *InMemoryResultsStore) pathFor(runID string) string {
	return "mem://" + runID
}

func (s *InMemoryResultsStore) WriteResults(ctx context.Context, file *models.ResultsFile) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if file.Manifest.RunID == "" {
		return "", fmt.Errorf("results file missing run ID")
	}
	if err := file.Validate(); err != nil {
		return "", fmt.Errorf("refusing to store invalid results: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	runID := file.Manifest.RunID
	if _, exists := s.files[runID]; !exists {
		s.order = append(s.order, runID)
	}
	s.files[runID] = *file
	return s.pathFor(runID), nil
}

func (s *InMemoryResultsStore) LoadResults(ctx context.Context, runID string) (*models.ResultsFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	file, exists := s.files[runID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", core.ErrRunNotFound, runID)
	}
	return &file, nil
}

func (s *InMemoryResultsStore) LoadResultsPath(ctx context.Context, path string) (*models.ResultsFile, error) {
	runID := path
	if len(path) > 6 && path[:6] == "mem://" {
		runID = path[6:]
	}
	return s.LoadResults(ctx, runID)
}

func (s *InMemoryResultsStore) ListManifests(ctx context.Context) ([]models.RunManifest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	manifests := make([]models.RunManifest, 0, len(s.files))
	for _, runID := range s.order {
		manifests = append(manifests, s.files[runID].Manifest)
	}
	sort.SliceStable(manifests, func(i, j int) bool {
		return manifests[i].CompletedAt.After(manifests[j].CompletedAt)
	})
	return manifests, nil
}

func (s *InMemoryResultsStore) DeleteResults(ctx context.Context, runID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.files[runID]; !exists {
		return nil
	}
	delete(s.files, runID)
	for i, id := range s.order {
		if id == runID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// SeedCompletedRun stores a canned completed run directly into the kit's
// repositories, skipping the evaluation pipeline. Tests use it to render
// tables without reading any input file.
func (k *TestKit) SeedCompletedRun(ctx context.Context, file *models.ResultsFile) error {
	runID := file.Manifest.RunID
	if runID == "" {
		return fmt.Errorf("results file missing run ID")
	}

	if _, err := k.Results.WriteResults(ctx, file); err != nil {
		return err
	}

	if err := k.Metrics.SaveSliceMetrics(ctx, file.SliceRows()); err != nil {
		return err
	}
	return k.Runs.SaveRun(ctx, file.RunRow())
}

// Interface guards
var (
	_ ports.RunRepository          = (*InMemoryRunRepository)(nil)
	_ ports.SliceMetricsRepository = (*InMemorySliceMetricsRepository)(nil)
	_ ports.ResultsStore           = (*InMemoryResultsStore)(nil)
)
