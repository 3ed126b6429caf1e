package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/sarvex/model-analysis/adapters/excel"
	"github.com/sarvex/model-analysis/adapters/results"
	"github.com/sarvex/model-analysis/app"
	"github.com/sarvex/model-analysis/domain/eval"
	"github.com/sarvex/model-analysis/internal/config"
	"github.com/sarvex/model-analysis/internal/container"
	"github.com/sarvex/model-analysis/internal/format"
	"github.com/sarvex/model-analysis/internal/migration"
	"github.com/sarvex/model-analysis/internal/profiling"
	"github.com/sarvex/model-analysis/internal/table"
	"github.com/sarvex/model-analysis/internal/testkit"
	"github.com/sarvex/model-analysis/ports"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "model-analysis-cli",
		Short: "Per-slice fairness metrics: evaluate scored datasets and render comparison tables",
	}

	rootCmd.AddCommand(
		newEvaluateCmd(),
		newRenderCmd(),
		newCompareCmd(),
		newRunsCmd(),
		newSeedCmd(),
		newInspectCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// serviceSet bundles the services a command needs plus their cleanup
type serviceSet struct {
	evals  *app.EvalService
	tables *app.TableService
	store  ports.ResultsStore
	runs   ports.RunRepository
	close  func()
}

// newServices wires services onto PostgreSQL when DATABASE_URL is set,
// and onto in-memory repositories with a file-backed results store
// otherwise. Database-free mode keeps results files under resultsDir so
// later render calls can find them.
func newServices(ctx context.Context, resultsDir string) (*serviceSet, error) {
	if os.Getenv("DATABASE_URL") == "" {
		kit := testkit.NewTestKit()
		store := results.NewStore(resultsDir)
		return &serviceSet{
			evals:  app.NewEvalService(excel.NewDataReader(), kit.Runs, kit.Metrics, store, kit.Hub, 4, 0.95),
			tables: app.NewTableService(store, kit.Metrics, kit.Runs),
			store:  store,
			runs:   kit.Runs,
			close:  func() {},
		}, nil
	}

	appConfig, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	db, err := sqlx.Connect("postgres", appConfig.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := migration.NewRunner().Run(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}

	appContainer, err := container.New(appConfig)
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := appContainer.InitWithDatabase(db); err != nil {
		db.Close()
		return nil, err
	}

	return &serviceSet{
		evals:  appContainer.EvalService,
		tables: appContainer.TableService,
		store:  appContainer.ResultsStore,
		runs:   appContainer.RunRepo,
		close:  func() { db.Close() },
	}, nil
}

// parseMode maps the --mode flag onto a render mode
func parseMode(mode string) (format.Mode, error) {
	switch strings.ToLower(mode) {
	case "", "ascii", "terminal":
		return format.ASCII, nil
	case "markdown", "md":
		return format.Markdown, nil
	}
	return format.ASCII, fmt.Errorf("invalid mode %q (expected ascii|markdown)", mode)
}

// emitTable writes a rendered table to stdout or the requested files
func emitTable(tables *app.TableService, t *table.Table, mode format.Mode, out, xlsxPath, csvPath string) error {
	text := tables.RenderText(t, mode)

	if out != "" {
		if err := os.WriteFile(out, []byte(text+"\n"), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", out, err)
		}
		fmt.Printf("Table written to %s\n", out)
	} else {
		fmt.Println(text)
	}

	if xlsxPath != "" {
		if err := excel.WriteTableXLSX(xlsxPath, t); err != nil {
			return fmt.Errorf("write %s: %w", xlsxPath, err)
		}
		fmt.Printf("Workbook written to %s\n", xlsxPath)
	}
	if csvPath != "" {
		if err := excel.WriteTableCSV(csvPath, t); err != nil {
			return fmt.Errorf("write %s: %w", csvPath, err)
		}
		fmt.Printf("CSV written to %s\n", csvPath)
	}
	return nil
}

func newEvaluateCmd() *cobra.Command {
	var configPath string
	var name string
	var resultsDir string
	var mode string

	cmd := &cobra.Command{
		Use:   "evaluate [input-file]",
		Short: "Evaluate a scored dataset and print its metrics table",
		Long: `Evaluate a scored dataset (CSV or XLSX) against an evaluation config.

Without DATABASE_URL the run is not persisted to a database; the results
file still lands under --results-dir so it can be rendered again later.

Example: model-analysis-cli evaluate scored.csv --config eval.yaml --name "nightly"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvaluate(cmd.Context(), args[0], configPath, name, resultsDir, mode)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Evaluation config YAML (defaults to a single model on column 'score')")
	cmd.Flags().StringVar(&name, "name", "", "Run name (defaults to a timestamp)")
	cmd.Flags().StringVar(&resultsDir, "results-dir", "./results", "Directory for results files")
	cmd.Flags().StringVar(&mode, "mode", "ascii", "Table output mode: ascii|markdown")

	return cmd
}

func runEvaluate(ctx context.Context, inputPath, configPath, name, resultsDir, modeFlag string) error {
	mode, err := parseMode(modeFlag)
	if err != nil {
		return err
	}

	evalConfig := eval.DefaultConfig()
	if configPath != "" {
		loaded, err := eval.LoadConfig(configPath)
		if err != nil {
			return err
		}
		evalConfig = *loaded
	}

	services, err := newServices(ctx, resultsDir)
	if err != nil {
		return err
	}
	defer services.close()

	fmt.Printf("Evaluating %s with models %v...\n", inputPath, evalConfig.ModelNames())

	outcome, err := services.evals.ExecuteRun(ctx, app.RunRequest{
		Name:      name,
		InputPath: inputPath,
		Config:    evalConfig,
	})
	if err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}

	fmt.Printf("\n=== RUN SUMMARY ===\n")
	fmt.Printf("Run ID: %s\n", outcome.RunID)
	fmt.Printf("Rows: %s\n", format.FmtCount(outcome.Results.Manifest.RowCount))
	fmt.Printf("Models: %v\n", outcome.Results.Manifest.ModelNames)
	fmt.Printf("Runtime: %d ms\n", outcome.RuntimeMs)
	fmt.Printf("Results: %s\n", outcome.Path)
	for _, warning := range outcome.Warnings {
		fmt.Printf("Warning: %s\n", warning)
	}

	var tbl *table.Table
	if len(evalConfig.ModelSpecs) >= 2 {
		tbl, err = services.tables.BuildComparisonTable(ctx, app.CompareRequest{
			RunID:     outcome.RunID,
			BaseModel: evalConfig.Baseline().Name,
		})
	} else {
		tbl, err = services.tables.BuildRunTable(ctx, app.TableRequest{RunID: outcome.RunID})
	}
	if err != nil {
		return fmt.Errorf("table build failed: %w", err)
	}

	fmt.Println()
	fmt.Println(services.tables.RenderText(tbl, mode))
	return nil
}

func newRenderCmd() *cobra.Command {
	var filePath string
	var model string
	var baseModel string
	var againstModel string
	var mode string
	var out string
	var xlsxPath string
	var csvPath string
	var resultsDir string

	cmd := &cobra.Command{
		Use:   "render [run-id]",
		Short: "Render the metrics table of a stored run or results file",
		Long: `Render a run's per-slice metrics table.

Runs are looked up by ID in the database (or the results directory when
no database is configured); --file renders a results JSON directly.
--base and --against switch on two-model comparison columns.

Examples:
  model-analysis-cli render 4f1c2a9e --model candidate
  model-analysis-cli render --file results/4f1c2a9e.json --base baseline --against candidate --mode markdown`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := ""
			if len(args) > 0 {
				runID = args[0]
			}
			if runID == "" && filePath == "" {
				return fmt.Errorf("a run ID argument or --file is required")
			}
			return runRender(cmd.Context(), runID, filePath, model, baseModel, againstModel, mode, out, xlsxPath, csvPath, resultsDir)
		},
	}

	cmd.Flags().StringVar(&filePath, "file", "", "Render a results JSON file instead of a stored run")
	cmd.Flags().StringVar(&model, "model", "", "Model to render (defaults to the run's first model)")
	cmd.Flags().StringVar(&baseModel, "base", "", "Comparison base model")
	cmd.Flags().StringVar(&againstModel, "against", "", "Model compared against the base")
	cmd.Flags().StringVar(&mode, "mode", "ascii", "Table output mode: ascii|markdown")
	cmd.Flags().StringVar(&out, "out", "", "Write the rendered table to a file instead of stdout")
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "Also write the table as an XLSX workbook")
	cmd.Flags().StringVar(&csvPath, "csv", "", "Also write the table as CSV")
	cmd.Flags().StringVar(&resultsDir, "results-dir", "./results", "Directory for results files")

	return cmd
}

func runRender(ctx context.Context, runID, filePath, model, baseModel, againstModel, modeFlag, out, xlsxPath, csvPath, resultsDir string) error {
	mode, err := parseMode(modeFlag)
	if err != nil {
		return err
	}

	var tables *app.TableService
	if filePath != "" {
		// Load the explicit file into an in-memory kit so the table
		// service can serve it by run ID
		file, err := results.NewStore(resultsDir).LoadResultsPath(ctx, filePath)
		if err != nil {
			return fmt.Errorf("load results file: %w", err)
		}
		kit := testkit.NewTestKit()
		if _, err := kit.Results.WriteResults(ctx, file); err != nil {
			return err
		}
		tables = kit.Tables
		runID = file.Manifest.RunID
	} else {
		services, err := newServices(ctx, resultsDir)
		if err != nil {
			return err
		}
		defer services.close()
		tables = services.tables
	}

	var tbl *table.Table
	if baseModel != "" || againstModel != "" {
		tbl, err = tables.BuildComparisonTable(ctx, app.CompareRequest{
			RunID:        runID,
			BaseModel:    baseModel,
			CompareModel: againstModel,
		})
	} else {
		tbl, err = tables.BuildRunTable(ctx, app.TableRequest{RunID: runID, Model: model})
	}
	if err != nil {
		return fmt.Errorf("table build failed: %w", err)
	}

	return emitTable(tables, tbl, mode, out, xlsxPath, csvPath)
}

func newCompareCmd() *cobra.Command {
	var model string
	var baseModel string
	var againstModel string
	var mode string
	var out string
	var xlsxPath string
	var csvPath string
	var resultsDir string

	cmd := &cobra.Command{
		Use:   "compare [base-run-id] [compare-run-id]",
		Short: "Compare two models within a run, or one model across two runs",
		Long: `Compare per-slice metrics.

With one run ID, --base and --against name two models of that run and
the table carries base, compare and percentage-difference columns.
With two run IDs, --model picks the model compared across the runs.
Rows follow the base slices; slices absent on the compare side render
as empty cells.

Examples:
  model-analysis-cli compare 4f1c2a9e --base baseline --against candidate
  model-analysis-cli compare 4f1c2a9e 8a3d11bc --model candidate`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return runCompareModels(cmd.Context(), args[0], baseModel, againstModel, mode, out, xlsxPath, csvPath, resultsDir)
			}
			return runCompareRuns(cmd.Context(), args[0], args[1], model, mode, out, xlsxPath, csvPath, resultsDir)
		},
	}

	cmd.Flags().StringVar(&baseModel, "base", "", "Comparison base model (single-run form)")
	cmd.Flags().StringVar(&againstModel, "against", "", "Model compared against the base (single-run form)")
	cmd.Flags().StringVar(&model, "model", "", "Model to compare across runs (defaults to the base run's first model)")
	cmd.Flags().StringVar(&mode, "mode", "ascii", "Table output mode: ascii|markdown")
	cmd.Flags().StringVar(&out, "out", "", "Write the rendered table to a file instead of stdout")
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "Also write the table as an XLSX workbook")
	cmd.Flags().StringVar(&csvPath, "csv", "", "Also write the table as CSV")
	cmd.Flags().StringVar(&resultsDir, "results-dir", "./results", "Directory for results files")

	return cmd
}

func runCompareModels(ctx context.Context, runID, baseModel, againstModel, modeFlag, out, xlsxPath, csvPath, resultsDir string) error {
	mode, err := parseMode(modeFlag)
	if err != nil {
		return err
	}

	services, err := newServices(ctx, resultsDir)
	if err != nil {
		return err
	}
	defer services.close()

	tbl, err := services.tables.BuildComparisonTable(ctx, app.CompareRequest{
		RunID:        runID,
		BaseModel:    baseModel,
		CompareModel: againstModel,
	})
	if err != nil {
		return fmt.Errorf("comparison failed: %w", err)
	}

	return emitTable(services.tables, tbl, mode, out, xlsxPath, csvPath)
}

func runCompareRuns(ctx context.Context, baseRunID, compareRunID, model, modeFlag, out, xlsxPath, csvPath, resultsDir string) error {
	mode, err := parseMode(modeFlag)
	if err != nil {
		return err
	}

	services, err := newServices(ctx, resultsDir)
	if err != nil {
		return err
	}
	defer services.close()

	tbl, err := services.tables.BuildRunComparisonTable(ctx, app.RunCompareRequest{
		BaseRunID:    baseRunID,
		CompareRunID: compareRunID,
		Model:        model,
	})
	if err != nil {
		return fmt.Errorf("comparison failed: %w", err)
	}

	return emitTable(services.tables, tbl, mode, out, xlsxPath, csvPath)
}

func newRunsCmd() *cobra.Command {
	var limit int
	var status string
	var resultsDir string

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List evaluation runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(cmd.Context(), limit, status, resultsDir)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum runs to list")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status: pending|running|completed|failed")
	cmd.Flags().StringVar(&resultsDir, "results-dir", "./results", "Directory for results files")

	return cmd
}

func runRuns(ctx context.Context, limit int, status, resultsDir string) error {
	services, err := newServices(ctx, resultsDir)
	if err != nil {
		return err
	}
	defer services.close()

	// Without a database the run table is empty; list the results files
	// instead
	if os.Getenv("DATABASE_URL") == "" {
		manifests, err := services.store.ListManifests(ctx)
		if err != nil {
			return err
		}
		if len(manifests) == 0 {
			fmt.Printf("No results files under %s\n", resultsDir)
			return nil
		}

		t := format.NewTable(format.ASCII)
		t.Header("run id", "name", "models", "rows", "completed")
		for i, manifest := range manifests {
			if limit > 0 && i >= limit {
				break
			}
			t.Row(manifest.RunID, manifest.Name, strings.Join(manifest.ModelNames, ", "),
				format.FmtCount(manifest.RowCount), manifest.CompletedAt.Format("2006-01-02 15:04"))
		}
		fmt.Println(t.String())
		return nil
	}

	filters := ports.RunFilters{Limit: limit}
	if status != "" {
		if _, err := eval.ValidateStatus(status); err != nil {
			return err
		}
		filters.Status = &status
	}

	runs, err := services.runs.ListRuns(ctx, filters)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded")
		return nil
	}

	t := format.NewTable(format.ASCII)
	t.Header("run id", "name", "status", "rows", "created")
	for _, run := range runs {
		t.Row(run.ID, format.Truncate(run.Name, 40), run.Status,
			format.FmtCount(run.RowCount), run.CreatedAt.Format("2006-01-02 15:04"))
	}
	fmt.Println(t.String())
	return nil
}

func newSeedCmd() *cobra.Command {
	var out string
	var rows int
	var modelList string
	var bias float64
	var separation float64
	var seed int64

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Generate a synthetic scored dataset with a known fairness gap",
		Long: `Generate a deterministic synthetic dataset of labeled, scored examples.

The --bias flag degrades score quality for the 'female' slice, giving
fairness metrics something to find.

Example: model-analysis-cli seed --out demo.csv --rows 2000 --models baseline,candidate --bias 0.1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(out, rows, modelList, bias, separation, seed)
		},
	}

	cmd.Flags().StringVar(&out, "out", "demo_scored.csv", "Output CSV path")
	cmd.Flags().IntVar(&rows, "rows", 500, "Number of examples to generate")
	cmd.Flags().StringVar(&modelList, "models", "candidate", "Comma-separated model names")
	cmd.Flags().Float64Var(&bias, "bias", 0.08, "Score-quality degradation for the 'female' slice")
	cmd.Flags().Float64Var(&separation, "separation", 0.35, "Score separation between classes")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Random seed for deterministic generation")

	return cmd
}

func runSeed(out string, rows int, modelList string, bias, separation float64, seed int64) error {
	modelNames := strings.Split(modelList, ",")
	for i := range modelNames {
		modelNames[i] = strings.TrimSpace(modelNames[i])
	}

	generatorConfig := testkit.DefaultGeneratorConfig()
	generatorConfig.ExampleCount = rows
	generatorConfig.Models = modelNames
	generatorConfig.GroupBias = map[string]float64{"female": bias}
	generatorConfig.Separation = separation
	generatorConfig.Seed = seed

	generator := testkit.NewGenerator(generatorConfig)
	if err := generator.WriteCSV(out); err != nil {
		return err
	}

	fmt.Printf("Wrote %s examples to %s\n", format.FmtCount(rows), out)
	fmt.Printf("Columns: %s\n", strings.Join(generator.Columns(), ", "))
	return nil
}

func newInspectCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "inspect [input-file]",
		Short: "Profile a scored dataset's columns before evaluating it",
		Long: `Profile every column of a scored dataset: inferred kind, missing rate,
cardinality and distribution markers. With --config, the profiles are
checked against the evaluation config and mismatches are reported.

Example: model-analysis-cli inspect scored.csv --config eval.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd.Context(), args[0], configPath)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Evaluation config YAML to check the dataset against")

	return cmd
}

func runInspect(ctx context.Context, inputPath, configPath string) error {
	reader := excel.NewDataReader()
	if !reader.Supports(inputPath) {
		return fmt.Errorf("unsupported input %s (expected .csv or .xlsx)", inputPath)
	}

	rows, err := reader.ReadRows(ctx, inputPath)
	if err != nil {
		return err
	}

	profiles := profiling.NewProfiler().ProfileRows(rows.Columns, rows.Rows)

	fmt.Printf("%s: %s rows, %d columns\n\n", inputPath, format.FmtCount(len(rows.Rows)), len(rows.Columns))

	t := format.NewTable(format.ASCII)
	t.Header("column", "kind", "missing", "distinct", "summary")
	for _, profile := range profiles {
		t.Row(profile.Name, string(profile.Kind),
			fmt.Sprintf("%.1f%%", profile.MissingRate*100),
			profile.Distinct, profileSummary(profile))
	}
	t.Columns(format.ColumnConfig{Number: 5, MaxWidth: 60})
	fmt.Println(t.String())

	evalConfig := eval.DefaultConfig()
	if configPath != "" {
		loaded, err := eval.LoadConfig(configPath)
		if err != nil {
			return err
		}
		evalConfig = *loaded
	}

	warnings := profiling.CheckConfig(profiles, evalConfig)
	if len(warnings) == 0 {
		fmt.Println("\nDataset matches the evaluation config.")
		return nil
	}

	fmt.Printf("\n=== WARNINGS ===\n")
	for _, warning := range warnings {
		fmt.Printf("- %s\n", warning)
	}
	return nil
}

// profileSummary renders the one-line summary cell for a column
func profileSummary(profile profiling.ColumnProfile) string {
	if profile.Summary != nil {
		return fmt.Sprintf("mean %.3f, sd %.3f, range [%g, %g]",
			profile.Summary.Mean, profile.Summary.StdDev, profile.Summary.Min, profile.Summary.Max)
	}
	if len(profile.TopValues) == 0 {
		return ""
	}

	parts := make([]string, 0, len(profile.TopValues))
	for _, vc := range profile.TopValues {
		parts = append(parts, fmt.Sprintf("%s (%d)", vc.Value, vc.Count))
	}
	return strings.Join(parts, ", ")
}
