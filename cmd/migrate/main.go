package main

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/sarvex/model-analysis/adapters/postgres"
	"github.com/sarvex/model-analysis/adapters/results"
	"github.com/sarvex/model-analysis/internal/migration"
)

// migrate brings the schema up to date and optionally imports results
// files into the database, so runs evaluated without a database become
// queryable.
func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: migrate <database_url> [results_dir]")
	}

	databaseURL := os.Args[1]
	resultsDir := ""
	if len(os.Args) > 2 {
		resultsDir = os.Args[2]
	}

	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := migration.NewRunner().Run(ctx, db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Printf("Schema is up to date")

	if resultsDir == "" {
		return
	}

	log.Printf("Importing results files from %s", resultsDir)
	imported, skipped := importResults(ctx, db, resultsDir)
	log.Printf("Import complete: %d imported, %d skipped", imported, skipped)
}

// importResults loads every results JSON under dir into eval_runs and
// slice_metrics. Imports upsert, so re-running is safe.
func importResults(ctx context.Context, db *sqlx.DB, dir string) (imported, skipped int) {
	files, err := findResultsFiles(dir)
	if err != nil {
		log.Fatalf("Failed to scan %s: %v", dir, err)
	}
	log.Printf("Found %d results files", len(files))

	store := results.NewStore(dir)
	runRepo := postgres.NewRunRepository(db)
	metricsRepo := postgres.NewSliceMetricsRepository(db)

	for _, path := range files {
		file, err := store.LoadResultsPath(ctx, path)
		if err != nil {
			log.Printf("Skipping %s: %v", filepath.Base(path), err)
			skipped++
			continue
		}

		if err := runRepo.SaveRun(ctx, file.RunRow()); err != nil {
			log.Printf("Failed to save run %s: %v", file.Manifest.RunID, err)
			skipped++
			continue
		}
		if err := metricsRepo.SaveSliceMetrics(ctx, file.SliceRows()); err != nil {
			log.Printf("Failed to save slice metrics for %s: %v", file.Manifest.RunID, err)
			skipped++
			continue
		}

		imported++
		log.Printf("Imported run %s (%s)", file.Manifest.RunID, filepath.Base(path))
	}
	return imported, skipped
}

func findResultsFiles(dir string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && strings.HasSuffix(path, ".json") {
			files = append(files, path)
		}
		return nil
	})

	return files, err
}
