package main

import (
	"context"
	"log"
	"net/http"
	_ "net/http/pprof"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/sarvex/model-analysis/internal/config"
	"github.com/sarvex/model-analysis/internal/container"
	"github.com/sarvex/model-analysis/internal/errors"
	"github.com/sarvex/model-analysis/internal/migration"
	"github.com/sarvex/model-analysis/internal/testkit"
	"github.com/sarvex/model-analysis/internal/watch"
	"github.com/sarvex/model-analysis/ports"
	"github.com/sarvex/model-analysis/ui"
)

// initDatabase initializes the PostgreSQL database connection
func initDatabase(appConfig *config.Config) (*sqlx.DB, error) {
	if appConfig.Database.URL == "" {
		return nil, errors.ConfigInvalid("DATABASE_URL is required")
	}

	db, err := sqlx.Connect("postgres", appConfig.Database.URL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping database")
	}

	// Run migrations
	migrator := migration.NewRunner()
	if err := migrator.Run(context.Background(), db); err != nil {
		return nil, errors.Wrap(err, "database migration failed")
	}

	return db, nil
}

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Load application configuration
	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database
	db, err := initDatabase(appConfig)
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer db.Close()

	// Create dependency injection container
	appContainer, err := container.New(appConfig)
	if err != nil {
		log.Fatalf("Failed to create application container: %v", err)
	}
	defer appContainer.Shutdown(context.Background())

	// Initialize container with database
	if err := appContainer.InitWithDatabase(db); err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}

	// Seed a demo evaluation on a fresh database so the dashboard has
	// something to show
	seedDemoIfEmpty(appContainer)

	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Watch a drop directory for scored datasets delivered out-of-band
	if appConfig.Watch.Enabled {
		watcher, err := watch.New(watch.Config{
			Dir:      appConfig.Watch.Dir,
			Debounce: appConfig.Watch.Debounce,
		}, appContainer.EvalService)
		if err != nil {
			log.Fatalf("Failed to start directory watcher: %v", err)
		}
		go watcher.Run(rootCtx)
		log.Printf("Watching %s for new scored datasets", appConfig.Watch.Dir)
	}

	// Start pprof server for performance profiling
	if appConfig.Profiling.Enabled {
		go func() {
			log.Printf("Profiling server starting on :%s", appConfig.Profiling.Port)
			if err := http.ListenAndServe(":"+appConfig.Profiling.Port, nil); err != nil {
				log.Printf("pprof server failed: %v", err)
			}
		}()
	}

	// Initialize the dashboard
	dashboard, err := ui.NewApp(ui.Config{
		Port:      appConfig.Server.Port,
		UploadDir: appConfig.Paths.UploadDir,
	}, appContainer.EvalService, appContainer.TableService, appContainer.ResultsStore, appContainer.Hub)
	if err != nil {
		log.Fatalf("Failed to initialize dashboard: %v", err)
	}

	log.Printf("Starting model-analysis dashboard on port %s", appConfig.Server.Port)
	log.Fatal(dashboard.Start(":" + appConfig.Server.Port))
}

// seedDemoIfEmpty evaluates a synthetic two-model dataset when the runs
// table is empty. Failures only log: a dashboard without demo data still
// works.
func seedDemoIfEmpty(appContainer *container.Container) {
	ctx := context.Background()
	runs, err := appContainer.EvalService.ListRuns(ctx, ports.RunFilters{Limit: 1})
	if err != nil {
		log.Printf("Demo seed skipped, run listing failed: %v", err)
		return
	}
	if len(runs) > 0 {
		return
	}

	runID, err := testkit.SeedDemoRun(ctx, appContainer.EvalService, appContainer.Config.Paths.UploadDir)
	if err != nil {
		log.Printf("Demo seed failed: %v", err)
		return
	}
	log.Printf("Seeded demo evaluation run %s", runID)
}
