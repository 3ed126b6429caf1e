// Package container wires configuration, database repositories and the
// evaluation services into one dependency graph shared by the entry
// points.
package container

import (
	"context"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"

	"github.com/sarvex/model-analysis/adapters/excel"
	"github.com/sarvex/model-analysis/adapters/postgres"
	"github.com/sarvex/model-analysis/adapters/results"
	"github.com/sarvex/model-analysis/app"
	"github.com/sarvex/model-analysis/internal/config"
	"github.com/sarvex/model-analysis/internal/events"
	"github.com/sarvex/model-analysis/ports"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config

	// Infrastructure
	DB *sqlx.DB

	// Repositories (data access layer)
	RunRepo          ports.RunRepository
	SliceMetricsRepo ports.SliceMetricsRepository
	ResultsStore     ports.ResultsStore

	// Evaluation components
	Reader       ports.RowReader
	Hub          *events.Hub
	EvalService  *app.EvalService
	TableService *app.TableService
}

// New creates a new dependency injection container
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	return &Container{Config: cfg}, nil
}

// InitWithDatabase initializes components that require database access
func (c *Container) InitWithDatabase(db *sqlx.DB) error {
	if db == nil {
		return fmt.Errorf("database connection cannot be nil")
	}
	c.DB = db

	if err := db.Ping(); err != nil {
		return fmt.Errorf("database connection test failed: %w", err)
	}

	c.initRepositories()
	c.initServices()

	log.Printf("Container initialized successfully with database connection")
	return nil
}

// initRepositories initializes data access repositories
func (c *Container) initRepositories() {
	c.RunRepo = postgres.NewRunRepository(c.DB)
	c.SliceMetricsRepo = postgres.NewSliceMetricsRepository(c.DB)
	c.ResultsStore = results.NewStore(c.Config.Paths.ResultsDir)
}

// initServices initializes the evaluation services
func (c *Container) initServices() {
	c.Reader = excel.NewDataReader()
	c.Hub = events.NewHub()
	c.EvalService = app.NewEvalService(
		c.Reader,
		c.RunRepo,
		c.SliceMetricsRepo,
		c.ResultsStore,
		c.Hub,
		c.Config.Eval.Parallelism,
		c.Config.Eval.ConfidenceLevel,
	)
	c.TableService = app.NewTableService(c.ResultsStore, c.SliceMetricsRepo, c.RunRepo)
}

// Shutdown gracefully shuts down all components
func (c *Container) Shutdown(ctx context.Context) error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
