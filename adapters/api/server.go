// Package api exposes evaluation runs, display tables and findings
// reports over a JSON HTTP surface, plus an SSE stream of run progress.
package api

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sarvex/model-analysis/app"
	"github.com/sarvex/model-analysis/domain/core"
	"github.com/sarvex/model-analysis/internal/events"
)

// Server wires the evaluation services into a gin router
type Server struct {
	router    *gin.Engine
	evals     *app.EvalService
	tables    *app.TableService
	hub       *events.Hub
	uploadDir string
	startTime time.Time
}

// NewServer creates the API server and registers its routes. Uploaded
// input files land in uploadDir, the system temp dir when empty.
func NewServer(evals *app.EvalService, tables *app.TableService, hub *events.Hub, uploadDir string) *Server {
	if uploadDir == "" {
		uploadDir = os.TempDir()
	}
	s := &Server{
		router:    gin.Default(),
		evals:     evals,
		tables:    tables,
		hub:       hub,
		uploadDir: uploadDir,
		startTime: time.Now(),
	}
	s.setupRoutes()
	return s
}

// Router exposes the underlying engine for embedding and tests
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start runs the HTTP server
func (s *Server) Start(addr string) error {
	log.Printf("[API] Listening on http://%s", addr)
	return s.router.Run(addr)
}

// setupRoutes configures the application routes
func (s *Server) setupRoutes() {
	v1 := s.router.Group("/api/v1")

	v1.GET("/healthz", s.handleHealth)

	v1.POST("/runs", s.handleCreateRun)
	v1.GET("/runs", s.handleListRuns)
	v1.GET("/runs/:runId", s.handleGetRun)
	v1.DELETE("/runs/:runId", s.handleDeleteRun)
	v1.GET("/runs/:runId/results", s.handleGetResults)
	v1.GET("/runs/:runId/table", s.handleRunTable)
	v1.GET("/runs/:runId/comparison", s.handleModelComparison)
	v1.GET("/runs/:runId/findings", s.handleFindings)

	v1.GET("/comparison", s.handleRunComparison)
	v1.GET("/events", s.handleStream)
}

// handleHealth reports process liveness
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"uptime_ms":      time.Since(s.startTime).Milliseconds(),
		"active_streams": len(s.hub.ActiveRuns()),
	})
}

// respondError maps domain errors onto HTTP status codes
func (s *Server) respondError(c *gin.Context, err error) {
	switch {
	case core.IsNotFoundError(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case core.IsValidationError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Printf("[API] Internal error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
