package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sarvex/model-analysis/app"
	"github.com/sarvex/model-analysis/domain/core"
	"github.com/sarvex/model-analysis/domain/eval"
	"github.com/sarvex/model-analysis/models"
	"github.com/sarvex/model-analysis/ports"
)

// handleCreateRun executes an evaluation run. The body is either JSON
// naming a server-side input path, or a multipart upload with a "file"
// part and an optional JSON "config" field. The default is synchronous;
// async=true validates the config, answers immediately with the run ID and
// evaluates in the background, with progress on the event stream.
func (s *Server) handleCreateRun(c *gin.Context) {
	var runReq app.RunRequest
	if c.ContentType() == "multipart/form-data" {
		uploaded, ok := s.uploadRunRequest(c)
		if !ok {
			return
		}
		runReq = uploaded
	} else {
		var req CreateRunRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}
		if req.InputPath == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "input_path is required"})
			return
		}
		runReq = app.RunRequest{
			Name:      req.Name,
			InputPath: req.InputPath,
			Config:    req.Config,
		}
	}

	if c.Query("async") == "true" {
		cfg := runReq.Config
		cfg.Normalize()
		if err := cfg.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		runReq.RunID = core.NewID().String()
		go func() {
			if _, err := s.evals.ExecuteRun(context.Background(), runReq); err != nil {
				log.Printf("[API] Background run %s failed: %v", runReq.RunID, err)
			}
		}()
		c.JSON(http.StatusAccepted, gin.H{"run_id": runReq.RunID, "status": models.StatusPending})
		return
	}

	outcome, err := s.evals.ExecuteRun(c.Request.Context(), runReq)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, outcome)
}

// uploadRunRequest stores a multipart upload and builds the run request.
// A missing config field falls back to the default single-model config.
func (s *Server) uploadRunRequest(c *gin.Context) (app.RunRequest, bool) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file field required: " + err.Error()})
		return app.RunRequest{}, false
	}

	cfg := eval.DefaultConfig()
	if raw := c.PostForm("config"); raw != "" {
		cfg = eval.Config{}
		if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid config field: " + err.Error()})
			return app.RunRequest{}, false
		}
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	dest := filepath.Join(s.uploadDir, core.NewID().String()+ext)
	if err := c.SaveUploadedFile(fileHeader, dest); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store upload: " + err.Error()})
		return app.RunRequest{}, false
	}
	log.Printf("[API] Stored upload %s as %s", fileHeader.Filename, dest)

	name := c.PostForm("name")
	if name == "" {
		name = fileHeader.Filename
	}
	return app.RunRequest{Name: name, InputPath: dest, Config: cfg}, true
}

// handleListRuns returns stored runs, newest first
func (s *Server) handleListRuns(c *gin.Context) {
	filters := ports.RunFilters{Limit: 50}
	if status := c.Query("status"); status != "" {
		if _, err := eval.ValidateStatus(status); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		filters.Status = &status
	}
	if limit := c.Query("limit"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil && n > 0 {
			filters.Limit = n
		}
	}
	if offset := c.Query("offset"); offset != "" {
		if n, err := strconv.Atoi(offset); err == nil && n >= 0 {
			filters.Offset = n
		}
	}

	rows, err := s.evals.ListRuns(c.Request.Context(), filters)
	if err != nil {
		s.respondError(c, err)
		return
	}

	summaries := make([]RunSummary, len(rows))
	for i := range rows {
		summaries[i] = toRunSummary(&rows[i])
	}
	c.JSON(http.StatusOK, gin.H{"runs": summaries, "count": len(summaries)})
}

// handleGetRun returns one run row
func (s *Server) handleGetRun(c *gin.Context) {
	row, err := s.evals.GetRun(c.Request.Context(), c.Param("runId"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRunSummary(row))
}

// handleDeleteRun removes a run, its slice metrics and its results file
func (s *Server) handleDeleteRun(c *gin.Context) {
	runID := c.Param("runId")
	if err := s.evals.DeleteRun(c.Request.Context(), runID); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": runID})
}

// handleGetResults returns the full results artifact of a run
func (s *Server) handleGetResults(c *gin.Context) {
	file, err := s.tables.LoadResults(c.Request.Context(), c.Param("runId"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, file)
}
