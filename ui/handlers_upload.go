package ui

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sarvex/model-analysis/adapters/excel"
	"github.com/sarvex/model-analysis/app"
	"github.com/sarvex/model-analysis/domain/eval"
)

// maxUploadBytes caps scored-example uploads at 64 MiB
const maxUploadBytes = 64 << 20

// exampleConfigYAML prefills the upload form with a two-model config
// matching the seed dataset's columns
const exampleConfigYAML = `label_column: label
models:
  - name: baseline
    is_baseline: true
  - name: candidate
metrics:
  thresholds: [0.5]
slicing:
  - feature_columns: [sex]
  - feature_columns: [age_group]
`

// handleUploadForm renders the upload page
func (a *App) handleUploadForm(w http.ResponseWriter, r *http.Request) {
	a.renderTemplate(w, "upload.html", UploadView{Example: exampleConfigYAML})
}

// handleUpload accepts a scored-example file plus an optional YAML
// config, runs the evaluation synchronously, and redirects to the run
func (a *App) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		a.renderUploadError(w, fmt.Sprintf("Upload too large or malformed: %v", err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		a.renderUploadError(w, "Choose a CSV or XLSX file to upload.")
		return
	}
	defer file.Close()

	if !excel.NewDataReader().Supports(header.Filename) {
		a.renderUploadError(w, fmt.Sprintf("Unsupported file type %q, expected .csv or .xlsx", filepath.Ext(header.Filename)))
		return
	}

	cfg, err := uploadConfig(r.FormValue("config"))
	if err != nil {
		a.renderUploadError(w, fmt.Sprintf("Config rejected: %v", err))
		return
	}

	inputPath, err := a.saveUpload(file, header.Filename)
	if err != nil {
		log.Printf("[handleUpload] Failed to store upload: %v", err)
		a.renderUploadError(w, "Failed to store the uploaded file.")
		return
	}

	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		name = strings.TrimSuffix(header.Filename, filepath.Ext(header.Filename))
	}

	outcome, err := a.evals.ExecuteRun(r.Context(), app.RunRequest{
		Name:      name,
		InputPath: inputPath,
		Config:    cfg,
	})
	if err != nil {
		evaluationsTotal.WithLabelValues("failed").Inc()
		a.renderUploadError(w, fmt.Sprintf("Evaluation failed: %v", err))
		return
	}
	evaluationsTotal.WithLabelValues("completed").Inc()

	http.Redirect(w, r, "/runs/"+outcome.RunID, http.StatusSeeOther)
}

// saveUpload copies the uploaded stream into the upload directory under
// a collision-free name
func (a *App) saveUpload(src io.Reader, filename string) (string, error) {
	if err := os.MkdirAll(a.uploadDir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	path := filepath.Join(a.uploadDir, fmt.Sprintf("%d_%s", time.Now().UnixNano(), filepath.Base(filename)))
	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// uploadConfig parses the optional YAML config field. An empty field
// evaluates with the single-model default config.
func uploadConfig(raw string) (eval.Config, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return eval.DefaultConfig(), nil
	}

	var cfg eval.Config
	if err := yaml.Unmarshal([]byte(raw), &cfg); err != nil {
		return eval.Config{}, err
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return eval.Config{}, err
	}
	return cfg, nil
}

func (a *App) renderUploadError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusBadRequest)
	a.renderTemplate(w, "upload.html", UploadView{Error: message, Example: exampleConfigYAML})
}
