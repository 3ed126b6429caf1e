// Package ui serves the fairness dashboard: recent runs, per-slice
// metric tables, model and run comparisons, findings and uploads.
package ui

import (
	"embed"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sarvex/model-analysis/app"
	"github.com/sarvex/model-analysis/internal/events"
	"github.com/sarvex/model-analysis/ports"
)

//go:embed templates/* static/*
var embeddedFiles embed.FS

// App represents the dashboard application
type App struct {
	router    *chi.Mux
	evals     *app.EvalService
	tables    *app.TableService
	store     ports.ResultsStore
	hub       *events.Hub
	templates *template.Template
	uploadDir string
}

// Config holds dashboard configuration
type Config struct {
	Port      string
	UploadDir string
}

// NewApp creates the dashboard application
func NewApp(config Config, evals *app.EvalService, tables *app.TableService, store ports.ResultsStore, hub *events.Hub) (*App, error) {
	funcMap := template.FuncMap{
		"add": func(a, b int) int { return a + b },
		"until": func(n int) []int {
			res := make([]int, n)
			for i := range res {
				res[i] = i
			}
			return res
		},
		"pct": func(v float64) string {
			return fmt.Sprintf("%.1f%%", v*100)
		},
		"fmtTime": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("2006-01-02 15:04")
		},
	}

	templates, err := template.New("").Funcs(funcMap).ParseFS(embeddedFiles, "templates/*.html", "templates/fragments/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	uploadDir := config.UploadDir
	if uploadDir == "" {
		uploadDir = os.TempDir()
	}

	application := &App{
		router:    chi.NewRouter(),
		evals:     evals,
		tables:    tables,
		store:     store,
		hub:       hub,
		templates: templates,
		uploadDir: uploadDir,
	}

	application.setupMiddleware()
	application.setupRoutes()

	return application, nil
}

// setupMiddleware configures HTTP middleware
func (a *App) setupMiddleware() {
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Compress(5))
	a.router.Use(countRequests)

	// Serve static files
	staticFS := http.FileServer(http.FS(embeddedFiles))
	a.router.Handle("/static/*", staticFS)
}

// setupRoutes configures the application routes
func (a *App) setupRoutes() {
	// Pages
	a.router.Get("/", a.handleIndex)
	a.router.Get("/runs/{runID}", a.handleRunDetail)
	a.router.Get("/compare", a.handleCompare)
	a.router.Get("/upload", a.handleUploadForm)

	// Actions
	a.router.Post("/upload", a.handleUpload)
	a.router.Post("/runs/{runID}/delete", a.handleRunDelete)

	// HTMX fragment endpoints
	a.router.Get("/fragments/runs/{runID}/table", a.handleTableFragment)

	// Run progress stream
	a.router.Get("/events", a.handleEvents)

	// Observability
	a.router.Handle("/metrics", promhttp.Handler())
}

// Router exposes the mux for embedding and tests
func (a *App) Router() *chi.Mux {
	return a.router
}

// Start starts the HTTP server
func (a *App) Start(addr string) error {
	log.Printf("Starting dashboard on http://%s", addr)
	return http.ListenAndServe(addr, a.router)
}

// Template helpers
func (a *App) renderTemplate(w http.ResponseWriter, templateName string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := a.templates.ExecuteTemplate(w, templateName, data); err != nil {
		log.Printf("Template error: %v", err)
		http.Error(w, "Template error", http.StatusInternalServerError)
	}
}

func (a *App) renderPartial(w http.ResponseWriter, templateName string, data interface{}) {
	a.renderTemplate(w, templateName, data)
}

// HTMX helpers
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
