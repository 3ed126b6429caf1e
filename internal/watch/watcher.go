// Package watch triggers evaluations for scored datasets dropped into a
// directory, bypassing the upload form.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/sarvex/model-analysis/app"
	"github.com/sarvex/model-analysis/domain/eval"
	"github.com/sarvex/model-analysis/internal"
	"github.com/sarvex/model-analysis/internal/errors"
)

// Config holds the watcher settings
type Config struct {
	Dir      string
	Debounce time.Duration
}

// Evaluator is the slice of the evaluation service the watcher needs
type Evaluator interface {
	ExecuteRun(ctx context.Context, req app.RunRequest) (*app.RunOutcome, error)
}

// Watcher turns files appearing in a drop directory into evaluation runs.
// Writes are debounced per path so a file still being copied is not
// evaluated half-written.
type Watcher struct {
	config Config
	fs     *fsnotify.Watcher
	evals  Evaluator
	logger *internal.Logger

	mu      sync.Mutex
	pending map[string]time.Time // path -> last write seen
}

// New creates a watcher over config.Dir, creating the directory if needed
func New(config Config, evals Evaluator) (*Watcher, error) {
	if config.Dir == "" {
		return nil, errors.ValidationError("watch directory cannot be empty")
	}
	if config.Debounce <= 0 {
		config.Debounce = 2 * time.Second
	}

	if err := os.MkdirAll(config.Dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create watch directory")
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create file watcher")
	}
	if err := fs.Add(config.Dir); err != nil {
		fs.Close()
		return nil, errors.Wrap(err, "watch directory")
	}

	return &Watcher{
		config:  config,
		fs:      fs,
		evals:   evals,
		logger:  internal.NewDefaultLogger().Component("Watcher"),
		pending: make(map[string]time.Time),
	}, nil
}

// Run processes events until the context is cancelled
func (w *Watcher) Run(ctx context.Context) {
	defer w.fs.Close()

	// Pick up files that were already sitting in the directory
	w.scanExisting()

	ticker := time.NewTicker(w.config.Debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			w.track(event.Name)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("File event error: %v", err)

		case now := <-ticker.C:
			for _, path := range w.takeStable(now) {
				w.evaluate(ctx, path)
			}
		}
	}
}

// scanExisting queues datasets already present at startup
func (w *Watcher) scanExisting() {
	entries, err := os.ReadDir(w.config.Dir)
	if err != nil {
		w.logger.Warn("Scan of %s failed: %v", w.config.Dir, err)
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		w.track(filepath.Join(w.config.Dir, entry.Name()))
	}
}

// track records a write against a dataset path
func (w *Watcher) track(path string) {
	if !supportedDataset(path) {
		return
	}
	w.mu.Lock()
	w.pending[path] = time.Now()
	w.mu.Unlock()
}

// takeStable removes and returns paths whose last write is older than the
// debounce window
func (w *Watcher) takeStable(now time.Time) []string {
	threshold := now.Add(-w.config.Debounce)

	w.mu.Lock()
	defer w.mu.Unlock()

	var stable []string
	for path, lastWrite := range w.pending {
		if lastWrite.Before(threshold) {
			stable = append(stable, path)
			delete(w.pending, path)
		}
	}
	return stable
}

// evaluate runs a full evaluation for one dropped dataset. A sidecar
// "<dataset>.yaml" provides the evaluation config; without one, the
// default single-model config applies.
func (w *Watcher) evaluate(ctx context.Context, path string) {
	config := eval.DefaultConfig()
	sidecar := path + ".yaml"
	if _, err := os.Stat(sidecar); err == nil {
		loaded, err := eval.LoadConfig(sidecar)
		if err != nil {
			w.logger.Warn("Skipping %s: sidecar config invalid: %v", path, err)
			return
		}
		config = *loaded
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	outcome, err := w.evals.ExecuteRun(ctx, app.RunRequest{
		RunID:     uuid.NewString(),
		Name:      name,
		InputPath: path,
		Config:    config,
	})
	if err != nil {
		w.logger.Error("Evaluation of %s failed: %v", path, err)
		return
	}
	w.logger.Info("Evaluated %s as run %s", path, outcome.RunID)
}

// supportedDataset reports whether the path names a scored dataset the
// reader can load
func supportedDataset(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".xlsx":
		return true
	}
	return false
}
