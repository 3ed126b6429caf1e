// Package results persists portable results files as JSON under a
// directory. It backs the render and compare paths that run without a
// database.
package results

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sarvex/model-analysis/domain/core"
	"github.com/sarvex/model-analysis/models"
	"github.com/sarvex/model-analysis/ports"
)

// Store is a directory-backed results store. One file per run, named by
// run ID.
type Store struct {
	dir string
}

// NewStore creates a results store rooted at dir
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) pathFor(runID string) string {
	return filepath.Join(s.dir, runID+".json")
}

// WriteResults writes a results file and returns its path
func (s *Store) WriteResults(ctx context.Context, file *models.ResultsFile) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if file.Manifest.RunID == "" {
		return "", fmt.Errorf("results file missing run ID")
	}
	if err := file.Validate(); err != nil {
		return "", fmt.Errorf("refusing to write invalid results: %w", err)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create results dir %s: %w", s.dir, err)
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode results: %w", err)
	}

	path := s.pathFor(file.Manifest.RunID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write results %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("finalize results %s: %w", path, err)
	}

	log.Printf("[ResultsStore] Wrote results for run %s (%d bytes)", file.Manifest.RunID, len(data))
	return path, nil
}

// LoadResults loads the results file of a run by run ID
func (s *Store) LoadResults(ctx context.Context, runID string) (*models.ResultsFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := s.LoadResultsPath(ctx, s.pathFor(runID))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", core.ErrRunNotFound, runID)
	}
	return file, err
}

// LoadResultsPath loads and validates a results file from an explicit
// path
func (s *Store) LoadResultsPath(ctx context.Context, path string) (*models.ResultsFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file models.ResultsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse results %s: %w", path, err)
	}
	if err := file.Validate(); err != nil {
		return nil, fmt.Errorf("results %s: %w", path, err)
	}
	return &file, nil
}

// ListManifests returns the manifests of all stored results, newest
// completed first. Unreadable files are skipped with a warning.
func (s *Store) ListManifests(ctx context.Context) ([]models.RunManifest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read results dir %s: %w", s.dir, err)
	}

	var manifests []models.RunManifest
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		file, err := s.LoadResultsPath(ctx, path)
		if err != nil {
			log.Printf("[ResultsStore] Skipping unreadable results file %s: %v", entry.Name(), err)
			continue
		}
		manifests = append(manifests, file.Manifest)
	}

	sort.Slice(manifests, func(i, j int) bool {
		return manifests[i].CompletedAt.After(manifests[j].CompletedAt)
	})
	return manifests, nil
}

// DeleteResults removes a run's results file. Runs that never wrote one
// delete cleanly.
func (s *Store) DeleteResults(ctx context.Context, runID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := os.Remove(s.pathFor(runID))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete results for run %s: %w", runID, err)
	}
	log.Printf("[ResultsStore] Deleted results for run %s", runID)
	return nil
}

// Ensure Store implements ResultsStore
var _ ports.ResultsStore = (*Store)(nil)
