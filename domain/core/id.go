package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	// Use UUID v7 for time-ordered, sortable IDs
	// Falls back to v4 if v7 is not available (for compatibility)
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to v4 if v7 fails
		id = uuid.New()
	}
	return ID(id.String())
}

// ParseID parses a string into an ID, requiring a valid UUID
func ParseID(s string) (ID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("ID cannot be empty")
	}
	if _, err := uuid.Parse(s); err != nil {
		return "", fmt.Errorf("ID must be a UUID: %w", err)
	}
	return ID(s), nil
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	RunID      ID
	DatasetID  ID
	ArtifactID ID
)

// String conversions for domain IDs
func (id RunID) String() string      { return ID(id).String() }
func (id DatasetID) String() string  { return ID(id).String() }
func (id ArtifactID) String() string { return ID(id).String() }

// NewRunID creates a new run identifier
func NewRunID() RunID { return RunID(NewID()) }

// NewDatasetID creates a new dataset identifier
func NewDatasetID() DatasetID { return DatasetID(NewID()) }

// NewArtifactID creates a new artifact identifier
func NewArtifactID() ArtifactID { return ArtifactID(NewID()) }

// ParseRunID parses a string into RunID
func ParseRunID(s string) (RunID, error) {
	id, err := ParseID(s)
	if err != nil {
		return "", fmt.Errorf("run %w", err)
	}
	return RunID(id), nil
}

// ParseDatasetID parses a string into DatasetID
func ParseDatasetID(s string) (DatasetID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("dataset ID cannot be empty")
	}
	return DatasetID(s), nil
}

// ParseArtifactID parses a string into ArtifactID
func ParseArtifactID(s string) (ArtifactID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("artifact ID cannot be empty")
	}
	return ArtifactID(s), nil
}

// Artifact represents any output of the system
type Artifact struct {
	ID        ID           `json:"id"`
	Kind      ArtifactKind `json:"kind"`
	Payload   interface{}  `json:"payload"`
	CreatedAt Timestamp    `json:"created_at"`
}

// ArtifactKind defines types of artifacts
type ArtifactKind string

const (
	// ArtifactRunManifest captures audit metadata for an evaluation run
	// (config fingerprint, dataset hash, row counts).
	ArtifactRunManifest ArtifactKind = "run_manifest"
	// ArtifactSliceMetrics is the per-slice metric set for one model in one run.
	ArtifactSliceMetrics ArtifactKind = "slice_metrics"
	// ArtifactRenderedTable records an exported display table (xlsx, csv, text).
	ArtifactRenderedTable ArtifactKind = "rendered_table"
	// ArtifactNarrative is a generated findings summary for a run.
	ArtifactNarrative ArtifactKind = "narrative"
)
