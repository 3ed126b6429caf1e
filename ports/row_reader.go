package ports

import "context"

// RowSet is tabular example data read from a source file
type RowSet struct {
	Columns    []string
	Rows       []map[string]string
	SourcePath string
}

// RowReader reads tabular example data for evaluation. Implementations
// exist for CSV and XLSX sources.
type RowReader interface {
	// ReadRows reads all rows of a file. The first row is the header.
	ReadRows(ctx context.Context, path string) (*RowSet, error)

	// Supports reports whether the reader handles the file's extension
	Supports(path string) bool
}
