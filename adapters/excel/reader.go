// Package excel reads example data from CSV and XLSX files and writes
// display tables back out to both formats.
package excel

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/sarvex/model-analysis/ports"
)

// DataReader handles reading Excel and CSV example files
type DataReader struct{}

// NewDataReader creates a reader that handles both Excel and CSV files
func NewDataReader() *DataReader {
	return &DataReader{}
}

func fileTypeFor(path string) string {
	if strings.ToLower(filepath.Ext(path)) == ".csv" {
		return "csv"
	}
	return "xlsx"
}

// Supports reports whether the path looks like a readable data file
func (r *DataReader) Supports(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".xlsx":
		return true
	}
	return false
}

// ReadRows reads all rows of a CSV or XLSX file. The first row is the
// header; cells are trimmed.
func (r *DataReader) ReadRows(ctx context.Context, path string) (*ports.RowSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fileType := fileTypeFor(path)
	log.Printf("[DataReader] Reading %s file: %s", fileType, path)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s file not found: %s", strings.ToUpper(fileType), path)
	}

	var rows [][]string
	var err error
	switch fileType {
	case "csv":
		rows, err = readCSVRows(path)
	default:
		rows, err = readExcelRows(path)
	}
	if err != nil {
		return nil, err
	}

	if len(rows) < 2 {
		return nil, fmt.Errorf("%s file must have at least a header row and one data row", strings.ToUpper(fileType))
	}
	return processRows(path, rows), nil
}

func readCSVRows(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	// default FieldsPerRecord rejects rows whose width differs from the header
	reader := csv.NewReader(file)
	rows, err := reader.ReadAll()
	if err != nil {
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			return nil, fmt.Errorf("CSV row %d: %w", parseErr.Line, parseErr.Err)
		}
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	return rows, nil
}

func readExcelRows(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	return rows, nil
}

func processRows(path string, rows [][]string) *ports.RowSet {
	headerRow := rows[0]
	columns := make([]string, len(headerRow))
	for i, header := range headerRow {
		columns[i] = strings.TrimSpace(header)
	}

	dataRows := make([]map[string]string, 0, len(rows)-1)
	for i := 1; i < len(rows); i++ {
		row := make(map[string]string, len(columns))
		for j, cell := range rows[i] {
			if j < len(columns) {
				row[columns[j]] = strings.TrimSpace(cell)
			}
		}
		dataRows = append(dataRows, row)
	}

	log.Printf("[DataReader] Processed %s (%d columns, %d rows)",
		filepath.Base(path), len(columns), len(dataRows))

	return &ports.RowSet{
		Columns:    columns,
		Rows:       dataRows,
		SourcePath: path,
	}
}

// MissingColumns returns the required columns absent from the row set
func MissingColumns(rs *ports.RowSet, required []string) []string {
	present := make(map[string]bool, len(rs.Columns))
	for _, column := range rs.Columns {
		present[column] = true
	}

	var missing []string
	for _, column := range required {
		if !present[column] {
			missing = append(missing, column)
		}
	}
	return missing
}

// ValidateColumns checks that every required column is present
func ValidateColumns(rs *ports.RowSet, required []string) error {
	if missing := MissingColumns(rs, required); len(missing) > 0 {
		return fmt.Errorf("input %s missing required columns: %s",
			filepath.Base(rs.SourcePath), strings.Join(missing, ", "))
	}
	return nil
}
