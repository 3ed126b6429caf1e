package excel

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	modeltable "github.com/sarvex/model-analysis/internal/table"
)

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp csv: %v", err)
	}
	return path
}

func TestDataReader_ReadCSV(t *testing.T) {
	path := writeTempCSV(t, "id, sex ,label,score\n1,male,1, 0.9 \n2,female,0,0.2\n")

	rs, err := NewDataReader().ReadRows(context.Background(), path)
	if err != nil {
		t.Fatalf("ReadRows: %v", err)
	}

	wantColumns := []string{"id", "sex", "label", "score"}
	if len(rs.Columns) != len(wantColumns) {
		t.Fatalf("columns = %v, want %v", rs.Columns, wantColumns)
	}
	for i, want := range wantColumns {
		if rs.Columns[i] != want {
			t.Errorf("column[%d] = %q, want %q (cells should be trimmed)", i, rs.Columns[i], want)
		}
	}

	if len(rs.Rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rs.Rows))
	}
	if rs.Rows[0]["score"] != "0.9" {
		t.Errorf("score = %q, want trimmed 0.9", rs.Rows[0]["score"])
	}
	if rs.Rows[1]["sex"] != "female" {
		t.Errorf("sex = %q, want female", rs.Rows[1]["sex"])
	}
	if rs.SourcePath != path {
		t.Errorf("SourcePath = %q, want %q", rs.SourcePath, path)
	}
}

func TestDataReader_HeaderOnly(t *testing.T) {
	path := writeTempCSV(t, "id,label,score\n")

	_, err := NewDataReader().ReadRows(context.Background(), path)
	if err == nil {
		t.Fatal("expected error for header-only file")
	}
	if !strings.Contains(err.Error(), "header row and one data row") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestDataReader_RaggedCSV(t *testing.T) {
	path := writeTempCSV(t, "id,label,score\n1,1,0.9\n2,0\n")

	_, err := NewDataReader().ReadRows(context.Background(), path)
	if err == nil {
		t.Fatal("expected error for ragged row")
	}
	if !strings.Contains(err.Error(), "row 3") {
		t.Errorf("error should name the offending row, got %v", err)
	}
}

func TestDataReader_FileNotFound(t *testing.T) {
	_, err := NewDataReader().ReadRows(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestDataReader_Supports(t *testing.T) {
	r := NewDataReader()
	for _, path := range []string{"a.csv", "b.XLSX", "c.xlsx"} {
		if !r.Supports(path) {
			t.Errorf("Supports(%q) = false, want true", path)
		}
	}
	for _, path := range []string{"a.txt", "b.json", "c"} {
		if r.Supports(path) {
			t.Errorf("Supports(%q) = true, want false", path)
		}
	}
}

func TestValidateColumns(t *testing.T) {
	path := writeTempCSV(t, "id,label,score\n1,1,0.9\n")
	rs, err := NewDataReader().ReadRows(context.Background(), path)
	if err != nil {
		t.Fatalf("ReadRows: %v", err)
	}

	if err := ValidateColumns(rs, []string{"label", "score"}); err != nil {
		t.Errorf("all columns present, got error: %v", err)
	}

	err = ValidateColumns(rs, []string{"label", "score_candidate", "sex"})
	if err == nil {
		t.Fatal("expected error for missing columns")
	}
	if !strings.Contains(err.Error(), "score_candidate") || !strings.Contains(err.Error(), "sex") {
		t.Errorf("error should name missing columns, got %v", err)
	}
}

func displayTable() *modeltable.Table {
	return &modeltable.Table{
		Headers: []string{"feature", "auc", "loss"},
		Rows: [][]modeltable.Cell{
			{
				{Text: "Overall", Kind: modeltable.CellSlice},
				{Text: "0.61 (0.6, 0.62)", Kind: modeltable.CellValue},
				{Text: "0.32", Kind: modeltable.CellValue},
			},
			{
				{Text: "sex:male", Kind: modeltable.CellSlice},
				{Text: "0.64 (0.63, 0.65)", Kind: modeltable.CellValue},
				{Text: "NaN", Kind: modeltable.CellValue},
			},
		},
	}
}

func TestWriteTableXLSXRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.xlsx")
	if err := WriteTableXLSX(path, displayTable()); err != nil {
		t.Fatalf("WriteTableXLSX: %v", err)
	}

	rs, err := NewDataReader().ReadRows(context.Background(), path)
	if err != nil {
		t.Fatalf("ReadRows on written workbook: %v", err)
	}

	if len(rs.Columns) != 3 || rs.Columns[0] != "feature" {
		t.Errorf("columns = %v, want [feature auc loss]", rs.Columns)
	}
	if len(rs.Rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rs.Rows))
	}
	if rs.Rows[0]["auc"] != "0.61 (0.6, 0.62)" {
		t.Errorf("auc cell = %q", rs.Rows[0]["auc"])
	}
	if rs.Rows[1]["loss"] != "NaN" {
		t.Errorf("loss cell = %q, want NaN", rs.Rows[1]["loss"])
	}
}

func TestWriteTableCSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.csv")
	if err := WriteTableCSV(path, displayTable()); err != nil {
		t.Fatalf("WriteTableCSV: %v", err)
	}

	rs, err := NewDataReader().ReadRows(context.Background(), path)
	if err != nil {
		t.Fatalf("ReadRows on written csv: %v", err)
	}
	if len(rs.Rows) != 2 || rs.Rows[1]["feature"] != "sex:male" {
		t.Errorf("round trip lost rows: %+v", rs.Rows)
	}
}
