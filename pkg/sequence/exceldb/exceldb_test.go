package exceldb

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/astro-panda/queryable/pkg/fields"
	"github.com/astro-panda/queryable/pkg/sequence"
)

// createTestWorkbook writes a small players sheet with a blank cell
// pair on the last row.
func createTestWorkbook(t *testing.T) string {
	t.Helper()

	f := excelize.NewFile()
	f.SetCellValue("Sheet1", "A1", "id")
	f.SetCellValue("Sheet1", "B1", "name")
	f.SetCellValue("Sheet1", "C1", "score")
	f.SetCellValue("Sheet1", "A2", 1)
	f.SetCellValue("Sheet1", "B2", "alice")
	f.SetCellValue("Sheet1", "C2", 30)
	f.SetCellValue("Sheet1", "A3", 2)
	f.SetCellValue("Sheet1", "B3", "bob")
	f.SetCellValue("Sheet1", "C3", 10)
	f.SetCellValue("Sheet1", "A4", 3)
	f.SetCellValue("Sheet1", "B4", "carol")
	f.SetCellValue("Sheet1", "C4", 20)
	f.SetCellValue("Sheet1", "A5", 4)

	path := filepath.Join(t.TempDir(), "players.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close workbook: %v", err)
	}
	return path
}

func TestOpenInfersColumns(t *testing.T) {
	src, err := Open(&Config{Path: createTestWorkbook(t)})
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	if src.Sheet() != "Sheet1" {
		t.Errorf("sheet = %s", src.Sheet())
	}

	cols := src.Columns()
	if len(cols) != 3 {
		t.Fatalf("expected 3 columns, got %d", len(cols))
	}
	if cols[0].Name != "id" || cols[0].Kind != fields.KindInt {
		t.Errorf("id column = %+v", cols[0])
	}
	if cols[1].Name != "name" || cols[1].Kind != fields.KindString {
		t.Errorf("name column = %+v", cols[1])
	}
	if cols[2].Name != "score" || cols[2].Kind != fields.KindInt {
		t.Errorf("score column = %+v", cols[2])
	}
	if src.Len() != 4 {
		t.Errorf("rows = %d", src.Len())
	}
}

// An evenly split column must sniff the same kind on every load; the
// vote walks a fixed kind order and a tie resolves to the more
// specific kind.
func TestInferColumnsTieIsDeterministic(t *testing.T) {
	headers := []string{"mixed"}
	data := [][]string{{"1"}, {"alice"}, {"2"}, {"bob"}}

	for i := 0; i < 50; i++ {
		cols := inferColumns(headers, data)
		if cols[0].Kind != fields.KindInt {
			t.Fatalf("run %d: kind = %s, want int", i, cols[0].Kind)
		}
	}
}

func TestOpenParsesCells(t *testing.T) {
	src, err := Open(&Config{Path: createTestWorkbook(t)})
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	rows, err := src.Rows().Materialize(context.Background())
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(rows))
	}

	if id, ok := rows[0]["id"].(int64); !ok || id != 1 {
		t.Errorf("id = %v (%T)", rows[0]["id"], rows[0]["id"])
	}
	if rows[0]["name"] != "alice" {
		t.Errorf("name = %v", rows[0]["name"])
	}

	// Blank cells on the short last row come back nil.
	if rows[3]["name"] != nil || rows[3]["score"] != nil {
		t.Errorf("blank cells = %v, %v", rows[3]["name"], rows[3]["score"])
	}
}

func TestOpenQueriesThroughSequence(t *testing.T) {
	src, err := Open(&Config{Path: createTestWorkbook(t)})
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	filtered := src.Rows().Where(func(row sequence.Row) bool {
		score, ok := row["score"].(int64)
		return ok && score >= 15
	})
	rows, err := filtered.Materialize(context.Background())
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	n, err := src.Rows().Count(context.Background())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 4 {
		t.Errorf("count = %d", n)
	}
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(&Config{Path: filepath.Join(t.TempDir(), "absent.xlsx")})
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	var connErr *sequence.ErrConnectionFailed
	if !errors.As(err, &connErr) {
		t.Errorf("error type = %T", err)
	}
}

func TestOpenUnknownSheet(t *testing.T) {
	_, err := Open(&Config{Path: createTestWorkbook(t), Sheet: "Missing"})
	if err == nil {
		t.Fatal("expected error for unknown sheet")
	}
}

func TestOpenNamedSheet(t *testing.T) {
	f := excelize.NewFile()
	if _, err := f.NewSheet("Scores"); err != nil {
		t.Fatalf("new sheet: %v", err)
	}
	f.SetCellValue("Scores", "A1", "value")
	f.SetCellValue("Scores", "A2", 1.5)

	path := filepath.Join(t.TempDir(), "multi.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	f.Close()

	src, err := Open(&Config{Path: path, Sheet: "Scores"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if src.Sheet() != "Scores" {
		t.Errorf("sheet = %s", src.Sheet())
	}
	cols := src.Columns()
	if len(cols) != 1 || cols[0].Kind != fields.KindFloat {
		t.Errorf("columns = %+v", cols)
	}
}
