package output

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"listingpilot/review"
)

func sampleReport() review.CommitReport {
	return review.CommitReport{
		BatchID:       uuid.New(),
		RowsCommitted: 1,
		Written:       1,
		Skipped:       1,
		Entries: []review.CellOutcome{
			{ProposalID: 0, Row: 6, Column: 1, Field: "Título", Value: "Antena Ubiquiti 5GHz", Status: review.StatusWritten},
			{ProposalID: 0, Row: 6, Column: -1, Field: "Marca", Value: "Ubiquiti", Status: review.StatusSkipped, Err: `field not found: "Marca"`},
			{ProposalID: 2, Row: 28, Column: 27, Field: "Color", Value: "Negro", Status: review.StatusFailed, Err: "write AB29: locked"},
		},
	}
}

var wantRows = [][]string{
	{"ProposalID", "Row", "Column", "Field", "Value", "Status", "Error"},
	{"0", "7", "B", "Título", "Antena Ubiquiti 5GHz", "written", ""},
	{"0", "7", "", "Marca", "Ubiquiti", "skipped", `field not found: "Marca"`},
	{"2", "29", "AB", "Color", "Negro", "failed", "write AB29: locked"},
}

func TestWriterForFormat(t *testing.T) {
	cases := map[string]any{
		"csv":   &CSVWriter{},
		" CSV ": &CSVWriter{},
		"excel": &ExcelWriter{},
		"xlsx":  &ExcelWriter{},
	}
	for format, want := range cases {
		got, err := WriterForFormat(format)
		if err != nil {
			t.Fatalf("WriterForFormat(%q): %v", format, err)
		}
		if reflect.TypeOf(got) != reflect.TypeOf(want) {
			t.Fatalf("WriterForFormat(%q) = %T, want %T", format, got, want)
		}
	}

	if _, err := WriterForFormat("json"); err == nil {
		t.Fatal("expected unsupported format error")
	}
}

func TestFormatForPath(t *testing.T) {
	if got := FormatForPath("report.CSV"); got != "csv" {
		t.Fatalf("expected csv, got %q", got)
	}
	if got := FormatForPath("report.xlsx"); got != "excel" {
		t.Fatalf("expected excel, got %q", got)
	}
}

func TestCSVWriter_WritesOneLinePerOutcome(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.csv")
	if err := (&CSVWriter{}).Write(path, sampleReport()); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if !reflect.DeepEqual(rows, wantRows) {
		t.Fatalf("unexpected csv rows:\n got %q\nwant %q", rows, wantRows)
	}
}

func TestExcelWriter_WritesStyledReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	if err := (&ExcelWriter{}).Write(path, sampleReport()); err != nil {
		t.Fatalf("write excel: %v", err)
	}

	file, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open excel: %v", err)
	}
	defer file.Close()

	sheet := file.GetSheetName(0)
	rows, err := file.GetRows(sheet)
	if err != nil {
		t.Fatalf("read excel rows: %v", err)
	}
	if len(rows) != len(wantRows) {
		t.Fatalf("expected %d rows, got %d", len(wantRows), len(rows))
	}
	for i, want := range wantRows {
		got := append([]string(nil), rows[i]...)
		for len(got) < len(want) {
			got = append(got, "")
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("row %d: got %q, want %q", i+1, got, want)
		}
	}

	styleID, err := file.GetCellStyle(sheet, "A1")
	if err != nil {
		t.Fatalf("get header style: %v", err)
	}
	style, err := file.GetStyle(styleID)
	if err != nil {
		t.Fatalf("read header style: %v", err)
	}
	if style.Font == nil || !style.Font.Bold {
		t.Fatalf("expected bold header font, got %+v", style.Font)
	}
	if len(style.Border) != 4 {
		t.Fatalf("expected 4 header borders, got %d", len(style.Border))
	}

	width, err := file.GetColWidth(sheet, "E")
	if err != nil {
		t.Fatalf("get column width: %v", err)
	}
	if width < float64(len("Antena Ubiquiti 5GHz")) {
		t.Fatalf("expected value column to fit its content, got width %.1f", width)
	}
}
