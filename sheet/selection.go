package sheet

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Selection is a contiguous block of rows. StartRow is zero-based.
type Selection struct {
	StartRow int `json:"startRow"`
	RowCount int `json:"rowCount"`
}

// EndRow returns the last zero-based row of the selection.
func (s Selection) EndRow() int {
	return s.StartRow + s.RowCount - 1
}

// String renders the selection with 1-based row numbers.
func (s Selection) String() string {
	if s.RowCount == 1 {
		return strconv.Itoa(s.StartRow + 1)
	}
	return fmt.Sprintf("%d:%d", s.StartRow+1, s.EndRow()+1)
}

// ParseSelection accepts "A5:I20", "5:20", "A5" or "5" (1-based, as shown in
// the spreadsheet) and returns the covered rows. Columns are ignored.
func ParseSelection(value string) (Selection, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Selection{}, fmt.Errorf("selection is empty")
	}

	parts := strings.Split(value, ":")
	if len(parts) > 2 {
		return Selection{}, fmt.Errorf("invalid selection %q", value)
	}

	first, err := parseRowRef(parts[0])
	if err != nil {
		return Selection{}, fmt.Errorf("invalid selection %q: %w", value, err)
	}
	last := first
	if len(parts) == 2 {
		last, err = parseRowRef(parts[1])
		if err != nil {
			return Selection{}, fmt.Errorf("invalid selection %q: %w", value, err)
		}
	}
	if last < first {
		first, last = last, first
	}

	return Selection{StartRow: first - 1, RowCount: last - first + 1}, nil
}

func parseRowRef(ref string) (int, error) {
	ref = strings.TrimSpace(strings.ReplaceAll(ref, "$", ""))
	if ref == "" {
		return 0, fmt.Errorf("empty row reference")
	}
	if row, err := strconv.Atoi(ref); err == nil {
		if row < 1 {
			return 0, fmt.Errorf("row must be >= 1, got %d", row)
		}
		if row > excelize.TotalRows {
			return 0, fmt.Errorf("row must be <= %d, got %d", excelize.TotalRows, row)
		}
		return row, nil
	}
	_, row, err := excelize.CellNameToCoordinates(ref)
	if err != nil {
		return 0, err
	}
	return row, nil
}

// CellName renders zero-based coordinates as an A1 reference.
func CellName(row, col int) string {
	name, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return fmt.Sprintf("R%dC%d", row+1, col+1)
	}
	return name
}

// ColumnName renders a zero-based column index as letters.
func ColumnName(col int) string {
	name, err := excelize.ColumnNumberToName(col + 1)
	if err != nil {
		return strconv.Itoa(col + 1)
	}
	return name
}
