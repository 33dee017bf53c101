// Package sheet defines the spreadsheet host the review engine reads from and
// writes to, plus an excelize-backed workbook adapter and an in-memory fake.
package sheet

// Host is the narrow view of a spreadsheet the engine needs. Rows and columns
// are zero-based.
//
// Writes and highlights are not guaranteed to be observable until Flush
// returns without error.
type Host interface {
	// ReadRange returns up to rowCount rows of colCount cells. Rows past the
	// last row holding data are not returned, so a whole-column selection
	// costs no more than the sheet's content. Blank cells are nil; other
	// cells are strings or numbers.
	ReadRange(originRow, originCol, rowCount, colCount int) ([][]any, error)
	WriteCell(row, col int, value string) error
	SetCellHighlight(row, col int, color string) error
	Flush() error
}

// Window is the fixed rectangle anchored at the top-left cell that is scanned
// for the header row.
type Window struct {
	Rows    int
	Columns int
}

// rowsWithin returns how many of rowCount rows starting at originRow lie
// before extent, the number of rows holding data.
func rowsWithin(originRow, rowCount, extent int) int {
	available := extent - originRow
	if available < 0 {
		available = 0
	}
	if rowCount < available {
		return rowCount
	}
	return available
}

// ReadWindow reads w from h.
func ReadWindow(h Host, w Window) ([][]any, error) {
	return h.ReadRange(0, 0, w.Rows, w.Columns)
}
