package sheet

import (
	"errors"
	"fmt"
)

// ErrOutOfBounds is returned for negative coordinates.
var ErrOutOfBounds = errors.New("cell out of bounds")

// Cell addresses one zero-based cell.
type Cell struct {
	Row int
	Col int
}

type pendingOp struct {
	cell      Cell
	value     string
	color     string
	highlight bool
}

// MemoryHost is an in-memory Host. Writes are queued and only become visible
// to ReadRange, Value and Highlight after Flush.
type MemoryHost struct {
	cells      map[Cell]any
	highlights map[Cell]string
	pending    []pendingOp

	// WriteErrors makes WriteCell fail for specific cells.
	WriteErrors map[Cell]error
	// FlushErr makes Flush fail and drop the queued operations.
	FlushErr error

	flushes int
}

// NewMemoryHost seeds a host with rows of cell values.
func NewMemoryHost(rows [][]any) *MemoryHost {
	h := &MemoryHost{
		cells:       make(map[Cell]any),
		highlights:  make(map[Cell]string),
		WriteErrors: make(map[Cell]error),
	}
	for r, row := range rows {
		for c, value := range row {
			if value == nil {
				continue
			}
			h.cells[Cell{Row: r, Col: c}] = value
		}
	}
	return h
}

func (h *MemoryHost) ReadRange(originRow, originCol, rowCount, colCount int) ([][]any, error) {
	if originRow < 0 || originCol < 0 || rowCount < 0 || colCount < 0 {
		return nil, fmt.Errorf("read range r%d c%d (%dx%d): %w", originRow, originCol, rowCount, colCount, ErrOutOfBounds)
	}
	out := make([][]any, rowsWithin(originRow, rowCount, h.extent()))
	for r := range out {
		row := make([]any, colCount)
		for c := 0; c < colCount; c++ {
			row[c] = h.cells[Cell{Row: originRow + r, Col: originCol + c}]
		}
		out[r] = row
	}
	return out, nil
}

func (h *MemoryHost) WriteCell(row, col int, value string) error {
	cell := Cell{Row: row, Col: col}
	if row < 0 || col < 0 {
		return fmt.Errorf("write %s: %w", CellName(row, col), ErrOutOfBounds)
	}
	if err := h.WriteErrors[cell]; err != nil {
		return err
	}
	h.pending = append(h.pending, pendingOp{cell: cell, value: value})
	return nil
}

func (h *MemoryHost) SetCellHighlight(row, col int, color string) error {
	if row < 0 || col < 0 {
		return fmt.Errorf("highlight %s: %w", CellName(row, col), ErrOutOfBounds)
	}
	h.pending = append(h.pending, pendingOp{cell: Cell{Row: row, Col: col}, color: color, highlight: true})
	return nil
}

func (h *MemoryHost) Flush() error {
	h.flushes++
	if h.FlushErr != nil {
		h.pending = nil
		return h.FlushErr
	}
	for _, op := range h.pending {
		if op.highlight {
			h.highlights[op.cell] = op.color
			continue
		}
		if op.value == "" {
			delete(h.cells, op.cell)
			continue
		}
		h.cells[op.cell] = op.value
	}
	h.pending = nil
	return nil
}

// extent is one past the last row holding a flushed value.
func (h *MemoryHost) extent() int {
	rows := 0
	for cell := range h.cells {
		if cell.Row >= rows {
			rows = cell.Row + 1
		}
	}
	return rows
}

// Value returns the flushed value of a cell.
func (h *MemoryHost) Value(row, col int) any {
	return h.cells[Cell{Row: row, Col: col}]
}

// Highlight returns the flushed highlight color of a cell.
func (h *MemoryHost) Highlight(row, col int) string {
	return h.highlights[Cell{Row: row, Col: col}]
}

// Pending returns the number of queued operations.
func (h *MemoryHost) Pending() int {
	return len(h.pending)
}

// Flushes returns how many times Flush was called.
func (h *MemoryHost) Flushes() int {
	return h.flushes
}
