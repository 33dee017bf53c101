package sheet

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// CSVHost serves a delimited text export as a single sheet. The whole file is
// held in memory; Flush rewrites it as UTF-8 with the detected delimiter.
// CSV cells carry no style, so highlights are accepted and dropped.
type CSVHost struct {
	path       string
	outputPath string
	comma      rune
	rows       [][]string
	pending    []pendingOp
}

// OpenCSV reads path. UTF-8 and UTF-16 files (with BOM) are accepted; any
// other file that is not valid UTF-8 is read as Windows-1252. The delimiter is
// the first of ';', '\t' or ',' found in the first line.
func OpenCSV(path, outputPath string) (*CSVHost, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open csv file %s: %w", path, err)
	}

	text, _, err := transform.Bytes(textDecoder(raw), raw)
	if err != nil {
		return nil, fmt.Errorf("decode csv file %s: %w", path, err)
	}

	comma := detectDelimiter(text)
	reader := csv.NewReader(bytes.NewReader(text))
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows := make([][]string, 0, 128)
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", len(rows)+1, err)
		}
		rows = append(rows, row)
	}

	return &CSVHost{
		path:       path,
		outputPath: strings.TrimSpace(outputPath),
		comma:      comma,
		rows:       rows,
	}, nil
}

func textDecoder(raw []byte) *encoding.Decoder {
	hasUTF16BOM := bytes.HasPrefix(raw, []byte{0xFF, 0xFE}) || bytes.HasPrefix(raw, []byte{0xFE, 0xFF})
	if hasUTF16BOM || utf8.Valid(raw) {
		return &encoding.Decoder{Transformer: unicode.BOMOverride(unicode.UTF8.NewDecoder())}
	}
	return charmap.Windows1252.NewDecoder()
}

// detectDelimiter looks at the first record only. Quoted text is skipped, so
// a ';' inside a quoted header does not count.
func detectDelimiter(text []byte) rune {
	var semicolon, tab bool
	quoted := false
scan:
	for _, b := range text {
		switch {
		case b == '"':
			quoted = !quoted
		case quoted:
		case b == '\n':
			break scan
		case b == ';':
			semicolon = true
		case b == '\t':
			tab = true
		}
	}
	switch {
	case semicolon:
		return ';'
	case tab:
		return '\t'
	}
	return ','
}

// SheetName is the file name without extension.
func (h *CSVHost) SheetName() string {
	return strings.TrimSuffix(filepath.Base(h.path), filepath.Ext(h.path))
}

func (h *CSVHost) Close() error {
	return nil
}

func (h *CSVHost) ReadRange(originRow, originCol, rowCount, colCount int) ([][]any, error) {
	if originRow < 0 || originCol < 0 || rowCount < 0 || colCount < 0 {
		return nil, fmt.Errorf("read range r%d c%d (%dx%d): %w", originRow, originCol, rowCount, colCount, ErrOutOfBounds)
	}

	out := make([][]any, rowsWithin(originRow, rowCount, len(h.rows)))
	for r := range out {
		cells := make([]any, colCount)
		row := h.rows[originRow+r]
		for c := 0; c < colCount; c++ {
			col := originCol + c
			if col < len(row) && row[col] != "" {
				cells[c] = row[col]
			}
		}
		out[r] = cells
	}
	return out, nil
}

func (h *CSVHost) WriteCell(row, col int, value string) error {
	if row < 0 || col < 0 {
		return fmt.Errorf("write %s: %w", CellName(row, col), ErrOutOfBounds)
	}
	h.pending = append(h.pending, pendingOp{cell: Cell{Row: row, Col: col}, value: value})
	return nil
}

func (h *CSVHost) SetCellHighlight(row, col int, color string) error {
	if row < 0 || col < 0 {
		return fmt.Errorf("highlight %s: %w", CellName(row, col), ErrOutOfBounds)
	}
	return nil
}

// Flush applies the queued writes and saves the file. On a save error the
// queued writes stay in memory but the file is unchanged.
func (h *CSVHost) Flush() error {
	for _, op := range h.pending {
		h.set(op.cell, op.value)
	}
	h.pending = nil

	target := h.path
	if h.outputPath != "" {
		target = h.outputPath
	}

	file, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("save csv file %s: %w", target, err)
	}
	defer file.Close()

	buffered := bufio.NewWriter(file)
	writer := csv.NewWriter(buffered)
	writer.Comma = h.comma
	if err := writer.WriteAll(h.rows); err != nil {
		return fmt.Errorf("write csv file %s: %w", target, err)
	}
	if err := buffered.Flush(); err != nil {
		return fmt.Errorf("write csv file %s: %w", target, err)
	}
	return file.Close()
}

func (h *CSVHost) set(cell Cell, value string) {
	for len(h.rows) <= cell.Row {
		h.rows = append(h.rows, nil)
	}
	row := h.rows[cell.Row]
	for len(row) <= cell.Col {
		row = append(row, "")
	}
	row[cell.Col] = value
	h.rows[cell.Row] = row
}
