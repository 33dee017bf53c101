package sheet

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ExcelHost serves one worksheet of an .xlsx/.xlsm workbook. Writes land in
// the in-memory workbook; Flush saves it to the output path, or back to the
// source file when no output path is set.
type ExcelHost struct {
	file       *excelize.File
	sheetName  string
	outputPath string
	styles     map[styleKey]int
}

type styleKey struct {
	base  int
	color string
}

// OpenExcel opens path and selects sheetName, or the active sheet when
// sheetName is empty.
func OpenExcel(path, sheetName, outputPath string) (*ExcelHost, error) {
	file, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open excel file %s: %w", path, err)
	}

	name := strings.TrimSpace(sheetName)
	if name == "" {
		name = file.GetSheetName(file.GetActiveSheetIndex())
	}
	if name == "" {
		name = file.GetSheetName(0)
	}
	if name == "" {
		_ = file.Close()
		return nil, fmt.Errorf("excel file has no sheets: %s", path)
	}
	if index, err := file.GetSheetIndex(name); err != nil || index < 0 {
		_ = file.Close()
		return nil, fmt.Errorf("sheet %q not found in %s", name, path)
	}

	return &ExcelHost{
		file:       file,
		sheetName:  name,
		outputPath: strings.TrimSpace(outputPath),
		styles:     make(map[styleKey]int),
	}, nil
}

func (h *ExcelHost) SheetName() string {
	return h.sheetName
}

func (h *ExcelHost) Close() error {
	return h.file.Close()
}

func (h *ExcelHost) ReadRange(originRow, originCol, rowCount, colCount int) ([][]any, error) {
	if originRow < 0 || originCol < 0 || rowCount < 0 || colCount < 0 {
		return nil, fmt.Errorf("read range r%d c%d (%dx%d): %w", originRow, originCol, rowCount, colCount, ErrOutOfBounds)
	}

	rows, err := h.file.GetRows(h.sheetName)
	if err != nil {
		return nil, fmt.Errorf("read rows from sheet %s: %w", h.sheetName, err)
	}

	out := make([][]any, rowsWithin(originRow, rowCount, len(rows)))
	for r := range out {
		cells := make([]any, colCount)
		row := rows[originRow+r]
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

func (h *ExcelHost) WriteCell(row, col int, value string) error {
	cell, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return fmt.Errorf("write r%d c%d: %w", row, col, err)
	}
	if err := h.file.SetCellValue(h.sheetName, cell, value); err != nil {
		return fmt.Errorf("set excel value %s: %w", cell, err)
	}
	return nil
}

// SetCellHighlight applies a solid fill while keeping the rest of the cell's
// existing style.
func (h *ExcelHost) SetCellHighlight(row, col int, color string) error {
	cell, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return fmt.Errorf("highlight r%d c%d: %w", row, col, err)
	}

	base, err := h.file.GetCellStyle(h.sheetName, cell)
	if err != nil {
		return fmt.Errorf("read style of %s: %w", cell, err)
	}

	key := styleKey{base: base, color: strings.ToUpper(color)}
	styleID, ok := h.styles[key]
	if !ok {
		style := &excelize.Style{}
		if base != 0 {
			existing, err := h.file.GetStyle(base)
			if err != nil {
				return fmt.Errorf("load style %d of %s: %w", base, cell, err)
			}
			style = existing
		}
		style.Fill = excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}}
		styleID, err = h.file.NewStyle(style)
		if err != nil {
			return fmt.Errorf("create highlight style %s: %w", color, err)
		}
		h.styles[key] = styleID
	}

	if err := h.file.SetCellStyle(h.sheetName, cell, cell, styleID); err != nil {
		return fmt.Errorf("set style of %s: %w", cell, err)
	}
	return nil
}

func (h *ExcelHost) Flush() error {
	if h.outputPath == "" {
		if err := h.file.Save(); err != nil {
			return fmt.Errorf("save workbook: %w", err)
		}
		return nil
	}
	if err := h.file.SaveAs(h.outputPath); err != nil {
		return fmt.Errorf("save workbook %s: %w", h.outputPath, err)
	}
	return nil
}
