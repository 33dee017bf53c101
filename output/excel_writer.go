package output

import (
	"fmt"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"listingpilot/review"
)

const (
	headerFill = "#1F4E78"
	minWidth   = 8
	maxWidth   = 60
)

type ExcelWriter struct{}

func (w *ExcelWriter) Write(path string, report review.CommitReport) error {
	file := excelize.NewFile()
	defer file.Close()

	sheet := file.GetSheetName(0)
	widths := make([]int, len(reportHeaders))

	for col, header := range reportHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := file.SetCellValue(sheet, cell, header); err != nil {
			return fmt.Errorf("set excel header %s: %w", cell, err)
		}
		widths[col] = utf8.RuneCountInString(header)
	}

	for i, entry := range report.Entries {
		row := i + 2
		for col, value := range reportRow(entry) {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := file.SetCellValue(sheet, cell, value); err != nil {
				return fmt.Errorf("set excel value %s: %w", cell, err)
			}
			if n := utf8.RuneCountInString(value); n > widths[col] {
				widths[col] = n
			}
		}
	}

	if err := styleHeader(file, sheet, len(reportHeaders)); err != nil {
		return err
	}
	for col, width := range widths {
		name, _ := excelize.ColumnNumberToName(col + 1)
		if err := file.SetColWidth(sheet, name, name, float64(clamp(width+2, minWidth, maxWidth))); err != nil {
			return fmt.Errorf("set excel column width %s: %w", name, err)
		}
	}
	if err := file.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze excel header: %w", err)
	}

	if err := file.SaveAs(path); err != nil {
		return fmt.Errorf("save excel output %s: %w", path, err)
	}

	return nil
}

func styleHeader(file *excelize.File, sheet string, columns int) error {
	border := []excelize.Border{
		{Type: "left", Color: "#000000", Style: 1},
		{Type: "right", Color: "#000000", Style: 1},
		{Type: "top", Color: "#000000", Style: 1},
		{Type: "bottom", Color: "#000000", Style: 1},
	}
	style, err := file.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{headerFill}},
		Border:    border,
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("create excel header style: %w", err)
	}

	last, _ := excelize.CoordinatesToCellName(columns, 1)
	if err := file.SetCellStyle(sheet, "A1", last, style); err != nil {
		return fmt.Errorf("apply excel header style: %w", err)
	}
	return nil
}

func clamp(value, low, high int) int {
	if value < low {
		return low
	}
	if value > high {
		return high
	}
	return value
}
