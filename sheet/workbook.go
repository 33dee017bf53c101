package sheet

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Workbook is a Host backed by a file.
type Workbook interface {
	Host
	SheetName() string
	Close() error
}

// Open picks the adapter for path by extension. sheetName is ignored for CSV
// files. outputPath, when set, receives the saved result instead of path.
func Open(path, sheetName, outputPath string) (Workbook, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx", ".xlsm":
		host, err := OpenExcel(path, sheetName, outputPath)
		if err != nil {
			return nil, err
		}
		return host, nil
	case ".csv", ".tsv", ".txt":
		host, err := OpenCSV(path, outputPath)
		if err != nil {
			return nil, err
		}
		return host, nil
	default:
		return nil, fmt.Errorf("unsupported workbook format %q (supported: .xlsx, .xlsm, .csv, .tsv)", ext)
	}
}
