package output

import (
	"fmt"
	"strconv"
	"strings"

	"listingpilot/review"
	"listingpilot/sheet"
)

// Writer exports the cell outcomes of a commit report.
type Writer interface {
	Write(path string, report review.CommitReport) error
}

func WriterForFormat(format string) (Writer, error) {
	switch normalizeFormat(format) {
	case "csv":
		return &CSVWriter{}, nil
	case "excel", "xlsx":
		return &ExcelWriter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// FormatForPath guesses the export format from a file extension.
func FormatForPath(path string) string {
	if strings.HasSuffix(strings.ToLower(strings.TrimSpace(path)), ".csv") {
		return "csv"
	}
	return "excel"
}

var reportHeaders = []string{"ProposalID", "Row", "Column", "Field", "Value", "Status", "Error"}

// reportRow renders one outcome with spreadsheet-style coordinates.
func reportRow(entry review.CellOutcome) []string {
	column := ""
	if entry.Column >= 0 {
		column = sheet.ColumnName(entry.Column)
	}
	return []string{
		strconv.Itoa(entry.ProposalID),
		strconv.Itoa(entry.Row + 1),
		column,
		entry.Field,
		entry.Value,
		string(entry.Status),
		entry.Err,
	}
}

func normalizeFormat(value string) string {
	return strings.TrimSpace(strings.ToLower(value))
}
