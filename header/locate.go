package header

import (
	"errors"
	"fmt"
)

var (
	// ErrNoCandidateRows means the header search window was empty.
	ErrNoCandidateRows = errors.New("no candidate header rows")
	// ErrHeaderNotFound means no usable header row or required column exists.
	ErrHeaderNotFound = errors.New("header not found")
)

// Locate picks the header row among candidate rows and maps its columns.
//
// The first row with a cell containing any marker wins; later qualifying rows
// are ignored. When no row qualifies the first candidate row is used.
func Locate(rows [][]any, markers []string) (*Map, error) {
	if len(rows) == 0 {
		return nil, ErrNoCandidateRows
	}

	headerRow := HeaderRowIndex(rows, markers)
	m := FromRow(rows[headerRow])
	m.row = headerRow
	if m.Len() == 0 {
		return nil, fmt.Errorf("%w: candidate row %d has no named columns", ErrHeaderNotFound, headerRow+1)
	}
	return m, nil
}

// HeaderRowIndex returns the index of the first row matching a marker, or 0.
func HeaderRowIndex(rows [][]any, markers []string) int {
	normalized := normalizeMarkers(markers)
	if len(normalized) == 0 {
		return 0
	}
	for i, row := range rows {
		for _, cell := range row {
			if containsAny(NormalizeValue(cell), normalized) {
				return i
			}
		}
	}
	return 0
}
