// Package review stages transformer proposals for human approval and commits
// the approved ones back to the spreadsheet.
package review

import (
	"fmt"

	"github.com/google/uuid"

	"listingpilot/header"
	"listingpilot/sheet"
)

// RowContext is one extracted row. ID is the position among emitted rows and
// Row the absolute zero-based sheet row.
type RowContext struct {
	ID                int           `json:"id"`
	Row               int           `json:"row"`
	Record            header.Record `json:"record"`
	TitleColumn       int           `json:"titleColumn"`
	DescriptionColumn int           `json:"descriptionColumn"`
}

// Batch is the result of one extraction pass. Headers is shared by every row.
type Batch struct {
	ID      uuid.UUID
	Headers *header.Map
	Rows    []RowContext
}

// Extractor reads a selection through the header map found in the search
// window.
type Extractor struct {
	Host    sheet.Host
	Window  sheet.Window
	Markers []string
}

// Headers locates the header row in the search window.
func (e *Extractor) Headers() (*header.Map, error) {
	candidates, err := sheet.ReadWindow(e.Host, e.Window)
	if err != nil {
		return nil, fmt.Errorf("read header window: %w", err)
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: sheet is empty", header.ErrHeaderNotFound)
	}
	headers, err := header.Locate(candidates, e.Markers)
	if err != nil {
		return nil, err
	}
	return headers, nil
}

// Extract materializes every non-blank row of sel. IDs restart at 0 on every
// call.
func (e *Extractor) Extract(sel sheet.Selection) (*Batch, error) {
	if sel.RowCount <= 0 {
		return nil, ErrEmptySelection
	}

	headers, err := e.Headers()
	if err != nil {
		return nil, err
	}

	width := e.Window.Columns
	if needed := headers.MaxIndex() + 1; needed > width {
		width = needed
	}
	rows, err := e.Host.ReadRange(sel.StartRow, 0, sel.RowCount, width)
	if err != nil {
		return nil, fmt.Errorf("read selection %s: %w", sel, err)
	}

	batch := &Batch{ID: uuid.New(), Headers: headers, Rows: make([]RowContext, 0, len(rows))}
	for offset, raw := range rows {
		record := header.Materialize(headers, raw)
		if record.Blank() {
			continue
		}
		batch.Rows = append(batch.Rows, RowContext{
			ID:                len(batch.Rows),
			Row:               sel.StartRow + offset,
			Record:            record,
			TitleColumn:       -1,
			DescriptionColumn: -1,
		})
	}

	if len(batch.Rows) == 0 {
		return nil, ErrEmptySelection
	}
	return batch, nil
}
