package web

import (
	"listingpilot/header"
	"listingpilot/internal/classify"
	"listingpilot/review"
	"listingpilot/sheet"
)

// FieldRow is one proposed field as the panel shows it.
type FieldRow struct {
	Field    string        `json:"field"`
	Cell     string        `json:"cell"`
	Current  string        `json:"current"`
	Proposed string        `json:"proposed"`
	Kind     classify.Kind `json:"kind"`
}

// ProposalRow is one proposal with its fields resolved against the sheet.
type ProposalRow struct {
	ID        int        `json:"id"`
	Row       int        `json:"row"`
	Approved  bool       `json:"approved"`
	Tips      string     `json:"tips,omitempty"`
	Fields    []FieldRow `json:"fields"`
	Changed   int        `json:"changed"`
	Unmatched int        `json:"unmatched"`
}

// StateView is the payload of GET /api/state.
type StateView struct {
	State     review.State    `json:"state"`
	Status    string          `json:"status"`
	Mode      review.Mode     `json:"mode,omitempty"`
	BatchID   string          `json:"batchId,omitempty"`
	Headers   []header.Column `json:"headers"`
	Approved  int             `json:"approved"`
	Proposals []ProposalRow   `json:"proposals"`
	// DuplicateHeaders are names found in more than one column.
	DuplicateHeaders []string `json:"duplicateHeaders,omitempty"`
}

// BuildProposalRows resolves every proposal field to its cell. Rows are
// 1-based as shown in the spreadsheet.
func BuildProposalRows(headers *header.Map, proposals []review.ProposalView, records func(id int) header.Record) []ProposalRow {
	out := make([]ProposalRow, 0, len(proposals))
	for _, p := range proposals {
		row := ProposalRow{
			ID:       p.ID,
			Row:      p.Row + 1,
			Approved: p.Approved,
			Tips:     p.Tips,
			Fields:   make([]FieldRow, 0, len(p.Updates)),
		}

		var current header.Record
		if records != nil {
			current = records(p.ID)
		}
		for _, diff := range classify.Diff(headers, current, p.Updates) {
			field := FieldRow{
				Field:    diff.Field,
				Current:  diff.Current,
				Proposed: diff.Proposed,
				Kind:     diff.Kind,
			}
			if diff.Column >= 0 {
				field.Cell = sheet.CellName(p.Row, diff.Column)
			}
			switch diff.Kind {
			case classify.Changed:
				row.Changed++
			case classify.Unmatched:
				row.Unmatched++
			}
			row.Fields = append(row.Fields, field)
		}
		out = append(out, row)
	}
	return out
}

func buildStateView(c *review.Controller) StateView {
	view := StateView{
		State:     c.State(),
		Status:    c.Status(),
		Mode:      c.Mode(),
		Headers:   []header.Column{},
		Proposals: []ProposalRow{},
	}

	headers := c.Headers()
	if headers == nil {
		return view
	}
	view.BatchID = c.BatchID().String()
	view.Headers = headers.Columns()
	view.DuplicateHeaders = headers.Duplicates()

	proposals := c.Proposals()
	for _, p := range proposals {
		if p.Approved {
			view.Approved++
		}
	}
	view.Proposals = BuildProposalRows(headers, proposals, func(id int) header.Record {
		record, _ := c.Record(id)
		return record
	})
	return view
}
