package review

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"listingpilot/header"
	"listingpilot/sheet"
)

type CellStatus string

const (
	StatusWritten CellStatus = "written"
	StatusSkipped CellStatus = "skipped"
	StatusFailed  CellStatus = "failed"
)

// CellOutcome is the result of one field of one proposal. Column is -1 for
// skipped fields.
type CellOutcome struct {
	ProposalID int        `json:"proposalId"`
	Row        int        `json:"row"`
	Column     int        `json:"column"`
	Field      string     `json:"field"`
	Value      string     `json:"value"`
	Status     CellStatus `json:"status"`
	Err        string     `json:"error,omitempty"`
}

// CommitReport aggregates a commit. Writes that happened before a failure stay
// in place.
type CommitReport struct {
	BatchID       uuid.UUID     `json:"batchId"`
	RowsCommitted int           `json:"rowsCommitted"`
	Written       int           `json:"written"`
	Skipped       int           `json:"skipped"`
	Failed        int           `json:"failed"`
	Entries       []CellOutcome `json:"entries"`
	FlushErr      error         `json:"-"`
}

// OK reports whether every resolved field was written and flushed.
func (r CommitReport) OK() bool {
	return r.Failed == 0 && r.FlushErr == nil
}

func (r CommitReport) String() string {
	text := fmt.Sprintf("%d row(s) committed: %d written, %d skipped, %d failed", r.RowsCommitted, r.Written, r.Skipped, r.Failed)
	if r.FlushErr != nil {
		text += fmt.Sprintf(" (flush failed: %v)", r.FlushErr)
	}
	return text
}

// Committer writes approved proposals to the host and marks each written cell
// with ChangedColor.
type Committer struct {
	Host         sheet.Host
	ChangedColor string
}

// Commit writes proposals in order and every update in its insertion order.
// Unknown field names are skipped and host failures are recorded per cell;
// neither stops the remaining writes. The host is flushed once at the end.
func (c *Committer) Commit(batchID uuid.UUID, proposals []Proposal, headers *header.Map) CommitReport {
	report := CommitReport{BatchID: batchID}

	for _, proposal := range proposals {
		written := false
		for _, update := range proposal.Updates {
			entry := CellOutcome{
				ProposalID: proposal.ID,
				Row:        proposal.Row,
				Column:     -1,
				Field:      update.Name,
				Value:      update.Value,
			}

			col, value, err := header.ResolveWrite(headers, update.Name, update.Value)
			if err != nil {
				entry.Status = StatusSkipped
				entry.Err = err.Error()
				report.add(entry)
				continue
			}
			entry.Column = col

			if err := c.writeCell(proposal.Row, col, value); err != nil {
				entry.Status = StatusFailed
				entry.Err = err.Error()
				report.add(entry)
				continue
			}
			entry.Status = StatusWritten
			report.add(entry)
			written = true
		}
		if written {
			report.RowsCommitted++
		}
	}

	if err := c.Host.Flush(); err != nil {
		report.FlushErr = fmt.Errorf("flush: %w", err)
	}
	return report
}

func (c *Committer) writeCell(row, col int, value string) error {
	if err := c.Host.WriteCell(row, col, value); err != nil {
		return fmt.Errorf("write %s: %w", sheet.CellName(row, col), err)
	}
	if c.ChangedColor == "" {
		return nil
	}
	if err := c.Host.SetCellHighlight(row, col, c.ChangedColor); err != nil {
		return fmt.Errorf("highlight %s: %w", sheet.CellName(row, col), err)
	}
	return nil
}

func (r *CommitReport) add(entry CellOutcome) {
	switch entry.Status {
	case StatusWritten:
		r.Written++
	case StatusSkipped:
		r.Skipped++
	case StatusFailed:
		r.Failed++
	}
	r.Entries = append(r.Entries, entry)
}

// Err summarizes failures as a single error, or nil.
func (r CommitReport) Err() error {
	var errs []error
	if r.Failed > 0 {
		errs = append(errs, fmt.Errorf("%d cell(s) failed to write", r.Failed))
	}
	if r.FlushErr != nil {
		errs = append(errs, r.FlushErr)
	}
	return errors.Join(errs...)
}
