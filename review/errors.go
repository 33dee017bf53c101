package review

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"listingpilot/header"
	"listingpilot/transformer"
)

var (
	// ErrEmptySelection means a selection produced no non-blank rows.
	ErrEmptySelection = errors.New("selection has no non-blank rows")
	// ErrBusy is returned when an operation is not allowed in the current state.
	ErrBusy = errors.New("another batch is in progress")
	// ErrNothingApproved is returned by Commit when every proposal is rejected.
	ErrNothingApproved = errors.New("no approved proposals")
	// ErrEmptyInstruction is returned by BulkSmartEdit for a blank instruction.
	ErrEmptyInstruction = errors.New("instruction is empty")
)

// StatusMessage renders err as the single plain-text line shown to the user.
func StatusMessage(err error) string {
	if err == nil {
		return ""
	}

	var apiErr *transformer.APIError
	switch {
	case errors.Is(err, header.ErrNoCandidateRows), errors.Is(err, header.ErrHeaderNotFound):
		return "Error: " + err.Error() + ". Check that the sheet has a header row with title and description columns."
	case errors.Is(err, ErrEmptySelection):
		return "Error: select at least one row with data."
	case errors.Is(err, ErrEmptyInstruction):
		return "Error: write an instruction first."
	case errors.Is(err, ErrNothingApproved):
		return "Error: no proposals are approved."
	case errors.Is(err, ErrBusy):
		return "Error: wait for the current batch to finish."
	case errors.Is(err, context.DeadlineExceeded):
		return "Error: the transformer did not answer in time."
	case errors.As(err, &apiErr):
		return "Error: " + apiErr.Error()
	}
	return fmt.Sprintf("Error: %s", strings.TrimSpace(err.Error()))
}
