package classify

import (
	"strings"

	"listingpilot/header"
)

type Kind string

const (
	Changed   Kind = "changed"
	Unchanged Kind = "unchanged"
	Unmatched Kind = "unmatched"
)

// FieldDiff is one proposed field against the value currently in the sheet.
// Column is -1 when the name matches no header.
type FieldDiff struct {
	Field    string `json:"field"`
	Column   int    `json:"column"`
	Header   string `json:"header,omitempty"`
	Current  string `json:"current"`
	Proposed string `json:"proposed"`
	Kind     Kind   `json:"kind"`
}

// ClassifyUpdates splits a proposal's updates into fields that change the
// sheet, fields that would write the value already there, and fields that no
// header matches. Update order is kept within each group.
func ClassifyUpdates(headers *header.Map, current header.Record, updates header.Updates) (changed, unchanged, unmatched []FieldDiff) {
	for _, diff := range Diff(headers, current, updates) {
		switch diff.Kind {
		case Changed:
			changed = append(changed, diff)
		case Unchanged:
			unchanged = append(unchanged, diff)
		default:
			unmatched = append(unmatched, diff)
		}
	}
	return changed, unchanged, unmatched
}

// Diff classifies every update in order.
func Diff(headers *header.Map, current header.Record, updates header.Updates) []FieldDiff {
	out := make([]FieldDiff, 0, len(updates))
	names := headers.Names()
	for _, update := range updates {
		diff := FieldDiff{Field: update.Name, Column: -1, Proposed: update.Value, Kind: Unmatched}

		col, _, err := header.ResolveWrite(headers, update.Name, update.Value)
		if err == nil {
			diff.Column = col
			diff.Header = headerAt(headers, names, col)
			diff.Current = current[diff.Header]
			diff.Kind = Changed
			if strings.TrimSpace(diff.Current) == strings.TrimSpace(update.Value) {
				diff.Kind = Unchanged
			}
		}
		out = append(out, diff)
	}
	return out
}

func headerAt(headers *header.Map, names []string, col int) string {
	for _, name := range names {
		if idx, _ := headers.Index(name); idx == col {
			return name
		}
	}
	return ""
}
