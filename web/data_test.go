package web

import (
	"testing"

	"listingpilot/header"
	"listingpilot/internal/classify"
	"listingpilot/review"
)

func dataHeaders(t *testing.T) *header.Map {
	t.Helper()
	m, err := header.Locate([][]any{{"SKU", "Título", "Descripción", "Color"}}, []string{"título"})
	if err != nil {
		t.Fatalf("locate headers: %v", err)
	}
	return m
}

func TestBuildProposalRows_ResolvesCells(t *testing.T) {
	t.Parallel()

	var updates header.Updates
	updates.Set("TÍTULO", "Antena Ubiquiti")
	updates.Set("Color", "Blanco")
	updates.Set("Marca", "Ubiquiti")

	proposals := []review.ProposalView{
		{Proposal: review.Proposal{ID: 0, Row: 6, Updates: updates, Tips: "add specs"}, Approved: true},
	}
	records := func(id int) header.Record {
		return header.Record{"SKU": "A-1", "Título": "antena", "Descripción": "", "Color": "Blanco"}
	}

	rows := BuildProposalRows(dataHeaders(t), proposals, records)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	row := rows[0]
	if row.Row != 7 || !row.Approved || row.Tips != "add specs" {
		t.Fatalf("unexpected row: %+v", row)
	}
	if row.Changed != 1 || row.Unmatched != 1 {
		t.Fatalf("expected 1 changed and 1 unmatched, got %+v", row)
	}

	want := []FieldRow{
		{Field: "TÍTULO", Cell: "B7", Current: "antena", Proposed: "Antena Ubiquiti", Kind: classify.Changed},
		{Field: "Color", Cell: "D7", Current: "Blanco", Proposed: "Blanco", Kind: classify.Unchanged},
		{Field: "Marca", Cell: "", Current: "", Proposed: "Ubiquiti", Kind: classify.Unmatched},
	}
	if len(row.Fields) != len(want) {
		t.Fatalf("expected %d fields, got %d", len(want), len(row.Fields))
	}
	for i := range want {
		if row.Fields[i] != want[i] {
			t.Fatalf("field %d: expected %+v, got %+v", i, want[i], row.Fields[i])
		}
	}
}

func TestBuildProposalRows_NilRecordsReadBlank(t *testing.T) {
	t.Parallel()

	var updates header.Updates
	updates.Set("Descripción", "Router doble banda")

	rows := BuildProposalRows(dataHeaders(t), []review.ProposalView{
		{Proposal: review.Proposal{ID: 3, Row: 0, Updates: updates}},
	}, nil)
	if len(rows) != 1 || rows[0].Approved {
		t.Fatalf("unexpected rows: %+v", rows)
	}
	field := rows[0].Fields[0]
	if field.Cell != "C1" || field.Current != "" || field.Kind != classify.Changed {
		t.Fatalf("unexpected field: %+v", field)
	}
}

func TestBuildProposalRows_Empty(t *testing.T) {
	t.Parallel()

	rows := BuildProposalRows(dataHeaders(t), nil, nil)
	if rows == nil || len(rows) != 0 {
		t.Fatalf("expected an empty non-nil slice, got %#v", rows)
	}
}
