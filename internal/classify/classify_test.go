package classify

import (
	"testing"

	"listingpilot/header"
)

func testHeaders(t *testing.T) *header.Map {
	t.Helper()
	m, err := header.Locate([][]any{{"SKU", "Título", "Descripción", "Color"}}, []string{"sku"})
	if err != nil {
		t.Fatalf("locate headers: %v", err)
	}
	return m
}

func TestClassifyUpdates_SplitsByOutcome(t *testing.T) {
	t.Parallel()

	current := header.Record{"SKU": "A-1", "Título": "Antena", "Descripción": "Antena 5GHz", "Color": ""}
	var updates header.Updates
	updates.Set("título", "Antena Ubiquiti")
	updates.Set("Marca", "Ubiquiti")
	updates.Set("Descripción", " Antena 5GHz ")
	updates.Set("COLOR", "Blanco")

	changed, unchanged, unmatched := ClassifyUpdates(testHeaders(t), current, updates)

	if len(changed) != 2 || changed[0].Header != "Título" || changed[1].Header != "Color" {
		t.Fatalf("unexpected changed fields: %+v", changed)
	}
	if changed[0].Current != "Antena" || changed[0].Proposed != "Antena Ubiquiti" || changed[0].Column != 1 {
		t.Fatalf("unexpected title diff: %+v", changed[0])
	}
	if len(unchanged) != 1 || unchanged[0].Field != "Descripción" {
		t.Fatalf("unexpected unchanged fields: %+v", unchanged)
	}
	if len(unmatched) != 1 || unmatched[0].Field != "Marca" || unmatched[0].Column != -1 {
		t.Fatalf("unexpected unmatched fields: %+v", unmatched)
	}
}

func TestDiff_KeepsUpdateOrder(t *testing.T) {
	t.Parallel()

	var updates header.Updates
	updates.Set("Color", "Rojo")
	updates.Set("Marca", "X")
	updates.Set("SKU", "A-1")

	diffs := Diff(testHeaders(t), header.Record{"SKU": "A-1"}, updates)
	want := []Kind{Changed, Unmatched, Unchanged}
	if len(diffs) != len(want) {
		t.Fatalf("expected %d diffs, got %d", len(want), len(diffs))
	}
	for i, kind := range want {
		if diffs[i].Kind != kind {
			t.Fatalf("diff %d: want %s, got %s", i, kind, diffs[i].Kind)
		}
	}
}

func TestDiff_NilRecordReadsBlank(t *testing.T) {
	t.Parallel()

	var updates header.Updates
	updates.Set("SKU", "")

	diffs := Diff(testHeaders(t), nil, updates)
	if len(diffs) != 1 || diffs[0].Kind != Unchanged {
		t.Fatalf("unexpected diffs: %+v", diffs)
	}
}
