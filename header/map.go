package header

import (
	"fmt"
	"strings"
)

// Map is an ordered mapping from display column name to zero-based column
// index. Names keep the order in which they first appear in the header row.
type Map struct {
	names      []string
	index      map[string]int
	duplicates []string
	row        int
}

// Column is one entry of a Map.
type Column struct {
	Name  string `json:"name"`
	Index int    `json:"index"`
}

// FromRow builds a Map from a single header row. Blank cells are skipped.
//
// When two cells share the same trimmed text the later column overwrites the
// earlier one while the name keeps its first position. Such names are reported
// by Duplicates.
func FromRow(row []any) *Map {
	m := &Map{index: make(map[string]int, len(row)), row: -1}
	for col, cell := range row {
		name := strings.TrimSpace(CellText(cell))
		if name == "" {
			continue
		}
		m.set(name, col)
	}
	return m
}

func (m *Map) set(name string, col int) {
	if _, exists := m.index[name]; !exists {
		m.names = append(m.names, name)
	} else if !contains(m.duplicates, name) {
		m.duplicates = append(m.duplicates, name)
	}
	m.index[name] = col
}

// Names returns the display names in insertion order.
func (m *Map) Names() []string {
	return append([]string(nil), m.names...)
}

// Duplicates returns the names that appeared in more than one column. Reads and
// writes for them only reach the last such column.
func (m *Map) Duplicates() []string {
	return append([]string(nil), m.duplicates...)
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}

// Columns returns name/index pairs in insertion order.
func (m *Map) Columns() []Column {
	out := make([]Column, 0, len(m.names))
	for _, name := range m.names {
		out = append(out, Column{Name: name, Index: m.index[name]})
	}
	return out
}

// Index returns the column index of an exact display name.
func (m *Map) Index(name string) (int, bool) {
	col, ok := m.index[name]
	return col, ok
}

func (m *Map) Len() int {
	return len(m.names)
}

// MaxIndex returns the largest mapped column index, or -1 for an empty map.
func (m *Map) MaxIndex() int {
	highest := -1
	for _, col := range m.index {
		if col > highest {
			highest = col
		}
	}
	return highest
}

// HeaderRow is the position of the header row inside the candidate rows it
// was located in, or -1 when the map was not built by Locate.
func (m *Map) HeaderRow() int {
	return m.row
}

// Find returns the first name, in insertion order, whose normalized form
// contains any of the normalized markers.
func (m *Map) Find(markers ...string) (string, bool) {
	normalized := normalizeMarkers(markers)
	if len(normalized) == 0 {
		return "", false
	}
	for _, name := range m.names {
		if containsAny(Normalize(name), normalized) {
			return name, true
		}
	}
	return "", false
}

// Require resolves one display name per marker group. It fails with
// ErrHeaderNotFound when any group has no matching column.
func (m *Map) Require(groups ...[]string) ([]string, error) {
	out := make([]string, 0, len(groups))
	for _, group := range groups {
		name, ok := m.Find(group...)
		if !ok {
			return nil, fmt.Errorf("%w: no column matching %s", ErrHeaderNotFound, strings.Join(group, "/"))
		}
		out = append(out, name)
	}
	return out, nil
}

func normalizeMarkers(markers []string) []string {
	out := make([]string, 0, len(markers))
	for _, marker := range markers {
		if normalized := Normalize(marker); normalized != "" {
			out = append(out, normalized)
		}
	}
	return out
}

func containsAny(value string, markers []string) bool {
	for _, marker := range markers {
		if strings.Contains(value, marker) {
			return true
		}
	}
	return false
}
