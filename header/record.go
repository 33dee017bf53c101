package header

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrFieldNotFound is returned by ResolveWrite when no column matches a name.
var ErrFieldNotFound = errors.New("field not found")

// Record maps display column names to cell text.
type Record map[string]string

// Blank reports whether every value is empty after trimming.
func (r Record) Blank() bool {
	for _, value := range r {
		if strings.TrimSpace(value) != "" {
			return false
		}
	}
	return true
}

// Materialize reads one raw row through m. Columns beyond the end of row read
// as blank.
func Materialize(m *Map, row []any) Record {
	record := make(Record, m.Len())
	for _, name := range m.names {
		col := m.index[name]
		value := ""
		if col < len(row) {
			value = CellText(row[col])
			if strings.TrimSpace(value) == "" {
				value = ""
			}
		}
		record[name] = value
	}
	return record
}

// ResolveWrite finds the column for an update name. Names are compared in
// normalized form and the first matching key in insertion order wins.
func ResolveWrite(m *Map, name, value string) (int, string, error) {
	target := Normalize(name)
	if target != "" {
		for _, key := range m.names {
			if Normalize(key) == target {
				return m.index[key], value, nil
			}
		}
	}
	return -1, "", fmt.Errorf("%w: %q", ErrFieldNotFound, name)
}

// FieldUpdate is one proposed value for a named column.
type FieldUpdate struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Updates is an ordered update set. It encodes as a JSON object and keeps the
// key order of the object it was decoded from.
type Updates []FieldUpdate

// Set replaces the value of an existing name or appends a new update.
func (u *Updates) Set(name, value string) {
	for i := range *u {
		if (*u)[i].Name == name {
			(*u)[i].Value = value
			return
		}
	}
	*u = append(*u, FieldUpdate{Name: name, Value: value})
}

// Get returns the value proposed for an exact name.
func (u Updates) Get(name string) (string, bool) {
	for _, update := range u {
		if update.Name == name {
			return update.Value, true
		}
	}
	return "", false
}

func (u Updates) Names() []string {
	out := make([]string, 0, len(u))
	for _, update := range u {
		out = append(out, update.Name)
	}
	return out
}

func (u Updates) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, update := range u {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(update.Name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(update.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object of scalar values. Numbers and booleans are
// kept as their JSON text, null becomes "". Nested values are rejected.
func (u *Updates) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		*u = nil
		return nil
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	token, err := decoder.Token()
	if err != nil {
		return err
	}
	if delim, ok := token.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("updates must be a JSON object")
	}

	out := make(Updates, 0, 8)
	for decoder.More() {
		keyToken, err := decoder.Token()
		if err != nil {
			return err
		}
		key, ok := keyToken.(string)
		if !ok {
			return fmt.Errorf("unexpected update key %v", keyToken)
		}

		valueToken, err := decoder.Token()
		if err != nil {
			return err
		}
		var value string
		switch typed := valueToken.(type) {
		case nil:
			value = ""
		case string:
			value = typed
		case json.Number:
			value = typed.String()
		case bool:
			value = fmt.Sprint(typed)
		default:
			return fmt.Errorf("update %q must be a scalar value", key)
		}
		out.Set(key, value)
	}
	if _, err := decoder.Token(); err != nil {
		return err
	}

	*u = out
	return nil
}
