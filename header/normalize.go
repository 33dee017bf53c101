// Package header discovers the header row of a listing sheet and maps display
// column names to column positions in both directions.
package header

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"
	"golang.org/x/text/cases"
)

var lineBreaks = strings.NewReplacer("\r", "", "\n", "")

// Normalize returns the comparison form of a column name: line breaks removed,
// surrounding whitespace trimmed and case folded. The result is only ever used
// for equality checks; display names are kept as they appear in the sheet.
func Normalize(name string) string {
	cleaned := strings.TrimSpace(lineBreaks.Replace(name))
	if cleaned == "" {
		return ""
	}
	return cases.Fold().String(cleaned)
}

// NormalizeValue coerces v to text before normalizing it.
func NormalizeValue(v any) string {
	return Normalize(CellText(v))
}

// CellText converts a raw cell value to text. Blank cells become "".
func CellText(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case fmt.Stringer:
		return value.String()
	}
	text, err := cast.ToStringE(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return text
}
