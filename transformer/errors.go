package transformer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

const unknownNetworkError = "unknown network error"

// APIError is a non-2xx answer from the backend. Message is the human-readable
// detail the backend sent, with structured details rendered as JSON text.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("transformer error: status=%d", e.StatusCode)
	}
	return e.Message
}

// errorMessage extracts the message from an error body of the form
// {"detail": string | object}. Bodies without detail are rendered whole.
func errorMessage(body []byte) string {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return unknownNetworkError
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return unknownNetworkError
	}

	detail, ok := envelope["detail"]
	if !ok || isNullOrEmpty(detail) {
		return compactJSON(body)
	}

	var text string
	if err := json.Unmarshal(detail, &text); err == nil {
		return text
	}
	return compactJSON(detail)
}

func isNullOrEmpty(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed == "" || trimmed == "null" || trimmed == `""`
}

func compactJSON(raw []byte) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return strings.TrimSpace(string(raw))
	}
	return buf.String()
}
