// Package transformer talks to the text-generation backend that proposes
// listing edits.
package transformer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"listingpilot/header"
)

// ErrInvalidResponse is returned when a backend answer does not have the
// expected shape.
var ErrInvalidResponse = errors.New("invalid transformer response")

// Transformer proposes edits for one listing at a time.
type Transformer interface {
	Optimize(ctx context.Context, req OptimizeRequest) (*Optimization, error)
	SmartEdit(ctx context.Context, record header.Record, instruction string) (header.Updates, error)
}

type OptimizeRequest struct {
	CurrentTitle       string `json:"currentTitle"`
	CurrentDescription string `json:"currentDescription"`
	Category           string `json:"category"`
}

// Optimization is a proposed title/description pair. At least one of the two
// is non-empty.
type Optimization struct {
	NewTitle       string `json:"newTitle" validate:"required_without=NewDescription"`
	NewDescription string `json:"newDescription" validate:"required_without=NewTitle"`
	Tips           string `json:"tips,omitempty"`
}

type smartEditRequest struct {
	Record      header.Record `json:"record"`
	Instruction string        `json:"instruction"`
}

type smartEditResponse struct {
	UpdatedFields header.Updates `json:"updatedFields" validate:"required"`
}

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

var validate = validator.New()

func checkOptimization(out *Optimization) (*Optimization, error) {
	out.NewTitle = strings.TrimSpace(out.NewTitle)
	out.NewDescription = strings.TrimSpace(out.NewDescription)
	out.Tips = strings.TrimSpace(out.Tips)
	if err := validate.Struct(out); err != nil {
		return nil, fmt.Errorf("%w: optimization needs a new title or description", ErrInvalidResponse)
	}
	return out, nil
}

func checkUpdates(resp *smartEditResponse) (header.Updates, error) {
	if err := validate.Struct(resp); err != nil {
		return nil, fmt.Errorf("%w: missing updatedFields", ErrInvalidResponse)
	}
	out := make(header.Updates, 0, len(resp.UpdatedFields))
	for _, update := range resp.UpdatedFields {
		name := strings.TrimSpace(update.Name)
		if name == "" {
			continue
		}
		out.Set(name, update.Value)
	}
	return out, nil
}
