package schema

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/skymodel/skymodel/internal/common/apperrors"
)

var (
	// ErrValidationFailed is the root error for all row validation failures.
	ErrValidationFailed apperrors.Error = apperrors.New("validation failed").SetStatusCode(http.StatusBadRequest).SetExpandError(true)
	// ErrInvalidDescriptor indicates a malformed catalogue metadata descriptor.
	ErrInvalidDescriptor apperrors.Error = ErrValidationFailed.New("invalid catalogue descriptor").SetExpandError(true)
	// ErrTooManyErrors indicates validation stopped at the error ceiling.
	ErrTooManyErrors apperrors.Error = ErrValidationFailed.New("too many validation errors")
)

// ValidationError describes one rejected field of one source row. Line is the
// 1-based data line within the source file; ComponentID may be empty when the
// identifier itself failed to parse.
type ValidationError struct {
	Line        int    `json:"line"`
	ComponentID string `json:"component_id,omitempty"`
	Field       string `json:"field"`
	ErrStr      string `json:"error"`
}

// Error allows ValidationError to satisfy the error interface.
func (ve ValidationError) Error() string {
	loc := fmt.Sprintf("line %d", ve.Line)
	if ve.ComponentID != "" {
		loc += " (" + ve.ComponentID + ")"
	}
	return loc + ": " + ve.Field + ": " + ve.ErrStr
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error allows ValidationErrors to satisfy the error interface.
func (ves ValidationErrors) Error() string {
	buff := bytes.NewBufferString("")
	for i := 0; i < len(ves); i++ {
		buff.WriteString(ves[i].Error())
		if i < len(ves)-1 {
			buff.WriteString("; ")
		}
	}
	return buff.String()
}

// Strings returns the individual error messages, in row order.
func (ves ValidationErrors) Strings() []string {
	out := make([]string, 0, len(ves))
	for _, ve := range ves {
		out = append(out, ve.Error())
	}
	return out
}
