// internal/decisioning/errors.go
package decisioning

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidInput = errors.New("INVALID_INPUT")
	ErrMissingField = errors.New("MISSING_FIELD")
)

// MissingFieldError lists every required applicant attribute that was absent or null.
type MissingFieldError struct {
	Fields []string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: missing required fields: %s", ErrMissingField, strings.Join(e.Fields, ", "))
}

func (e *MissingFieldError) Unwrap() error {
	return ErrMissingField
}
