package chartspec

import (
	"errors"
	"fmt"
)

// ErrInvalidSpec is matched by every ValidationError.
var ErrInvalidSpec = errors.New("invalid chart spec")

// ValidationError reports a structurally invalid document or update.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidSpec
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
