package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingField is matched by every *MissingFieldError.
var ErrMissingField = errors.New("missing required field")

// MissingFieldError is returned when a computation needs a column that was
// never resolved for the loaded table.
type MissingFieldError struct {
	Fields []Field
}

func (e *MissingFieldError) Error() string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = string(f)
	}
	return fmt.Sprintf("%s: %s", ErrMissingField, strings.Join(names, ", "))
}

func (e *MissingFieldError) Unwrap() error { return ErrMissingField }
