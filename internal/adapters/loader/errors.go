package loader

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedRecord marks a row with a missing or unparsable field.
	ErrMalformedRecord = errors.New("malformed record")
	// ErrMissingColumn marks a header without one of the required columns.
	ErrMissingColumn = errors.New("missing required column")
	// ErrEmptyInput is returned when the input has no header row.
	ErrEmptyInput = errors.New("empty input")
)

// RecordError describes why one input row was rejected.
type RecordError struct {
	Line  int    `json:"line"`
	Field string `json:"field"`
	Value string `json:"value"`
	Err   error  `json:"-"`
}

func (e *RecordError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("line %d: %s: %v", e.Line, e.Field, e.Err)
	}
	return fmt.Sprintf("line %d: %s=%q: %v", e.Line, e.Field, e.Value, e.Err)
}

// Unwrap lets errors.Is match both ErrMalformedRecord and the underlying cause.
func (e *RecordError) Unwrap() []error {
	return []error{ErrMalformedRecord, e.Err}
}
