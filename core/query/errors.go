package query

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownField is returned in strict mode for a field outside the registry.
	ErrUnknownField = errors.New("unknown filter field")
	// ErrUnknownOperator is returned in strict mode for an unsupported operator.
	ErrUnknownOperator = errors.New("unsupported comparison operator")
	// ErrInvalidOperand is returned when an operand value cannot be cast to
	// its field's kind.
	ErrInvalidOperand = errors.New("invalid operand")
	// ErrMalformedFilter is returned when a textual filter cannot be parsed.
	ErrMalformedFilter = errors.New("malformed filter")
)

// FilterError attaches the offending filter to an error.
type FilterError struct {
	Index   int // Position of the filter in the input slice.
	Field   string
	Operand string
	Err     error
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("filter %d (%s %q): %v", e.Index, e.Field, e.Operand, e.Err)
}

func (e *FilterError) Unwrap() error {
	return e.Err
}
