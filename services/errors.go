package services

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyInput is returned when a normalizer is given no bytes.
	ErrEmptyInput = errors.New("empty input")

	// ErrNoRows is returned when parsing succeeded but every row was dropped.
	ErrNoRows = errors.New("no usable rows")
)

// StructureError reports a source whose layout could not be understood,
// e.g. a missing column, sheet or header.
type StructureError struct {
	Source string
	Reason string
	Err    error
}

func (e *StructureError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Source, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Source, e.Reason)
}

func (e *StructureError) Unwrap() error {
	return e.Err
}
