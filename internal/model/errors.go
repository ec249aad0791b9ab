package model

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedInput   = errors.New("malformed input")
	ErrInsufficientData = errors.New("insufficient data")
	ErrFitDivergence    = errors.New("fit divergence")
	ErrConfiguration    = errors.New("configuration error")
)

// RowError describes a RawRow the normalizer rejected.
type RowError struct {
	Line   int
	Date   string
	Column int // hour label, 0 when the row itself is bad
	Reason string
}

func (e *RowError) Error() string {
	if e.Column > 0 {
		return fmt.Sprintf("%v: line %d (%s) hour %d: %s", ErrMalformedInput, e.Line, e.Date, e.Column, e.Reason)
	}
	return fmt.Sprintf("%v: line %d (%s): %s", ErrMalformedInput, e.Line, e.Date, e.Reason)
}

func (e *RowError) Unwrap() error { return ErrMalformedInput }

// FitError reports a failed model fit along with the order that was tried.
type FitError struct {
	Order      Order
	Iterations int
	Err        error
}

func (e *FitError) Error() string {
	return fmt.Sprintf("%v: %s after %d iterations: %v", ErrFitDivergence, e.Order, e.Iterations, e.Err)
}

func (e *FitError) Unwrap() []error { return []error{ErrFitDivergence, e.Err} }
