// Package kpi parses and evaluates user-authored KPI formulas against
// late-bound field values. Formulas are parsed once into an AST; nothing in
// this package fetches data.
package kpi

import (
	"errors"
	"fmt"
)

// Sentinel errors for formula evaluation.
var (
	ErrUnknownField   = errors.New("kpi: unknown field")
	ErrDivisionByZero = errors.New("kpi: division by zero")
)

// UnknownFieldError marks a formula identifier missing from the field
// registry or the supplied bindings.
type UnknownFieldError struct {
	Field string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("kpi: unknown field %q", e.Field)
}

// Is lets callers match the error against ErrUnknownField.
func (e *UnknownFieldError) Is(target error) bool {
	return target == ErrUnknownField
}

// ParseError reports where a formula failed to parse.
type ParseError struct {
	Formula string
	Pos     int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("kpi: parse %q at offset %d: %s", e.Formula, e.Pos, e.Message)
}
