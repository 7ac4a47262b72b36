package gavel

import (
	"errors"
	"fmt"
)

var (
	// ErrSyntax is the Kind of a CompileError for text that does not parse.
	ErrSyntax = errors.New("syntax error")

	// ErrUnsupported is the Kind of a CompileError for a recognisable construct
	// that the rule language does not support, such as comparing two fields.
	ErrUnsupported = errors.New("unsupported construct")

	// ErrMissingField is returned (wrapped in a MissingFieldError) when a record
	// does not contain a field the rule refers to.
	ErrMissingField = errors.New("missing field")

	// ErrTypeMismatch is returned (wrapped in a TypeMismatchError) when a record value
	// cannot be compared to the literal in the rule.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrNoActiveRule is returned by a Vault asked to evaluate before any rule
	// has been compiled.
	ErrNoActiveRule = errors.New("no active rule")
)

// CompileError describes why rule text could not be compiled.
type CompileError struct {
	// ErrSyntax or ErrUnsupported
	Kind error

	// Human-readable description of the problem
	Msg string

	// Position of the problem in the rule text. Offset is in bytes from the
	// start; Line and Column start at 1 and count runes.
	Offset int
	Line   int
	Column int
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s at %d:%d: %s", e.Kind, e.Line, e.Column, e.Msg)
}

func (e *CompileError) Unwrap() error {
	return e.Kind
}

// MissingFieldError is returned when the record has no value for Field.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s %q", ErrMissingField, e.Field)
}

func (e *MissingFieldError) Unwrap() error {
	return ErrMissingField
}

// TypeMismatchError is returned when the record value of Field cannot be compared
// to the literal with the operator.
type TypeMismatchError struct {
	Field   string
	Op      ComparisonOp
	Literal Value

	// Description of the record value's type, e.g. "text" or "[]interface {}"
	Have string

	// The underlying error reported by an evaluation backend, if any
	Err error
}

func (e *TypeMismatchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s on field %q: %v", ErrTypeMismatch, e.Field, e.Err)
	}
	return fmt.Sprintf("%s: cannot compare %s field %q %s %s literal %s",
		ErrTypeMismatch, e.Have, e.Field, e.Op, e.Literal.Kind(), e.Literal)
}

// Unwrap lets errors.Is match both ErrTypeMismatch and the backend error.
func (e *TypeMismatchError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrTypeMismatch, e.Err}
	}
	return []error{ErrTypeMismatch}
}
