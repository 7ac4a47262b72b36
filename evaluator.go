package gavel

import (
	"errors"
	"fmt"
)

// Evaluator is the interface implemented by types that can evaluate a compiled
// rule against a record.
type Evaluator interface {
	// Evaluate returns the verdict of the rule for the record.
	// The record must not be modified or retained.
	Evaluate(n Node, data map[string]any) (bool, error)
}

// Interpreter is the native Evaluator. It walks the rule directly.
type Interpreter struct{}

// Evaluate calls the package-level Evaluate.
func (Interpreter) Evaluate(n Node, data map[string]any) (bool, error) {
	return Evaluate(n, data)
}

var errNilNode = errors.New("evaluating a nil rule")

// Evaluate walks the rule and returns its verdict for the record.
//
// And returns false as soon as its left child is false, and Or returns true as soon
// as its left child is true; the right child is not evaluated in either case.
//
// If an evaluated Operand refers to a field that is not in the record, the error is a
// *MissingFieldError. If the record value cannot be compared to the literal, the error
// is a *TypeMismatchError.
func Evaluate(n Node, data map[string]any) (bool, error) {
	switch n := n.(type) {
	case BoolOp:
		left, err := Evaluate(n.Left, data)
		if err != nil {
			return false, err
		}
		switch n.Op {
		case And:
			if !left {
				return false, nil
			}
		case Or:
			if left {
				return true, nil
			}
		default:
			return false, fmt.Errorf("unknown connective %d", n.Op)
		}
		return Evaluate(n.Right, data)

	case Operand:
		return evaluateOperand(n, data)

	case nil:
		return false, errNilNode

	default:
		return false, fmt.Errorf("unknown node type %T", n)
	}
}

func evaluateOperand(o Operand, data map[string]any) (bool, error) {
	raw, ok := data[o.Field]
	if !ok {
		return false, &MissingFieldError{Field: o.Field}
	}
	v, err := ValueOf(raw)
	if err != nil {
		return false, &TypeMismatchError{Field: o.Field, Op: o.Op, Literal: o.Literal, Have: fmt.Sprintf("%T", raw)}
	}
	return compare(o, v)
}
