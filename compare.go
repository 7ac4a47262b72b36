package gavel

import (
	"cmp"
	"fmt"
)

// compare applies the operand's operator to the record value v and the operand's literal.
// Values of different kinds are never equal, unequal or ordered; comparing them is an error.
func compare(o Operand, v Value) (bool, error) {
	mismatch := &TypeMismatchError{Field: o.Field, Op: o.Op, Literal: o.Literal, Have: v.Kind().String()}
	if v.Kind() != o.Literal.Kind() {
		return false, mismatch
	}

	switch v.Kind() {
	case KindNumber:
		x, _ := v.Float()
		y, _ := o.Literal.Float()
		return apply(o.Op, x, y)
	case KindText:
		x, _ := v.Str()
		y, _ := o.Literal.Str()
		return apply(o.Op, x, y)
	default:
		return false, mismatch
	}
}

// apply evaluates x op y. Strings compare byte-wise, which is lexicographic
// order for UTF-8 text.
func apply[T cmp.Ordered](op ComparisonOp, x, y T) (bool, error) {
	switch op {
	case Eq:
		return x == y, nil
	case NotEq:
		return x != y, nil
	case Gt:
		return x > y, nil
	case Lt:
		return x < y, nil
	case Gte:
		return x >= y, nil
	case Lte:
		return x <= y, nil
	default:
		return false, fmt.Errorf("unknown operator %q", op)
	}
}
