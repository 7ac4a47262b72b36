package cel

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ezachrisen/gavel"
)

// Source returns the CEL expression the Evaluator runs for the rule, with the
// record field names in place of the generated variable names.
func Source(n gavel.Node) (string, error) {
	return translate(n, func(field string) string { return field })
}

func translate(n gavel.Node, name func(field string) string) (string, error) {
	var sb strings.Builder
	if err := write(&sb, n, name); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func write(sb *strings.Builder, n gavel.Node, name func(string) string) error {
	switch n := n.(type) {
	case gavel.BoolOp:
		// The conditional evaluates the left side first and skips the right side
		// exactly like gavel.Evaluate; CEL's && and || do not.
		sb.WriteString("(")
		if err := write(sb, n.Left, name); err != nil {
			return err
		}
		switch n.Op {
		case gavel.And:
			sb.WriteString(" ? ")
		case gavel.Or:
			sb.WriteString(" ? true : ")
		default:
			return fmt.Errorf("unknown connective %d", n.Op)
		}
		if err := write(sb, n.Right, name); err != nil {
			return err
		}
		if n.Op == gavel.And {
			sb.WriteString(" : false")
		}
		sb.WriteString(")")
		return nil

	case gavel.Operand:
		lit, err := literal(n.Literal)
		if err != nil {
			return fmt.Errorf("field %q: %w", n.Field, err)
		}
		switch n.Op {
		case gavel.Eq, gavel.NotEq:
			fn := eqFunction
			if n.Op == gavel.NotEq {
				fn = neFunction
			}
			sb.WriteString(fn + "(" + name(n.Field) + ", " + lit + ")")
		default:
			sb.WriteString(name(n.Field) + " " + n.Op.String() + " " + lit)
		}
		return nil

	default:
		return fmt.Errorf("unknown node type %T", n)
	}
}

// literal renders numbers as CEL doubles and text as CEL strings.
func literal(v gavel.Value) (string, error) {
	switch v.Kind() {
	case gavel.KindNumber:
		f, _ := v.Float()
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return "", fmt.Errorf("number %v has no CEL literal", f)
		}
		// 'e' format always includes an exponent, so CEL never reads it as an int
		return strconv.FormatFloat(f, 'e', -1, 64), nil
	case gavel.KindText:
		s, _ := v.Str()
		return strconv.Quote(s), nil
	default:
		return "", fmt.Errorf("unsupported literal %s", v)
	}
}
