package gavel

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind identifies the type of a Value.
type Kind int

const (
	KindNumber Kind = iota
	KindText
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	case KindBool:
		return "bool"
	default:
		return "unknown"
	}
}

// Value is a primitive scalar: a number, a piece of text or a boolean.
// Literals in a compiled rule are always numbers or text; booleans only appear
// in records.
//
// The zero Value is the number 0.
type Value struct {
	kind Kind
	num  float64
	text string
	b    bool
}

// Number returns a numeric Value. Integer and floating point numbers share
// this representation.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Text returns a text Value.
func Text(s string) Value { return Value{kind: KindText, text: s} }

// Bool returns a boolean Value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Kind returns the kind of the value.
func (v Value) Kind() Kind { return v.kind }

// Float returns the numeric value, and false if v is not a number.
func (v Value) Float() (float64, bool) { return v.num, v.kind == KindNumber }

// Str returns the text value, and false if v is not text.
func (v Value) Str() (string, bool) { return v.text, v.kind == KindText }

// Truth returns the boolean value, and false if v is not a boolean.
func (v Value) Truth() (bool, bool) { return v.b, v.kind == KindBool }

// Interface returns the value as a Go float64, string or bool.
func (v Value) Interface() any {
	switch v.kind {
	case KindText:
		return v.text
	case KindBool:
		return v.b
	default:
		return v.num
	}
}

// String renders the value the way it is written in a rule: numbers in their
// shortest form and text in single quotes.
func (v Value) String() string {
	switch v.kind {
	case KindText:
		return quote(v.text)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	}
}

// quote wraps s in single quotes, escaping the characters the lexer
// treats specially.
func quote(s string) string {
	b := make([]byte, 0, len(s)+2)
	b = append(b, '\'')
	for _, r := range s {
		switch r {
		case '\'':
			b = append(b, '\\', '\'')
		case '\\':
			b = append(b, '\\', '\\')
		case '\n':
			b = append(b, '\\', 'n')
		case '\t':
			b = append(b, '\\', 't')
		case '\r':
			b = append(b, '\\', 'r')
		default:
			b = append(b, string(r)...)
		}
	}
	return string(append(b, '\''))
}

// ValueOf converts a Go value from a record to a Value.
// All integer and floating point types and json.Number become numbers, strings
// become text and bools become booleans. Any other type returns an error, as
// does an integer that a float64 cannot represent exactly, such as 1<<53 + 1.
func ValueOf(x any) (Value, error) {
	switch t := x.(type) {
	case Value:
		return t, nil
	case string:
		return Text(t), nil
	case bool:
		return Bool(t), nil
	case float64:
		return Number(t), nil
	case float32:
		return Number(float64(t)), nil
	case int:
		return intNumber(int64(t))
	case int8:
		return Number(float64(t)), nil
	case int16:
		return Number(float64(t)), nil
	case int32:
		return Number(float64(t)), nil
	case int64:
		return intNumber(t)
	case uint:
		return uintNumber(uint64(t))
	case uint8:
		return Number(float64(t)), nil
	case uint16:
		return Number(float64(t)), nil
	case uint32:
		return Number(float64(t)), nil
	case uint64:
		return uintNumber(t)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return intNumber(i)
		}
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("converting %q to a number: %w", t.String(), err)
		}
		return Number(f), nil
	case nil:
		return Value{}, fmt.Errorf("nil is not a primitive value")
	default:
		return Value{}, fmt.Errorf("%T is not a primitive value", x)
	}
}

func intNumber(i int64) (Value, error) {
	f := float64(i)
	if f >= 0x1p63 || int64(f) != i {
		return Value{}, fmt.Errorf("integer %d has no exact float64 representation", i)
	}
	return Number(f), nil
}

func uintNumber(u uint64) (Value, error) {
	f := float64(u)
	if f >= 0x1p64 || uint64(f) != u {
		return Value{}, fmt.Errorf("integer %d has no exact float64 representation", u)
	}
	return Number(f), nil
}
