// Package record decodes JSON records for evaluation.
//
// A record is a JSON object whose values are numbers, strings or booleans.
// Numbers decode to float64. null, arrays and nested objects are rejected.
package record

import (
	"errors"
	"fmt"

	"github.com/valyala/fastjson"
)

// EnvelopeKey is the field that wraps a record in a request body, as in
// {"json_data": {"age": 35}}.
const EnvelopeKey = "json_data"

// ErrInvalid is returned, wrapped, for any input that is not a valid record.
var ErrInvalid = errors.New("invalid record")

// FieldError describes a record field whose value cannot be evaluated.
type FieldError struct {
	Field string
	Type  string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: field %q is %s; only numbers, strings and booleans are allowed", ErrInvalid, e.Field, e.Type)
}

func (e *FieldError) Unwrap() error {
	return ErrInvalid
}

// Decoder decodes records. It is safe for concurrent use.
type Decoder struct {
	pool fastjson.ParserPool
}

// Decode parses a JSON object into a record.
func (d *Decoder) Decode(b []byte) (map[string]any, error) {
	p := d.pool.Get()
	defer d.pool.Put(p)

	v, err := p.ParseBytes(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return fromValue(v)
}

// DecodeRequest parses a request body holding either a bare record or a
// record wrapped in EnvelopeKey. The wrapped record may be an object or a
// string containing an object.
func (d *Decoder) DecodeRequest(b []byte) (map[string]any, error) {
	p := d.pool.Get()
	defer d.pool.Put(p)

	v, err := p.ParseBytes(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	if o, err := v.Object(); err == nil && o.Len() == 1 {
		if inner := o.Get(EnvelopeKey); inner != nil {
			switch inner.Type() {
			case fastjson.TypeObject:
				return fromValue(inner)
			case fastjson.TypeString:
				return d.Decode(inner.GetStringBytes())
			}
		}
	}
	return fromValue(v)
}

func fromValue(v *fastjson.Value) (map[string]any, error) {
	o, err := v.Object()
	if err != nil {
		return nil, fmt.Errorf("%w: expected a JSON object, got %s", ErrInvalid, v.Type())
	}

	data := make(map[string]any, o.Len())
	var ferr error
	o.Visit(func(key []byte, v *fastjson.Value) {
		if ferr != nil {
			return
		}
		k := string(key)
		switch v.Type() {
		case fastjson.TypeNumber:
			data[k] = v.GetFloat64()
		case fastjson.TypeString:
			data[k] = string(v.GetStringBytes())
		case fastjson.TypeTrue:
			data[k] = true
		case fastjson.TypeFalse:
			data[k] = false
		default:
			ferr = &FieldError{Field: k, Type: v.Type().String()}
		}
	})
	if ferr != nil {
		return nil, ferr
	}
	return data, nil
}
