// Package convert turns configured string values into typed field values.
package convert

import (
	"encoding"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrNoValue is returned when a scalar conversion receives no input.
	ErrNoValue = errors.New("no value to convert")

	// ErrUnsupported is returned for target types that have no conversion.
	ErrUnsupported = errors.New("unsupported conversion target")
)

var (
	durationType        = reflect.TypeOf(time.Duration(0))
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
)

// Error describes a failed conversion.
type Error struct {
	Value string
	Type  reflect.Type
	Cause error
}

func (e Error) Error() string {
	return fmt.Sprintf("cannot convert %q to %s: %v", e.Value, e.Type, e.Cause)
}

func (e Error) Unwrap() error {
	return e.Cause
}

// Supported reports whether values can be converted to t.
func Supported(t reflect.Type) bool {
	if reflect.PointerTo(t).Implements(textUnmarshalerType) {
		return true
	}

	switch t.Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	case reflect.Pointer:
		return Supported(t.Elem())
	case reflect.Slice:
		return t.Elem().Kind() != reflect.Slice && Supported(t.Elem())
	default:
		return false
	}
}

// To converts values to a reflect.Value of type t.
// Slices take one element per value; every other type uses the first value.
func To(values []string, t reflect.Type) (reflect.Value, error) {
	if t.Kind() == reflect.Slice && !reflect.PointerTo(t).Implements(textUnmarshalerType) {
		out := reflect.MakeSlice(t, 0, len(values))
		for _, v := range values {
			elem, err := scalar(v, t.Elem())
			if err != nil {
				return reflect.Value{}, err
			}
			out = reflect.Append(out, elem)
		}
		return out, nil
	}

	if len(values) == 0 {
		return reflect.Value{}, Error{Type: t, Cause: ErrNoValue}
	}

	return scalar(values[0], t)
}

func scalar(s string, t reflect.Type) (reflect.Value, error) {
	if reflect.PointerTo(t).Implements(textUnmarshalerType) {
		ptr := reflect.New(t)
		if err := ptr.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(s)); err != nil {
			return reflect.Value{}, Error{Value: s, Type: t, Cause: err}
		}
		return ptr.Elem(), nil
	}

	if t == durationType {
		d, err := time.ParseDuration(strings.TrimSpace(s))
		if err != nil {
			// Bare numbers are milliseconds.
			ms, perr := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
			if perr != nil {
				return reflect.Value{}, Error{Value: s, Type: t, Cause: err}
			}
			d = time.Duration(ms) * time.Millisecond
		}
		return reflect.ValueOf(d), nil
	}

	v := reflect.New(t).Elem()
	trimmed := strings.TrimSpace(s)

	switch t.Kind() {
	case reflect.String:
		v.SetString(s)
	case reflect.Bool:
		b, err := strconv.ParseBool(trimmed)
		if err != nil {
			return reflect.Value{}, Error{Value: s, Type: t, Cause: err}
		}
		v.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(trimmed, 10, t.Bits())
		if err != nil {
			return reflect.Value{}, Error{Value: s, Type: t, Cause: err}
		}
		v.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(trimmed, 10, t.Bits())
		if err != nil {
			return reflect.Value{}, Error{Value: s, Type: t, Cause: err}
		}
		v.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(trimmed, t.Bits())
		if err != nil {
			return reflect.Value{}, Error{Value: s, Type: t, Cause: err}
		}
		v.SetFloat(f)
	case reflect.Pointer:
		elem, err := scalar(s, t.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		p := reflect.New(t.Elem())
		p.Elem().Set(elem)
		return p, nil
	default:
		return reflect.Value{}, Error{Value: s, Type: t, Cause: ErrUnsupported}
	}

	return v, nil
}
