// Package optional contains safer code to handle optional values.
//
// Unlike a pointer, a Value stores its content inline, so creating
// and copying values never allocates.
package optional

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
)

// Value is an optional value. The zero value of this structure
// is equivalent to the one you get when calling [None].
type Value[T any] struct {
	value   T
	present bool
}

// None constructs an empty value.
func None[T any]() Value[T] {
	return Value[T]{}
}

// Some constructs a some value unless T is a pointer and points to
// nil, in which case [Some] is equivalent to [None].
func Some[T any](value T) Value[T] {
	v := Value[T]{}
	if !isNilPointer(value) {
		v.value = value
		v.present = true
	}
	return v
}

func isNilPointer(value any) bool {
	rv := reflect.ValueOf(value)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

// errIsNone is the panic value used by Unwrap.
var errIsNone = errors.New("is none")

// IsNone returns whether this [Value] is empty.
func (v Value[T]) IsNone() bool {
	return !v.present
}

// Unwrap returns the underlying value or panics. In case of
// panic, the value passed to panic is an error.
func (v Value[T]) Unwrap() T {
	if !v.present {
		panic(errIsNone)
	}
	return v.value
}

// UnwrapOr returns the fallback if the [Value] is empty.
func (v Value[T]) UnwrapOr(fallback T) T {
	if !v.present {
		return fallback
	}
	return v.value
}

// Get returns the value and whether it is present.
func (v Value[T]) Get() (T, bool) {
	return v.value, v.present
}

// UnmarshalJSON implements json.Unmarshaler. Note that a `null` JSON
// value always leads to an empty [Value].
func (v *Value[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte(`null`)) {
		*v = None[T]()
		return nil
	}
	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	*v = Some(value)
	return nil
}

// MarshalJSON implements json.Marshaler. An empty value serializes
// to `null` and otherwise we serialize the underlying value.
func (v Value[T]) MarshalJSON() ([]byte, error) {
	if !v.present {
		return json.Marshal(nil)
	}
	return json.Marshal(v.value)
}
