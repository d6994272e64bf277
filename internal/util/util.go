// Package util holds small reflection and error helpers shared by the
// config loader and tests.
package util

import "reflect"

// IsZero reports whether i equals the zero value of its type.
func IsZero(i interface{}) bool {
	return IsZeroVal(reflect.ValueOf(i))
}

func IsZeroVal(v reflect.Value) bool {
	return v.Interface() == reflect.Zero(v.Type()).Interface()
}

// Unwrap returns the underlying error of stackerr-like wrappers,
// so user facing messages do not carry stack traces.
func Unwrap(err error) error {
	type hasUnderlying interface {
		Underlying() error
	}
	if eh, ok := err.(hasUnderlying); ok {
		return eh.Underlying()
	}
	return err
}
