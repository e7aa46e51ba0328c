// Package runtimex contains runtime extensions. This package is inspired to
// https://pkg.go.dev/github.com/m-lab/go/rtx, except that it's simpler.
package runtimex

import (
	"fmt"

	"github.com/ooni/nbtls/internal/model"
)

// PanicOnError calls panic() if err is not nil.
func PanicOnError(err error, message string) {
	if err != nil {
		panic(fmt.Errorf("%s: %w", message, err))
	}
}

// PanicIfFalse calls panic if assertion is false.
func PanicIfFalse(assertion bool, message string) {
	if !assertion {
		panic(message)
	}
}

// PanicIfTrue calls panic if assertion is true.
func PanicIfTrue(assertion bool, message string) {
	PanicIfFalse(!assertion, message)
}

// Try1 panics if err is not nil and otherwise returns value.
func Try1[T any](value T, err error) T {
	PanicOnError(err, "Try1")
	return value
}

// CatchLogAndIgnorePanic recovers from a panic and logs it as a warning.
// Use it with defer in background goroutines.
func CatchLogAndIgnorePanic(logger model.Logger, prefix string) {
	if r := recover(); r != nil {
		logger.Warnf("%s: caught panic: %+v", prefix, r)
	}
}
