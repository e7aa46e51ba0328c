package model

import (
	"errors"
	"fmt"
)

// ErrCapacityExceeded indicates that a fixed-capacity sequence would
// have grown beyond its bound. We never truncate silently.
var ErrCapacityExceeded = errors.New("capacity exceeded")

// CapacityError is the concrete error for [ErrCapacityExceeded] and
// tells which bounded sequence overflowed.
type CapacityError struct {
	// What names the bounded sequence (e.g., "hostname").
	What string

	// Capacity is the fixed capacity of the sequence.
	Capacity int
}

// Error implements error.
func (e *CapacityError) Error() string {
	return fmt.Sprintf("%s: %s (capacity is %d)", e.What, ErrCapacityExceeded, e.Capacity)
}

// Is allows errors.Is(err, ErrCapacityExceeded) to work.
func (e *CapacityError) Is(target error) bool {
	return target == ErrCapacityExceeded
}

// AddrParseError indicates that a string is not a numeric IP address.
type AddrParseError struct {
	// Input is the string we could not parse.
	Input string

	// Err is the underlying parse error.
	Err error
}

// Error implements error.
func (e *AddrParseError) Error() string {
	return fmt.Sprintf("invalid IP address syntax: %q", e.Input)
}

// Unwrap allows to access the underlying error.
func (e *AddrParseError) Unwrap() error {
	return e.Err
}
