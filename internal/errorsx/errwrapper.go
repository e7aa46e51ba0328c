// Package errorsx contains the error wrapper and the classifiers used to
// map Go errors occurring while resolving, connecting and handshaking
// into stable failure strings.
package errorsx

import (
	"encoding/json"
	"errors"

	"github.com/ooni/nbtls/internal/nb"
	"github.com/ooni/nbtls/internal/runtimex"
)

// ErrWrapper is our error wrapper for Go errors. The key objective of
// this structure is to properly set Failure, which is also returned by
// the Error() method, to be one of the FailureXXX strings.
type ErrWrapper struct {
	// Failure is the failure string.
	//
	// This is either one of the FailureXXX strings or any other
	// string like `unknown_failure: ...`. The latter represents an
	// error that we have not yet mapped to a failure.
	Failure string

	// Operation is the operation that failed.
	//
	// The major operations are ResolveOperation, ConnectOperation
	// and TLSHandshakeOperation. A socket does not know which
	// major operation is in progress, so we also have the minor
	// ReadOperation, WriteOperation and CloseOperation.
	//
	// When wrapping an ErrWrapper that already refers to a major
	// operation, the new wrapper keeps the child operation. This way,
	// the topmost wrapper refers to the major operation that failed.
	Operation string

	// WrappedErr is the error that we're wrapping.
	WrappedErr error
}

// Error returns the failure string for this error.
func (e *ErrWrapper) Error() string {
	return e.Failure
}

// Unwrap allows to access the underlying error.
func (e *ErrWrapper) Unwrap() error {
	return e.WrappedErr
}

// MarshalJSON converts an ErrWrapper to a JSON value.
func (e *ErrWrapper) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Failure)
}

// Classifier is the type of the function that maps a Go error
// to a failure string.
type Classifier func(err error) string

// NewErrWrapper creates a new ErrWrapper using the given
// classifier, operation name, and underlying error.
//
// This function panics if classifier is nil, or operation
// is the empty string or error is nil.
//
// If the err argument has already been classified, the returned
// error wrapper will use the same classification string and
// will determine whether to keep the major operation as documented
// in the ErrWrapper.Operation documentation.
func NewErrWrapper(c Classifier, op string, err error) *ErrWrapper {
	var wrapper *ErrWrapper
	if errors.As(err, &wrapper) {
		return &ErrWrapper{
			Failure:    wrapper.Failure,
			Operation:  classifyOperation(wrapper, op),
			WrappedErr: err,
		}
	}
	runtimex.PanicIfTrue(c == nil, "nil classifier")
	runtimex.PanicIfTrue(op == "", "empty op")
	runtimex.PanicIfTrue(err == nil, "nil err")
	return &ErrWrapper{
		Failure:    c(err),
		Operation:  op,
		WrappedErr: err,
	}
}

// MaybeNewErrWrapper is like NewErrWrapper except that it returns
// nil when err is nil and it returns nb.ErrWouldBlock unchanged, since
// would-block is a scheduling signal rather than a failure.
func MaybeNewErrWrapper(c Classifier, op string, err error) error {
	if err == nil || nb.IsWouldBlock(err) {
		return err
	}
	return NewErrWrapper(c, op, err)
}

// NewTopLevelGenericErrWrapper wraps an error occurring at top
// level using ClassifyGenericError. This function panics if err is nil.
func NewTopLevelGenericErrWrapper(err error) *ErrWrapper {
	return NewErrWrapper(ClassifyGenericError, TopLevelOperation, err)
}

func classifyOperation(ew *ErrWrapper, operation string) string {
	switch ew.Operation {
	case ResolveOperation, ConnectOperation, TLSHandshakeOperation:
		return ew.Operation
	default:
		return operation
	}
}
