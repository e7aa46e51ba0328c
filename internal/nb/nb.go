// Package nb contains the non-blocking primitives shared by every
// capability in this module.
//
// A non-blocking operation returns nil on success, [ErrWouldBlock] when
// the caller should invoke it again once the transport is ready, or any
// other error, which is terminal.
package nb

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// ErrWouldBlock indicates that the operation cannot complete yet and that
// the caller should retry the identical call later.
var ErrWouldBlock = errors.New("operation would block")

// IsWouldBlock returns whether err is (or wraps) [ErrWouldBlock].
func IsWouldBlock(err error) bool {
	return errors.Is(err, ErrWouldBlock)
}

// Op is an operation in progress. Backends use it to keep the state of
// an operation across would-block retries. The zero value is invalid; use
// [Start] to create a new instance.
type Op[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Start runs fn in the background and returns the corresponding [*Op].
func Start[T any](fn func() (T, error)) *Op[T] {
	op := &Op[T]{done: make(chan struct{})}
	go func() {
		defer close(op.done)
		op.value, op.err = fn()
	}()
	return op
}

// Poll returns [ErrWouldBlock] while the operation is running and
// the operation results afterwards. Poll is idempotent once done.
func (op *Op[T]) Poll() (T, error) {
	select {
	case <-op.done:
		return op.value, op.err
	default:
		var zero T
		return zero, ErrWouldBlock
	}
}

// Done returns a channel closed when the operation has completed.
func (op *Op[T]) Done() <-chan struct{} {
	return op.done
}

const (
	// blockInitialInterval is the first pause between two polls.
	blockInitialInterval = time.Millisecond

	// blockMaxInterval is the longest pause between two polls.
	blockMaxInterval = 100 * time.Millisecond
)

// Block is the caller side of the non-blocking contract: it calls poll
// until it returns something other than [ErrWouldBlock], pausing between
// attempts with exponential backoff. It returns ctx.Err() when the context
// is done, which simply means we stop polling. Nothing in the capability
// layer calls Block; it exists for programs and tests.
func Block(ctx context.Context, poll func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = blockInitialInterval
	bo.MaxInterval = blockMaxInterval
	for {
		err := poll()
		if !IsWouldBlock(err) {
			return err
		}
		sleep := bo.NextBackOff()
		if sleep == backoff.Stop {
			sleep = blockMaxInterval
		}
		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Block1 is like [Block] but for operations returning a value.
func Block1[T any](ctx context.Context, poll func() (T, error)) (T, error) {
	var out T
	err := Block(ctx, func() (err error) {
		out, err = poll()
		return
	})
	return out, err
}
