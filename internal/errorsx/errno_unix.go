//go:build unix

package errorsx

import (
	"errors"
	"syscall"

	"golang.org/x/sys/unix"
)

// classifySyscallError converts a syscall error to the
// proper failure string. Returns the failure string on
// success, an empty string otherwise.
func classifySyscallError(err error) string {
	var errno syscall.Errno
	if !errors.As(err, &errno) {
		return ""
	}
	switch errno {
	case unix.ECONNREFUSED:
		return FailureConnectionRefused
	case unix.ECONNRESET:
		return FailureConnectionReset
	case unix.ECONNABORTED:
		return FailureConnectionAborted
	case unix.EHOSTUNREACH:
		return FailureHostUnreachable
	case unix.ENETUNREACH:
		return FailureNetworkUnreachable
	case unix.ENETDOWN:
		return FailureNetworkDown
	case unix.ETIMEDOUT:
		return FailureTimedOut
	case unix.EAFNOSUPPORT:
		return FailureAddressFamilyNotSupported
	case unix.EADDRINUSE:
		return FailureAddressInUse
	case unix.EADDRNOTAVAIL:
		return FailureAddressNotAvailable
	case unix.ENOTCONN:
		return FailureNotConnected
	case unix.EACCES:
		return FailurePermissionDenied
	}
	return ""
}
