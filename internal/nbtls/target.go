package nbtls

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidTarget indicates that a target is not a valid host:port string.
var ErrInvalidTarget = errors.New("nbtls: invalid target")

// TargetError is the error returned by [ParseTarget].
type TargetError struct {
	// Target is the target we could not parse.
	Target string

	// Reason explains what is wrong with Target.
	Reason string
}

// Error implements error.
func (e *TargetError) Error() string {
	return fmt.Sprintf("%s %q: %s", ErrInvalidTarget.Error(), e.Target, e.Reason)
}

// Is allows errors.Is(err, ErrInvalidTarget) to succeed.
func (e *TargetError) Is(target error) bool {
	return target == ErrInvalidTarget
}

// ParseTarget splits target into host and port using the last colon. The
// host of a bracketed IPv6 endpoint (e.g., "[::1]:443") is unbracketed. The
// port must be a decimal number between 0 and 65535.
func ParseTarget(target string) (string, uint16, error) {
	idx := strings.LastIndexByte(target, ':')
	if idx < 0 {
		return "", 0, &TargetError{Target: target, Reason: "missing port"}
	}
	host, portText := target[:idx], target[idx+1:]
	if len(host) >= 2 && host[0] == '[' && host[len(host)-1] == ']' {
		host = host[1 : len(host)-1]
	}
	if host == "" {
		return "", 0, &TargetError{Target: target, Reason: "missing host"}
	}
	port, err := strconv.ParseUint(portText, 10, 16)
	if err != nil {
		return "", 0, &TargetError{Target: target, Reason: "invalid port"}
	}
	return host, uint16(port), nil
}
