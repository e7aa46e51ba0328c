package errorsx

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"strings"

	"github.com/ooni/nbtls/internal/model"
)

// ClassifyGenericError maps an error occurred during an operation to
// a failure string. This is the most generic classifier. You usually
// use it when mapping I/O errors. The more specific classifiers call
// this classifier when they fail to find a mapping.
//
// If the input error is an *ErrWrapper we don't perform
// the classification again and we return its Failure.
//
// If everything else fails, this classifier returns a string
// like "unknown_failure: XXX".
func ClassifyGenericError(err error) string {
	var errwrapper *ErrWrapper
	if errors.As(err, &errwrapper) {
		return errwrapper.Error() // we've already wrapped it
	}

	// Classify system errors first. Using strings would not
	// work on Windows, where the messages differ.
	if failure := classifySyscallError(err); failure != "" {
		return failure
	}

	if errors.Is(err, context.Canceled) {
		return FailureInterrupted
	}
	if errors.Is(err, model.ErrCapacityExceeded) {
		return FailureCapacityExceeded
	}

	if failure := classifyWithStringSuffix(err); failure != "" {
		return failure
	}

	return fmt.Sprintf("unknown_failure: %s", err.Error())
}

// classifyWithStringSuffix is a subset of ClassifyGenericError that
// performs classification by looking at error suffixes. This function
// will return an empty string if it cannot classify the error.
func classifyWithStringSuffix(err error) string {
	s := err.Error()
	if strings.HasSuffix(s, "operation was canceled") {
		return FailureInterrupted
	}
	if strings.HasSuffix(s, "EOF") {
		return FailureEOFError
	}
	if strings.HasSuffix(s, "context deadline exceeded") {
		return FailureGenericTimeoutError
	}
	if strings.HasSuffix(s, "i/o timeout") {
		return FailureGenericTimeoutError
	}
	if strings.HasSuffix(s, "TLS handshake timeout") {
		return FailureGenericTimeoutError
	}
	if strings.HasSuffix(s, DNSNoSuchHostSuffix) {
		return FailureDNSNXDOMAINError
	}
	if strings.HasSuffix(s, DNSServerMisbehavingSuffix) {
		return FailureDNSServerMisbehaving
	}
	if strings.HasSuffix(s, DNSNoAnswerSuffix) {
		return FailureDNSNoAnswer
	}
	if strings.HasSuffix(s, "use of closed network connection") {
		return FailureConnectionAlreadyClosed
	}
	return "" // not found
}

// We use these strings to string-match errors in the standard library
// and map such errors to failures.
const (
	DNSNoSuchHostSuffix        = "no such host"
	DNSServerMisbehavingSuffix = "server misbehaving"
	DNSNoAnswerSuffix          = "no answer from DNS server"
)

// These errors are returned by our own DNS transports. Their suffix
// matches the equivalent unexported errors of the standard library.
var (
	ErrDNSNoSuchHost  = fmt.Errorf("nbdns: %s", DNSNoSuchHostSuffix)
	ErrDNSRefused     = errors.New("nbdns: refused")
	ErrDNSServfail    = errors.New("nbdns: servfail")
	ErrDNSMisbehaving = fmt.Errorf("nbdns: %s", DNSServerMisbehavingSuffix)
	ErrDNSNoAnswer    = fmt.Errorf("nbdns: %s", DNSNoAnswerSuffix)
)

// ClassifyResolverError maps DNS resolution errors to failure strings.
//
// If the input error is an *ErrWrapper we don't perform
// the classification again and we return its Failure.
//
// If this classifier fails, it calls ClassifyGenericError.
func ClassifyResolverError(err error) string {
	var errwrapper *ErrWrapper
	if errors.As(err, &errwrapper) {
		return errwrapper.Error() // we've already wrapped it
	}
	if errors.Is(err, ErrDNSRefused) {
		return FailureDNSRefusedError
	}
	if errors.Is(err, ErrDNSServfail) {
		return FailureDNSServfailError
	}
	return ClassifyGenericError(err)
}

// ClassifyTLSHandshakeError maps an error occurred during the TLS
// handshake to a failure string.
//
// If the input error is an *ErrWrapper we don't perform
// the classification again and we return its Failure.
//
// If this classifier fails, it calls ClassifyGenericError.
func ClassifyTLSHandshakeError(err error) string {
	var errwrapper *ErrWrapper
	if errors.As(err, &errwrapper) {
		return errwrapper.Error() // we've already wrapped it
	}

	var x509HostnameError x509.HostnameError
	if errors.As(err, &x509HostnameError) {
		return FailureSSLInvalidHostname
	}
	var x509UnknownAuthorityError x509.UnknownAuthorityError
	if errors.As(err, &x509UnknownAuthorityError) {
		return FailureSSLUnknownAuthority
	}
	var x509CertificateInvalidError x509.CertificateInvalidError
	if errors.As(err, &x509CertificateInvalidError) {
		return FailureSSLInvalidCertificate
	}
	var verificationError *tls.CertificateVerificationError
	if errors.As(err, &verificationError) {
		return FailureSSLInvalidCertificate
	}
	var alertError tls.AlertError
	if errors.As(err, &alertError) {
		return FailureSSLFailedHandshake
	}
	return ClassifyGenericError(err)
}
