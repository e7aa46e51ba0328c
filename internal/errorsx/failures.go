package errorsx

// These are the failure strings we may assign to an ErrWrapper.
const (
	FailureAddressFamilyNotSupported = "address_family_not_supported"
	FailureAddressInUse              = "address_in_use"
	FailureAddressNotAvailable       = "address_not_available"
	FailureCapacityExceeded          = "capacity_exceeded"
	FailureConnectionAborted         = "connection_aborted"
	FailureConnectionAlreadyClosed   = "connection_already_closed"
	FailureConnectionRefused         = "connection_refused"
	FailureConnectionReset           = "connection_reset"
	FailureDNSNXDOMAINError          = "dns_nxdomain_error"
	FailureDNSNoAnswer               = "dns_no_answer"
	FailureDNSRefusedError           = "dns_refused_error"
	FailureDNSServerMisbehaving      = "dns_server_misbehaving"
	FailureDNSServfailError          = "dns_servfail_error"
	FailureEOFError                  = "eof_error"
	FailureGenericTimeoutError       = "generic_timeout_error"
	FailureHostUnreachable           = "host_unreachable"
	FailureInterrupted               = "interrupted"
	FailureNetworkDown               = "network_down"
	FailureNetworkUnreachable        = "network_unreachable"
	FailureNotConnected              = "not_connected"
	FailurePermissionDenied          = "permission_denied"
	FailureSSLFailedHandshake        = "ssl_failed_handshake"
	FailureSSLInvalidCertificate     = "ssl_invalid_certificate"
	FailureSSLInvalidHostname        = "ssl_invalid_hostname"
	FailureSSLUnknownAuthority       = "ssl_unknown_authority"
	FailureTimedOut                  = "timed_out"
)

// These are the operations we may assign to an ErrWrapper.
const (
	// ResolveOperation is the operation where we resolve a domain name.
	ResolveOperation = "resolve"

	// ConnectOperation is the operation where we do a TCP connect.
	ConnectOperation = "connect"

	// TLSHandshakeOperation is the TLS handshake.
	TLSHandshakeOperation = "tls_handshake"

	// CloseOperation is when we close a socket.
	CloseOperation = "close"

	// ReadOperation is when we read from a socket.
	ReadOperation = "read"

	// WriteOperation is when we write to a socket.
	WriteOperation = "write"

	// TopLevelOperation is used when we cannot be more specific.
	TopLevelOperation = "top_level"
)
