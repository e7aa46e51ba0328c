package tlsconnector

import (
	"errors"
	"fmt"
)

// Protocol is a SSL/TLS protocol version. Versions are ordered, so
// you can compare them using < and >.
type Protocol int

const (
	// ProtocolSSLv3 is SSL 3.0.
	ProtocolSSLv3 = Protocol(iota)

	// ProtocolTLSv10 is TLS 1.0.
	ProtocolTLSv10

	// ProtocolTLSv11 is TLS 1.1.
	ProtocolTLSv11

	// ProtocolTLSv12 is TLS 1.2.
	ProtocolTLSv12

	// ProtocolTLSv13 is TLS 1.3.
	ProtocolTLSv13
)

// String implements fmt.Stringer.
func (p Protocol) String() string {
	switch p {
	case ProtocolSSLv3:
		return "SSLv3"
	case ProtocolTLSv10:
		return "TLSv1.0"
	case ProtocolTLSv11:
		return "TLSv1.1"
	case ProtocolTLSv12:
		return "TLSv1.2"
	case ProtocolTLSv13:
		return "TLSv1.3"
	default:
		return fmt.Sprintf("Protocol(%d)", int(p))
	}
}

// ErrInvalidProtocol indicates that we don't know a protocol name.
var ErrInvalidProtocol = errors.New("tlsconnector: invalid protocol")

// ParseProtocol maps a protocol name to a [Protocol].
func ParseProtocol(name string) (Protocol, error) {
	switch name {
	case "SSLv3":
		return ProtocolSSLv3, nil
	case "TLSv1", "TLSv1.0":
		return ProtocolTLSv10, nil
	case "TLSv1.1":
		return ProtocolTLSv11, nil
	case "TLSv1.2":
		return ProtocolTLSv12, nil
	case "TLSv1.3":
		return ProtocolTLSv13, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrInvalidProtocol, name)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p Protocol) MarshalText() ([]byte, error) {
	if p < ProtocolSSLv3 || p > ProtocolTLSv13 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidProtocol, int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Protocol) UnmarshalText(data []byte) error {
	v, err := ParseProtocol(string(data))
	if err != nil {
		return err
	}
	*p = v
	return nil
}
