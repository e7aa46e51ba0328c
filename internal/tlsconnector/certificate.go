// Package tlsconnector contains the backend-independent TLS connector
// configuration and the builder used to accumulate it.
//
// Certificates and keys reference the caller's byte slices and never
// copy them. The caller's buffers MUST outlive the [Config] and any
// backend connector built from it. Nothing in this package parses
// certificate or key bytes: that is the job of the backend.
package tlsconnector

// Encoding is the encoding of certificate or key bytes.
type Encoding int

const (
	// EncodingPEM is the PEM encoding.
	EncodingPEM = Encoding(iota)

	// EncodingDER is the DER encoding.
	EncodingDER
)

// String implements fmt.Stringer.
func (e Encoding) String() string {
	switch e {
	case EncodingPEM:
		return "PEM"
	case EncodingDER:
		return "DER"
	default:
		return "unknown"
	}
}

// Certificate is a reference to an X.509 certificate in PEM or DER.
type Certificate struct {
	encoding Encoding
	data     []byte
}

// CertificateFromPEM wraps PEM bytes.
func CertificateFromPEM(data []byte) Certificate {
	return Certificate{encoding: EncodingPEM, data: data}
}

// CertificateFromDER wraps DER bytes.
func CertificateFromDER(data []byte) Certificate {
	return Certificate{encoding: EncodingDER, data: data}
}

// Encoding returns the encoding.
func (c Certificate) Encoding() Encoding {
	return c.encoding
}

// Bytes returns the slice passed to the constructor.
func (c Certificate) Bytes() []byte {
	return c.data
}

// KeyRole constrains the role type parameter of [PKey].
type KeyRole interface {
	Private | Public
}

// Private marks a private key.
type Private struct{}

// Public marks a public key.
type Public struct{}

// PKey is a reference to an encoded key whose role is R.
type PKey[R KeyRole] struct {
	encoding Encoding
	data     []byte
}

// PrivateKeyFromPEM wraps a PEM private key.
func PrivateKeyFromPEM(data []byte) PKey[Private] {
	return PKey[Private]{encoding: EncodingPEM, data: data}
}

// PrivateKeyFromDER wraps a DER private key.
func PrivateKeyFromDER(data []byte) PKey[Private] {
	return PKey[Private]{encoding: EncodingDER, data: data}
}

// PublicKeyFromPEM wraps a PEM public key.
func PublicKeyFromPEM(data []byte) PKey[Public] {
	return PKey[Public]{encoding: EncodingPEM, data: data}
}

// PublicKeyFromDER wraps a DER public key.
func PublicKeyFromDER(data []byte) PKey[Public] {
	return PKey[Public]{encoding: EncodingDER, data: data}
}

// Encoding returns the encoding.
func (k PKey[R]) Encoding() Encoding {
	return k.encoding
}

// Bytes returns the slice passed to the constructor.
func (k PKey[R]) Bytes() []byte {
	return k.data
}

// Identity is a client certificate along with its private key.
type Identity struct {
	cert Certificate
	key  PKey[Private]
}

// NewIdentity creates a new [Identity]. Passing a PKey[Public] does
// not compile.
func NewIdentity(cert Certificate, key PKey[Private]) Identity {
	return Identity{cert: cert, key: key}
}

// Certificate returns the certificate.
func (id Identity) Certificate() Certificate {
	return id.cert
}

// Key returns the private key.
func (id Identity) Key() PKey[Private] {
	return id.key
}
