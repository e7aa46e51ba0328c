// Package tlsbackend converts a backend-independent [tlsconnector.Config]
// into a [*Connector] using crypto/tls and gitlab.com/yawning/utls.git.
package tlsbackend

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/ooni/nbtls/internal/model"
	"github.com/ooni/nbtls/internal/tlsconnector"
)

var (
	// ErrUnsupportedProtocol indicates that the config asks for a
	// protocol version that this backend refuses to speak.
	ErrUnsupportedProtocol = errors.New("tlsbackend: unsupported protocol")

	// ErrInvalidCertificate indicates that we cannot parse a root certificate.
	ErrInvalidCertificate = errors.New("tlsbackend: invalid certificate")

	// ErrInvalidIdentity indicates that we cannot load the client identity.
	ErrInvalidIdentity = errors.New("tlsbackend: invalid identity")

	// errNoPeerCertificates indicates the server did not send any certificate.
	errNoPeerCertificates = errors.New("tlsbackend: no peer certificates")
)

// DefaultTimeout is the handshake timeout used when [Context] does not specify one.
const DefaultTimeout = 10 * time.Second

// Context is the backend context carried by [tlsconnector.Config].
type Context struct {
	// Handshaker is the OPTIONAL handshaker. When nil, we use
	// [HandshakerStdlib].
	Handshaker Handshaker

	// Timeout is the OPTIONAL handshake timeout. When zero or
	// negative, we use [DefaultTimeout].
	Timeout time.Duration

	// NextProtos is the OPTIONAL ALPN list.
	NextProtos []string

	// Logger is the OPTIONAL logger.
	Logger model.Logger
}

// Connector contains the parsed configuration needed to secure a socket.
// The zero value is invalid; use [NewConnector].
type Connector struct {
	acceptInvalidCerts     bool
	acceptInvalidHostnames bool
	certificates           []tls.Certificate
	handshaker             Handshaker
	logger                 model.Logger
	maxVersion             uint16
	minVersion             uint16
	nextProtos             []string
	roots                  *x509.CertPool
	timeout                time.Duration
	useSNI                 bool
}

// NewConnector parses the roots and the identity referenced by config
// and maps its protocol versions. Pass it to [tlsconnector.Build].
func NewConnector(config *tlsconnector.Config[Context]) (*Connector, error) {
	bctx := config.Context()
	c := &Connector{
		acceptInvalidCerts:     config.AcceptInvalidCerts(),
		acceptInvalidHostnames: config.AcceptInvalidHostnames(),
		handshaker:             bctx.Handshaker,
		logger:                 model.ValidLoggerOrDefault(bctx.Logger),
		nextProtos:             bctx.NextProtos,
		timeout:                bctx.Timeout,
		useSNI:                 config.UseSNI(),
	}
	if c.handshaker == nil {
		c.handshaker = &HandshakerStdlib{}
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}

	var err error
	if p, found := config.MinProtocol().Get(); found {
		if c.minVersion, err = tlsVersion(p); err != nil {
			return nil, err
		}
	}
	if p, found := config.MaxProtocol().Get(); found {
		if c.maxVersion, err = tlsVersion(p); err != nil {
			return nil, err
		}
	}

	if c.roots, err = newRootPool(config.RootCertificates()); err != nil {
		return nil, err
	}

	if id, found := config.Identity().Get(); found {
		cert, err := loadIdentity(id)
		if err != nil {
			return nil, err
		}
		c.certificates = []tls.Certificate{cert}
	}
	return c, nil
}

// tlsVersion maps a [tlsconnector.Protocol] to a crypto/tls version.
func tlsVersion(p tlsconnector.Protocol) (uint16, error) {
	switch p {
	case tlsconnector.ProtocolTLSv10:
		return tls.VersionTLS10, nil
	case tlsconnector.ProtocolTLSv11:
		return tls.VersionTLS11, nil
	case tlsconnector.ProtocolTLSv12:
		return tls.VersionTLS12, nil
	case tlsconnector.ProtocolTLSv13:
		return tls.VersionTLS13, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedProtocol, p)
	}
}

// newRootPool returns the system pool extended with roots.
func newRootPool(roots []tlsconnector.Certificate) (*x509.CertPool, error) {
	pool, err := x509.SystemCertPool()
	if err != nil {
		pool = x509.NewCertPool()
	}
	for idx, root := range roots {
		switch root.Encoding() {
		case tlsconnector.EncodingPEM:
			if !pool.AppendCertsFromPEM(root.Bytes()) {
				return nil, fmt.Errorf("%w: root #%d: no PEM certificates", ErrInvalidCertificate, idx)
			}
		default:
			cert, err := x509.ParseCertificate(root.Bytes())
			if err != nil {
				return nil, fmt.Errorf("%w: root #%d: %s", ErrInvalidCertificate, idx, err.Error())
			}
			pool.AddCert(cert)
		}
	}
	return pool, nil
}

// loadIdentity converts both parts of id to PEM, if needed, so that
// tls.X509KeyPair can check that they match.
func loadIdentity(id tlsconnector.Identity) (tls.Certificate, error) {
	certPEM := toPEM(id.Certificate().Encoding(), id.Certificate().Bytes(), "CERTIFICATE")
	keyPEM := toPEM(id.Key().Encoding(), id.Key().Bytes(), "PRIVATE KEY")
	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("%w: %s", ErrInvalidIdentity, err.Error())
	}
	return cert, nil
}

func toPEM(encoding tlsconnector.Encoding, data []byte, blockType string) []byte {
	if encoding == tlsconnector.EncodingPEM {
		return data
	}
	return pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: data})
}

// TLSConfig returns the *tls.Config to secure a socket connected to remote.
//
// We never send SNI when the remote has no hostname or the hostname is an IP
// literal. In such cases, we verify the certificate against the IP address.
// When SNI is disabled but we know the hostname, we still verify the certificate
// against the hostname unless we've been configured to accept invalid hostnames.
func (c *Connector) TLSConfig(remote model.HostSocketAddr) *tls.Config {
	peerName := remote.Addr().IP().String()
	hostname, found := remote.Addr().Hostname()
	symbolic := found && !isIPLiteral(hostname)
	if symbolic {
		peerName = hostname
	}
	config := &tls.Config{
		Certificates: c.certificates,
		MaxVersion:   c.maxVersion,
		MinVersion:   c.minVersion,
		NextProtos:   c.nextProtos,
		RootCAs:      c.roots,
		// verification happens in VerifyPeerCertificate against peerName
		InsecureSkipVerify:    true,
		VerifyPeerCertificate: c.verifyPeerCertificate(peerName),
	}
	if c.useSNI && symbolic {
		config.ServerName = hostname
	}
	return config
}

func isIPLiteral(s string) bool {
	_, err := netip.ParseAddr(s)
	return err == nil
}

func (c *Connector) verifyPeerCertificate(peerName string) func([][]byte, [][]*x509.Certificate) error {
	return func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
		if c.acceptInvalidCerts {
			return nil
		}
		if len(rawCerts) <= 0 {
			return errNoPeerCertificates
		}
		certs := make([]*x509.Certificate, 0, len(rawCerts))
		for _, raw := range rawCerts {
			cert, err := x509.ParseCertificate(raw)
			if err != nil {
				return err
			}
			certs = append(certs, cert)
		}
		opts := x509.VerifyOptions{
			Roots:         c.roots,
			Intermediates: x509.NewCertPool(),
		}
		for _, cert := range certs[1:] {
			opts.Intermediates.AddCert(cert)
		}
		if !c.acceptInvalidHostnames {
			opts.DNSName = peerName
		}
		_, err := certs[0].Verify(opts)
		return err
	}
}

// Handshake secures conn, which is connected to remote, and returns the
// secured conn along with the connection state. This function is blocking
// and honors the handshake timeout. On failure, the caller still owns conn.
func (c *Connector) Handshake(
	ctx context.Context, conn net.Conn, remote model.HostSocketAddr) (net.Conn, tls.ConnectionState, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	config := c.TLSConfig(remote)
	c.logger.Debugf("tls {remote=%s sni=%s next=%+v}...", remote, config.ServerName, config.NextProtos)
	start := time.Now()
	tlsconn, state, err := c.handshaker.Handshake(ctx, conn, config)
	elapsed := time.Since(start)
	if err != nil {
		c.logger.Debugf("tls {remote=%s sni=%s next=%+v}... %s in %s",
			remote, config.ServerName, config.NextProtos, err, elapsed)
		return nil, tls.ConnectionState{}, err
	}
	c.logger.Debugf(
		"tls {remote=%s sni=%s next=%+v}... ok in %s {next=%s cipher=%s v=%s}",
		remote, config.ServerName, config.NextProtos, elapsed, state.NegotiatedProtocol,
		tls.CipherSuiteName(state.CipherSuite), tls.VersionName(state.Version))
	return tlsconn, state, nil
}
