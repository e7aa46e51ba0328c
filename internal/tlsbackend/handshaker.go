package tlsbackend

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"time"

	utls "gitlab.com/yawning/utls.git"
)

// Handshaker performs the TLS handshake over an established conn.
type Handshaker interface {
	// Handshake runs the handshake honoring ctx. On success, it
	// returns the secured conn and the connection state.
	Handshake(ctx context.Context, conn net.Conn, config *tls.Config) (net.Conn, tls.ConnectionState, error)
}

// HandshakerStdlib is the [Handshaker] using crypto/tls.
type HandshakerStdlib struct{}

var _ Handshaker = &HandshakerStdlib{}

// Handshake implements Handshaker.
func (h *HandshakerStdlib) Handshake(
	ctx context.Context, conn net.Conn, config *tls.Config) (net.Conn, tls.ConnectionState, error) {
	setDeadline(ctx, conn)
	defer conn.SetDeadline(time.Time{})
	tlsconn := tls.Client(conn, config)
	if err := tlsconn.HandshakeContext(ctx); err != nil {
		return nil, tls.ConnectionState{}, err
	}
	return tlsconn, tlsconn.ConnectionState(), nil
}

func setDeadline(ctx context.Context, conn net.Conn) {
	if deadline, found := ctx.Deadline(); found {
		conn.SetDeadline(deadline)
	}
}

// HandshakerUTLS is the [Handshaker] using gitlab.com/yawning/utls.git
// to mimic the ClientHello of a browser.
type HandshakerUTLS struct {
	// ClientHelloID is the MANDATORY ClientHello to mimic.
	ClientHelloID *utls.ClientHelloID
}

var _ Handshaker = &HandshakerUTLS{}

// ErrUTLSHandshakePanic indicates that the utls handshake panicked.
var ErrUTLSHandshakePanic = errors.New("tlsbackend: utls handshake panic")

// Handshake implements Handshaker. The parroted ClientHello decides which
// versions we offer, so MinVersion and MaxVersion only bound what we accept.
func (h *HandshakerUTLS) Handshake(
	ctx context.Context, conn net.Conn, config *tls.Config) (net.Conn, tls.ConnectionState, error) {
	setDeadline(ctx, conn)
	uconn := utls.UClient(conn, newUTLSConfig(config), *h.ClientHelloID)
	errch := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				errch <- ErrUTLSHandshakePanic
			}
		}()
		errch <- uconn.Handshake()
	}()
	select {
	case err := <-errch:
		conn.SetDeadline(time.Time{})
		if err != nil {
			return nil, tls.ConnectionState{}, err
		}
		return uconn, utlsConnectionState(uconn.ConnectionState()), nil
	case <-ctx.Done():
		conn.SetDeadline(time.Now()) // unblocks the handshake goroutine
		return nil, tls.ConnectionState{}, ctx.Err()
	}
}

func newUTLSConfig(config *tls.Config) *utls.Config {
	uconfig := &utls.Config{
		InsecureSkipVerify:    config.InsecureSkipVerify,
		MaxVersion:            config.MaxVersion,
		MinVersion:            config.MinVersion,
		NextProtos:            config.NextProtos,
		RootCAs:               config.RootCAs,
		ServerName:            config.ServerName,
		VerifyPeerCertificate: config.VerifyPeerCertificate,
	}
	for _, cert := range config.Certificates {
		uconfig.Certificates = append(uconfig.Certificates, utls.Certificate{
			Certificate: cert.Certificate,
			PrivateKey:  cert.PrivateKey,
			Leaf:        cert.Leaf,
		})
	}
	return uconfig
}

func utlsConnectionState(s utls.ConnectionState) tls.ConnectionState {
	return tls.ConnectionState{
		Version:            s.Version,
		HandshakeComplete:  s.HandshakeComplete,
		DidResume:          s.DidResume,
		CipherSuite:        s.CipherSuite,
		NegotiatedProtocol: s.NegotiatedProtocol,
		ServerName:         s.ServerName,
		PeerCertificates:   s.PeerCertificates,
		VerifiedChains:     s.VerifiedChains,
	}
}

// ErrUnknownHandshaker indicates that [NewHandshaker] does not know a name.
var ErrUnknownHandshaker = errors.New("tlsbackend: unknown handshaker")

// NewHandshaker returns the [Handshaker] with the given name, which is one
// of "stdlib", "utls-chrome", "utls-firefox". The empty name means "stdlib".
func NewHandshaker(name string) (Handshaker, error) {
	switch name {
	case "", "stdlib":
		return &HandshakerStdlib{}, nil
	case "utls-chrome":
		return &HandshakerUTLS{ClientHelloID: &utls.HelloChrome_Auto}, nil
	case "utls-firefox":
		return &HandshakerUTLS{ClientHelloID: &utls.HelloFirefox_Auto}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownHandshaker, name)
	}
}
