package testingx

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"io"
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/ooni/netem"
	"github.com/ooni/nbtls/internal/runtimex"
)

// TLSMITMProvider provides TLS MITM capabilities.
type TLSMITMProvider interface {
	// CACert returns the CA certificate used by the server.
	CACert() *x509.Certificate

	// ServerTLSConfig returns ready to use server TLS configuration.
	ServerTLSConfig() *tls.Config
}

// MustNewTLSMITMProviderNetem uses [github.com/ooni/netem] to implement [TLSMITMProvider].
func MustNewTLSMITMProviderNetem() TLSMITMProvider {
	return &netemTLSMITMProvider{netem.MustNewCA()}
}

type netemTLSMITMProvider struct {
	ca *netem.CA
}

// CACert implements TLSMITMProvider.
func (p *netemTLSMITMProvider) CACert() *x509.Certificate {
	return p.ca.CACert()
}

// ServerTLSConfig implements TLSMITMProvider. We mint a certificate for
// the SNI, which also covers the loopback address.
func (p *netemTLSMITMProvider) ServerTLSConfig() *tls.Config {
	return &tls.Config{
		GetCertificate: func(chi *tls.ClientHelloInfo) (*tls.Certificate, error) {
			if chi.ServerName == "" {
				return nil, errors.New("testingx: missing server name")
			}
			return p.ca.MustNewTLSCertificate(chi.ServerName, "127.0.0.1"), nil
		},
	}
}

// CACertPEM returns the PEM encoding of the CA certificate of mitm.
func CACertPEM(mitm TLSMITMProvider) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: mitm.CACert().Raw})
}

// TLSHandler handles TLS connections. A handler should first handle the TLS handshake
// in the GetConfigForClient method. If GetConfigForClient did not return an error, and the
// handler implements [TLSConnHandler], its HandleTLSConn method will be called after
// the handshake to handle the lifecycle of the TLS conn itself.
type TLSHandler interface {
	// GetConfigForClient handles the TLS handshake.
	GetConfigForClient(ctx context.Context, tcpConn net.Conn, chi *tls.ClientHelloInfo) (*tls.Config, error)
}

// TLSConn is the interface assumed by an established TLS conn.
type TLSConn interface {
	ConnectionState() tls.ConnectionState
	net.Conn
}

// TLSConnHandler is the interface implemented by handlers that want to handle
// and manage the established TLS connection after the handshake.
type TLSConnHandler interface {
	HandleTLSConn(conn TLSConn)
}

// TLSServer is a loopback TLS server useful to implement test servers.
type TLSServer struct {
	// cancel unblocks background goroutines blocked on the context contolling their lifecycle.
	cancel context.CancelFunc

	// closeOnce provides "once" semantics when closing.
	closeOnce sync.Once

	// endpoint is the endpoint where we're listening.
	endpoint netip.AddrPort

	// handler contains the TLSHandler.
	handler TLSHandler

	// listener is the listening socket controller.
	listener net.Listener

	// wg waits until the listening loop has finished running.
	wg sync.WaitGroup
}

// MustNewTLSServer creates and starts a new TLSServer listening on 127.0.0.1
// that executes the given action during the TLS handshake.
func MustNewTLSServer(handler TLSHandler) *TLSServer {
	listener := runtimex.Try1(net.ListenTCP("tcp", &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)}))
	ctx, cancel := context.WithCancel(context.Background())
	srv := &TLSServer{
		cancel:   cancel,
		endpoint: netip.MustParseAddrPort(listener.Addr().String()),
		handler:  handler,
		listener: listener,
	}
	srv.wg.Add(1)
	go srv.mainloop(ctx)
	return srv
}

// Endpoint returns the endpoint where the server is listening.
func (p *TLSServer) Endpoint() netip.AddrPort {
	return p.endpoint
}

// Close closes this server as soon as possible.
func (p *TLSServer) Close() (err error) {
	p.closeOnce.Do(func() {
		err = p.listener.Close()
		p.cancel()
		p.wg.Wait()
	})
	return
}

func (p *TLSServer) mainloop(ctx context.Context) {
	defer p.wg.Done()
	for {
		conn, err := p.listener.Accept()
		if err != nil {
			return
		}
		go p.handle(ctx, conn)
	}
}

func (p *TLSServer) handle(ctx context.Context, tcpConn net.Conn) {
	defer runtimex.CatchLogAndIgnorePanic(log.Log, "TLSServer.handle")
	defer tcpConn.Close()

	tlsConn := tls.Server(tcpConn, &tls.Config{
		GetConfigForClient: func(chi *tls.ClientHelloInfo) (*tls.Config, error) {
			return p.handler.GetConfigForClient(ctx, tcpConn, chi)
		},
	})
	tlsConn.SetDeadline(time.Now().Add(10 * time.Second))
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		return
	}
	defer tlsConn.Close()

	if h, good := p.handler.(TLSConnHandler); good {
		h.HandleTLSConn(tlsConn)
	}
}

// TLSHandlerTimeout returns a [TLSHandler] that never completes the handshake
// eventually causing the client connection to timeout.
func TLSHandlerTimeout() TLSHandler {
	return &tlsHandlerTimeout{timeout: 300 * time.Second}
}

type tlsHandlerTimeout struct {
	timeout time.Duration
}

// GetConfigForClient implements TLSHandler.
func (thx *tlsHandlerTimeout) GetConfigForClient(
	ctx context.Context, tcpConn net.Conn, chi *tls.ClientHelloInfo) (*tls.Config, error) {
	defer tcpConn.Close()
	select {
	case <-time.After(thx.timeout):
		return nil, errors.New("internal error")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

const (
	// TLSAlertInternalError is the alert sent on internal errors
	TLSAlertInternalError = byte(80)

	// TLSAlertUnrecognizedName is the alert sent when the name is not recognized
	TLSAlertUnrecognizedName = byte(112)
)

// TLSHandlerSendAlert sends the alert given as argument to the client.
func TLSHandlerSendAlert(alert byte) TLSHandler {
	return &tlsHandlerSendAlert{alert}
}

type tlsHandlerSendAlert struct {
	alert byte
}

// GetConfigForClient implements TLSHandler.
func (thx *tlsHandlerSendAlert) GetConfigForClient(
	ctx context.Context, tcpConn net.Conn, chi *tls.ClientHelloInfo) (*tls.Config, error) {
	alertdata := []byte{
		21, // alert
		3,  // version[0]
		3,  // version[1]
		0,  // length[0]
		2,  // length[1]
		2,  // fatal
		thx.alert,
	}
	_, _ = tcpConn.Write(alertdata)
	_ = tcpConn.Close() // close connection to avoid the caller trying to send another alert
	return nil, errors.New("internal error")
}

// TLSHandlerEOF closes the connection during the handshake.
func TLSHandlerEOF() TLSHandler {
	return &tlsHandlerEOF{}
}

type tlsHandlerEOF struct{}

// GetConfigForClient implements TLSHandler.
func (*tlsHandlerEOF) GetConfigForClient(
	ctx context.Context, tcpConn net.Conn, chi *tls.ClientHelloInfo) (*tls.Config, error) {
	tcpConn.Close()
	return nil, errors.New("internal error")
}

// TLSHandlerEcho is a [TLSHandler] that completes the handshake using
// certificates minted by a [TLSMITMProvider] and echoes back what it reads.
//
// When the client does not send SNI, we mint a certificate for the
// server IP address.
type TLSHandlerEcho struct {
	// ClientAuth is the OPTIONAL client authentication policy.
	ClientAuth tls.ClientAuthType

	// ClientCerts is the OPTIONAL channel where we post the certificates
	// sent by the client. We do not block if the channel is full.
	ClientCerts chan []*x509.Certificate

	// MITM is the MANDATORY MITM provider.
	MITM TLSMITMProvider
}

var _ TLSConnHandler = &TLSHandlerEcho{}

// GetConfigForClient implements TLSHandler.
func (thx *TLSHandlerEcho) GetConfigForClient(
	ctx context.Context, tcpConn net.Conn, chi *tls.ClientHelloInfo) (*tls.Config, error) {
	config := thx.MITM.ServerTLSConfig()
	getCertificate := config.GetCertificate
	config.ClientAuth = thx.ClientAuth
	config.NextProtos = nil
	config.GetCertificate = func(chi *tls.ClientHelloInfo) (*tls.Certificate, error) {
		if chi.ServerName == "" {
			clone := *chi
			clone.ServerName = tcpConn.LocalAddr().(*net.TCPAddr).IP.String()
			chi = &clone
		}
		return getCertificate(chi)
	}
	return config, nil
}

// HandleTLSConn implements TLSConnHandler.
func (thx *TLSHandlerEcho) HandleTLSConn(conn TLSConn) {
	if thx.ClientCerts != nil {
		select {
		case thx.ClientCerts <- conn.ConnectionState().PeerCertificates:
		default:
		}
	}
	_, _ = io.Copy(conn, conn)
}
