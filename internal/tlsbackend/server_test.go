package tlsbackend

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net"
	"net/netip"
	"testing"
	"time"

	"github.com/ooni/nbtls/internal/testingx"
)

// testServer is a loopback TLS echo server whose certificates are minted
// on the fly by a netem MITM authority.
type testServer struct {
	// caPEM is the PEM-encoded authority certificate.
	caPEM []byte

	// caDER is the DER-encoded authority certificate.
	caDER []byte

	// endpoint is where the server listens.
	endpoint netip.AddrPort

	// clientCerts receives the client certificates of each handshake.
	clientCerts chan []*x509.Certificate
}

// startTestServer starts a [testServer]. When clientAuth is true the
// server asks for a client certificate.
func startTestServer(t *testing.T, clientAuth bool) *testServer {
	mitm := testingx.MustNewTLSMITMProviderNetem()
	handler := &testingx.TLSHandlerEcho{
		ClientCerts: make(chan []*x509.Certificate, 16),
		MITM:        mitm,
	}
	if clientAuth {
		handler.ClientAuth = tls.RequireAnyClientCert
	}
	server := testingx.MustNewTLSServer(handler)
	t.Cleanup(func() { server.Close() })
	return &testServer{
		caPEM:       testingx.CACertPEM(mitm),
		caDER:       mitm.CACert().Raw,
		endpoint:    server.Endpoint(),
		clientCerts: handler.ClientCerts,
	}
}

// dial connects to the server.
func (srv *testServer) dial(t *testing.T) net.Conn {
	conn, err := net.Dial("tcp", srv.endpoint.String())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// newClientIdentity returns a self-signed client certificate and its
// PKCS#8 private key, both DER encoded.
func newClientIdentity(t *testing.T) (certDER, keyDER []byte) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "nbtls-client"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	}
	certDER, err = x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		t.Fatal(err)
	}
	keyDER, err = x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatal(err)
	}
	return certDER, keyDER
}
