package testingx_test

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/ooni/nbtls/internal/testingx"
)

func TestTLSServer(t *testing.T) {
	// testcase is a test case implemented by this func
	type testcase struct {
		// name is the name of the test case
		name string

		// newHandler is the factory for creating a new handler
		newHandler func(mitm testingx.TLSMITMProvider) testingx.TLSHandler

		// serverName is the SNI to use
		serverName string

		// timeout is the TLS handshake timeout
		timeout time.Duration

		// checkErr checks the TLS handshake error
		checkErr func(err error) bool

		// expectBody is the text we expect to be echoed otherwise
		expectBody []byte
	}

	testcases := []testcase{{
		name: "with TLSHandlerTimeout",
		newHandler: func(testingx.TLSMITMProvider) testingx.TLSHandler {
			return testingx.TLSHandlerTimeout()
		},
		serverName: "www.example.com",
		timeout:    time.Second,
		checkErr: func(err error) bool {
			return errors.Is(err, context.DeadlineExceeded)
		},
	}, {
		name: "with TLSHandlerSendAlert",
		newHandler: func(testingx.TLSMITMProvider) testingx.TLSHandler {
			return testingx.TLSHandlerSendAlert(testingx.TLSAlertUnrecognizedName)
		},
		serverName: "www.example.com",
		timeout:    10 * time.Second,
		checkErr: func(err error) bool {
			return err != nil && strings.HasSuffix(err.Error(), "tls: unrecognized name")
		},
	}, {
		name: "with TLSHandlerEOF",
		newHandler: func(testingx.TLSMITMProvider) testingx.TLSHandler {
			return testingx.TLSHandlerEOF()
		},
		serverName: "www.example.com",
		timeout:    10 * time.Second,
		checkErr: func(err error) bool {
			return err != nil && strings.HasSuffix(err.Error(), "EOF")
		},
	}, {
		name: "with TLSHandlerEcho and SNI",
		newHandler: func(mitm testingx.TLSMITMProvider) testingx.TLSHandler {
			return &testingx.TLSHandlerEcho{MITM: mitm}
		},
		serverName: "www.example.com",
		timeout:    10 * time.Second,
		expectBody: []byte("www.example.com"),
	}, {
		name: "with TLSHandlerEcho and without SNI",
		newHandler: func(mitm testingx.TLSMITMProvider) testingx.TLSHandler {
			return &testingx.TLSHandlerEcho{MITM: mitm}
		},
		serverName: "",
		timeout:    10 * time.Second,
		expectBody: []byte("127.0.0.1"),
	}}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			mitm := testingx.MustNewTLSMITMProviderNetem()
			server := testingx.MustNewTLSServer(tc.newHandler(mitm))
			defer server.Close()

			pool := x509.NewCertPool()
			pool.AddCert(mitm.CACert())

			// without SNI we verify the certificate against the expected IP address
			expectedName := tc.serverName
			if expectedName == "" {
				expectedName = server.Endpoint().Addr().String()
			}
			tlsConfig := &tls.Config{
				InsecureSkipVerify: true,
				ServerName:         tc.serverName,
				VerifyPeerCertificate: func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
					cert, err := x509.ParseCertificate(rawCerts[0])
					if err != nil {
						return err
					}
					_, err = cert.Verify(x509.VerifyOptions{DNSName: expectedName, Roots: pool})
					return err
				},
			}

			ctx, cancel := context.WithTimeout(context.Background(), tc.timeout)
			defer cancel()

			tcpConn, err := (&net.Dialer{}).DialContext(ctx, "tcp", server.Endpoint().String())
			if err != nil {
				t.Fatal(err)
			}
			defer tcpConn.Close()
			tlsConn := tls.Client(tcpConn, tlsConfig)
			err = tlsConn.HandshakeContext(ctx)

			if tc.checkErr != nil {
				if !tc.checkErr(err) {
					t.Fatal("unexpected error", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}

			if _, err := tlsConn.Write(tc.expectBody); err != nil {
				t.Fatal(err)
			}
			data := make([]byte, len(tc.expectBody))
			if _, err := io.ReadFull(tlsConn, data); err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tc.expectBody, data); diff != "" {
				t.Fatal(diff)
			}
		})
	}
}

func TestTLSServerClose(t *testing.T) {
	server := testingx.MustNewTLSServer(testingx.TLSHandlerEOF())
	if err := server.Close(); err != nil {
		t.Fatal(err)
	}
	// closing twice is fine
	if err := server.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestCACertPEM(t *testing.T) {
	mitm := testingx.MustNewTLSMITMProviderNetem()
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(testingx.CACertPEM(mitm)) {
		t.Fatal("cannot parse the PEM certificate")
	}
}

func TestTLSMITMProviderNetem(t *testing.T) {
	mitm := testingx.MustNewTLSMITMProviderNetem()
	config := mitm.ServerTLSConfig()

	t.Run("we mint certificates for the server name", func(t *testing.T) {
		cert, err := config.GetCertificate(&tls.ClientHelloInfo{ServerName: "example.com"})
		if err != nil {
			t.Fatal(err)
		}
		pool := x509.NewCertPool()
		pool.AddCert(mitm.CACert())
		for _, name := range []string{"example.com", "127.0.0.1"} {
			if _, err := cert.Leaf.Verify(x509.VerifyOptions{DNSName: name, Roots: pool}); err != nil {
				t.Fatal(name, err)
			}
		}
	})

	t.Run("we need a server name", func(t *testing.T) {
		if _, err := config.GetCertificate(&tls.ClientHelloInfo{}); err == nil {
			t.Fatal("expected an error")
		}
	})
}
