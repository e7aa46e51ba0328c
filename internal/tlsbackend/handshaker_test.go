package tlsbackend

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"testing"

	"github.com/ooni/nbtls/internal/tlsconnector"
	utls "gitlab.com/yawning/utls.git"
)

func TestNewHandshaker(t *testing.T) {
	t.Run("with known names", func(t *testing.T) {
		expect := map[string]*utls.ClientHelloID{
			"utls-chrome":  &utls.HelloChrome_Auto,
			"utls-firefox": &utls.HelloFirefox_Auto,
		}
		for name, id := range expect {
			h, err := NewHandshaker(name)
			if err != nil {
				t.Fatal(err)
			}
			uh, ok := h.(*HandshakerUTLS)
			if !ok {
				t.Fatal("unexpected type", name)
			}
			if uh.ClientHelloID != id {
				t.Fatal("unexpected ClientHelloID", name)
			}
		}
		for _, name := range []string{"", "stdlib"} {
			h, err := NewHandshaker(name)
			if err != nil {
				t.Fatal(err)
			}
			if _, ok := h.(*HandshakerStdlib); !ok {
				t.Fatal("unexpected type", name)
			}
		}
	})

	t.Run("with an unknown name", func(t *testing.T) {
		h, err := NewHandshaker("boringssl")
		if !errors.Is(err, ErrUnknownHandshaker) {
			t.Fatal("not the error we expected", err)
		}
		if h != nil {
			t.Fatal("expected nil handshaker")
		}
	})
}

func TestNewUTLSConfig(t *testing.T) {
	var called bool
	pool := x509.NewCertPool()
	config := &tls.Config{
		Certificates:       []tls.Certificate{{Certificate: [][]byte{{1, 2, 3}}}},
		InsecureSkipVerify: true,
		MaxVersion:         tls.VersionTLS13,
		MinVersion:         tls.VersionTLS12,
		NextProtos:         []string{"h2"},
		RootCAs:            pool,
		ServerName:         "example.com",
		VerifyPeerCertificate: func(rawCerts [][]byte, verifiedChains [][]*x509.Certificate) error {
			called = true
			return nil
		},
	}
	uconfig := newUTLSConfig(config)
	if !uconfig.InsecureSkipVerify {
		t.Fatal("expected InsecureSkipVerify")
	}
	if uconfig.MinVersion != tls.VersionTLS12 || uconfig.MaxVersion != tls.VersionTLS13 {
		t.Fatal("unexpected versions")
	}
	if len(uconfig.NextProtos) != 1 || uconfig.NextProtos[0] != "h2" {
		t.Fatal("unexpected NextProtos")
	}
	if uconfig.RootCAs != pool {
		t.Fatal("unexpected RootCAs")
	}
	if uconfig.ServerName != "example.com" {
		t.Fatal("unexpected ServerName")
	}
	if len(uconfig.Certificates) != 1 || uconfig.Certificates[0].Certificate[0][2] != 3 {
		t.Fatal("unexpected Certificates")
	}
	if err := uconfig.VerifyPeerCertificate(nil, nil); err != nil || !called {
		t.Fatal("VerifyPeerCertificate not forwarded")
	}
}

func TestHandshakerUTLS(t *testing.T) {
	srv := startTestServer(t, false)

	t.Run("on success", func(t *testing.T) {
		c := newConnector(t, tlsconnector.NewBuilder().
			RootCertificate(tlsconnector.CertificateFromPEM(srv.caPEM)), Context{
			Handshaker: &HandshakerUTLS{ClientHelloID: &utls.HelloGolang},
		})
		conn, state, err := c.Handshake(context.Background(), srv.dial(t), remoteWithHostname(t, srv.endpoint, "example.com"))
		if err != nil {
			t.Fatal(err)
		}
		defer conn.Close()
		if !state.HandshakeComplete {
			t.Fatal("expected a complete handshake")
		}
		if len(state.PeerCertificates) <= 0 {
			t.Fatal("expected peer certificates")
		}
	})

	t.Run("we verify the certificate", func(t *testing.T) {
		c := newConnector(t, tlsconnector.NewBuilder(), Context{
			Handshaker: &HandshakerUTLS{ClientHelloID: &utls.HelloGolang},
		})
		_, _, err := c.Handshake(context.Background(), srv.dial(t), remoteWithHostname(t, srv.endpoint, "example.com"))
		var unknownAuthority x509.UnknownAuthorityError
		if !errors.As(err, &unknownAuthority) {
			t.Fatal("not the error we expected", err)
		}
	})

	t.Run("with a canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		h := &HandshakerUTLS{ClientHelloID: &utls.HelloGolang}
		_, _, err := h.Handshake(ctx, srv.dial(t), &tls.Config{InsecureSkipVerify: true})
		if !errors.Is(err, context.Canceled) {
			t.Fatal("not the error we expected", err)
		}
	})
}
