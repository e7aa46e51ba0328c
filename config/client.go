package config

import (
	"bytes"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/ooni/nbtls/internal/model"
	"github.com/ooni/nbtls/internal/nbdns"
	"github.com/ooni/nbtls/internal/optional"
	"github.com/ooni/nbtls/internal/tlsbackend"
	"github.com/ooni/nbtls/internal/tlsconnector"
	"github.com/pkg/errors"
)

// Identity references the files containing the client identity.
type Identity struct {
	Cert string `json:"cert"`
	Key  string `json:"key"`
}

// Client is the configuration of the TLS client.
type Client struct {
	Comment string `json:"_"`

	// Roots contains the paths of the trusted root certificates (PEM or DER).
	Roots []string `json:"roots"`

	// Identity is the optional client identity.
	Identity *Identity `json:"identity"`

	MinProtocol *tlsconnector.Protocol `json:"min_protocol"`
	MaxProtocol *tlsconnector.Protocol `json:"max_protocol"`

	AcceptInvalidCerts     bool  `json:"accept_invalid_certs"`
	AcceptInvalidHostnames bool  `json:"accept_invalid_hostnames"`
	UseSNI                 *bool `json:"use_sni"`

	// Resolver is either "system" or "udp://host:port".
	Resolver string `json:"resolver"`

	// Handshaker is one of "stdlib", "utls-chrome", "utls-firefox".
	Handshaker string `json:"handshaker"`

	// Timeout is the handshake timeout (e.g., "10s").
	Timeout string `json:"timeout"`

	dir string
}

// Default fills the empty settings.
func (c *Client) Default() error {
	if c.Resolver == "" {
		c.Resolver = "system"
	}
	if c.Handshaker == "" {
		c.Handshaker = "stdlib"
	}
	if c.UseSNI == nil {
		useSNI := true
		c.UseSNI = &useSNI
	}
	if c.Timeout == "" {
		c.Timeout = tlsbackend.DefaultTimeout.String()
	}
	return nil
}

// Validate the config file
func (c *Client) Validate() error {
	if len(c.Roots) > tlsconnector.MaxRootCertificates {
		return &model.CapacityError{What: "root certificates", Capacity: tlsconnector.MaxRootCertificates}
	}
	if c.Identity != nil && (c.Identity.Cert == "" || c.Identity.Key == "") {
		return errors.New("identity needs both cert and key")
	}
	if c.MinProtocol != nil && c.MaxProtocol != nil && *c.MinProtocol > *c.MaxProtocol {
		return tlsconnector.ErrInvalidProtocolRange
	}
	if _, err := c.resolverAddress(); err != nil {
		return err
	}
	if _, err := tlsbackend.NewHandshaker(c.Handshaker); err != nil {
		return err
	}
	timeout, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return errors.Wrap(err, "invalid timeout")
	}
	if timeout <= 0 {
		return errors.Errorf("invalid timeout: %s", c.Timeout)
	}
	return nil
}

// resolverAddress returns the address of the UDP resolver or the
// empty string when we should use the system resolver.
func (c *Client) resolverAddress() (string, error) {
	if c.Resolver == "system" {
		return "", nil
	}
	URL, err := url.Parse(c.Resolver)
	if err != nil {
		return "", errors.Wrap(err, "invalid resolver")
	}
	if URL.Scheme != "udp" || URL.Path != "" {
		return "", errors.Errorf("invalid resolver: %s", c.Resolver)
	}
	if _, _, err := net.SplitHostPort(URL.Host); err != nil {
		return "", errors.Wrap(err, "invalid resolver")
	}
	return URL.Host, nil
}

// path resolves name relative to the directory of the config file.
func (c *Client) path(name string) string {
	if c.dir == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.dir, name)
}

// Load reads the files referenced by the configuration and returns
// a builder ready to be passed to [tlsconnector.Build].
func (c *Client) Load() (*tlsconnector.Builder, error) {
	b := tlsconnector.NewBuilder()
	for _, name := range c.Roots {
		data, err := os.ReadFile(c.path(name))
		if err != nil {
			return nil, errors.Wrap(err, "reading root certificate")
		}
		if err := b.AddRootCertificate(certificateFrom(data)); err != nil {
			return nil, err
		}
	}
	if c.Identity != nil {
		cert, err := os.ReadFile(c.path(c.Identity.Cert))
		if err != nil {
			return nil, errors.Wrap(err, "reading identity certificate")
		}
		key, err := os.ReadFile(c.path(c.Identity.Key))
		if err != nil {
			return nil, errors.Wrap(err, "reading identity key")
		}
		b.Identity(tlsconnector.NewIdentity(certificateFrom(cert), privateKeyFrom(key)))
	}
	if c.MinProtocol != nil {
		b.MinProtocolVersion(optional.Some(*c.MinProtocol))
	}
	if c.MaxProtocol != nil {
		b.MaxProtocolVersion(optional.Some(*c.MaxProtocol))
	}
	b.DangerAcceptInvalidCerts(c.AcceptInvalidCerts)
	b.DangerAcceptInvalidHostnames(c.AcceptInvalidHostnames)
	b.UseSNI(c.UseSNI == nil || *c.UseSNI)
	return b, nil
}

// Context returns the backend context for the configured handshaker and timeout.
func (c *Client) Context(logger model.Logger) (tlsbackend.Context, error) {
	handshaker, err := tlsbackend.NewHandshaker(c.Handshaker)
	if err != nil {
		return tlsbackend.Context{}, err
	}
	timeout, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return tlsbackend.Context{}, errors.Wrap(err, "invalid timeout")
	}
	return tlsbackend.Context{Handshaker: handshaker, Timeout: timeout, Logger: logger}, nil
}

// NewResolver returns the configured non-blocking resolver.
func (c *Client) NewResolver() (*nbdns.Resolver, error) {
	address, err := c.resolverAddress()
	if err != nil {
		return nil, err
	}
	if address == "" {
		return nbdns.NewSystem(), nil
	}
	return nbdns.NewUDP(address), nil
}

var pemPrefix = []byte("-----BEGIN")

func certificateFrom(data []byte) tlsconnector.Certificate {
	if bytes.Contains(data, pemPrefix) {
		return tlsconnector.CertificateFromPEM(data)
	}
	return tlsconnector.CertificateFromDER(data)
}

func privateKeyFrom(data []byte) tlsconnector.PKey[tlsconnector.Private] {
	if bytes.Contains(data, pemPrefix) {
		return tlsconnector.PrivateKeyFromPEM(data)
	}
	return tlsconnector.PrivateKeyFromDER(data)
}
