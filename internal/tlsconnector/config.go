package tlsconnector

import (
	"slices"

	"github.com/ooni/nbtls/internal/optional"
)

// MaxRootCertificates is the capacity of the trust roots set.
const MaxRootCertificates = 10

// Config is the immutable configuration produced by a [Builder]. The
// C type parameter is the backend-specific context.
type Config[C any] struct {
	identity               optional.Value[Identity]
	minProtocol            optional.Value[Protocol]
	maxProtocol            optional.Value[Protocol]
	roots                  [MaxRootCertificates]Certificate
	numRoots               int
	acceptInvalidCerts     bool
	acceptInvalidHostnames bool
	useSNI                 bool
	context                C
}

// Identity returns the client identity, if any.
func (c *Config[C]) Identity() optional.Value[Identity] {
	return c.identity
}

// MinProtocol returns the minimum protocol version. When none, the
// backend uses the oldest version it supports.
func (c *Config[C]) MinProtocol() optional.Value[Protocol] {
	return c.minProtocol
}

// MaxProtocol returns the maximum protocol version. When none, the
// backend uses the newest version it supports.
func (c *Config[C]) MaxProtocol() optional.Value[Protocol] {
	return c.maxProtocol
}

// RootCertificates returns a copy of the list of additional trust roots.
func (c *Config[C]) RootCertificates() []Certificate {
	return slices.Clone(c.roots[:c.numRoots])
}

// AcceptInvalidCerts returns whether to skip certificate verification.
func (c *Config[C]) AcceptInvalidCerts() bool {
	return c.acceptInvalidCerts
}

// AcceptInvalidHostnames returns whether to skip hostname verification.
func (c *Config[C]) AcceptInvalidHostnames() bool {
	return c.acceptInvalidHostnames
}

// UseSNI returns whether to send the SNI extension.
func (c *Config[C]) UseSNI() bool {
	return c.useSNI
}

// Context returns the backend-specific context.
func (c *Config[C]) Context() C {
	return c.context
}
