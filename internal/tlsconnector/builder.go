package tlsconnector

import (
	"errors"
	"fmt"

	"github.com/ooni/nbtls/internal/model"
	"github.com/ooni/nbtls/internal/optional"
)

var (
	// ErrBuilderConsumed indicates that we already tried to build
	// using a [Builder]. A builder is single use.
	ErrBuilderConsumed = errors.New("tlsconnector: builder already consumed")

	// ErrInvalidProtocolRange indicates that the minimum protocol
	// version is greater than the maximum protocol version.
	ErrInvalidProtocolRange = errors.New("tlsconnector: min protocol greater than max protocol")
)

// Builder accumulates the fields of a [Config]. Each setter returns the
// builder to allow chaining. The zero value is invalid; use [NewBuilder].
//
// A Builder is single use. After [BuildConfig] or [Build], setters do
// nothing and building again fails with [ErrBuilderConsumed].
type Builder struct {
	identity               optional.Value[Identity]
	minProtocol            optional.Value[Protocol]
	maxProtocol            optional.Value[Protocol]
	roots                  [MaxRootCertificates]Certificate
	numRoots               int
	acceptInvalidCerts     bool
	acceptInvalidHostnames bool
	useSNI                 bool
	err                    error
	consumed               bool
}

// NewBuilder creates a [Builder] using the default settings: minimum
// protocol TLSv1.0, no maximum protocol, SNI enabled, and verification
// of both certificates and hostnames enabled.
func NewBuilder() *Builder {
	return &Builder{
		minProtocol: optional.Some(ProtocolTLSv10),
		useSNI:      true,
	}
}

// Identity sets the client identity. The last call wins.
func (b *Builder) Identity(id Identity) *Builder {
	if !b.consumed {
		b.identity = optional.Some(id)
	}
	return b
}

// MinProtocolVersion sets the minimum protocol version. We check it
// against the maximum protocol version only when building.
func (b *Builder) MinProtocolVersion(p optional.Value[Protocol]) *Builder {
	if !b.consumed {
		b.minProtocol = p
	}
	return b
}

// MaxProtocolVersion sets the maximum protocol version. We check it
// against the minimum protocol version only when building.
func (b *Builder) MaxProtocolVersion(p optional.Value[Protocol]) *Builder {
	if !b.consumed {
		b.maxProtocol = p
	}
	return b
}

// AddRootCertificate adds a trust root. It returns a [*model.CapacityError]
// when we already have [MaxRootCertificates] roots. Such an error is
// sticky and also causes building to fail.
func (b *Builder) AddRootCertificate(cert Certificate) error {
	if b.consumed {
		return ErrBuilderConsumed
	}
	if b.numRoots >= len(b.roots) {
		err := &model.CapacityError{What: "root certificates", Capacity: MaxRootCertificates}
		if b.err == nil {
			b.err = err
		}
		return err
	}
	b.roots[b.numRoots] = cert
	b.numRoots++
	return nil
}

// RootCertificate is the chainable version of AddRootCertificate. Use
// [Builder.Err] to know whether the set overflowed.
func (b *Builder) RootCertificate(cert Certificate) *Builder {
	_ = b.AddRootCertificate(cert)
	return b
}

// RootCertificates returns a copy of the trust roots added so far.
func (b *Builder) RootCertificates() []Certificate {
	out := make([]Certificate, b.numRoots)
	copy(out, b.roots[:b.numRoots])
	return out
}

// DangerAcceptInvalidCerts controls whether to skip certificate verification.
func (b *Builder) DangerAcceptInvalidCerts(v bool) *Builder {
	if !b.consumed {
		b.acceptInvalidCerts = v
	}
	return b
}

// DangerAcceptInvalidHostnames controls whether to skip hostname verification.
func (b *Builder) DangerAcceptInvalidHostnames(v bool) *Builder {
	if !b.consumed {
		b.acceptInvalidHostnames = v
	}
	return b
}

// UseSNI controls whether to send the SNI extension.
func (b *Builder) UseSNI(v bool) *Builder {
	if !b.consumed {
		b.useSNI = v
	}
	return b
}

// Err returns the first error recorded by a setter, if any.
func (b *Builder) Err() error {
	return b.err
}

// BuildConfig consumes the builder and returns a [Config] carrying the
// given backend context.
func BuildConfig[C any](b *Builder, context C) (*Config[C], error) {
	if b.consumed {
		return nil, ErrBuilderConsumed
	}
	b.consumed = true
	if b.err != nil {
		return nil, b.err
	}
	minp, hasMin := b.minProtocol.Get()
	maxp, hasMax := b.maxProtocol.Get()
	if hasMin && hasMax && minp > maxp {
		return nil, fmt.Errorf("%w: %s > %s", ErrInvalidProtocolRange, minp, maxp)
	}
	config := &Config[C]{
		identity:               b.identity,
		minProtocol:            b.minProtocol,
		maxProtocol:            b.maxProtocol,
		roots:                  b.roots,
		numRoots:               b.numRoots,
		acceptInvalidCerts:     b.acceptInvalidCerts,
		acceptInvalidHostnames: b.acceptInvalidHostnames,
		useSNI:                 b.useSNI,
		context:                context,
	}
	return config, nil
}

// Build is like [BuildConfig] but also converts the [Config] into the
// backend-specific connector K using backend. The error returned by
// backend is returned unchanged.
func Build[C, K any](b *Builder, context C, backend func(*Config[C]) (K, error)) (K, error) {
	config, err := BuildConfig(b, context)
	if err != nil {
		var zero K
		return zero, err
	}
	return backend(config)
}
