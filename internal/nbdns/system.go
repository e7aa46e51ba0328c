package nbdns

import (
	"context"
	"net"
	"net/netip"
)

// systemTransport is the [Transport] using the system resolver.
type systemTransport struct {
	resolver *net.Resolver
}

// NewSystem creates a [*Resolver] using the system resolver.
func NewSystem() *Resolver {
	return New(&systemTransport{resolver: net.DefaultResolver})
}

func (t *systemTransport) LookupNetIP(ctx context.Context, network, name string) ([]netip.Addr, error) {
	return t.resolver.LookupNetIP(ctx, network, name)
}

func (t *systemTransport) Network() string {
	return "system"
}

func (t *systemTransport) Address() string {
	return ""
}
