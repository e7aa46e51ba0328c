package model

import "net/netip"

// AddrType is the address family hint passed to [DNS.GetHostByName].
type AddrType string

const (
	// AddrTypeIPv4 asks for an IPv4 address.
	AddrTypeIPv4 = AddrType("IPv4")

	// AddrTypeIPv6 asks for an IPv6 address.
	AddrTypeIPv6 = AddrType("IPv6")

	// AddrTypeEither accepts any address family.
	AddrTypeEither = AddrType("Either")
)

// Network returns the network name that net.Resolver.LookupNetIP
// expects for this address type.
func (at AddrType) Network() string {
	switch at {
	case AddrTypeIPv4:
		return "ip4"
	case AddrTypeIPv6:
		return "ip6"
	default:
		return "ip"
	}
}

// Accepts returns whether addr belongs to this address type.
func (at AddrType) Accepts(addr netip.Addr) bool {
	switch at {
	case AddrTypeIPv4:
		return addr.Unmap().Is4()
	case AddrTypeIPv6:
		return addr.Is6() && !addr.Is4In6()
	default:
		return addr.IsValid()
	}
}
