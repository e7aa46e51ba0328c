package model

//
// Host addresses
//

import (
	"errors"
	"net"
	"net/netip"
	"strconv"

	"github.com/ooni/nbtls/internal/optional"
)

// MaxHostnameLen is the capacity, in bytes, of a [Hostname].
const MaxHostnameLen = 256

// ErrEmptyHostname indicates that we were passed an empty hostname.
var ErrEmptyHostname = errors.New("empty hostname")

// Hostname is a symbolic host name whose length is bounded by
// [MaxHostnameLen]. The zero value is invalid; use [NewHostname].
type Hostname struct {
	name string
}

// NewHostname returns a [Hostname] or a [*CapacityError] when the name
// is longer than [MaxHostnameLen] bytes. We never truncate.
func NewHostname(name string) (Hostname, error) {
	if name == "" {
		return Hostname{}, ErrEmptyHostname
	}
	if len(name) > MaxHostnameLen {
		return Hostname{}, &CapacityError{What: "hostname", Capacity: MaxHostnameLen}
	}
	return Hostname{name: name}, nil
}

// String returns the hostname.
func (h Hostname) String() string {
	return h.name
}

// HostAddr is a resolved IP address along with the optional hostname that
// produced it. A HostAddr is immutable once constructed.
type HostAddr struct {
	ip       netip.Addr
	hostname optional.Value[Hostname]
}

// NewHostAddr creates a new [HostAddr]. This function always succeeds
// because the hostname bound is enforced by [NewHostname].
func NewHostAddr(ip netip.Addr, hostname optional.Value[Hostname]) HostAddr {
	return HostAddr{ip: ip, hostname: hostname}
}

// HostAddrFromIP creates a [HostAddr] without hostname.
func HostAddrFromIP(ip netip.Addr) HostAddr {
	return NewHostAddr(ip, optional.None[Hostname]())
}

// IPv4 creates a [HostAddr] without hostname from IPv4 octets.
func IPv4(octets [4]byte) HostAddr {
	return HostAddrFromIP(netip.AddrFrom4(octets))
}

// IPv6 creates a [HostAddr] without hostname from IPv6 octets.
func IPv6(octets [16]byte) HostAddr {
	return HostAddrFromIP(netip.AddrFrom16(octets))
}

// ParseHostAddr parses a numeric IPv4 or IPv6 literal. Symbolic names are
// not resolved here: use [HostAddrFromHostname] for that. On success, the
// original text becomes the hostname. This function returns
// [*AddrParseError] for non-numeric input and [*CapacityError] if the
// literal does not fit into a [Hostname].
func ParseHostAddr(text string) (HostAddr, error) {
	ip, err := netip.ParseAddr(text)
	if err != nil {
		return HostAddr{}, &AddrParseError{Input: text, Err: err}
	}
	hostname, err := NewHostname(text)
	if err != nil {
		return HostAddr{}, err
	}
	return NewHostAddr(ip, optional.Some(hostname)), nil
}

// HostAddrFromHostname resolves name using dns and [AddrTypeEither]. The
// error, including nb.ErrWouldBlock, is the one returned by dns.
func HostAddrFromHostname(dns DNS, name string) (HostAddr, error) {
	return dns.GetHostByName(name, AddrTypeEither)
}

// IP returns the numeric address.
func (a HostAddr) IP() netip.Addr {
	return a.ip
}

// Hostname returns the hostname, if any.
func (a HostAddr) Hostname() (string, bool) {
	hostname, found := a.hostname.Get()
	return hostname.String(), found
}

// String returns "hostname/ip" or just "ip" when there is no hostname.
func (a HostAddr) String() string {
	if hostname, found := a.Hostname(); found && hostname != a.ip.String() {
		return hostname + "/" + a.ip.String()
	}
	return a.ip.String()
}

// HostSocketAddr is a [HostAddr] along with a port.
type HostSocketAddr struct {
	addr HostAddr
	port uint16
}

// NewHostSocketAddr creates a new [HostSocketAddr].
func NewHostSocketAddr(addr HostAddr, port uint16) HostSocketAddr {
	return HostSocketAddr{addr: addr, port: port}
}

// ParseHostSocketAddr is like [ParseHostAddr] and fails in the same way.
func ParseHostSocketAddr(text string, port uint16) (HostSocketAddr, error) {
	addr, err := ParseHostAddr(text)
	if err != nil {
		return HostSocketAddr{}, err
	}
	return NewHostSocketAddr(addr, port), nil
}

// HostSocketAddrFromAddrPort creates a [HostSocketAddr] without hostname.
func HostSocketAddrFromAddrPort(ap netip.AddrPort) HostSocketAddr {
	return NewHostSocketAddr(HostAddrFromIP(ap.Addr()), ap.Port())
}

// Addr returns the [HostAddr].
func (sa HostSocketAddr) Addr() HostAddr {
	return sa.addr
}

// Port returns the port.
func (sa HostSocketAddr) Port() uint16 {
	return sa.port
}

// AddrPort returns the numeric address and port.
func (sa HostSocketAddr) AddrPort() netip.AddrPort {
	return netip.AddrPortFrom(sa.addr.ip, sa.port)
}

// String returns the endpoint using the hostname when available.
func (sa HostSocketAddr) String() string {
	return net.JoinHostPort(sa.addr.String(), strconv.Itoa(int(sa.port)))
}
