package nbdns

//
// DNS over UDP using github.com/miekg/dns
//

import (
	"context"
	"errors"
	"net/netip"
	"time"

	"github.com/miekg/dns"
	"github.com/ooni/nbtls/internal/errorsx"
)

// ErrDNSReplyWithWrongQueryID indicates we have got a DNS reply with the wrong queryID.
var ErrDNSReplyWithWrongQueryID = errors.New("nbdns: reply with wrong query ID")

// udpTimeout is the timeout of a single exchange, like Bionic does.
const udpTimeout = 5 * time.Second

// UDPTransport is a DNS-over-UDP [Transport].
type UDPTransport struct {
	address string
	client  *dns.Client
}

// NewUDPTransport creates a new [*UDPTransport] for the server at
// address (e.g., 8.8.8.8:53).
func NewUDPTransport(address string) *UDPTransport {
	return &UDPTransport{
		address: address,
		client:  &dns.Client{Net: "udp", Timeout: udpTimeout},
	}
}

// NewUDP creates a [*Resolver] using DNS over UDP with the server at address.
func NewUDP(address string) *Resolver {
	return New(NewUDPTransport(address))
}

// Network implements Transport.
func (t *UDPTransport) Network() string {
	return "udp"
}

// Address implements Transport.
func (t *UDPTransport) Address() string {
	return t.address
}

// LookupNetIP implements Transport. We send an A query for "ip4", an AAAA
// query for "ip6" and both of them, in this order, for "ip".
func (t *UDPTransport) LookupNetIP(ctx context.Context, network, name string) ([]netip.Addr, error) {
	var qtypes []uint16
	switch network {
	case "ip4":
		qtypes = []uint16{dns.TypeA}
	case "ip6":
		qtypes = []uint16{dns.TypeAAAA}
	default:
		qtypes = []uint16{dns.TypeA, dns.TypeAAAA}
	}
	var (
		addrs    []netip.Addr
		firstErr error
	)
	for _, qtype := range qtypes {
		found, err := t.lookup(ctx, qtype, name)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		addrs = append(addrs, found...)
	}
	if len(addrs) <= 0 {
		return nil, firstErr
	}
	return addrs, nil
}

func (t *UDPTransport) lookup(ctx context.Context, qtype uint16, name string) ([]netip.Addr, error) {
	query := newQuery(name, qtype)
	reply, _, err := t.client.ExchangeContext(ctx, query, t.address)
	if err != nil {
		return nil, err
	}
	return decodeLookupHost(qtype, reply, query.Id)
}

// newQuery creates a recursive query for name.
func newQuery(name string, qtype uint16) *dns.Msg {
	query := new(dns.Msg)
	query.Id = dns.Id()
	query.RecursionDesired = true
	query.Question = []dns.Question{{
		Name:   dns.Fqdn(name),
		Qtype:  qtype,
		Qclass: dns.ClassINET,
	}}
	return query
}

// decodeLookupHost maps the rcode to an error and extracts the
// addresses of the given qtype.
func decodeLookupHost(qtype uint16, reply *dns.Msg, queryID uint16) ([]netip.Addr, error) {
	if reply.Id != queryID {
		return nil, ErrDNSReplyWithWrongQueryID
	}
	switch reply.Rcode {
	case dns.RcodeSuccess:
	case dns.RcodeNameError:
		return nil, errorsx.ErrDNSNoSuchHost
	case dns.RcodeRefused:
		return nil, errorsx.ErrDNSRefused
	case dns.RcodeServerFailure:
		return nil, errorsx.ErrDNSServfail
	default:
		return nil, errorsx.ErrDNSMisbehaving
	}
	var addrs []netip.Addr
	for _, answer := range reply.Answer {
		switch rr := answer.(type) {
		case *dns.A:
			if addr, ok := netip.AddrFromSlice(rr.A.To4()); ok && qtype == dns.TypeA {
				addrs = append(addrs, addr)
			}
		case *dns.AAAA:
			if addr, ok := netip.AddrFromSlice(rr.AAAA.To16()); ok && qtype == dns.TypeAAAA {
				addrs = append(addrs, addr)
			}
		}
	}
	if len(addrs) <= 0 {
		return nil, errorsx.ErrDNSNoAnswer
	}
	return addrs, nil
}
