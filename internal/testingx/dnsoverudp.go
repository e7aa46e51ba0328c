package testingx

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"sync"

	"github.com/miekg/dns"
	"github.com/ooni/netem"
	"github.com/ooni/nbtls/internal/runtimex"
)

// DNSRoundTripper maps a raw DNS query to a raw DNS response.
type DNSRoundTripper interface {
	RoundTrip(ctx context.Context, rawQuery []byte) ([]byte, error)
}

// DNSRoundTripperNetem answers queries using a [*netem.DNSConfig]. It
// responds with NXDOMAIN to queries for unknown names.
type DNSRoundTripperNetem struct {
	// Config is the MANDATORY config telling this DNS server which specific mappings
	// between domain names and IP addresses it knows.
	Config *netem.DNSConfig
}

var _ DNSRoundTripper = &DNSRoundTripperNetem{}

// RoundTrip implements DNSRoundTripper.
func (rtx *DNSRoundTripperNetem) RoundTrip(ctx context.Context, rawQuery []byte) ([]byte, error) {
	return netem.DNSServerRoundTrip(rtx.Config, rawQuery)
}

// DNSRoundTripperRcode answers all queries with the given rcode
// (e.g., [dns.RcodeRefused]) and no answers.
type DNSRoundTripperRcode struct {
	Rcode int
}

var _ DNSRoundTripper = &DNSRoundTripperRcode{}

// RoundTrip implements DNSRoundTripper.
func (rtx *DNSRoundTripperRcode) RoundTrip(ctx context.Context, rawQuery []byte) ([]byte, error) {
	query := &dns.Msg{}
	if err := query.Unpack(rawQuery); err != nil {
		return nil, err
	}
	reply := &dns.Msg{}
	reply.SetRcode(query, rtx.Rcode)
	return reply.Pack()
}

// DNSOverUDPListener is a loopback DNS-over-UDP listener. The zero value of this
// struct is invalid, please use [MustNewDNSOverUDPListener].
type DNSOverUDPListener struct {
	cancel    context.CancelFunc
	closeOnce sync.Once
	pconn     net.PacketConn
	rtx       DNSRoundTripper
	wg        sync.WaitGroup
}

// MustNewDNSOverUDPListener creates a new [DNSOverUDPListener] listening
// on 127.0.0.1 and using the given [DNSRoundTripper].
func MustNewDNSOverUDPListener(rtx DNSRoundTripper) *DNSOverUDPListener {
	pconn := runtimex.Try1(net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)}))
	ctx, cancel := context.WithCancel(context.Background())
	dl := &DNSOverUDPListener{
		cancel: cancel,
		pconn:  pconn,
		rtx:    rtx,
	}
	dl.wg.Add(1)
	go dl.mainloop(ctx)
	return dl
}

// Endpoint returns the endpoint where we're listening.
func (dl *DNSOverUDPListener) Endpoint() netip.AddrPort {
	return netip.MustParseAddrPort(dl.pconn.LocalAddr().String())
}

// Close implements io.Closer.
func (dl *DNSOverUDPListener) Close() (err error) {
	dl.closeOnce.Do(func() {
		// close the connection to interrupt ReadFrom or WriteTo
		err = dl.pconn.Close()

		// cancel the context to interrupt the round tripper
		dl.cancel()

		// wait for the background goroutine to join
		dl.wg.Wait()
	})
	return err
}

func (dl *DNSOverUDPListener) mainloop(ctx context.Context) {
	defer dl.wg.Done()
	for {
		buffer := make([]byte, 1<<17)
		count, addr, err := dl.pconn.ReadFrom(buffer)
		if errors.Is(err, net.ErrClosed) {
			return
		}
		if err != nil {
			continue
		}
		rawResp, err := dl.rtx.RoundTrip(ctx, buffer[:count])
		if err != nil {
			continue
		}
		// we'll notice ErrClosed in the next ReadFrom call and stop the loop
		_, _ = dl.pconn.WriteTo(rawResp, addr)
	}
}
