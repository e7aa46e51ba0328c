package testingx_test

import (
	"context"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/ooni/netem"
	"github.com/ooni/nbtls/internal/testingx"
)

func exchange(t *testing.T, listener *testingx.DNSOverUDPListener, name string) *dns.Msg {
	query := &dns.Msg{}
	query.SetQuestion(dns.Fqdn(name), dns.TypeA)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	reply, _, err := (&dns.Client{Net: "udp"}).ExchangeContext(ctx, query, listener.Endpoint().String())
	if err != nil {
		t.Fatal(err)
	}
	return reply
}

func TestDNSOverUDPListener(t *testing.T) {
	t.Run("with DNSRoundTripperNetem", func(t *testing.T) {
		config := netem.NewDNSConfig()
		config.AddRecord("dns.google", "", "8.8.8.8")
		listener := testingx.MustNewDNSOverUDPListener(&testingx.DNSRoundTripperNetem{Config: config})
		defer listener.Close()

		reply := exchange(t, listener, "dns.google")
		if reply.Rcode != dns.RcodeSuccess || len(reply.Answer) != 1 {
			t.Fatal("unexpected reply", reply)
		}
		if rr, ok := reply.Answer[0].(*dns.A); !ok || rr.A.String() != "8.8.8.8" {
			t.Fatal("unexpected answer", reply.Answer[0])
		}

		reply = exchange(t, listener, "www.example.com")
		if reply.Rcode != dns.RcodeNameError {
			t.Fatal("unexpected rcode", reply.Rcode)
		}
	})

	t.Run("with DNSRoundTripperRcode", func(t *testing.T) {
		listener := testingx.MustNewDNSOverUDPListener(&testingx.DNSRoundTripperRcode{Rcode: dns.RcodeRefused})
		defer listener.Close()
		reply := exchange(t, listener, "dns.google")
		if reply.Rcode != dns.RcodeRefused {
			t.Fatal("unexpected rcode", reply.Rcode)
		}
	})

	t.Run("Close is idempotent", func(t *testing.T) {
		listener := testingx.MustNewDNSOverUDPListener(&testingx.DNSRoundTripperRcode{})
		if err := listener.Close(); err != nil {
			t.Fatal(err)
		}
		if err := listener.Close(); err != nil {
			t.Fatal(err)
		}
	})
}
