package model_test

import (
	"errors"
	"net/netip"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ooni/nbtls/internal/model"
	"github.com/ooni/nbtls/internal/model/mocks"
	"github.com/ooni/nbtls/internal/nb"
	"github.com/ooni/nbtls/internal/optional"
)

func TestParseHostAddr(t *testing.T) {
	t.Run("with valid numeric literals", func(t *testing.T) {
		inputs := []string{
			"203.0.113.5",
			"127.0.0.1",
			"0.0.0.0",
			"::1",
			"2001:db8::1",
			"::ffff:198.51.100.7",
			"fe80::1%eth0",
		}
		for _, input := range inputs {
			t.Run(input, func(t *testing.T) {
				addr, err := model.ParseHostAddr(input)
				if err != nil {
					t.Fatal(err)
				}
				if addr.IP() != netip.MustParseAddr(input) {
					t.Fatal("unexpected IP", addr.IP())
				}
				hostname, found := addr.Hostname()
				if !found || hostname != input {
					t.Fatal("unexpected hostname", hostname, found)
				}
			})
		}
	})

	t.Run("with non numeric strings", func(t *testing.T) {
		inputs := []string{
			"example.com",
			"localhost",
			"1.2.3",
			"256.1.1.1",
			"1.1.1.1:443",
			"[::1]",
			" 1.1.1.1",
			"",
		}
		for _, input := range inputs {
			t.Run(input, func(t *testing.T) {
				_, err := model.ParseHostAddr(input)
				var parseErr *model.AddrParseError
				if !errors.As(err, &parseErr) {
					t.Fatal("not the error we expected", err)
				}
				if parseErr.Input != input {
					t.Fatal("unexpected input", parseErr.Input)
				}
			})
		}
	})

	t.Run("with a literal exceeding the hostname capacity", func(t *testing.T) {
		input := "fe80::1%" + strings.Repeat("x", model.MaxHostnameLen)
		if _, err := netip.ParseAddr(input); err != nil {
			t.Skip("the stdlib does not accept long zones", err)
		}
		_, err := model.ParseHostAddr(input)
		if !errors.Is(err, model.ErrCapacityExceeded) {
			t.Fatal("not the error we expected", err)
		}
	})
}

func TestNewHostname(t *testing.T) {
	t.Run("accepts names up to the capacity", func(t *testing.T) {
		name := strings.Repeat("a", model.MaxHostnameLen)
		hostname, err := model.NewHostname(name)
		if err != nil {
			t.Fatal(err)
		}
		if hostname.String() != name {
			t.Fatal("unexpected hostname")
		}
	})

	t.Run("rejects names above the capacity", func(t *testing.T) {
		_, err := model.NewHostname(strings.Repeat("a", model.MaxHostnameLen+1))
		var capErr *model.CapacityError
		if !errors.As(err, &capErr) {
			t.Fatal("not the error we expected", err)
		}
		if capErr.Capacity != model.MaxHostnameLen || capErr.What != "hostname" {
			t.Fatal("unexpected error fields", capErr)
		}
	})

	t.Run("rejects the empty name", func(t *testing.T) {
		if _, err := model.NewHostname(""); !errors.Is(err, model.ErrEmptyHostname) {
			t.Fatal("not the error we expected", err)
		}
	})
}

func TestHostAddrConstructors(t *testing.T) {
	t.Run("NewHostAddr with hostname", func(t *testing.T) {
		hostname, err := model.NewHostname("dns.google")
		if err != nil {
			t.Fatal(err)
		}
		addr := model.NewHostAddr(netip.MustParseAddr("8.8.8.8"), optional.Some(hostname))
		name, found := addr.Hostname()
		if !found || name != "dns.google" {
			t.Fatal("unexpected hostname", name, found)
		}
		if addr.String() != "dns.google/8.8.8.8" {
			t.Fatal("unexpected string", addr.String())
		}
	})

	t.Run("IPv4 and IPv6 have no hostname", func(t *testing.T) {
		v4 := model.IPv4([4]byte{192, 0, 2, 1})
		if v4.IP() != netip.MustParseAddr("192.0.2.1") {
			t.Fatal("unexpected IPv4", v4.IP())
		}
		v6 := model.IPv6([16]byte{0x20, 0x01, 0x0d, 0xb8, 15: 1})
		if v6.IP() != netip.MustParseAddr("2001:db8::1") {
			t.Fatal("unexpected IPv6", v6.IP())
		}
		for _, addr := range []model.HostAddr{v4, v6} {
			if _, found := addr.Hostname(); found {
				t.Fatal("expected no hostname")
			}
			if addr.String() != addr.IP().String() {
				t.Fatal("unexpected string", addr.String())
			}
		}
	})
}

func TestHostAddrFromHostname(t *testing.T) {
	t.Run("asks for either address family", func(t *testing.T) {
		expected := model.IPv4([4]byte{1, 1, 1, 1})
		var gotHint model.AddrType
		dns := &mocks.DNS{
			MockGetHostByName: func(name string, hint model.AddrType) (model.HostAddr, error) {
				gotHint = hint
				return expected, nil
			},
		}
		addr, err := model.HostAddrFromHostname(dns, "one.one.one.one")
		if err != nil {
			t.Fatal(err)
		}
		if gotHint != model.AddrTypeEither {
			t.Fatal("unexpected hint", gotHint)
		}
		if addr != expected {
			t.Fatal("unexpected addr", addr)
		}
	})

	t.Run("returns the resolver error unchanged", func(t *testing.T) {
		for _, expected := range []error{errors.New("mocked error"), nb.ErrWouldBlock} {
			dns := &mocks.DNS{
				MockGetHostByName: func(name string, hint model.AddrType) (model.HostAddr, error) {
					return model.HostAddr{}, expected
				},
			}
			_, err := model.HostAddrFromHostname(dns, "example.invalid")
			if err != expected {
				t.Fatal("not the error we expected", err)
			}
		}
	})
}

func TestHostSocketAddr(t *testing.T) {
	t.Run("ParseHostSocketAddr with a numeric literal", func(t *testing.T) {
		sa, err := model.ParseHostSocketAddr("203.0.113.5", 443)
		if err != nil {
			t.Fatal(err)
		}
		expected := netip.AddrPortFrom(netip.MustParseAddr("203.0.113.5"), 443)
		if diff := cmp.Diff(expected.String(), sa.AddrPort().String()); diff != "" {
			t.Fatal(diff)
		}
		if sa.Port() != 443 {
			t.Fatal("unexpected port", sa.Port())
		}
		if sa.String() != "203.0.113.5:443" {
			t.Fatal("unexpected string", sa.String())
		}
	})

	t.Run("ParseHostSocketAddr fails like ParseHostAddr", func(t *testing.T) {
		_, err := model.ParseHostSocketAddr("example.com", 443)
		var parseErr *model.AddrParseError
		if !errors.As(err, &parseErr) {
			t.Fatal("not the error we expected", err)
		}
	})

	t.Run("HostSocketAddrFromAddrPort has no hostname", func(t *testing.T) {
		ap := netip.MustParseAddrPort("[2001:db8::1]:853")
		sa := model.HostSocketAddrFromAddrPort(ap)
		if sa.AddrPort() != ap {
			t.Fatal("unexpected AddrPort", sa.AddrPort())
		}
		if _, found := sa.Addr().Hostname(); found {
			t.Fatal("expected no hostname")
		}
		if sa.String() != "[2001:db8::1]:853" {
			t.Fatal("unexpected string", sa.String())
		}
	})

	t.Run("port zero is a defined port", func(t *testing.T) {
		sa := model.NewHostSocketAddr(model.IPv4([4]byte{127, 0, 0, 1}), 0)
		if sa.AddrPort().Port() != 0 || !sa.AddrPort().IsValid() {
			t.Fatal("unexpected AddrPort", sa.AddrPort())
		}
	})
}

func TestAddrType(t *testing.T) {
	v4 := netip.MustParseAddr("192.0.2.1")
	v4in6 := netip.MustParseAddr("::ffff:192.0.2.1")
	v6 := netip.MustParseAddr("2001:db8::1")
	tests := []struct {
		at      model.AddrType
		network string
		accepts []bool // v4, v4in6, v6
	}{{
		at:      model.AddrTypeIPv4,
		network: "ip4",
		accepts: []bool{true, true, false},
	}, {
		at:      model.AddrTypeIPv6,
		network: "ip6",
		accepts: []bool{false, false, true},
	}, {
		at:      model.AddrTypeEither,
		network: "ip",
		accepts: []bool{true, true, true},
	}}
	for _, tt := range tests {
		t.Run(string(tt.at), func(t *testing.T) {
			if tt.at.Network() != tt.network {
				t.Fatal("unexpected network", tt.at.Network())
			}
			got := []bool{tt.at.Accepts(v4), tt.at.Accepts(v4in6), tt.at.Accepts(v6)}
			if diff := cmp.Diff(tt.accepts, got); diff != "" {
				t.Fatal(diff)
			}
		})
	}
}

func TestTLSSocket(t *testing.T) {
	ts := model.NewTLSSocket(17)
	if ts.Socket() != 17 {
		t.Fatal("unexpected socket", ts.Socket())
	}
}

func TestCapacityError(t *testing.T) {
	err := &model.CapacityError{What: "root certificates", Capacity: 10}
	if err.Error() != "root certificates: capacity exceeded (capacity is 10)" {
		t.Fatal("unexpected message", err.Error())
	}
	if !errors.Is(err, model.ErrCapacityExceeded) {
		t.Fatal("expected errors.Is to work")
	}
}
