package nbdns

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"testing"

	"github.com/ooni/nbtls/internal/errorsx"
	"github.com/ooni/nbtls/internal/model"
	"github.com/ooni/nbtls/internal/model/mocks"
	"github.com/ooni/nbtls/internal/nb"
	"github.com/ooni/nbtls/internal/optional"
)

func newHostAddr(t *testing.T, ip, hostname string) model.HostAddr {
	name, err := model.NewHostname(hostname)
	if err != nil {
		t.Fatal(err)
	}
	return model.NewHostAddr(netip.MustParseAddr(ip), optional.Some(name))
}

func TestWrap(t *testing.T) {
	t.Run("we short circuit IP addresses", func(t *testing.T) {
		dns := Wrap(nil, &mocks.DNS{
			MockGetHostByName: func(name string, hint model.AddrType) (model.HostAddr, error) {
				t.Fatal("should not be called")
				return model.HostAddr{}, nil
			},
		})
		addr, err := dns.GetHostByName("::1", model.AddrTypeIPv4)
		if err != nil {
			t.Fatal(err)
		}
		if addr.String() != "::1" {
			t.Fatal("unexpected address", addr)
		}
		if _, found := addr.Hostname(); found {
			t.Fatal("expected no hostname")
		}
	})

	t.Run("we convert names to ASCII", func(t *testing.T) {
		var gotName string
		dns := Wrap(nil, &mocks.DNS{
			MockGetHostByName: func(name string, hint model.AddrType) (model.HostAddr, error) {
				gotName = name
				return newHostAddr(t, "192.0.2.1", name), nil
			},
		})
		addr, err := dns.GetHostByName("bücher.example", model.AddrTypeIPv4)
		if err != nil {
			t.Fatal(err)
		}
		if gotName != "xn--bcher-kva.example" {
			t.Fatal("unexpected name", gotName)
		}
		if addr.String() != "xn--bcher-kva.example/192.0.2.1" {
			t.Fatal("unexpected address", addr)
		}
	})

	t.Run("we wrap IDNA errors", func(t *testing.T) {
		dns := Wrap(nil, &mocks.DNS{})
		_, err := dns.GetHostByName("a:b.example", model.AddrTypeIPv4)
		var ew *errorsx.ErrWrapper
		if !errors.As(err, &ew) || ew.Operation != errorsx.ResolveOperation {
			t.Fatal("not the error we expected", err)
		}
	})

	t.Run("we wrap lookup errors", func(t *testing.T) {
		dns := Wrap(nil, &mocks.DNS{
			MockGetHostByName: func(name string, hint model.AddrType) (model.HostAddr, error) {
				return model.HostAddr{}, errorsx.ErrDNSRefused
			},
		})
		_, err := dns.GetHostByName("example.com", model.AddrTypeIPv4)
		if !errors.Is(err, errorsx.ErrDNSRefused) {
			t.Fatal("not the error we expected", err)
		}
		var ew *errorsx.ErrWrapper
		if !errors.As(err, &ew) {
			t.Fatal("expected an ErrWrapper", err)
		}
		if ew.Failure != errorsx.FailureDNSRefusedError || ew.Operation != errorsx.ResolveOperation {
			t.Fatal("unexpected wrapping", ew.Failure, ew.Operation)
		}
	})

	t.Run("we pass through would block and log once", func(t *testing.T) {
		var (
			calls int
			lines []string
		)
		logger := &mocks.Logger{
			MockDebugf: func(format string, v ...any) {
				lines = append(lines, format)
			},
		}
		dns := Wrap(logger, &mocks.DNS{
			MockGetHostByName: func(name string, hint model.AddrType) (model.HostAddr, error) {
				calls++
				if calls < 3 {
					return model.HostAddr{}, nb.ErrWouldBlock
				}
				return newHostAddr(t, "192.0.2.1", name), nil
			},
		})
		for idx := 0; idx < 2; idx++ {
			_, err := dns.GetHostByName("example.com", model.AddrTypeIPv4)
			if err != nb.ErrWouldBlock {
				t.Fatal("expected the unwrapped ErrWouldBlock", err)
			}
		}
		if _, err := dns.GetHostByName("example.com", model.AddrTypeIPv4); err != nil {
			t.Fatal(err)
		}
		if len(lines) != 2 {
			t.Fatal("unexpected number of log lines", lines)
		}
		if !strings.HasSuffix(lines[0], "...") || !strings.Contains(lines[1], " in ") {
			t.Fatal("unexpected log lines", lines)
		}
	})

	t.Run("we describe the resolver", func(t *testing.T) {
		if s := describe(New(&mockTransport{})); s != "mocked (0.0.0.0:0)" {
			t.Fatal("unexpected description", s)
		}
		if s := describe(&mocks.DNS{}); s != "*mocks.DNS" {
			t.Fatal("unexpected description", s)
		}
	})

	t.Run("we forget the start of abandoned lookups", func(t *testing.T) {
		dns := Wrap(nil, &mocks.DNS{
			MockGetHostByName: func(name string, hint model.AddrType) (model.HostAddr, error) {
				return model.HostAddr{}, nb.ErrWouldBlock
			},
		})
		for idx := 0; idx < 4*maxStarts; idx++ {
			name := fmt.Sprintf("n%d.example", idx)
			if _, err := dns.GetHostByName(name, model.AddrTypeIPv4); err != nb.ErrWouldBlock {
				t.Fatal("expected the unwrapped ErrWouldBlock", err)
			}
		}
		wrapper := dns.(*resolverWrapper)
		if len(wrapper.starts) != maxStarts {
			t.Fatal("unexpected number of start times", len(wrapper.starts))
		}
	})
}
