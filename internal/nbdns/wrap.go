package nbdns

import (
	"fmt"
	"net/netip"
	"sync"
	"time"

	"github.com/ooni/nbtls/internal/errorsx"
	"github.com/ooni/nbtls/internal/idnax"
	"github.com/ooni/nbtls/internal/model"
	"github.com/ooni/nbtls/internal/nb"
)

// Wrap returns a [model.DNS] that short circuits IP address literals,
// converts internationalized names to ASCII, logs the outcome of each
// lookup and wraps errors using [errorsx.ResolveOperation].
//
// IP address literals bypass the hint, so they may belong to another family.
func Wrap(logger model.Logger, dns model.DNS) model.DNS {
	return &resolverWrapper{
		dns:    dns,
		logger: model.ValidLoggerOrDefault(logger),
		starts: map[lookupKey]time.Time{},
	}
}

// maxStarts bounds the number of lookups whose start time we remember.
const maxStarts = 16

type resolverWrapper struct {
	dns    model.DNS
	logger model.Logger
	mu     sync.Mutex
	starts map[lookupKey]time.Time
}

func (r *resolverWrapper) GetHostByName(name string, hint model.AddrType) (model.HostAddr, error) {
	if addr, err := netip.ParseAddr(name); err == nil {
		return model.HostAddrFromIP(addr), nil
	}
	host, err := idnax.ToASCII(name)
	if err != nil {
		return model.HostAddr{}, errorsx.NewErrWrapper(
			errorsx.ClassifyResolverError, errorsx.ResolveOperation, err)
	}

	key := lookupKey{name: host, hint: hint}
	prefix := fmt.Sprintf("resolve[%s] %s with %s", hint, host, describe(r.dns))
	r.mu.Lock()
	if _, found := r.starts[key]; !found {
		r.logger.Debugf("%s...", prefix)
		r.forgetOldestLocked()
		r.starts[key] = time.Now()
	}
	r.mu.Unlock()

	addr, err := r.dns.GetHostByName(host, hint)
	if nb.IsWouldBlock(err) {
		return model.HostAddr{}, err
	}

	r.mu.Lock()
	elapsed := time.Since(r.starts[key])
	delete(r.starts, key)
	r.mu.Unlock()

	if err != nil {
		r.logger.Debugf("%s... %s in %s", prefix, err, elapsed)
		return model.HostAddr{}, errorsx.NewErrWrapper(
			errorsx.ClassifyResolverError, errorsx.ResolveOperation, err)
	}
	r.logger.Debugf("%s... %s in %s", prefix, addr.IP(), elapsed)
	return addr, nil
}

// forgetOldestLocked makes room for a new start time, dropping the oldest
// one, which usually belongs to an abandoned lookup. The caller must hold
// the mutex.
func (r *resolverWrapper) forgetOldestLocked() {
	if len(r.starts) < maxStarts {
		return
	}
	var (
		oldestKey lookupKey
		oldest    time.Time
	)
	for key, start := range r.starts {
		if oldest.IsZero() || start.Before(oldest) {
			oldestKey, oldest = key, start
		}
	}
	delete(r.starts, oldestKey)
}

// describe returns a description of the resolver for logging.
func describe(dns model.DNS) string {
	if r, ok := dns.(interface {
		Network() string
		Address() string
	}); ok {
		return fmt.Sprintf("%s (%s)", r.Network(), r.Address())
	}
	return fmt.Sprintf("%T", dns)
}
