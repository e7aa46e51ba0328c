// Package nbdns implements non-blocking [model.DNS] capabilities.
//
// A [*Resolver] runs each lookup in the background using a blocking
// [Transport] and keeps track of the lookups in progress using a bounded
// table. Use [Wrap] to add IDNA, IP address short circuiting, logging and
// error wrapping to any [model.DNS].
package nbdns

import (
	"context"
	"net/netip"
	"sync"
	"time"

	"github.com/ooni/nbtls/internal/errorsx"
	"github.com/ooni/nbtls/internal/model"
	"github.com/ooni/nbtls/internal/nb"
	"github.com/ooni/nbtls/internal/optional"
)

// MaxPendingLookups is the maximum number of lookups in progress.
const MaxPendingLookups = 4

// MaxCachedLookups is the maximum number of completed lookups we remember.
const MaxCachedLookups = 4

// DefaultTimeout is the default timeout of a single lookup.
const DefaultTimeout = 15 * time.Second

// DefaultCacheTTL is the default lifetime of a completed lookup.
const DefaultCacheTTL = 30 * time.Second

// Transport performs blocking lookups.
type Transport interface {
	// LookupNetIP behaves like net.Resolver.LookupNetIP.
	LookupNetIP(ctx context.Context, network, name string) ([]netip.Addr, error)

	// Network returns the transport network (e.g., "udp").
	Network() string

	// Address returns the server address, if any.
	Address() string
}

// lookupKey identifies a lookup in progress.
type lookupKey struct {
	name string
	hint model.AddrType
}

// cacheEntry is a completed lookup.
type cacheEntry struct {
	addrs   []netip.Addr
	expires time.Time
	key     lookupKey
}

// Resolver is a non-blocking [model.DNS] using a [Transport]. We remember
// successful lookups, so that callers polling a compound operation do not
// resolve the same name again.
type Resolver struct {
	// CacheTTL is the OPTIONAL lifetime of a completed lookup. When zero
	// or negative, we use [DefaultCacheTTL].
	CacheTTL time.Duration

	// Timeout is the OPTIONAL timeout of each lookup. When zero or
	// negative, we use [DefaultTimeout].
	Timeout time.Duration

	cache     []cacheEntry
	mu        sync.Mutex
	pending   map[lookupKey]*nb.Op[[]netip.Addr]
	transport Transport
}

var _ model.DNS = &Resolver{}

// New creates a new [*Resolver] using the given transport.
func New(transport Transport) *Resolver {
	return &Resolver{
		pending:   map[lookupKey]*nb.Op[[]netip.Addr]{},
		transport: transport,
	}
}

// Network returns the network of the underlying transport.
func (r *Resolver) Network() string {
	return r.transport.Network()
}

// Address returns the address of the underlying transport.
func (r *Resolver) Address() string {
	return r.transport.Address()
}

func (r *Resolver) cacheTTL() time.Duration {
	if r.CacheTTL > 0 {
		return r.CacheTTL
	}
	return DefaultCacheTTL
}

func (r *Resolver) timeout() time.Duration {
	if r.Timeout > 0 {
		return r.Timeout
	}
	return DefaultTimeout
}

// GetHostByName implements model.DNS. The first call for a given name and
// hint starts a lookup and subsequent calls poll it. We fail with a
// [*model.CapacityError] when [MaxPendingLookups] lookups are in progress.
// Callers may abandon a lookup by not polling it again: once it completes,
// its slot becomes available for other names.
// On success, we return the first address matching hint.
func (r *Resolver) GetHostByName(name string, hint model.AddrType) (model.HostAddr, error) {
	hostname, err := model.NewHostname(name)
	if err != nil {
		return model.HostAddr{}, err
	}
	key := lookupKey{name: name, hint: hint}
	addrs, err := r.addrs(key)
	if err != nil {
		return model.HostAddr{}, err
	}
	for _, addr := range addrs {
		if hint.Accepts(addr) {
			return model.NewHostAddr(addr.Unmap(), optional.Some(hostname)), nil
		}
	}
	return model.HostAddr{}, errorsx.ErrDNSNoAnswer
}

// addrs returns the cached addresses for key or polls the lookup.
func (r *Resolver) addrs(key lookupKey) ([]netip.Addr, error) {
	if addrs, found := r.cached(key); found {
		return addrs, nil
	}
	op, err := r.lookup(key)
	if err != nil {
		return nil, err
	}
	addrs, err := op.Poll()
	if nb.IsWouldBlock(err) {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pending, key)
	if err != nil {
		return nil, err
	}
	r.storeLocked(key, addrs)
	return addrs, nil
}

// storeLocked remembers a successful lookup, evicting the oldest entry
// when the cache is full. The caller must hold the mutex.
func (r *Resolver) storeLocked(key lookupKey, addrs []netip.Addr) {
	if len(r.cache) >= MaxCachedLookups {
		r.cache = r.cache[1:]
	}
	r.cache = append(r.cache, cacheEntry{addrs: addrs, expires: time.Now().Add(r.cacheTTL()), key: key})
}

// reapLocked removes completed lookups nobody polled again, caching the
// successful ones. The caller must hold the mutex.
func (r *Resolver) reapLocked() {
	for key, op := range r.pending {
		select {
		case <-op.Done():
		default:
			continue
		}
		delete(r.pending, key)
		if addrs, err := op.Poll(); err == nil {
			r.storeLocked(key, addrs)
		}
	}
}

// cached returns the addresses of a completed and not expired lookup.
func (r *Resolver) cached(key lookupKey) ([]netip.Addr, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for idx, entry := range r.cache {
		if entry.key != key {
			continue
		}
		if now.After(entry.expires) {
			r.cache = append(r.cache[:idx], r.cache[idx+1:]...)
			return nil, false
		}
		return entry.addrs, true
	}
	return nil, false
}

// lookup returns the lookup in progress for key or starts a new one.
func (r *Resolver) lookup(key lookupKey) (*nb.Op[[]netip.Addr], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if op := r.pending[key]; op != nil {
		return op, nil
	}
	if len(r.pending) >= MaxPendingLookups {
		r.reapLocked()
	}
	if len(r.pending) >= MaxPendingLookups {
		return nil, &model.CapacityError{What: "pending lookups", Capacity: MaxPendingLookups}
	}
	transport, timeout := r.transport, r.timeout()
	op := nb.Start(func() ([]netip.Addr, error) {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return transport.LookupNetIP(ctx, key.hint.Network(), key.name)
	})
	r.pending[key] = op
	return op, nil
}

// NumCached returns the number of completed lookups we remember.
func (r *Resolver) NumCached() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cache)
}

// NumPending returns the number of lookups in progress.
func (r *Resolver) NumPending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}
