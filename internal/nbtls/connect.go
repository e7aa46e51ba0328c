// Package nbtls glues together the DNS and TLS capabilities to establish
// secure connections to host:port targets without blocking.
//
// Every function in this package is non-blocking and returns nb.ErrWouldBlock
// when the caller should call it again with the same arguments.
package nbtls

import (
	"github.com/ooni/nbtls/internal/errorsx"
	"github.com/ooni/nbtls/internal/model"
)

// Connect secures socket, which is addressed at remote, using connector. On
// success, it returns socket wrapped as a [model.TLSSocket].
func Connect[S, K any](
	stack model.TLS[S, K], socket S, remote model.HostSocketAddr, connector K) (model.TLSSocket[S], error) {
	if err := stack.ConnectTLS(socket, remote, connector); err != nil {
		return model.TLSSocket[S]{}, err
	}
	return model.NewTLSSocket(socket), nil
}

// ConnectTarget parses target using [ParseTarget], resolves the host to an
// IPv4 address, and calls [Connect]. Resolver errors are wrapped using
// [errorsx.ResolveOperation], while nb.ErrWouldBlock passes through unchanged.
func ConnectTarget[S, K any](
	stack model.DNSTLS[S, K], socket S, target string, connector K) (model.TLSSocket[S], error) {
	host, port, err := ParseTarget(target)
	if err != nil {
		return model.TLSSocket[S]{}, err
	}
	addr, err := stack.GetHostByName(host, model.AddrTypeIPv4)
	if err != nil {
		return model.TLSSocket[S]{}, errorsx.MaybeNewErrWrapper(
			errorsx.ClassifyResolverError, errorsx.ResolveOperation, err)
	}
	return Connect(stack, socket, model.NewHostSocketAddr(addr, port), connector)
}
