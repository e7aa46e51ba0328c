package netstack

import (
	"github.com/ooni/nbtls/internal/errorsx"
	"github.com/ooni/nbtls/internal/model"
	"github.com/ooni/nbtls/internal/nb"
	"github.com/ooni/nbtls/internal/tlsbackend"
)

// TLSStack is a [model.TLS] built on top of a [Stack] and using
// [*tlsbackend.Connector] as the connector type.
type TLSStack struct {
	*Stack
}

var _ model.TLS[*Socket, *tlsbackend.Connector] = &TLSStack{}

// NewTLSStack wraps stack.
func NewTLSStack(stack *Stack) *TLSStack {
	return &TLSStack{stack}
}

// ConnectTLS implements model.TLS. We first connect the socket, if needed,
// and then run the handshake in the background. A failed handshake leaves
// the socket in a state where the only sensible operation is Close, hence
// subsequent calls return the same error.
//
// Callers that resolve the hostname on every call may pass another address
// while we are connecting: we keep using the address of the first call, so
// that the call continues the operation in progress.
func (s *TLSStack) ConnectTLS(sock *Socket, remote model.HostSocketAddr, connector *tlsbackend.Connector) error {
	if err := s.check(sock); err != nil {
		return err
	}
	if sock.secured {
		return nil
	}
	if sock.handshakeErr != nil {
		return sock.handshakeErr
	}
	remote = sock.pin(remote)
	if sock.handshake == nil {
		if err := s.Connect(sock, remote.AddrPort()); err != nil {
			return err
		}
		ctx, conn := sock.ctx, sock.conn
		sock.handshake = nb.Start(func() (handshakeResult, error) {
			tlsconn, state, err := connector.Handshake(ctx, conn, remote)
			return handshakeResult{conn: tlsconn, state: state}, err
		})
	}
	result, err := sock.handshake.Poll()
	if nb.IsWouldBlock(err) {
		return err
	}
	sock.handshake = nil
	if err != nil {
		sock.handshakeErr = errorsx.NewErrWrapper(
			errorsx.ClassifyTLSHandshakeError, errorsx.TLSHandshakeOperation, err)
		return sock.handshakeErr
	}
	sock.conn, sock.state, sock.secured = result.conn, result.state, true
	return nil
}
