package netstack

import (
	"context"
	"crypto/tls"
	"net"
	"net/netip"
	"time"

	"github.com/ooni/nbtls/internal/model"
	"github.com/ooni/nbtls/internal/nb"
)

// Socket is a socket handle of a [Stack]. The zero value is invalid; use
// [Stack.Socket] to create a new instance.
type Socket struct {
	// cancel interrupts the operations in progress.
	cancel context.CancelFunc

	// conn is the connected conn, which may be a TLS conn.
	conn net.Conn

	// ctx is the context of every background operation.
	ctx context.Context

	// dial is the dial in progress.
	dial *nb.Op[net.Conn]

	// dialStart is when the dial started.
	dialStart time.Time

	// handshake is the TLS handshake in progress.
	handshake *nb.Op[handshakeResult]

	// handshakeErr is the sticky handshake failure.
	handshakeErr error

	// pending contains data read but not yet returned.
	pending []byte

	// read is the read in progress.
	read *nb.Op[[]byte]

	// readErr is the error returned along with the pending data.
	readErr error

	// remote is the remote endpoint.
	remote netip.AddrPort

	// slot is the index inside the socket table.
	slot int

	// target is the remote passed to the ConnectTLS call that started
	// connecting this socket.
	target model.HostSocketAddr

	// state is the TLS connection state.
	state tls.ConnectionState

	// secured indicates we completed the TLS handshake.
	secured bool

	// write is the write in progress.
	write *nb.Op[int]
}

// handshakeResult is the result of a TLS handshake.
type handshakeResult struct {
	conn  net.Conn
	state tls.ConnectionState
}

// RemoteAddr returns the remote endpoint passed to Connect.
func (s *Socket) RemoteAddr() netip.AddrPort {
	return s.remote
}

// ConnectionState returns the TLS connection state and whether the
// socket has been secured.
func (s *Socket) ConnectionState() (tls.ConnectionState, bool) {
	return s.state, s.secured
}

// busy returns whether the socket is connecting, handshaking or connected.
func (s *Socket) busy() bool {
	return s.dial != nil || s.handshake != nil || s.conn != nil
}

// pin returns the remote to use for continuing a ConnectTLS. While busy, a
// remote with the same hostname and port as the target, but possibly another
// address, refers to the operation in progress and we map it to the target.
// Otherwise, remote becomes the new target.
func (s *Socket) pin(remote model.HostSocketAddr) model.HostSocketAddr {
	if !s.busy() {
		s.target = remote
		return remote
	}
	name, found := remote.Addr().Hostname()
	targetName, targetFound := s.target.Addr().Hostname()
	if found && targetFound && name == targetName && remote.Port() == s.target.Port() {
		return s.target
	}
	return remote
}
