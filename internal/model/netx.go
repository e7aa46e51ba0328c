package model

//
// Network capabilities
//

import "net/netip"

// TCPClientStack is the capability of opening TCP client sockets. The
// S type parameter is the socket handle type chosen by the stack.
//
// Connect, Send and Receive are non-blocking: they return nb.ErrWouldBlock
// when the caller should retry the identical call later.
type TCPClientStack[S any] interface {
	// Socket allocates a new socket.
	Socket() (S, error)

	// Connect connects socket to remote.
	Connect(socket S, remote netip.AddrPort) error

	// Send writes data and returns the number of bytes accepted.
	Send(socket S, data []byte) (int, error)

	// Receive reads into buffer and returns the number of bytes read.
	Receive(socket S, buffer []byte) (int, error)

	// Close releases the socket, including any operation in progress.
	Close(socket S) error
}

// DNS is the capability of resolving hostnames.
type DNS interface {
	// GetHostByName resolves name to an address belonging to the family
	// selected by hint. This method is non-blocking. On success, the
	// returned [HostAddr] carries name as its hostname.
	GetHostByName(name string, hint AddrType) (HostAddr, error)
}

// TLS is the capability of securing sockets of a [TCPClientStack]. The
// K type parameter is the backend-specific connector type.
//
// Errors returned by ConnectTLS wrap, rather than hide, the transport errors.
type TLS[S, K any] interface {
	// A TLS is also a TCPClientStack.
	TCPClientStack[S]

	// ConnectTLS secures socket, which is addressed at remote, using the
	// parameters carried by connector. This method is non-blocking. After
	// nb.ErrWouldBlock, calling it again with the same arguments continues
	// the handshake in progress rather than restarting it.
	ConnectTLS(socket S, remote HostSocketAddr, connector K) error
}

// DNSTLS is a [TLS] capability that is also able to resolve names.
type DNSTLS[S, K any] interface {
	TLS[S, K]
	DNS
}
