// Package netstack implements non-blocking TCP client sockets, and TLS on top
// of them, using the Go standard library networking code.
//
// Each blocking operation (dial, read, write, handshake) runs in a background
// goroutine whose state lives inside the [*Socket] until the caller observes
// its completion. Calling again after [nb.ErrWouldBlock] polls the operation
// in progress rather than starting a new one. Sockets are not safe for
// concurrent use: a single goroutine should drive each socket.
package netstack

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/ooni/nbtls/internal/errorsx"
	"github.com/ooni/nbtls/internal/model"
	"github.com/ooni/nbtls/internal/nb"
)

// MaxSockets is the capacity of the socket table of a [Stack].
const MaxSockets = 8

var (
	// ErrInvalidSocket indicates that the socket does not belong to the
	// stack or that it has already been closed.
	ErrInvalidSocket = errors.New("netstack: invalid socket")

	// ErrNotConnected indicates that the socket is not connected.
	ErrNotConnected = errors.New("netstack: socket not connected")

	// ErrAlreadyConnected indicates that the socket is connected, or is
	// connecting, to another remote endpoint.
	ErrAlreadyConnected = errors.New("netstack: socket already connected")
)

// Dialer establishes network connections.
type Dialer interface {
	// DialContext behaves like net.Dialer.DialContext.
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// defaultDialer is the Dialer we use by default.
var defaultDialer = &net.Dialer{
	Timeout:   15 * time.Second,
	KeepAlive: 15 * time.Second,
}

// Stack is a [model.TCPClientStack] with a bounded socket table. The
// zero value is ready to use.
type Stack struct {
	// Dialer is the OPTIONAL dialer. When nil, we use a net.Dialer.
	Dialer Dialer

	// Logger is the OPTIONAL logger.
	Logger model.Logger

	mu    sync.Mutex
	table [MaxSockets]*Socket
}

var _ model.TCPClientStack[*Socket] = &Stack{}

// New creates a new [Stack] using the default dialer.
func New(logger model.Logger) *Stack {
	return &Stack{Logger: logger}
}

func (s *Stack) dialer() Dialer {
	if s.Dialer != nil {
		return s.Dialer
	}
	return defaultDialer
}

func (s *Stack) logger() model.Logger {
	return model.ValidLoggerOrDefault(s.Logger)
}

// Socket implements model.TCPClientStack. It fails with a [*model.CapacityError]
// when all the [MaxSockets] slots are in use.
func (s *Stack) Socket() (*Socket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for idx, entry := range s.table {
		if entry == nil {
			ctx, cancel := context.WithCancel(context.Background())
			sock := &Socket{ctx: ctx, cancel: cancel, slot: idx}
			s.table[idx] = sock
			return sock, nil
		}
	}
	return nil, &model.CapacityError{What: "sockets", Capacity: MaxSockets}
}

// NumSockets returns the number of sockets in use.
func (s *Stack) NumSockets() (count int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entry := range s.table {
		if entry != nil {
			count++
		}
	}
	return
}

func (s *Stack) check(sock *Socket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sock == nil || s.table[sock.slot] != sock {
		return ErrInvalidSocket
	}
	return nil
}

// Connect implements model.TCPClientStack.
func (s *Stack) Connect(sock *Socket, remote netip.AddrPort) error {
	if err := s.check(sock); err != nil {
		return err
	}
	if sock.conn != nil || sock.dial != nil {
		if sock.remote != remote {
			return ErrAlreadyConnected
		}
		if sock.conn != nil {
			return nil
		}
	}
	if sock.dial == nil {
		ctx, dialer := sock.ctx, s.dialer()
		address := netip.AddrPortFrom(remote.Addr().Unmap(), remote.Port()).String()
		s.logger().Debugf("connect %s...", address)
		sock.remote = remote
		sock.dialStart = time.Now()
		sock.dial = nb.Start(func() (net.Conn, error) {
			return dialer.DialContext(ctx, "tcp", address)
		})
	}
	conn, err := sock.dial.Poll()
	if nb.IsWouldBlock(err) {
		return err
	}
	sock.dial = nil
	s.logger().Debugf("connect %s... %s in %s", remote, model.ErrorToStringOrOK(err), time.Since(sock.dialStart))
	if err != nil {
		return errorsx.NewErrWrapper(errorsx.ClassifyGenericError, errorsx.ConnectOperation, err)
	}
	sock.conn = conn
	return nil
}

// Send implements model.TCPClientStack. After [nb.ErrWouldBlock], the caller
// should retry with the same data, which we have already copied.
func (s *Stack) Send(sock *Socket, data []byte) (int, error) {
	if err := s.check(sock); err != nil {
		return 0, err
	}
	if sock.handshake != nil {
		return 0, nb.ErrWouldBlock
	}
	if sock.conn == nil {
		return 0, ErrNotConnected
	}
	if sock.write == nil {
		conn, payload := sock.conn, append([]byte{}, data...)
		sock.write = nb.Start(func() (int, error) {
			return conn.Write(payload)
		})
	}
	count, err := sock.write.Poll()
	if nb.IsWouldBlock(err) {
		return 0, err
	}
	sock.write = nil
	return count, errorsx.MaybeNewErrWrapper(errorsx.ClassifyGenericError, errorsx.WriteOperation, err)
}

// Receive implements model.TCPClientStack. When buffer is smaller than the
// data we have read, we keep the remainder for the next call. When a read
// returns both data and an error, we return the error once the data has
// been consumed.
func (s *Stack) Receive(sock *Socket, buffer []byte) (int, error) {
	if err := s.check(sock); err != nil {
		return 0, err
	}
	if sock.handshake != nil {
		return 0, nb.ErrWouldBlock
	}
	if sock.conn == nil {
		return 0, ErrNotConnected
	}
	if len(sock.pending) <= 0 {
		if err := sock.readErr; err != nil {
			sock.readErr = nil
			return 0, errorsx.NewErrWrapper(errorsx.ClassifyGenericError, errorsx.ReadOperation, err)
		}
		if sock.read == nil {
			conn, size := sock.conn, max(len(buffer), 1)
			sock.read = nb.Start(func() ([]byte, error) {
				data := make([]byte, size)
				count, err := conn.Read(data)
				return data[:count], err
			})
		}
		data, err := sock.read.Poll()
		if nb.IsWouldBlock(err) {
			return 0, err
		}
		sock.read = nil
		if len(data) <= 0 {
			return 0, errorsx.MaybeNewErrWrapper(errorsx.ClassifyGenericError, errorsx.ReadOperation, err)
		}
		sock.pending, sock.readErr = data, err
	}
	count := copy(buffer, sock.pending)
	sock.pending = sock.pending[count:]
	return count, nil
}

// Close implements model.TCPClientStack. We interrupt any operation in
// progress and release the socket slot.
func (s *Stack) Close(sock *Socket) error {
	s.mu.Lock()
	if sock == nil || s.table[sock.slot] != sock {
		s.mu.Unlock()
		return ErrInvalidSocket
	}
	s.table[sock.slot] = nil
	s.mu.Unlock()

	sock.cancel()
	if op := sock.dial; op != nil {
		go closeWhenDone(op)
	}
	if sock.conn == nil {
		return nil
	}
	err := sock.conn.Close()
	return errorsx.MaybeNewErrWrapper(errorsx.ClassifyGenericError, errorsx.CloseOperation, err)
}

// closeWhenDone closes the conn created by a dial that completes after
// the socket has been closed.
func closeWhenDone(op *nb.Op[net.Conn]) {
	<-op.Done()
	if conn, err := op.Poll(); err == nil {
		conn.Close()
	}
}
