package mocks

import (
	"net/netip"

	"github.com/ooni/nbtls/internal/model"
)

// TCPClientStack allows mocking model.TCPClientStack.
type TCPClientStack[S any] struct {
	MockSocket  func() (S, error)
	MockConnect func(socket S, remote netip.AddrPort) error
	MockSend    func(socket S, data []byte) (int, error)
	MockReceive func(socket S, buffer []byte) (int, error)
	MockClose   func(socket S) error
}

// Socket calls MockSocket.
func (s *TCPClientStack[S]) Socket() (S, error) {
	return s.MockSocket()
}

// Connect calls MockConnect.
func (s *TCPClientStack[S]) Connect(socket S, remote netip.AddrPort) error {
	return s.MockConnect(socket, remote)
}

// Send calls MockSend.
func (s *TCPClientStack[S]) Send(socket S, data []byte) (int, error) {
	return s.MockSend(socket, data)
}

// Receive calls MockReceive.
func (s *TCPClientStack[S]) Receive(socket S, buffer []byte) (int, error) {
	return s.MockReceive(socket, buffer)
}

// Close calls MockClose.
func (s *TCPClientStack[S]) Close(socket S) error {
	return s.MockClose(socket)
}

// TLSStack allows mocking model.TLS and, through the embedded DNS,
// model.DNSTLS.
type TLSStack[S, K any] struct {
	TCPClientStack[S]
	DNS

	MockConnectTLS func(socket S, remote model.HostSocketAddr, connector K) error
}

var _ model.DNSTLS[int, string] = &TLSStack[int, string]{}

// ConnectTLS calls MockConnectTLS.
func (s *TLSStack[S, K]) ConnectTLS(socket S, remote model.HostSocketAddr, connector K) error {
	return s.MockConnectTLS(socket, remote, connector)
}
