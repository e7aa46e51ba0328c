package model

// TLSSocket wraps a transport socket that has been secured. It grants
// read access to the underlying socket handle.
type TLSSocket[S any] struct {
	socket S
}

// NewTLSSocket wraps socket.
func NewTLSSocket[S any](socket S) TLSSocket[S] {
	return TLSSocket[S]{socket: socket}
}

// Socket returns the underlying transport socket.
func (ts TLSSocket[S]) Socket() S {
	return ts.socket
}
