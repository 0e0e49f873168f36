package client

import "time"

// Transport moves whole datagrams. One call to Send transmits one message
// and one call to Receive yields at most one.
type Transport interface {
	Send(p []byte) error
	// Receive waits up to timeout for a datagram, copies it into buf and
	// returns its length. It returns ErrWouldBlock when nothing arrived.
	Receive(buf []byte, timeout time.Duration) (int, error)
}
