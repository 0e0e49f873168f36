package client

import "errors"

var (
	// ErrNotConnected is returned by write operations outside the Connected
	// state. Nothing is sent.
	ErrNotConnected = errors.New("avi: not connected")

	// ErrConnectTimeout is returned when no reply to Hello arrived in time.
	ErrConnectTimeout = errors.New("avi: timeout waiting for welcome")

	// ErrHandshake is returned when the reply to Hello is not a Welcome.
	ErrHandshake = errors.New("avi: handshake failed")

	// ErrDecode wraps codec errors for datagrams received by Poll.
	ErrDecode = errors.New("avi: undecodable datagram")

	// ErrWouldBlock is returned by Transport.Receive when nothing arrived
	// within the timeout.
	ErrWouldBlock = errors.New("avi: no data available")

	// ErrPacketSize is returned by New for a scratch size below
	// proto.MaxPacketSize.
	ErrPacketSize = errors.New("avi: packet buffer smaller than maximum packet size")
)
