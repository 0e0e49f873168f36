package client

import (
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/mbocsi/avi/proto"
)

// minReadTimeout bounds non-positive timeouts. A deadline already in the
// past fails the read before the socket is checked.
const minReadTimeout = time.Millisecond

// UDPTransport sends each AVI message as one UDP datagram to a fixed server.
type UDPTransport struct {
	conn *net.UDPConn

	mu     sync.Mutex
	closed bool
	rbuf   []byte
}

// DialUDP connects a UDP socket to addr ("host:port").
func DialUDP(addr string) (*UDPTransport, error) {
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", addr, err)
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return NewUDPTransport(conn), nil
}

// NewUDPTransport wraps an already connected UDP socket.
func NewUDPTransport(conn *net.UDPConn) *UDPTransport {
	return &UDPTransport{conn: conn, rbuf: make([]byte, proto.MaxPacketSize+1)}
}

func (t *UDPTransport) Send(p []byte) error {
	if t.isClosed() {
		return net.ErrClosed
	}
	_, err := t.conn.Write(p)
	return err
}

// Receive reads one datagram. A datagram longer than buf is an error
// rather than silently truncated.
func (t *UDPTransport) Receive(buf []byte, timeout time.Duration) (int, error) {
	if t.isClosed() {
		return 0, net.ErrClosed
	}
	if timeout < minReadTimeout {
		timeout = minReadTimeout
	}
	if err := t.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return 0, err
	}

	if len(t.rbuf) <= len(buf) {
		t.rbuf = make([]byte, len(buf)+1)
	}
	n, err := t.conn.Read(t.rbuf)
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return 0, ErrWouldBlock
		}
		return 0, err
	}
	if n > len(buf) {
		return 0, fmt.Errorf("datagram larger than %d bytes", len(buf))
	}
	return copy(buf, t.rbuf[:n]), nil
}

func (t *UDPTransport) LocalAddr() net.Addr {
	return t.conn.LocalAddr()
}

func (t *UDPTransport) RemoteAddr() net.Addr {
	return t.conn.RemoteAddr()
}

func (t *UDPTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	return t.conn.Close()
}

func (t *UDPTransport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}
