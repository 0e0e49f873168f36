package client

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketTransport carries one AVI datagram per binary frame. A reader
// goroutine drains the connection into a bounded queue: gorilla treats a
// read deadline as fatal, so Receive times out on the queue instead.
type WebSocketTransport struct {
	conn   *websocket.Conn
	frames chan []byte

	mu      sync.Mutex
	readErr error
	done    chan struct{}
	once    sync.Once
}

// wsQueueLen frames are buffered before the reader drops the oldest.
const wsQueueLen = 32

// DialWebSocket connects to addr. A missing scheme defaults to ws://.
func DialWebSocket(addr string) (*WebSocketTransport, error) {
	if !strings.Contains(addr, "://") {
		addr = "ws://" + addr
	}
	u, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid WebSocket URL: %w", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to WebSocket server: %w", err)
	}
	return NewWebSocketTransport(conn), nil
}

// NewWebSocketTransport starts reading from an established connection.
func NewWebSocketTransport(conn *websocket.Conn) *WebSocketTransport {
	t := &WebSocketTransport{
		conn:   conn,
		frames: make(chan []byte, wsQueueLen),
		done:   make(chan struct{}),
	}
	go t.readLoop()
	return t
}

func (t *WebSocketTransport) readLoop() {
	defer close(t.done)
	for {
		kind, data, err := t.conn.ReadMessage()
		if err != nil {
			t.mu.Lock()
			t.readErr = err
			t.mu.Unlock()
			return
		}
		if kind != websocket.BinaryMessage {
			slog.Debug("Ignoring non-binary WebSocket frame", "type", kind, "size", len(data))
			continue
		}
		select {
		case t.frames <- data:
		default:
			// Queue full: drop the oldest frame, datagram semantics.
			select {
			case <-t.frames:
			default:
			}
			t.frames <- data
		}
	}
}

func (t *WebSocketTransport) Send(p []byte) error {
	if err := t.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return fmt.Errorf("failed to send WebSocket message: %w", err)
	}
	return nil
}

func (t *WebSocketTransport) Receive(buf []byte, timeout time.Duration) (int, error) {
	if timeout < minReadTimeout {
		timeout = minReadTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case data := <-t.frames:
		return t.deliver(buf, data)
	case <-t.done:
		// Frames queued before the connection failed are still delivered.
		select {
		case data := <-t.frames:
			return t.deliver(buf, data)
		default:
		}
		t.mu.Lock()
		defer t.mu.Unlock()
		return 0, fmt.Errorf("connection closed: %w", t.readErr)
	case <-timer.C:
		return 0, ErrWouldBlock
	}
}

func (t *WebSocketTransport) deliver(buf, data []byte) (int, error) {
	if len(data) > len(buf) {
		return 0, fmt.Errorf("frame larger than %d bytes", len(buf))
	}
	return copy(buf, data), nil
}

func (t *WebSocketTransport) Close() error {
	var err error
	t.once.Do(func() {
		werr := t.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		if werr != nil {
			slog.Warn("Failed to send close message", "error", werr)
		}
		err = t.conn.Close()
	})
	return err
}
