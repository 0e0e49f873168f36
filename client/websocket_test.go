package client

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// echoServer echoes binary frames and answers text frames with a text frame.
func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			kind, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(kind, data); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestWebSocketTransport_Echo(t *testing.T) {
	srv := echoServer(t)
	tr, err := DialWebSocket(strings.Replace(srv.URL, "http://", "ws://", 1))
	if err != nil {
		t.Fatalf("DialWebSocket: %v", err)
	}
	defer tr.Close()

	if err := tr.Send([]byte{0x01, 0x01, 'a'}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	buf := make([]byte, 64)
	n, err := tr.Receive(buf, time.Second)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if !bytes.Equal(buf[:n], []byte{0x01, 0x01, 'a'}) {
		t.Errorf("Expected 01 01 61, got % x", buf[:n])
	}
}

func TestWebSocketTransport_TimeoutKeepsConnection(t *testing.T) {
	srv := echoServer(t)
	tr, err := DialWebSocket(strings.TrimPrefix(srv.URL, "http://"))
	if err != nil {
		t.Fatalf("DialWebSocket: %v", err)
	}
	defer tr.Close()

	buf := make([]byte, 64)
	if _, err := tr.Receive(buf, 10*time.Millisecond); !errors.Is(err, ErrWouldBlock) {
		t.Fatalf("Expected ErrWouldBlock, got %v", err)
	}

	// The connection must still be usable after a timed-out receive.
	tr.Send([]byte{0x06, 0x02})
	n, err := tr.Receive(buf, time.Second)
	if err != nil {
		t.Fatalf("Receive after timeout: %v", err)
	}
	if !bytes.Equal(buf[:n], []byte{0x06, 0x02}) {
		t.Errorf("Expected 06 02, got % x", buf[:n])
	}
}

func TestWebSocketTransport_IgnoresTextFrames(t *testing.T) {
	srv := echoServer(t)
	tr, err := DialWebSocket(strings.Replace(srv.URL, "http://", "ws://", 1))
	if err != nil {
		t.Fatalf("DialWebSocket: %v", err)
	}
	defer tr.Close()

	tr.conn.WriteMessage(websocket.TextMessage, []byte("hello"))
	if _, err := tr.Receive(make([]byte, 64), 50*time.Millisecond); !errors.Is(err, ErrWouldBlock) {
		t.Errorf("Expected text frame to be ignored, got %v", err)
	}
}
