//go:build integration

package integration

import (
	"context"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/mbocsi/avi/client"
	"github.com/mbocsi/avi/server"
)

type testServer struct {
	avi     *server.AviServer
	udpAddr string
	wsAddr  string
}

// startServer runs a server with a UDP and a WebSocket transport on
// loopback until the test ends.
func startServer(t *testing.T) *testServer {
	t.Helper()
	avi := server.NewAviServer(server.AviServerOptions{})

	udp := server.NewUDPTransport("127.0.0.1:0")
	if err := udp.Listen(); err != nil {
		t.Fatalf("Failed to bind UDP: %v", err)
	}
	avi.RegisterTransport(udp)

	wsAddr := fmt.Sprintf("127.0.0.1:%d", getRandomPort(t))
	avi.RegisterTransport(server.NewWSTransport(wsAddr))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		avi.Start(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	waitForListener(t, wsAddr)

	return &testServer{avi: avi, udpAddr: udp.LocalAddr().String(), wsAddr: wsAddr}
}

func getRandomPort(t *testing.T) int {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to get random port: %v", err)
	}
	defer listener.Close()
	return listener.Addr().(*net.TCPAddr).Port
}

func waitForListener(t *testing.T, addr string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 100*time.Millisecond)
		if err == nil {
			conn.Close()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("Server never listened on %s", addr)
}

// inbox records messages delivered to a device by topic.
type inbox struct {
	mu   sync.Mutex
	msgs map[string][]string
}

func (i *inbox) handle(topic string, data []byte) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.msgs[topic] = append(i.msgs[topic], string(data))
}

func (i *inbox) get(topic string) []string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]string(nil), i.msgs[topic]...)
}

type device struct {
	*client.Client
	inbox *inbox
}

func connectUDP(t *testing.T, addr string, id uint64) *device {
	t.Helper()
	tr, err := client.DialUDP(addr)
	if err != nil {
		t.Fatalf("Failed to dial UDP: %v", err)
	}
	return connect(t, tr, id)
}

func connectWS(t *testing.T, addr string, id uint64) *device {
	t.Helper()
	tr, err := client.DialWebSocket(addr)
	if err != nil {
		t.Fatalf("Failed to dial WebSocket: %v", err)
	}
	return connect(t, tr, id)
}

func connect(t *testing.T, tr client.Transport, id uint64) *device {
	t.Helper()
	in := &inbox{msgs: make(map[string][]string)}
	c, err := client.New(id, tr, in.handle)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	if err := c.Connect(2 * time.Second); err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	return &device{Client: c, inbox: in}
}

// waitFor polls until topic has received n messages.
func (d *device) waitFor(t *testing.T, topic string, n int) []string {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if err := d.Poll(20 * time.Millisecond); err != nil {
			t.Fatalf("Poll failed: %v", err)
		}
		if got := d.inbox.get(topic); len(got) >= n {
			return got
		}
	}
	t.Fatalf("Timed out waiting for %d messages on %s, got %v", n, topic, d.inbox.get(topic))
	return nil
}

// subscribe returns once the server has recorded the subscription.
func (d *device) subscribe(t *testing.T, srv *testServer, topic string) {
	t.Helper()
	if err := d.Subscribe(topic); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		for c := range srv.avi.GetBroker().Subs(topic) {
			if c.Meta().DeviceID == d.DeviceID() {
				return
			}
		}
		d.Poll(10 * time.Millisecond)
	}
	t.Fatalf("Subscription to %s never reached the server", topic)
}
