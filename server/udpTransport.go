package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/mbocsi/avi/proto"
)

const DefaultIdleTimeout = 2 * time.Minute

// UDPTransport serves AVI over UDP. A session is the set of datagrams from
// one remote address; it ends when the address stays silent longer than
// the idle timeout.
type UDPTransport struct {
	Addr string

	conn         *net.UDPConn
	onMessage    func(Client, proto.Uplink)
	onInvalid    func(Client, error)
	onDisconnect func(Client)

	name        string
	description string
	clients     map[string]*UDPClient // keyed by remote address
	cmu         sync.RWMutex

	maxClients  int
	idleTimeout time.Duration
	connected   bool
	done        chan struct{}
}

func NewUDPTransport(addr string) *UDPTransport {
	return &UDPTransport{
		Addr:        addr,
		maxClients:  64,
		idleTimeout: DefaultIdleTimeout,
		clients:     make(map[string]*UDPClient),
	}
}

// Listen binds the socket. Start calls it when needed; calling it first
// makes LocalAddr available before serving.
func (t *UDPTransport) Listen() error {
	t.cmu.Lock()
	defer t.cmu.Unlock()
	if t.conn != nil {
		return nil
	}
	laddr, err := net.ResolveUDPAddr("udp", t.Addr)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", t.Addr, err)
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", t.Addr, err)
	}
	t.conn = conn
	t.done = make(chan struct{})
	return nil
}

func (t *UDPTransport) LocalAddr() net.Addr {
	t.cmu.RLock()
	defer t.cmu.RUnlock()
	if t.conn == nil {
		return nil
	}
	return t.conn.LocalAddr()
}

func (t *UDPTransport) Start() error {
	if t.onInvalid == nil || t.onDisconnect == nil || t.onMessage == nil {
		return fmt.Errorf("The OnInvalid, OnDisconnect, or OnMessage function is not defined. This transport is likely being called outside of the server coordinator.")
	}
	if err := t.Listen(); err != nil {
		return err
	}

	t.cmu.Lock()
	conn, done := t.conn, t.done
	t.connected = true
	t.cmu.Unlock()
	if conn == nil {
		return net.ErrClosed
	}
	slog.Info("Starting UDP server", "addr", conn.LocalAddr().String())

	go t.sweep(done)

	buf := make([]byte, proto.MaxPacketSize+1)
	for {
		n, raddr, err := conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			slog.Warn("UDP read error", "error", err)
			continue
		}
		t.handleDatagram(conn, buf[:n], raddr)
	}
}

func (t *UDPTransport) handleDatagram(conn *net.UDPConn, data []byte, raddr *net.UDPAddr) {
	key := raddr.String()

	t.cmu.Lock()
	client, exists := t.clients[key]
	if !exists {
		if t.maxClients > 0 && len(t.clients) >= t.maxClients {
			t.cmu.Unlock()
			slog.Warn("Max clients reached, rejecting datagram", "remote_addr", key)
			reject(conn, raddr, proto.ReasonServerBusy)
			return
		}
		client = NewUDPClient(conn, raddr, t)
		t.clients[key] = client
		slog.Info("UDP session opened", "addr", key, "id", client.Id)
	}
	t.cmu.Unlock()
	client.touch()

	if len(data) > proto.MaxPacketSize {
		t.onInvalid(client, fmt.Errorf("datagram of %d bytes exceeds %d", len(data), proto.MaxPacketSize))
		return
	}
	msg, err := proto.DecodeUplink(data)
	if err != nil {
		t.onInvalid(client, err)
		return
	}
	slog.Debug("UDP message received", "type", msg.Tag(), "sender", client.Id, "size", len(data))
	t.onMessage(client, msg)
}

// reject answers a datagram that has no session.
func reject(conn *net.UDPConn, raddr *net.UDPAddr, reason proto.Reason) {
	out, err := encodeDownlink(proto.Error{Reason: reason})
	if err != nil {
		return
	}
	if _, err := conn.WriteToUDP(out, raddr); err != nil {
		slog.Warn("Failed to send rejection", "remote_addr", raddr.String(), "error", err)
	}
}

// sweep expires idle sessions until the transport shuts down.
func (t *UDPTransport) sweep(done <-chan struct{}) {
	interval := t.idleTimeout / 4
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case now := <-ticker.C:
			t.expire(now)
		}
	}
}

func (t *UDPTransport) expire(now time.Time) {
	var expired []*UDPClient
	t.cmu.Lock()
	for key, client := range t.clients {
		client.Mu.RLock()
		idle := now.Sub(client.LastSeen)
		client.Mu.RUnlock()
		if idle > t.idleTimeout {
			delete(t.clients, key)
			expired = append(expired, client)
		}
	}
	t.cmu.Unlock()

	for _, client := range expired {
		slog.Info("UDP session expired", "addr", client.Addr, "id", client.Id)
		t.onDisconnect(client)
	}
}

func (t *UDPTransport) Shutdown() error {
	slog.Info("Shutting down UDP server", "addr", t.Addr)
	t.cmu.Lock()
	conn := t.conn
	t.conn = nil
	t.connected = false
	remaining := make([]*UDPClient, 0, len(t.clients))
	for key, client := range t.clients {
		remaining = append(remaining, client)
		delete(t.clients, key)
	}
	if t.done != nil {
		close(t.done)
		t.done = nil
	}
	t.cmu.Unlock()

	for _, client := range remaining {
		if t.onDisconnect != nil {
			t.onDisconnect(client)
		}
	}
	if conn != nil {
		return conn.Close()
	}
	return nil
}

func (t *UDPTransport) OnMessage(fn func(Client, proto.Uplink)) {
	t.onMessage = fn
}

func (t *UDPTransport) OnInvalid(fn func(Client, error)) {
	t.onInvalid = fn
}

func (t *UDPTransport) OnDisconnect(fn func(Client)) {
	t.onDisconnect = fn
}

func (t *UDPTransport) Meta() TransportMetadata {
	t.cmu.RLock()
	defer t.cmu.RUnlock()
	clients := make(map[string]Client, len(t.clients))
	for _, client := range t.clients {
		clients[client.Id] = client
	}
	return TransportMetadata{
		ID:          "udp-" + t.Addr,
		Name:        t.name,
		Description: t.description,
		Protocol:    "udp",
		Address:     t.Addr,
		Clients:     clients,
		MaxClients:  t.maxClients,
		Connected:   t.connected,
	}
}

func (t *UDPTransport) SetName(name string) {
	t.name = name
}

func (t *UDPTransport) SetMaxClients(n int) {
	t.maxClients = n
}

func (t *UDPTransport) SetIdleTimeout(d time.Duration) {
	t.idleTimeout = d
}

func (t *UDPTransport) SetDescription(description string) {
	t.description = description
}
