package server

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/mbocsi/avi/proto"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now
	},
}

// WSTransport serves AVI over WebSocket. Each binary frame carries one
// datagram and each connection is one session.
type WSTransport struct {
	Addr         string
	server       *http.Server
	onMessage    func(Client, proto.Uplink)
	onInvalid    func(Client, error)
	onDisconnect func(Client)

	name        string
	description string
	clients     map[string]Client
	cmu         sync.RWMutex

	maxClients int
	connected  bool
}

func NewWSTransport(addr string) *WSTransport {
	return &WSTransport{
		Addr:       addr,
		maxClients: 16,
		clients:    make(map[string]Client),
	}
}

func (t *WSTransport) Start() error {
	slog.Info("Starting WebSocket server", "addr", t.Addr)

	if t.onInvalid == nil || t.onDisconnect == nil || t.onMessage == nil {
		return fmt.Errorf("The OnInvalid, OnDisconnect, or OnMessage function is not defined. This transport is likely being called outside of the server coordinator.")
	}

	ln, err := net.Listen("tcp", t.Addr)
	if err != nil {
		return err
	}
	return t.Serve(ln)
}

// Serve accepts WebSocket upgrades on ln.
func (t *WSTransport) Serve(ln net.Listener) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", t.ServeHTTP)

	t.cmu.Lock()
	t.server = &http.Server{Handler: mux}
	t.connected = true
	srv := t.server
	t.cmu.Unlock()

	err := srv.Serve(ln)
	if err != nil && err != http.ErrServerClosed {
		t.cmu.Lock()
		t.connected = false
		t.cmu.Unlock()
		return err
	}
	return nil
}

// ServeHTTP upgrades the request and runs the session until the peer
// disconnects.
func (t *WSTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection", "error", err)
		return
	}

	t.cmu.RLock()
	clientCount := len(t.clients)
	t.cmu.RUnlock()

	if t.maxClients > 0 && clientCount >= t.maxClients {
		slog.Warn("Max clients reached, rejecting connection", "remote_addr", r.RemoteAddr)
		if out, err := encodeDownlink(proto.Error{Reason: proto.ReasonServerBusy}); err == nil {
			conn.WriteMessage(websocket.BinaryMessage, out)
		}
		conn.Close()
		return
	}

	t.handleConnection(conn, r.RemoteAddr)
}

func (t *WSTransport) handleConnection(conn *websocket.Conn, remoteAddr string) {
	slog.Info("WebSocket device connected", "addr", remoteAddr)

	client := NewWSClient(conn, remoteAddr, t)

	t.cmu.Lock()
	t.clients[client.Id] = client
	t.cmu.Unlock()

	defer func() {
		t.cmu.Lock()
		delete(t.clients, client.Id)
		t.cmu.Unlock()

		t.onDisconnect(client)

		conn.Close()
		slog.Info("WebSocket device disconnected", "addr", remoteAddr, "id", client.Id)
	}()

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("WebSocket connection error", "addr", remoteAddr, "error", err)
			}
			break
		}
		if kind != websocket.BinaryMessage {
			slog.Debug("Ignoring non-binary frame", "addr", remoteAddr, "type", kind)
			continue
		}
		client.touch()

		if len(data) > proto.MaxPacketSize {
			t.onInvalid(client, fmt.Errorf("frame of %d bytes exceeds %d", len(data), proto.MaxPacketSize))
			continue
		}
		msg, err := proto.DecodeUplink(data)
		if err != nil {
			t.onInvalid(client, err)
			continue
		}
		slog.Debug("WebSocket message received", "type", msg.Tag(), "sender", client.Id, "size", len(data))
		t.onMessage(client, msg)
	}
}

func (t *WSTransport) Shutdown() error {
	slog.Info("Shutting down WebSocket server", "addr", t.Addr)
	t.cmu.Lock()
	t.connected = false
	srv := t.server
	for _, client := range t.clients {
		// Hijacked connections are not closed by http.Server.Close.
		if ws, ok := client.(*WSClient); ok {
			ws.conn.Close()
		}
	}
	t.cmu.Unlock()
	if srv != nil {
		return srv.Close()
	}
	return nil
}

func (t *WSTransport) OnMessage(fn func(Client, proto.Uplink)) {
	t.onMessage = fn
}

func (t *WSTransport) OnInvalid(fn func(Client, error)) {
	t.onInvalid = fn
}

func (t *WSTransport) OnDisconnect(fn func(Client)) {
	t.onDisconnect = fn
}

func (t *WSTransport) Meta() TransportMetadata {
	t.cmu.RLock()
	defer t.cmu.RUnlock()
	clients := make(map[string]Client, len(t.clients))
	for id, client := range t.clients {
		clients[id] = client
	}
	return TransportMetadata{
		ID:          "ws-" + t.Addr,
		Name:        t.name,
		Description: t.description,
		Protocol:    "websocket",
		Address:     t.Addr,
		Clients:     clients,
		MaxClients:  t.maxClients,
		Connected:   t.connected,
	}
}

func (t *WSTransport) SetName(name string) {
	t.name = name
}

func (t *WSTransport) SetMaxClients(n int) {
	t.maxClients = n
}

func (t *WSTransport) SetDescription(description string) {
	t.description = description
}
