// Package server is the reference AVI server: it accepts device sessions
// over UDP, WebSocket and LoRa, routes topic messages between them and
// relays streams from one device to another.
package server

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mbocsi/avi/proto"
)

type Transport interface {
	Start() error
	OnMessage(func(Client, proto.Uplink))
	// OnInvalid is called for datagrams that fail to decode.
	OnInvalid(func(Client, error))
	OnDisconnect(func(Client))
	Shutdown() error
	Meta() TransportMetadata
	SetName(name string)
	SetDescription(description string)
}

type TransportMetadata struct {
	ID          string
	Name        string // Human-friendly name, e.g., "UDP Server", "LoRa Gateway"
	Protocol    string // Protocol name, e.g., "udp", "websocket", "lora"
	Address     string // Bind address, e.g., "0.0.0.0:8888"
	Description string // Optional, short purpose/use case

	Clients    map[string]Client // Current sessions keyed by session id
	MaxClients int               // Max allowed sessions (0 = unlimited)
	Connected  bool              // Whether the transport is currently running/bound
}

// SensorReading is the latest value reported for a named sensor.
type SensorReading struct {
	Value   proto.SensorValue
	Updated time.Time
}

// StreamInfo describes a stream a device has opened towards a peer.
type StreamInfo struct {
	Target  string
	Reason  string
	Started time.Time
	Chunks  int
	Bytes   int
}

type DeviceMetadata struct {
	Id         string // Session id, e.g. "udp-<uuid>"
	DeviceID   uint64 // Identity from Hello; valid when Identified
	Identified bool
	Addr       string
	LastSeen   time.Time
	Subs       map[string]struct{}
	Sensors    map[string]SensorReading
	Streams    map[uint8]*StreamInfo
	Transport  Transport
	Mu         sync.RWMutex
}

func newDeviceMetadata(prefix, addr string, t Transport) DeviceMetadata {
	return DeviceMetadata{
		Id:        generateClientId(prefix),
		Addr:      addr,
		LastSeen:  time.Now(),
		Subs:      make(map[string]struct{}),
		Sensors:   make(map[string]SensorReading),
		Streams:   make(map[uint8]*StreamInfo),
		Transport: t,
	}
}

// NewDeviceMetadata returns metadata for a session that lives inside the
// server process rather than behind a transport.
func NewDeviceMetadata(prefix, addr string) *DeviceMetadata {
	m := newDeviceMetadata(prefix, addr, nil)
	return &m
}

// PeerID is the name other devices use to address this device in
// StreamStart. It is empty until the device has sent Hello.
func (m *DeviceMetadata) PeerID() string {
	m.Mu.RLock()
	defer m.Mu.RUnlock()
	if !m.Identified {
		return ""
	}
	return PeerID(m.DeviceID)
}

func (m *DeviceMetadata) touch() {
	m.Mu.Lock()
	m.LastSeen = time.Now()
	m.Mu.Unlock()
}

type Client interface {
	Send(proto.Downlink) error
	Meta() *DeviceMetadata
}

// PeerID formats a device id as 16 lowercase hex digits.
func PeerID(deviceID uint64) string {
	return fmt.Sprintf("%016x", deviceID)
}

func generateClientId(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

// encodeDownlink encodes msg into a fresh datagram.
func encodeDownlink(msg proto.Downlink) ([]byte, error) {
	buf := make([]byte, proto.MaxPacketSize)
	n, err := proto.EncodeDownlink(buf, msg)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}
