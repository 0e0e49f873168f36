package server

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/mbocsi/avi/proto"
)

// LoRaConfig contains basic LoRa radio configuration
type LoRaConfig struct {
	Frequency       uint32 // Hz (e.g., 868000000 for 868MHz)
	Bandwidth       uint32 // Hz (e.g., 125000 for 125kHz)
	SpreadingFactor uint8  // 7-12
	CodingRate      uint8  // 5-8
	TxPower         uint8  // dBm
}

// LoRaMessage is one received radio packet. Data holds a single AVI
// datagram.
type LoRaMessage struct {
	DeviceAddress []byte
	Data          []byte
	RSSI          int
	SNR           float64
}

// LoRaRadio defines the interface for LoRa radio hardware
type LoRaRadio interface {
	Start() error
	Stop() error
	Send(address []byte, data []byte) error
	// Receive blocks until a packet arrives or a short poll interval
	// elapses, in which case it returns an error.
	Receive() (LoRaMessage, error)
}

// LoRaTransport is a gateway that carries AVI datagrams over a LoRa radio.
// Each radio address is one session.
type LoRaTransport struct {
	config LoRaConfig
	radio  LoRaRadio

	onMessage    func(Client, proto.Uplink)
	onInvalid    func(Client, error)
	onDisconnect func(Client)

	name        string
	description string
	clients     map[string]*LoRaClient // keyed by hex radio address
	cmu         sync.RWMutex

	maxClients int
	connected  atomic.Bool
	running    atomic.Bool
}

func NewLoRaTransport(config LoRaConfig, radio LoRaRadio) *LoRaTransport {
	return &LoRaTransport{
		config:     config,
		radio:      radio,
		maxClients: 50, // LoRa can handle many low-bandwidth devices
		clients:    make(map[string]*LoRaClient),
	}
}

func (t *LoRaTransport) Start() error {
	slog.Info("Starting LoRa transport", "frequency", t.config.Frequency)

	if t.onInvalid == nil || t.onDisconnect == nil || t.onMessage == nil {
		return fmt.Errorf("OnInvalid, OnDisconnect, or OnMessage function is not defined")
	}

	err := t.radio.Start()
	if err != nil {
		return fmt.Errorf("failed to start LoRa radio: %w", err)
	}

	t.connected.Store(true)
	t.running.Store(true)

	// Blocks like the other transports
	t.messageLoop()

	return nil
}

func (t *LoRaTransport) messageLoop() {
	for t.running.Load() {
		msg, err := t.radio.Receive()
		if err != nil {
			// No packet available, continue
			continue
		}

		t.handleMessage(msg)
	}
}

func (t *LoRaTransport) handleMessage(packet LoRaMessage) {
	deviceAddr := hex.EncodeToString(packet.DeviceAddress)

	t.cmu.Lock()
	client, exists := t.clients[deviceAddr]
	if !exists {
		if t.maxClients > 0 && len(t.clients) >= t.maxClients {
			t.cmu.Unlock()
			slog.Warn("Max LoRa devices reached, rejecting packet", "address", deviceAddr)
			if out, err := encodeDownlink(proto.Error{Reason: proto.ReasonServerBusy}); err == nil {
				t.radio.Send(packet.DeviceAddress, out)
			}
			return
		}
		client = NewLoRaClient(packet.DeviceAddress, packet.RSSI, packet.SNR, t)
		t.clients[deviceAddr] = client
		slog.Info("New LoRa device connected", "address", deviceAddr, "id", client.Id)
	}
	t.cmu.Unlock()

	if exists {
		client.updateSignalQuality(packet.RSSI, packet.SNR)
	}

	if len(packet.Data) > proto.MaxPacketSize {
		t.onInvalid(client, fmt.Errorf("packet of %d bytes exceeds %d", len(packet.Data), proto.MaxPacketSize))
		return
	}
	msg, err := proto.DecodeUplink(packet.Data)
	if err != nil {
		t.onInvalid(client, err)
		return
	}

	slog.Debug("LoRa message received", "type", msg.Tag(), "sender", client.Id, "rssi", packet.RSSI)
	t.onMessage(client, msg)
}

// Forget ends the session of a radio address, e.g. after the device
// reports it is going to sleep.
func (t *LoRaTransport) Forget(address []byte) {
	key := hex.EncodeToString(address)
	t.cmu.Lock()
	client, ok := t.clients[key]
	delete(t.clients, key)
	t.cmu.Unlock()
	if ok {
		t.onDisconnect(client)
	}
}

func (t *LoRaTransport) Shutdown() error {
	slog.Info("Shutting down LoRa transport")
	t.running.Store(false)
	t.connected.Store(false)

	if t.radio != nil {
		return t.radio.Stop()
	}
	return nil
}

func (t *LoRaTransport) OnMessage(fn func(Client, proto.Uplink)) {
	t.onMessage = fn
}

func (t *LoRaTransport) OnInvalid(fn func(Client, error)) {
	t.onInvalid = fn
}

func (t *LoRaTransport) OnDisconnect(fn func(Client)) {
	t.onDisconnect = fn
}

func (t *LoRaTransport) Meta() TransportMetadata {
	t.cmu.RLock()
	clients := make(map[string]Client, len(t.clients))
	for _, client := range t.clients {
		clients[client.Id] = client
	}
	t.cmu.RUnlock()

	return TransportMetadata{
		ID:          fmt.Sprintf("lora-%d", t.config.Frequency),
		Name:        t.name,
		Description: t.description,
		Protocol:    "lora",
		Address:     fmt.Sprintf("%.1fMHz", float64(t.config.Frequency)/1000000),
		Clients:     clients,
		MaxClients:  t.maxClients,
		Connected:   t.connected.Load(),
	}
}

func (t *LoRaTransport) SetName(name string) {
	t.name = name
}

func (t *LoRaTransport) SetMaxClients(n int) {
	t.maxClients = n
}

func (t *LoRaTransport) SetDescription(description string) {
	t.description = description
}
