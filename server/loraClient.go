package server

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mbocsi/avi/proto"
)

// LoRaClient represents a LoRa device connected through the gateway
type LoRaClient struct {
	DeviceMetadata
	radio   LoRaRadio
	address []byte  // LoRa device address
	rssi    int     // Signal strength indicator
	snr     float64 // Signal-to-noise ratio
	mu      sync.RWMutex
}

func NewLoRaClient(address []byte, rssi int, snr float64, transport *LoRaTransport) *LoRaClient {
	return &LoRaClient{
		radio:          transport.radio,
		address:        append([]byte(nil), address...),
		rssi:           rssi,
		snr:            snr,
		DeviceMetadata: newDeviceMetadata("lora", fmt.Sprintf("%x", address), transport),
	}
}

func (c *LoRaClient) Send(msg proto.Downlink) error {
	data, err := encodeDownlink(msg)
	if err != nil {
		return err
	}

	if err := c.radio.Send(c.address, data); err != nil {
		return fmt.Errorf("failed to send LoRa message: %w", err)
	}

	rssi, _ := c.GetSignalQuality()
	slog.Debug("Sent LoRa message", "to", c.Meta().Id, "type", msg.Tag(), "size", len(data), "rssi", rssi)
	return nil
}

func (c *LoRaClient) Meta() *DeviceMetadata {
	return &c.DeviceMetadata
}

// GetAddress returns the LoRa device address
func (c *LoRaClient) GetAddress() []byte {
	return c.address
}

// GetSignalQuality returns current RSSI and SNR values
func (c *LoRaClient) GetSignalQuality() (int, float64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rssi, c.snr
}

func (c *LoRaClient) updateSignalQuality(rssi int, snr float64) {
	c.mu.Lock()
	c.rssi = rssi
	c.snr = snr
	c.mu.Unlock()

	c.DeviceMetadata.Mu.Lock()
	c.DeviceMetadata.LastSeen = time.Now()
	c.DeviceMetadata.Mu.Unlock()
}
