package server

import (
	"sync"

	"github.com/mbocsi/avi/proto"
)

// MockClient records the downlinks sent to it.
type MockClient struct {
	metadata *DeviceMetadata
	messages []proto.Downlink
	sendErr  error
	mu       sync.Mutex
}

func NewMockClient(id string) *MockClient {
	meta := newDeviceMetadata("mock", "mock-addr", nil)
	meta.Id = id
	return &MockClient{metadata: &meta}
}

func (mc *MockClient) Send(msg proto.Downlink) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if mc.sendErr != nil {
		return mc.sendErr
	}
	// Payloads may alias a transport's receive buffer.
	if m, ok := msg.(proto.Message); ok {
		m.Data = append([]byte(nil), m.Data...)
		msg = m
	}
	mc.messages = append(mc.messages, msg)
	return nil
}

func (mc *MockClient) Meta() *DeviceMetadata {
	return mc.metadata
}

func (mc *MockClient) GetMessages() []proto.Downlink {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	result := make([]proto.Downlink, len(mc.messages))
	copy(result, mc.messages)
	return result
}

func (mc *MockClient) Last() proto.Downlink {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if len(mc.messages) == 0 {
		return nil
	}
	return mc.messages[len(mc.messages)-1]
}

func (mc *MockClient) SetSendError(err error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.sendErr = err
}

func (mc *MockClient) ClearMessages() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.messages = mc.messages[:0]
}

// identified returns a mock client that has already sent Hello.
func identified(id string, deviceID uint64) *MockClient {
	c := NewMockClient(id)
	c.metadata.DeviceID = deviceID
	c.metadata.Identified = true
	return c
}
