package features

import (
	"testing"
	"time"

	"github.com/mbocsi/avi/client"
	"github.com/mbocsi/avi/proto"
)

// mockTransport answers Hello with Welcome and records uplinks.
type mockTransport struct {
	sent    []proto.Uplink
	inbox   [][]byte
	welcome bool
}

func (m *mockTransport) Send(p []byte) error {
	msg, err := proto.DecodeUplink(p)
	if err != nil {
		return err
	}
	// Copy payloads out of the client's scratch buffer.
	switch v := msg.(type) {
	case proto.Publish:
		v.Data = append([]byte(nil), v.Data...)
		msg = v
	}
	m.sent = append(m.sent, msg)
	if _, ok := msg.(proto.Hello); ok && m.welcome {
		m.inbox = append(m.inbox, []byte{byte(proto.TagWelcome)})
	}
	return nil
}

func (m *mockTransport) Receive(buf []byte, timeout time.Duration) (int, error) {
	if len(m.inbox) == 0 {
		return 0, client.ErrWouldBlock
	}
	next := m.inbox[0]
	m.inbox = m.inbox[1:]
	return copy(buf, next), nil
}

func (m *mockTransport) uplinks(tag proto.UplinkTag) []proto.Uplink {
	var out []proto.Uplink
	for _, msg := range m.sent {
		if msg.Tag() == tag {
			out = append(out, msg)
		}
	}
	return out
}

func connectedClient(t *testing.T, handler client.MessageHandler) (*client.Client, *mockTransport) {
	t.Helper()
	mt := &mockTransport{welcome: true}
	c, err := client.New(1, mt, handler)
	if err != nil {
		t.Fatalf("client.New: %v", err)
	}
	if err := c.Connect(time.Second); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	mt.sent = nil
	return c, mt
}
