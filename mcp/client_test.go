package mcp

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mbocsi/avi/proto"
	"github.com/mbocsi/avi/server"
	"github.com/mbocsi/avi/services"
)

type mockDevice struct {
	meta *server.DeviceMetadata
	got  []proto.Message
}

func (d *mockDevice) Send(msg proto.Downlink) error {
	if m, ok := msg.(proto.Message); ok {
		m.Data = append([]byte(nil), m.Data...)
		d.got = append(d.got, m)
	}
	return nil
}

func (d *mockDevice) Meta() *server.DeviceMetadata { return d.meta }

func newTestClient(t *testing.T) (*MCPClient, *mockDevice) {
	t.Helper()
	coord := server.NewCoordinator(server.NewDeviceRegistry(), server.NewBroker(), nil)
	device := &mockDevice{meta: server.NewDeviceMetadata("mock", "test")}
	coord.Handle(device, proto.Hello{DeviceID: 0x42})
	coord.Handle(device, proto.Subscribe{Topic: "cmd"})

	container := services.NewServiceManager(coord).GetServices()
	return NewMCPClient(container, NewMCPServer()), device
}

func call(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("Expected tool result content")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("Expected text content, got %T", res.Content[0])
	}
	return text.Text
}

func TestHandleListDevices(t *testing.T) {
	m, _ := newTestClient(t)

	res, err := m.handleListDevices(context.Background(), call(nil))
	if err != nil || res.IsError {
		t.Fatalf("Expected success, got %v / %+v", err, res)
	}
	if text := resultText(t, res); !strings.Contains(text, `"count":1`) || !strings.Contains(text, "0000000000000042") {
		t.Errorf("Unexpected result %s", text)
	}
}

func TestHandleGetDevice(t *testing.T) {
	m, _ := newTestClient(t)

	res, _ := m.handleGetDevice(context.Background(), call(map[string]interface{}{"id": "0000000000000042"}))
	if res.IsError {
		t.Fatalf("Expected success, got %s", resultText(t, res))
	}

	res, _ = m.handleGetDevice(context.Background(), call(map[string]interface{}{"id": "nope"}))
	if !res.IsError {
		t.Error("Expected error for unknown device")
	}

	res, _ = m.handleGetDevice(context.Background(), call(nil))
	if !res.IsError {
		t.Error("Expected error for missing id")
	}
}

func TestHandlePublish(t *testing.T) {
	m, device := newTestClient(t)

	res, _ := m.handlePublish(context.Background(), call(map[string]interface{}{
		"topic":    "cmd",
		"payload":  "01ff",
		"encoding": "hex",
	}))
	if res.IsError {
		t.Fatalf("Expected success, got %s", resultText(t, res))
	}
	if len(device.got) != 1 || string(device.got[0].Data) != "\x01\xff" {
		t.Errorf("Expected device to receive 01ff, got %+v", device.got)
	}

	res, _ = m.handlePublish(context.Background(), call(map[string]interface{}{
		"topic":    "cmd",
		"payload":  "zz",
		"encoding": "hex",
	}))
	if !res.IsError {
		t.Error("Expected error for invalid hex")
	}
}

func TestHandleRequest_Timeout(t *testing.T) {
	m, _ := newTestClient(t)

	res, _ := m.handleRequest(context.Background(), call(map[string]interface{}{
		"topic":       "cmd",
		"reply_topic": "cmd/reply",
		"timeout":     0.02,
	}))
	if !res.IsError {
		t.Error("Expected timeout error")
	}
}

func TestHandleGetSystemStatus(t *testing.T) {
	m, _ := newTestClient(t)

	res, _ := m.handleGetSystemStatus(context.Background(), call(nil))
	if res.IsError {
		t.Fatalf("Expected success, got %s", resultText(t, res))
	}
	if !strings.Contains(resultText(t, res), `"topic":"cmd"`) {
		t.Errorf("Expected status to list topic cmd")
	}
}
