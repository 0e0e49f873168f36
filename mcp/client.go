package mcp

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mbocsi/avi/services"
)

// MCPClient registers the AVI tools on an MCP server
type MCPClient struct {
	mcpServer *MCPServer
	services  *services.ServiceContainer
}

func NewMCPClient(serviceContainer *services.ServiceContainer, mcpServer *MCPServer) *MCPClient {
	client := &MCPClient{
		services:  serviceContainer,
		mcpServer: mcpServer,
	}
	client.registerDeviceTools()
	client.registerMessagingTools()
	client.registerSystemTools()
	return client
}

// Start serves the tools over stdio. It satisfies server.Server so the
// AVI server can run it alongside the transports.
func (m *MCPClient) Start() error {
	return m.mcpServer.Run()
}

func (m *MCPClient) registerDeviceTools() {
	listDevicesTool := mcp.NewTool("list_devices",
		mcp.WithDescription("List all connected AVI devices"),
	)
	m.mcpServer.AddTool(listDevicesTool, m.handleListDevices)

	getDeviceTool := mcp.NewTool("get_device",
		mcp.WithDescription("Get a device's subscriptions, sensor readings and open streams"),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Session id or 16 hex digit peer id"),
		),
	)
	m.mcpServer.AddTool(getDeviceTool, m.handleGetDevice)
}

func (m *MCPClient) registerMessagingTools() {
	publishTool := mcp.NewTool("publish",
		mcp.WithDescription("Publish a message to every device subscribed to a topic"),
		mcp.WithString("topic",
			mcp.Required(),
			mcp.Description("Target topic"),
		),
		mcp.WithString("payload",
			mcp.Description("Message payload"),
		),
		mcp.WithString("encoding",
			mcp.Description("How payload is encoded"),
			mcp.Enum("text", "hex"),
		),
	)
	m.mcpServer.AddTool(publishTool, m.handlePublish)

	requestTool := mcp.NewTool("request",
		mcp.WithDescription("Publish to a topic and wait for the first message on a reply topic"),
		mcp.WithString("topic",
			mcp.Required(),
			mcp.Description("Target topic"),
		),
		mcp.WithString("reply_topic",
			mcp.Required(),
			mcp.Description("Topic the device answers on"),
		),
		mcp.WithString("payload",
			mcp.Description("Message payload as text"),
		),
		mcp.WithNumber("timeout",
			mcp.Description("Timeout in seconds"),
		),
	)
	m.mcpServer.AddTool(requestTool, m.handleRequest)
}

func (m *MCPClient) registerSystemTools() {
	statusTool := mcp.NewTool("get_system_status",
		mcp.WithDescription("Get transport statistics and the active topics"),
	)
	m.mcpServer.AddTool(statusTool, m.handleGetSystemStatus)
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	resultBytes, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(resultBytes)), nil
}

func (m *MCPClient) handleListDevices(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	devices, err := m.services.Device.ListDevices()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error listing devices: %v", err)), nil
	}
	return jsonResult(map[string]interface{}{
		"devices": devices,
		"count":   len(devices),
	})
}

func (m *MCPClient) handleGetDevice(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id is required and must be a string"), nil
	}
	device, err := m.services.Device.GetDevice(id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(device)
}

func (m *MCPClient) handlePublish(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	topic, err := request.RequireString("topic")
	if err != nil {
		return mcp.NewToolResultError("topic is required and must be a string"), nil
	}

	payload := request.GetString("payload", "")
	data := []byte(payload)
	if request.GetString("encoding", "text") == "hex" {
		data, err = hex.DecodeString(payload)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid hex payload: %v", err)), nil
		}
	}

	n, err := m.services.Messaging.Publish(topic, data)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to publish: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Published %d bytes to %s (%d subscribers)", len(data), topic, n)), nil
}

func (m *MCPClient) handleRequest(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	topic, err := request.RequireString("topic")
	if err != nil {
		return mcp.NewToolResultError("topic is required and must be a string"), nil
	}
	replyTopic, err := request.RequireString("reply_topic")
	if err != nil {
		return mcp.NewToolResultError("reply_topic is required and must be a string"), nil
	}
	timeout := request.GetFloat("timeout", 10.0)

	reply, err := m.services.Messaging.Request(topic, replyTopic, []byte(request.GetString("payload", "")),
		time.Duration(timeout*float64(time.Second)))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Request failed: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Reply on %s: %s", reply.Topic, string(reply.Data))), nil
}

func (m *MCPClient) handleGetSystemStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := m.services.Transport.GetTransportStats()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error reading transports: %v", err)), nil
	}
	transports, _ := m.services.Transport.ListTransports()
	topics, _ := m.services.Topic.ListTopics()
	return jsonResult(map[string]interface{}{
		"stats":      stats,
		"transports": transports,
		"topics":     topics,
	})
}
