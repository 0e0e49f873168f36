package services

import (
	"time"

	"github.com/mbocsi/avi/server"
)

// DeviceService handles device-related operations
type DeviceService interface {
	ListDevices() ([]DeviceInfo, error)
	// GetDevice accepts a session id or a peer id.
	GetDevice(id string) (*DeviceInfo, error)
	IsDeviceConnected(id string) (bool, error)
	GetDeviceSubscriptions(id string) ([]string, error)
	GetDeviceSensors(id string) (map[string]SensorInfo, error)
}

// TopicService reports the broker's subscription table
type TopicService interface {
	ListTopics() ([]TopicInfo, error)
	GetTopic(topic string) (*TopicInfo, error)
}

// MessagingService publishes on behalf of the server
type MessagingService interface {
	// Publish delivers data to every subscriber of topic and returns how
	// many were reached.
	Publish(topic string, data []byte) (int, error)

	// Request publishes data on topic and waits for the first message on
	// replyTopic.
	Request(topic, replyTopic string, data []byte, timeout ...time.Duration) (*Reply, error)

	// Subscription management for in-process subscribers
	Subscribe(topic string, client server.Client) error
	Unsubscribe(topic string, client server.Client) error
}

// TransportService handles transport information
type TransportService interface {
	ListTransports() ([]TransportInfo, error)
	GetTransport(index int) (*TransportInfo, error)
	GetTransportStats() (*TransportStats, error)
}

// ServiceContainer holds all service implementations
type ServiceContainer struct {
	Device    DeviceService
	Topic     TopicService
	Messaging MessagingService
	Transport TransportService
}
