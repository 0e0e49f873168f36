package services

import (
	"time"
)

// DeviceInfo represents device information for the service layer
type DeviceInfo struct {
	ID            string                `json:"id"`
	PeerID        string                `json:"peer_id"`
	Addr          string                `json:"addr"`
	Transport     string                `json:"transport,omitempty"`
	LastSeen      time.Time             `json:"last_seen"`
	Subscriptions []string              `json:"subscriptions"`
	Sensors       map[string]SensorInfo `json:"sensors"`
	Streams       []StreamInfo          `json:"streams"`
	Connected     bool                  `json:"connected"`
}

// SensorInfo is the latest reading of one sensor
type SensorInfo struct {
	Kind    string    `json:"kind"`
	Value   string    `json:"value"`
	Updated time.Time `json:"updated"`
}

// StreamInfo describes an open stream from a device
type StreamInfo struct {
	ID      uint8     `json:"id"`
	Target  string    `json:"target"`
	Reason  string    `json:"reason"`
	Started time.Time `json:"started"`
	Chunks  int       `json:"chunks"`
	Bytes   int       `json:"bytes"`
}

// TopicInfo lists the sessions subscribed to a topic
type TopicInfo struct {
	Topic       string   `json:"topic"`
	Subscribers []string `json:"subscribers"`
}

// TransportInfo represents transport connection information
type TransportInfo struct {
	Index       int    `json:"index"`
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	Type        string `json:"type"`
	Address     string `json:"address"`
	Status      string `json:"status"`
	Description string `json:"description,omitempty"`
	Connections int    `json:"connections"`
	Identified  int    `json:"identified"`
	MaxClients  int    `json:"max_clients"`
}

// TransportStats aggregates session counts across transports
type TransportStats struct {
	Transports int            `json:"transports"`
	Running    int            `json:"running"`
	Sessions   int            `json:"sessions"`
	Identified int            `json:"identified"`
	Registered int            `json:"registered"`
	ByProtocol map[string]int `json:"by_protocol"`
	Full       []string       `json:"full,omitempty"`
}

// Reply is the first message received on a request's reply topic
type Reply struct {
	Topic    string    `json:"topic"`
	Data     []byte    `json:"data"`
	Received time.Time `json:"received"`
}

// ServiceError represents structured service layer errors
type ServiceError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"cause,omitempty"`
}

func (e ServiceError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e ServiceError) Unwrap() error {
	return e.Cause
}

// Common error codes
const (
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodeTimeout      = "TIMEOUT"
	ErrCodeInternal     = "INTERNAL_ERROR"
)
