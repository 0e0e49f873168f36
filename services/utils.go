package services

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/mbocsi/avi/proto"
	"github.com/mbocsi/avi/server"
)

// convertDeviceMetadata converts server.DeviceMetadata to DeviceInfo
func convertDeviceMetadata(meta *server.DeviceMetadata) DeviceInfo {
	meta.Mu.RLock()
	defer meta.Mu.RUnlock()

	info := DeviceInfo{
		ID:            meta.Id,
		PeerID:        server.PeerID(meta.DeviceID),
		Addr:          meta.Addr,
		LastSeen:      meta.LastSeen,
		Subscriptions: sortedKeys(meta.Subs),
		Sensors:       make(map[string]SensorInfo, len(meta.Sensors)),
		Streams:       make([]StreamInfo, 0, len(meta.Streams)),
		Connected:     true, // If it's in registry, it's connected
	}
	if meta.Transport != nil {
		info.Transport = meta.Transport.Meta().ID
	}
	for name, reading := range meta.Sensors {
		info.Sensors[name] = convertSensor(reading)
	}
	for id, s := range meta.Streams {
		info.Streams = append(info.Streams, StreamInfo{
			ID:      id,
			Target:  s.Target,
			Reason:  s.Reason,
			Started: s.Started,
			Chunks:  s.Chunks,
			Bytes:   s.Bytes,
		})
	}
	sort.Slice(info.Streams, func(i, j int) bool { return info.Streams[i].ID < info.Streams[j].ID })
	return info
}

func convertSensor(reading server.SensorReading) SensorInfo {
	return SensorInfo{
		Kind:    reading.Value.Kind().String(),
		Value:   reading.Value.String(),
		Updated: reading.Updated,
	}
}

// convertTransportMeta converts transport metadata to TransportInfo
func convertTransportMeta(index int, transport server.Transport) TransportInfo {
	meta := transport.Meta()
	status := "disconnected"
	if meta.Connected {
		status = "connected"
	}

	identified := 0
	for _, client := range meta.Clients {
		cm := client.Meta()
		cm.Mu.RLock()
		if cm.Identified {
			identified++
		}
		cm.Mu.RUnlock()
	}

	return TransportInfo{
		Index:       index,
		ID:          meta.ID,
		Name:        meta.Name,
		Type:        meta.Protocol,
		Address:     meta.Address,
		Status:      status,
		Description: meta.Description,
		Connections: len(meta.Clients),
		Identified:  identified,
		MaxClients:  meta.MaxClients,
	}
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// lookupDevice resolves a session id, falling back to a peer id.
func lookupDevice(registry *server.DeviceRegistry, id string) (server.Client, error) {
	if device, ok := registry.Get(id); ok {
		return device, nil
	}
	if deviceID, err := strconv.ParseUint(id, 16, 64); err == nil {
		if device, ok := registry.GetByDevice(deviceID); ok {
			return device, nil
		}
	}
	return nil, ServiceError{
		Code:    ErrCodeNotFound,
		Message: "Device not found: " + id,
	}
}

// validateTopic validates topic name
func validateTopic(topic string) error {
	if topic == "" {
		return ServiceError{
			Code:    ErrCodeInvalidInput,
			Message: "Topic cannot be empty",
		}
	}
	if len(topic) > proto.MaxTopicLen {
		return ServiceError{
			Code:    ErrCodeInvalidInput,
			Message: fmt.Sprintf("Topic is %d bytes, max %d", len(topic), proto.MaxTopicLen),
			Cause:   proto.ErrFieldTooLong,
		}
	}
	return nil
}

func validatePayload(data []byte) error {
	if len(data) > proto.MaxDataLen {
		return ServiceError{
			Code:    ErrCodeInvalidInput,
			Message: fmt.Sprintf("Payload is %d bytes, max %d", len(data), proto.MaxDataLen),
			Cause:   proto.ErrFieldTooLong,
		}
	}
	return nil
}
