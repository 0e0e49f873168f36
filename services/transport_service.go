package services

import (
	"github.com/mbocsi/avi/server"
)

// transportService reports on the coordinator's transports and the
// sessions they carry.
type transportService struct {
	coordinator *server.Coordinator
}

func NewTransportService(coordinator *server.Coordinator) TransportService {
	return &transportService{coordinator: coordinator}
}

func (ts *transportService) ListTransports() ([]TransportInfo, error) {
	transports := ts.coordinator.Transports
	result := make([]TransportInfo, 0, len(transports))
	for i, t := range transports {
		result = append(result, convertTransportMeta(i, t))
	}
	return result, nil
}

func (ts *transportService) GetTransport(index int) (*TransportInfo, error) {
	transports := ts.coordinator.Transports
	if index < 0 || index >= len(transports) {
		return nil, ServiceError{
			Code:    ErrCodeNotFound,
			Message: "Transport index out of range",
		}
	}
	info := convertTransportMeta(index, transports[index])
	return &info, nil
}

// GetTransportStats aggregates sessions across transports. Sessions that
// have not sent Hello count towards Sessions but not Identified. Full lists
// transports that answer new sessions with SERVER_BUSY.
func (ts *transportService) GetTransportStats() (*TransportStats, error) {
	stats := &TransportStats{
		ByProtocol: make(map[string]int),
		Registered: ts.coordinator.Registery.Len(),
	}
	for _, t := range ts.coordinator.Transports {
		info := convertTransportMeta(0, t)
		stats.Transports++
		if info.Status == "connected" {
			stats.Running++
		}
		stats.Sessions += info.Connections
		stats.Identified += info.Identified
		stats.ByProtocol[info.Type] += info.Connections
		if info.MaxClients > 0 && info.Connections >= info.MaxClients {
			stats.Full = append(stats.Full, info.ID)
		}
	}
	return stats, nil
}
