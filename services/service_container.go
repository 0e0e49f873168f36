package services

import (
	"github.com/mbocsi/avi/server"
)

// ServiceManagerImpl wires the services to a running coordinator
type ServiceManagerImpl struct {
	coordinator *server.Coordinator
	metrics     *server.Metrics

	services *ServiceContainer
}

// NewServiceManager creates a new service manager
func NewServiceManager(coordinator *server.Coordinator) *ServiceManagerImpl {
	sm := &ServiceManagerImpl{
		coordinator: coordinator,
		metrics:     coordinator.Metrics,
	}

	sm.services = &ServiceContainer{
		Device:    NewDeviceService(coordinator.Registery),
		Topic:     NewTopicService(coordinator.Broker),
		Messaging: NewMessagingService(coordinator, coordinator.Broker),
		Transport: NewTransportService(coordinator),
	}

	return sm
}

// GetServices returns the service container
func (sm *ServiceManagerImpl) GetServices() *ServiceContainer {
	return sm.services
}

// GetMetrics returns the server metrics, or nil when disabled
func (sm *ServiceManagerImpl) GetMetrics() *server.Metrics {
	return sm.metrics
}
