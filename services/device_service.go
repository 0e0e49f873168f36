package services

import (
	"github.com/mbocsi/avi/server"
)

// DeviceServiceImpl implements DeviceService
type DeviceServiceImpl struct {
	registry *server.DeviceRegistry
}

// NewDeviceService creates a new device service
func NewDeviceService(registry *server.DeviceRegistry) DeviceService {
	return &DeviceServiceImpl{
		registry: registry,
	}
}

// ListDevices returns all registered devices
func (ds *DeviceServiceImpl) ListDevices() ([]DeviceInfo, error) {
	devices := ds.registry.List()
	result := make([]DeviceInfo, 0, len(devices))

	for _, device := range devices {
		result = append(result, convertDeviceMetadata(device.Meta()))
	}

	return result, nil
}

// GetDevice returns a specific device by session or peer id
func (ds *DeviceServiceImpl) GetDevice(id string) (*DeviceInfo, error) {
	device, err := lookupDevice(ds.registry, id)
	if err != nil {
		return nil, err
	}

	info := convertDeviceMetadata(device.Meta())
	return &info, nil
}

// IsDeviceConnected checks if device is connected
func (ds *DeviceServiceImpl) IsDeviceConnected(id string) (bool, error) {
	_, err := lookupDevice(ds.registry, id)
	return err == nil, nil
}

// GetDeviceSubscriptions returns device subscriptions
func (ds *DeviceServiceImpl) GetDeviceSubscriptions(id string) ([]string, error) {
	device, err := lookupDevice(ds.registry, id)
	if err != nil {
		return nil, err
	}

	meta := device.Meta()
	meta.Mu.RLock()
	defer meta.Mu.RUnlock()
	return sortedKeys(meta.Subs), nil
}

// GetDeviceSensors returns the latest reading of every sensor the device
// has reported
func (ds *DeviceServiceImpl) GetDeviceSensors(id string) (map[string]SensorInfo, error) {
	device, err := lookupDevice(ds.registry, id)
	if err != nil {
		return nil, err
	}

	meta := device.Meta()
	meta.Mu.RLock()
	defer meta.Mu.RUnlock()
	sensors := make(map[string]SensorInfo, len(meta.Sensors))
	for name, reading := range meta.Sensors {
		sensors[name] = convertSensor(reading)
	}
	return sensors, nil
}
