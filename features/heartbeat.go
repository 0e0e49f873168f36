package features

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/mbocsi/avi/client"
	"github.com/mbocsi/avi/proto"
)

const (
	HeartbeatTopic         = "device/heartbeat"
	DefaultHeartbeatPeriod = 10 * time.Second
)

// BatteryReader returns the battery charge level, 0-255.
type BatteryReader interface {
	BatteryLevel() (uint8, error)
}

// HeartbeatFeature publishes uptime on HeartbeatTopic every Period and
// reports the battery level as the "battery" sensor.
type HeartbeatFeature struct {
	Period time.Duration

	battery BatteryReader
	client  *client.Client
	logger  *slog.Logger
	started time.Time
	last    time.Time
}

// NewHeartbeatFeature creates the feature. battery may be nil.
func NewHeartbeatFeature(battery BatteryReader, logger *slog.Logger) *HeartbeatFeature {
	if logger == nil {
		logger = slog.Default()
	}
	return &HeartbeatFeature{Period: DefaultHeartbeatPeriod, battery: battery, logger: logger}
}

func (h *HeartbeatFeature) Name() string { return "heartbeat" }

func (h *HeartbeatFeature) Init(c *client.Client) error {
	h.client = c
	h.last = time.Time{}
	return nil
}

func (h *HeartbeatFeature) Start() error {
	h.started = time.Now()
	return nil
}

func (h *HeartbeatFeature) Stop() {}

func (h *HeartbeatFeature) HandleMessage(topic string, data []byte) {}

func (h *HeartbeatFeature) Update(now time.Time) {
	if h.client == nil || !h.client.IsConnected() {
		return
	}
	if !h.last.IsZero() && now.Sub(h.last) < h.Period {
		return
	}
	h.last = now

	uptime := now.Sub(h.started).Truncate(time.Second)
	if err := h.client.Publish(HeartbeatTopic, []byte(fmt.Sprintf("uptime=%d", int64(uptime.Seconds())))); err != nil {
		h.logger.Warn("Failed to publish heartbeat", "error", err)
	}

	if h.battery == nil {
		return
	}
	level, err := h.battery.BatteryLevel()
	if err != nil {
		h.logger.Warn("Battery read failed", "error", err)
		return
	}
	if err := h.client.UpdateSensor("battery", proto.Battery(level)); err != nil {
		h.logger.Warn("Failed to report battery", "error", err)
	}
}
