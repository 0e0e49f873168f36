package features

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/mbocsi/avi/client"
	"github.com/mbocsi/avi/proto"
)

const ButtonEventTopic = "device/button/event"

// Resistor ladder on the Korvo button ADC. Button i pulls the line to
// ladderVoltages[i]; an idle line sits near 3.3 V.
var ladderVoltages = []float32{0.0, 0.5, 1.0, 1.5, 2.0, 2.5}

const (
	ladderTolerance = 0.2
	// ADC readings are float32; absorb its rounding at the band edges.
	ladderEpsilon = 1e-4
	idleVoltage   = 3.0

	NoButton = -1
)

const (
	DefaultDebounce     = 50 * time.Millisecond
	DefaultLongPress    = 800 * time.Millisecond
	DefaultDoubleWindow = 300 * time.Millisecond
)

// DetectButton maps a ladder voltage to a button index, or NoButton.
func DetectButton(voltage float32) int {
	if voltage > idleVoltage {
		return NoButton
	}
	for i, v := range ladderVoltages {
		if math.Abs(float64(voltage)-float64(v)) <= ladderTolerance+ladderEpsilon {
			return i
		}
	}
	return NoButton
}

// VoltageReader samples the button ADC line in volts.
type VoltageReader interface {
	ReadVoltage() (float32, error)
}

// ButtonFeature debounces the ladder and classifies presses as single,
// double or long. A single press is only reported once the double window
// has passed without a second release.
type ButtonFeature struct {
	Debounce     time.Duration
	LongPress    time.Duration
	DoubleWindow time.Duration

	adc    VoltageReader
	client *client.Client
	logger *slog.Logger

	raw      int
	rawSince time.Time
	stable   int
	downAt   time.Time

	pending   bool
	pendingID int
	pendingAt time.Time
}

func NewButtonFeature(adc VoltageReader, logger *slog.Logger) *ButtonFeature {
	if logger == nil {
		logger = slog.Default()
	}
	return &ButtonFeature{
		Debounce:     DefaultDebounce,
		LongPress:    DefaultLongPress,
		DoubleWindow: DefaultDoubleWindow,
		adc:          adc,
		logger:       logger,
		raw:          NoButton,
		stable:       NoButton,
	}
}

func (b *ButtonFeature) Name() string { return "button" }

func (b *ButtonFeature) Init(c *client.Client) error {
	b.client = c
	return nil
}

func (b *ButtonFeature) Start() error {
	b.logger.Info("Button feature started", "buttons", len(ladderVoltages))
	return nil
}

func (b *ButtonFeature) Stop() {
	b.logger.Info("Button feature stopped")
}

func (b *ButtonFeature) HandleMessage(topic string, data []byte) {}

func (b *ButtonFeature) Update(now time.Time) {
	voltage, err := b.adc.ReadVoltage()
	if err != nil {
		b.logger.Warn("ADC read failed", "error", err)
		return
	}
	b.sample(DetectButton(voltage), now)
}

// sample feeds one detected button index taken at now.
func (b *ButtonFeature) sample(id int, now time.Time) {
	if id != b.raw {
		b.raw = id
		b.rawSince = now
	}

	if b.raw != b.stable && now.Sub(b.rawSince) >= b.Debounce {
		if b.stable != NoButton {
			b.released(b.stable, b.rawSince)
		}
		if b.raw != NoButton {
			b.downAt = b.rawSince
		}
		b.stable = b.raw
	}

	if b.pending && now.Sub(b.pendingAt) > b.DoubleWindow {
		b.pending = false
		b.report(b.pendingID, proto.PressSingle)
	}
}

func (b *ButtonFeature) released(id int, at time.Time) {
	held := at.Sub(b.downAt)
	switch {
	case held >= b.LongPress:
		b.flushPending()
		b.report(id, proto.PressLong)
	case b.pending && b.pendingID == id && at.Sub(b.pendingAt) <= b.DoubleWindow:
		b.pending = false
		b.report(id, proto.PressDouble)
	default:
		b.flushPending()
		b.pending = true
		b.pendingID = id
		b.pendingAt = at
	}
}

// flushPending reports a waiting single press before a new event.
func (b *ButtonFeature) flushPending() {
	if b.pending {
		b.pending = false
		b.report(b.pendingID, proto.PressSingle)
	}
}

func (b *ButtonFeature) report(id int, press proto.PressType) {
	b.logger.Info("Button press", "button", id, "press", press)
	if b.client == nil || !b.client.IsConnected() {
		b.logger.Debug("Not connected: Dropping button press", "button", id)
		return
	}
	if err := b.client.ReportButton(uint8(id), press); err != nil {
		b.logger.Warn("Failed to report button press", "button", id, "error", err)
		return
	}
	event := fmt.Sprintf("%d,%s", id, press)
	if err := b.client.Publish(ButtonEventTopic, []byte(event)); err != nil {
		b.logger.Warn("Failed to publish button event", "error", err)
	}
}
