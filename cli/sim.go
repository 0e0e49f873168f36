package cli

import (
	"fmt"
	"log/slog"
	"time"
)

// idleLadder reads the ladder's idle voltage, so no button is ever down.
type idleLadder struct{}

func (idleLadder) ReadVoltage() (float32, error) { return 3.3, nil }

type fixedBattery uint8

func (b fixedBattery) BatteryLevel() (uint8, error) { return uint8(b), nil }

// logStrip is an LED ring that only logs what it would show.
type logStrip struct {
	pixels    [][3]uint8
	animation int
	until     time.Time
	connected bool
	logger    *slog.Logger
}

func newLogStrip(n int, logger *slog.Logger) *logStrip {
	return &logStrip{pixels: make([][3]uint8, n), animation: -1, logger: logger}
}

func (s *logStrip) Len() int { return len(s.pixels) }

func (s *logStrip) SetPixel(index int, r, g, b uint8) error {
	if index < 0 || index >= len(s.pixels) {
		return fmt.Errorf("pixel %d out of range", index)
	}
	s.pixels[index] = [3]uint8{r, g, b}
	s.logger.Debug("LED pixel", "index", index, "r", r, "g", g, "b", b)
	return nil
}

func (s *logStrip) Clear() error {
	for i := range s.pixels {
		s.pixels[i] = [3]uint8{}
	}
	s.logger.Debug("LED clear")
	return nil
}

func (s *logStrip) SetAnimation(id int, duration time.Duration) error {
	s.animation = id
	s.until = time.Now().Add(duration)
	s.logger.Debug("LED animation", "id", id, "duration", duration)
	return nil
}

func (s *logStrip) Update(connected bool) {
	if connected != s.connected {
		s.connected = connected
		s.logger.Info("LED connection indicator", "connected", connected)
	}
	if s.animation >= 0 && time.Now().After(s.until) {
		s.animation = -1
	}
}
