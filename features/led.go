package features

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/mbocsi/avi/client"
)

const (
	LedControlTopic   = "device/led/control"
	LedAnimationTopic = "device/led/animation"
	LedClearTopic     = "device/led/clear"
)

// Animation ids understood by the LED controller.
const (
	AnimationNone = iota
	AnimationRainbowPulse
	AnimationBreathe
	AnimationSpinner
)

const bootAnimationDuration = 5 * time.Second

// LedStrip drives an addressable LED ring.
type LedStrip interface {
	Len() int
	SetPixel(index int, r, g, b uint8) error
	Clear() error
	SetAnimation(id int, duration time.Duration) error
	// Update advances animations and shows the connection indicator.
	Update(connected bool)
}

// LedCommandKind identifies a parsed LED command.
type LedCommandKind int

const (
	LedSetPixel LedCommandKind = iota
	LedClear
	LedAnimate
)

type LedCommand struct {
	Kind      LedCommandKind
	Index     int
	R, G, B   uint8
	Animation int
	Duration  time.Duration
}

var ErrBadLedCommand = errors.New("malformed LED command")

// ParseLedCommand parses "index,r,g,b", "CLEAR" or "animation_id,duration_ms"
// depending on topic.
func ParseLedCommand(topic string, data []byte) (LedCommand, error) {
	text := strings.TrimSpace(string(data))
	if topic == LedClearTopic || strings.EqualFold(text, "CLEAR") {
		return LedCommand{Kind: LedClear}, nil
	}

	fields := strings.Split(text, ",")
	switch topic {
	case LedControlTopic:
		if len(fields) != 4 {
			return LedCommand{}, fmt.Errorf("%w: %q", ErrBadLedCommand, text)
		}
		index, err := strconv.Atoi(strings.TrimSpace(fields[0]))
		if err != nil || index < 0 {
			return LedCommand{}, fmt.Errorf("%w: index %q", ErrBadLedCommand, fields[0])
		}
		var rgb [3]uint8
		for i, f := range fields[1:] {
			v, err := strconv.ParseUint(strings.TrimSpace(f), 10, 8)
			if err != nil {
				return LedCommand{}, fmt.Errorf("%w: color %q", ErrBadLedCommand, f)
			}
			rgb[i] = uint8(v)
		}
		return LedCommand{Kind: LedSetPixel, Index: index, R: rgb[0], G: rgb[1], B: rgb[2]}, nil

	case LedAnimationTopic:
		if len(fields) != 2 {
			return LedCommand{}, fmt.Errorf("%w: %q", ErrBadLedCommand, text)
		}
		id, err := strconv.Atoi(strings.TrimSpace(fields[0]))
		if err != nil {
			return LedCommand{}, fmt.Errorf("%w: animation %q", ErrBadLedCommand, fields[0])
		}
		ms, err := strconv.ParseUint(strings.TrimSpace(fields[1]), 10, 32)
		if err != nil {
			return LedCommand{}, fmt.Errorf("%w: duration %q", ErrBadLedCommand, fields[1])
		}
		return LedCommand{Kind: LedAnimate, Animation: id, Duration: time.Duration(ms) * time.Millisecond}, nil
	}
	return LedCommand{}, fmt.Errorf("%w: unexpected topic %s", ErrBadLedCommand, topic)
}

type LedFeature struct {
	strip  LedStrip
	client *client.Client
	logger *slog.Logger
}

func NewLedFeature(strip LedStrip, logger *slog.Logger) *LedFeature {
	if logger == nil {
		logger = slog.Default()
	}
	return &LedFeature{strip: strip, logger: logger}
}

func (l *LedFeature) Name() string { return "led" }

func (l *LedFeature) Init(c *client.Client) error {
	l.client = c
	for _, topic := range []string{LedControlTopic, LedAnimationTopic, LedClearTopic} {
		if err := c.Subscribe(topic); err != nil {
			l.logger.Warn("Failed to subscribe", "topic", topic, "error", err)
		}
	}
	return nil
}

func (l *LedFeature) Start() error {
	if err := l.strip.SetAnimation(AnimationRainbowPulse, bootAnimationDuration); err != nil {
		return err
	}
	l.logger.Info("LED feature started", "leds", l.strip.Len())
	return nil
}

func (l *LedFeature) Update(now time.Time) {
	l.strip.Update(l.client != nil && l.client.IsConnected())
}

func (l *LedFeature) Stop() {
	if err := l.strip.Clear(); err != nil {
		l.logger.Warn("Failed to clear LEDs", "error", err)
	}
	l.logger.Info("LED feature stopped")
}

func (l *LedFeature) HandleMessage(topic string, data []byte) {
	switch topic {
	case LedControlTopic, LedAnimationTopic, LedClearTopic:
	default:
		return
	}
	if len(data) == 0 && topic != LedClearTopic {
		return
	}

	cmd, err := ParseLedCommand(topic, data)
	if err != nil {
		l.logger.Warn("Ignoring LED command", "topic", topic, "error", err)
		return
	}
	l.logger.Debug("LED command", "topic", topic, "command", string(data))

	switch cmd.Kind {
	case LedClear:
		err = l.strip.Clear()
	case LedSetPixel:
		if cmd.Index >= l.strip.Len() {
			l.logger.Warn("LED index out of range", "index", cmd.Index, "leds", l.strip.Len())
			return
		}
		err = l.strip.SetPixel(cmd.Index, cmd.R, cmd.G, cmd.B)
	case LedAnimate:
		err = l.strip.SetAnimation(cmd.Animation, cmd.Duration)
	}
	if err != nil {
		l.logger.Warn("LED command failed", "topic", topic, "error", err)
	}
}
