package features

import (
	"io"
	"log/slog"
	"time"

	"github.com/mbocsi/avi/client"
)

const AudioDataTopic = "device/audio/data"

// AudioFeature plays PCM chunks published on AudioDataTopic by writing
// them to a sink (the I2S DAC on hardware).
type AudioFeature struct {
	sink   io.Writer
	logger *slog.Logger
	played int64
}

func NewAudioFeature(sink io.Writer, logger *slog.Logger) *AudioFeature {
	if logger == nil {
		logger = slog.Default()
	}
	return &AudioFeature{sink: sink, logger: logger}
}

func (a *AudioFeature) Name() string { return "audio" }

func (a *AudioFeature) Init(c *client.Client) error {
	if err := c.Subscribe(AudioDataTopic); err != nil {
		a.logger.Warn("Failed to subscribe", "topic", AudioDataTopic, "error", err)
	}
	return nil
}

func (a *AudioFeature) Start() error {
	a.logger.Info("Audio feature started")
	return nil
}

// Update is a no-op; playback is driven by incoming messages.
func (a *AudioFeature) Update(now time.Time) {}

func (a *AudioFeature) Stop() {
	if closer, ok := a.sink.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			a.logger.Warn("Failed to close audio sink", "error", err)
		}
	}
	a.logger.Info("Audio feature stopped", "bytes_played", a.played)
}

func (a *AudioFeature) HandleMessage(topic string, data []byte) {
	if topic != AudioDataTopic || len(data) == 0 {
		return
	}
	n, err := a.sink.Write(data)
	a.played += int64(n)
	if err != nil {
		a.logger.Warn("Audio write failed", "error", err)
		return
	}
	a.logger.Debug("Played audio", "bytes", n)
}

// BytesPlayed returns the total number of bytes written to the sink.
func (a *AudioFeature) BytesPlayed() int64 {
	return a.played
}
