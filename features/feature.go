// Package features runs the device-side behaviour around an AVI client:
// buttons, LEDs, audio playback and heartbeat reporting. Hardware sits
// behind small interfaces so the same features run on a board or in tests.
package features

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/mbocsi/avi/client"
)

// Feature is one device capability driven by the Runtime loop.
type Feature interface {
	Name() string
	// Init binds the feature to a connected client and subscribes its
	// topics. It runs again after every reconnect.
	Init(c *client.Client) error
	Start() error
	Update(now time.Time)
	Stop()
	HandleMessage(topic string, data []byte)
}

// Manager owns a set of features and fans lifecycle calls out to them in
// the order they were added.
type Manager struct {
	features []Feature
	logger   *slog.Logger
}

func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{logger: logger}
}

func (m *Manager) Add(f Feature) {
	if f == nil {
		return
	}
	m.logger.Info("Adding feature", "feature", f.Name())
	m.features = append(m.features, f)
}

func (m *Manager) Features() []Feature {
	return m.features
}

// InitAll stops at the first feature that fails.
func (m *Manager) InitAll(c *client.Client) error {
	m.logger.Debug("Initializing features", "count", len(m.features))
	for _, f := range m.features {
		if err := f.Init(c); err != nil {
			return fmt.Errorf("init feature %s: %w", f.Name(), err)
		}
	}
	return nil
}

func (m *Manager) StartAll() error {
	m.logger.Info("Starting all features")
	for _, f := range m.features {
		if err := f.Start(); err != nil {
			return fmt.Errorf("start feature %s: %w", f.Name(), err)
		}
	}
	return nil
}

func (m *Manager) UpdateAll(now time.Time) {
	for _, f := range m.features {
		f.Update(now)
	}
}

func (m *Manager) StopAll() {
	m.logger.Info("Stopping all features")
	for _, f := range m.features {
		f.Stop()
	}
}

// HandleMessage delivers a topic message to every feature. It has the
// client.MessageHandler signature.
func (m *Manager) HandleMessage(topic string, data []byte) {
	for _, f := range m.features {
		f.HandleMessage(topic, data)
	}
}
