// Package config loads the YAML configuration shared by the serve and
// device commands.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the avi configuration.
type Config struct {
	Log    LogConfig    `yaml:"log"`
	Server ServerConfig `yaml:"server"`
	Device DeviceConfig `yaml:"device"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

type ServerConfig struct {
	UDPAddr     string        `yaml:"udp_addr"`
	WSAddr      string        `yaml:"ws_addr"`  // empty disables the WebSocket transport
	WebAddr     string        `yaml:"web_addr"` // empty disables the HTTP API
	MaxClients  int           `yaml:"max_clients"`
	IdleTimeout time.Duration `yaml:"idle_timeout"`
	Advertise   bool          `yaml:"advertise"`
	Instance    string        `yaml:"instance"`
	MCP         bool          `yaml:"mcp"`
}

type DeviceConfig struct {
	// ID is the 64-bit device id as hex, with or without 0x.
	ID string `yaml:"id"`
	// Server is host:port for UDP or a ws:// URL. Empty means discover
	// the server over mDNS.
	Server           string        `yaml:"server"`
	Transport        string        `yaml:"transport"` // udp or websocket
	DiscoveryTimeout time.Duration `yaml:"discovery_timeout"`
	ConnectTimeout   time.Duration `yaml:"connect_timeout"`
	RetryDelay       time.Duration `yaml:"retry_delay"`
	Interval         time.Duration `yaml:"interval"`
	Heartbeat        time.Duration `yaml:"heartbeat"`
	Features         []string      `yaml:"features"`
}

// DefaultDeviceID is the id used when none is configured.
const DefaultDeviceID = "0123456789abcdef"

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			UDPAddr:     "0.0.0.0:8888",
			WebAddr:     "127.0.0.1:8080",
			MaxClients:  64,
			IdleTimeout: 2 * time.Minute,
		},
		Device: DeviceConfig{
			ID:               DefaultDeviceID,
			Transport:        "udp",
			DiscoveryTimeout: 3 * time.Second,
			ConnectTimeout:   5 * time.Second,
			RetryDelay:       5 * time.Second,
			Interval:         50 * time.Millisecond,
			Heartbeat:        30 * time.Second,
			Features:         []string{"button", "led", "audio", "heartbeat"},
		},
	}
}

// DefaultPath returns the default config file path: ~/.avi/config.yaml
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".avi", "config.yaml")
	}
	return filepath.Join(home, ".avi", "config.yaml")
}

// Load reads the configuration from the given YAML file path. Fields the
// file omits keep their defaults. If the file does not exist, it returns
// the defaults with no error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks values that cannot be caught by YAML decoding.
func (c *Config) Validate() error {
	if _, err := c.Device.DeviceID(); err != nil {
		return err
	}
	switch c.Device.Transport {
	case "udp", "websocket":
	default:
		return fmt.Errorf("device.transport must be udp or websocket, got %q", c.Device.Transport)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	if c.Server.MaxClients < 0 {
		return fmt.Errorf("server.max_clients must not be negative")
	}
	return nil
}

// DeviceID parses ID as a 64-bit hex number.
func (d DeviceConfig) DeviceID() (uint64, error) {
	s := strings.TrimPrefix(strings.ToLower(d.ID), "0x")
	id, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("device.id %q is not a 64-bit hex number", d.ID)
	}
	return id, nil
}

// Enabled reports whether the named feature is listed.
func (d DeviceConfig) Enabled(feature string) bool {
	for _, f := range d.Features {
		if f == feature {
			return true
		}
	}
	return false
}
