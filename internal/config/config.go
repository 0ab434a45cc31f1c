// Package config loads and validates the serial-to-alsa configuration.
//
// Configuration comes from an optional TOML file; CLI flags override
// individual fields afterwards. Everything has a default, so running with
// no file and no flags is valid.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/WeAreROLI/serial-to-alsa/internal/serial"
)

// Defaults target the embedded board this tool ships on: rawmidi port
// hw:1,0 fed from the on-board UART.
const (
	DefaultMIDIPort       = "hw:1,0"
	DefaultSerialPort     = "/dev/ttymxc1"
	DefaultBaudRate       = 230400
	DefaultPollIntervalMS = 5
)

// Config is the complete relay configuration.
type Config struct {
	// MIDIPort selects the MIDI output port by name.
	MIDIPort string `toml:"midi_port"`
	// SerialPort is the serial device path frames are captured from.
	SerialPort string `toml:"serial_port"`
	// BaudRate is the serial line speed.
	BaudRate int `toml:"baud_rate"`
	// PollIntervalMS is the producer's idle readiness-poll timeout in
	// milliseconds.
	PollIntervalMS int `toml:"poll_interval_ms"`

	Logging LoggingConfig `toml:"logging"`
	Metrics MetricsConfig `toml:"metrics"`
}

// LoggingConfig controls log construction.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// MetricsConfig controls the optional Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Address string `toml:"address"`
}

// Default returns the configuration used when no file is provided.
func Default() Config {
	return Config{
		MIDIPort:       DefaultMIDIPort,
		SerialPort:     DefaultSerialPort,
		BaudRate:       DefaultBaudRate,
		PollIntervalMS: DefaultPollIntervalMS,
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Address: ":9090",
		},
	}
}

// Load reads the TOML file at path over the defaults. An empty path returns
// the defaults unchanged. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %q: %w", path, err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file %q: %w", path, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every field against its allowed range.
func (c *Config) Validate() error {
	if c.SerialPort == "" {
		return errors.New("serial_port cannot be empty")
	}
	if !serial.SupportsBaudRate(c.BaudRate) {
		return fmt.Errorf("baud_rate %d is not supported", c.BaudRate)
	}
	if c.PollIntervalMS < 1 || c.PollIntervalMS > 1000 {
		return fmt.Errorf("poll_interval_ms must be between 1 and 1000, got %d", c.PollIntervalMS)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}

	if c.Metrics.Enabled && c.Metrics.Address == "" {
		return errors.New("metrics.address cannot be empty when metrics are enabled")
	}
	return nil
}

// PollInterval returns the idle poll timeout as a time.Duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}
