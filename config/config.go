package config

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/c360/statesync/errors"
)

// Duration is a time.Duration that unmarshals from JSON strings like
// "5s" or "250ms".
type Duration time.Duration

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Std returns the standard library representation.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// DeviceConfig describes the device whose state stream is observed.
type DeviceConfig struct {
	// URL is the websocket endpoint, e.g. "ws://device.local:6053/stream".
	URL string `json:"url"`
	// HandshakeTimeout bounds the websocket dial. Defaults to 10s.
	HandshakeTimeout Duration `json:"handshake_timeout,omitempty"`
	// RequestTimeout bounds each request/reply exchange. Defaults to 5s.
	RequestTimeout Duration `json:"request_timeout,omitempty"`
}

// NATSConfig describes the optional NATS output and snapshot storage.
// Leaving URLs empty disables both.
type NATSConfig struct {
	URLs []string `json:"urls,omitempty"`
	// SubjectPrefix prefixes forwarded state subjects. Defaults to
	// "statesync.state".
	SubjectPrefix string `json:"subject_prefix,omitempty"`
	// SnapshotBucket is the JetStream KV bucket for recorded initial
	// snapshots. Defaults to "INITIAL_SNAPSHOTS". Set "-" to disable
	// snapshot persistence while keeping forwarding.
	SnapshotBucket string `json:"snapshot_bucket,omitempty"`
	ConnectTimeout Duration `json:"connect_timeout,omitempty"`
}

// WaitConfig bounds the initial-state wait.
type WaitConfig struct {
	// Timeout is the initial-state wait bound. Defaults to 5s.
	Timeout Duration `json:"timeout,omitempty"`
}

// MetricsConfig describes the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `json:"enabled"`
	// Port for the /metrics listener. Defaults to 9090.
	Port int `json:"port,omitempty"`
	// Path defaults to "/metrics".
	Path string `json:"path,omitempty"`
}

// Config is the root application configuration.
type Config struct {
	Device  DeviceConfig  `json:"device"`
	NATS    NATSConfig    `json:"nats"`
	Wait    WaitConfig    `json:"wait"`
	Metrics MetricsConfig `json:"metrics"`
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	if c.Device.URL == "" {
		return errors.WrapInvalid(
			fmt.Errorf("%w: device.url is required", errors.ErrInvalidConfig),
			"Config", "Validate", "check device")
	}
	if c.Metrics.Enabled && (c.Metrics.Port < 1 || c.Metrics.Port > 65535) {
		return errors.WrapInvalid(
			fmt.Errorf("%w: metrics.port %d out of range", errors.ErrInvalidConfig, c.Metrics.Port),
			"Config", "Validate", "check metrics")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.NATS.SubjectPrefix == "" {
		c.NATS.SubjectPrefix = "statesync.state"
	}
	if c.NATS.SnapshotBucket == "" {
		c.NATS.SnapshotBucket = "INITIAL_SNAPSHOTS"
	}
	if c.NATS.ConnectTimeout == 0 {
		c.NATS.ConnectTimeout = Duration(5 * time.Second)
	}
	if c.Wait.Timeout == 0 {
		c.Wait.Timeout = Duration(5 * time.Second)
	}
	if c.Metrics.Port == 0 {
		c.Metrics.Port = 9090
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

// Load reads, parses, defaults, and validates a JSON config file.
func Load(path string) (*Config, error) {
	data, err := safeReadFile(path)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Config", "Load", "read config file")
	}

	if err := validateJSONDepth(data); err != nil {
		return nil, errors.WrapInvalid(err, "Config", "Load", "validate structure")
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %v", errors.ErrInvalidConfig, err),
			"Config", "Load", "parse config file")
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ToJSON renders the config for debug logging.
func (c *Config) ToJSON() (string, error) {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
