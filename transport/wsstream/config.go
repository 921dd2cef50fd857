package wsstream

import (
	"time"

	"github.com/c360/statesync/pkg/retry"
)

// Config configures a WebSocket state stream client.
type Config struct {
	// URL is the device's WebSocket endpoint, e.g. "ws://device.local:6053/stream".
	URL string

	// HandshakeTimeout bounds the WebSocket dial. Defaults to 10s.
	HandshakeTimeout time.Duration

	// RequestTimeout bounds request/reply exchanges such as entity
	// enumeration. Defaults to 5s.
	RequestTimeout time.Duration

	// Dial controls retry behavior for the initial connection. Zero
	// value means retry.Quick().
	Dial retry.Config
}

func (c *Config) applyDefaults() {
	if c.HandshakeTimeout == 0 {
		c.HandshakeTimeout = 10 * time.Second
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 5 * time.Second
	}
	if c.Dial == (retry.Config{}) {
		c.Dial = retry.Quick()
	}
}
