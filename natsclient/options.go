package natsclient

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/c360/statesync/metric"
)

// ClientOption is a functional option for configuring the Client.
type ClientOption func(*Client) error

// WithMaxReconnects sets the maximum number of reconnection attempts
// (-1 for infinite).
func WithMaxReconnects(max int) ClientOption {
	return func(c *Client) error {
		c.maxReconnects = max
		return nil
	}
}

// WithReconnectWait sets the wait time between reconnection attempts.
func WithReconnectWait(d time.Duration) ClientOption {
	return func(c *Client) error {
		if d <= 0 {
			return fmt.Errorf("reconnect wait must be positive, got %v", d)
		}
		c.reconnectWait = d
		return nil
	}
}

// WithConnectTimeout sets the dial timeout.
func WithConnectTimeout(d time.Duration) ClientOption {
	return func(c *Client) error {
		if d <= 0 {
			return fmt.Errorf("connect timeout must be positive, got %v", d)
		}
		c.timeout = d
		return nil
	}
}

// WithDrainTimeout sets the shutdown drain timeout.
func WithDrainTimeout(d time.Duration) ClientOption {
	return func(c *Client) error {
		if d <= 0 {
			return fmt.Errorf("drain timeout must be positive, got %v", d)
		}
		c.drainTimeout = d
		return nil
	}
}

// WithClientName sets the connection name reported to the server and
// used as the metrics component name.
func WithClientName(name string) ClientOption {
	return func(c *Client) error {
		c.clientName = name
		return nil
	}
}

// WithLogger injects a structured logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) error {
		c.logger = logger
		return nil
	}
}

// WithMetricsRegistry attaches Prometheus connection metrics.
func WithMetricsRegistry(registry *metric.MetricsRegistry) ClientOption {
	return func(c *Client) error {
		c.registry = registry
		return nil
	}
}
