package natsclient

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360/statesync/errors"
	"github.com/c360/statesync/metric"
)

// ConnectionStatus represents the state of the NATS connection.
type ConnectionStatus int

// Possible connection statuses
const (
	StatusDisconnected ConnectionStatus = iota
	StatusConnecting
	StatusConnected
	StatusReconnecting
)

// String returns the string representation of ConnectionStatus.
func (s ConnectionStatus) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// Client manages one NATS connection plus its JetStream context for the
// state forwarder and the snapshot store. It reconnects automatically
// via the nats.go client and mirrors connection state into the core
// stream metrics when a registry is attached.
type Client struct {
	url    string
	logger *slog.Logger
	status atomic.Value // ConnectionStatus

	maxReconnects int
	reconnectWait time.Duration
	pingInterval  time.Duration
	timeout       time.Duration
	drainTimeout  time.Duration
	clientName    string

	registry *metric.MetricsRegistry
	metrics  *clientMetrics

	mu     sync.RWMutex
	conn   *nats.Conn
	js     jetstream.JetStream
	closed atomic.Bool
}

// NewClient creates a disconnected Client for the given server URL.
func NewClient(url string, opts ...ClientOption) (*Client, error) {
	if url == "" {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: server URL is required", errors.ErrInvalidConfig),
			"Client", "NewClient", "validate URL")
	}

	c := &Client{
		url:           url,
		maxReconnects: -1,
		reconnectWait: 2 * time.Second,
		pingInterval:  30 * time.Second,
		timeout:       5 * time.Second,
		drainTimeout:  30 * time.Second,
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, errors.WrapInvalid(err, "Client", "NewClient", "apply option")
		}
	}

	c.status.Store(StatusDisconnected)
	c.metrics = newClientMetrics(c.registry, c.metricsName())
	return c, nil
}

func (c *Client) metricsName() string {
	if c.clientName != "" {
		return c.clientName
	}
	return "natsclient"
}

// URL returns the configured server URL.
func (c *Client) URL() string {
	return c.url
}

// Status returns the current connection status.
func (c *Client) Status() ConnectionStatus {
	return c.status.Load().(ConnectionStatus)
}

// IsConnected reports whether the underlying connection is live.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil && c.conn.IsConnected()
}

// Conn returns the live connection. It satisfies the forwarder's
// Publisher interface via Publish.
func (c *Client) Conn() *nats.Conn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn
}

// JetStream returns the JetStream context, nil before Connect.
func (c *Client) JetStream() jetstream.JetStream {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.js
}

// Publish sends data to subject over the live connection.
func (c *Client) Publish(subject string, data []byte) error {
	conn := c.Conn()
	if conn == nil {
		return errors.WrapTransient(errors.ErrNoConnection, "Client", "Publish", "check connection")
	}
	return conn.Publish(subject, data)
}

func (c *Client) buildOptions() []nats.Option {
	opts := []nats.Option{
		nats.MaxReconnects(c.maxReconnects),
		nats.ReconnectWait(c.reconnectWait),
		nats.PingInterval(c.pingInterval),
		nats.Timeout(c.timeout),
		nats.DrainTimeout(c.drainTimeout),
		nats.DisconnectErrHandler(c.handleDisconnect),
		nats.ReconnectHandler(c.handleReconnect),
		nats.ClosedHandler(c.handleClosed),
	}
	if c.clientName != "" {
		opts = append(opts, nats.Name(c.clientName))
	}
	return opts
}

// Connect establishes the connection and JetStream context. The dial is
// bounded by ctx as well as the configured connect timeout.
func (c *Client) Connect(ctx context.Context) error {
	c.setStatus(StatusConnecting)
	if c.logger != nil {
		c.logger.Info("connecting to NATS", "url", c.url)
	}

	done := make(chan error, 1)
	go func() {
		conn, err := nats.Connect(c.url, c.buildOptions()...)
		if err != nil {
			done <- err
			return
		}
		js, err := jetstream.New(conn)
		if err != nil {
			conn.Close()
			done <- err
			return
		}
		c.mu.Lock()
		c.conn = conn
		c.js = js
		c.mu.Unlock()
		done <- nil
	}()

	select {
	case err := <-done:
		if err != nil {
			c.setStatus(StatusDisconnected)
			return errors.WrapTransient(err, "Client", "Connect", "dial NATS server")
		}
	case <-ctx.Done():
		c.setStatus(StatusDisconnected)
		return errors.WrapTransient(
			fmt.Errorf("%w: %v", errors.ErrConnectionTimeout, ctx.Err()),
			"Client", "Connect", "dial NATS server")
	}

	c.setStatus(StatusConnected)
	c.setConnectedGauge(1)
	if c.logger != nil {
		c.logger.Info("connected to NATS", "url", c.url)
	}
	return nil
}

// Close drains the connection. Safe to call more than once.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.js = nil
	c.mu.Unlock()

	c.setStatus(StatusDisconnected)
	c.setConnectedGauge(0)

	if conn == nil {
		return nil
	}
	if err := conn.Drain(); err != nil {
		conn.Close()
		return errors.WrapTransient(err, "Client", "Close", "drain connection")
	}
	return nil
}

func (c *Client) setStatus(status ConnectionStatus) {
	c.status.Store(status)
}

func (c *Client) setConnectedGauge(v float64) {
	if c.metrics == nil {
		return
	}
	c.metrics.connected.Set(v)
}

func (c *Client) handleDisconnect(_ *nats.Conn, err error) {
	c.setStatus(StatusReconnecting)
	c.setConnectedGauge(0)
	if c.logger != nil && err != nil {
		c.logger.Warn("NATS disconnected", "error", err)
	}
}

func (c *Client) handleReconnect(conn *nats.Conn) {
	c.setStatus(StatusConnected)
	c.setConnectedGauge(1)
	if c.metrics != nil {
		c.metrics.reconnects.Inc()
	}
	if c.logger != nil {
		c.logger.Info("NATS reconnected", "url", conn.ConnectedUrl())
	}
}

func (c *Client) handleClosed(_ *nats.Conn) {
	c.setStatus(StatusDisconnected)
	c.setConnectedGauge(0)
	if c.logger != nil {
		c.logger.Info("NATS connection closed")
	}
}
