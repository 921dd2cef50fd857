package wsstream

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/c360/statesync/entity"
	"github.com/c360/statesync/errors"
	"github.com/c360/statesync/metric"
	"github.com/c360/statesync/pkg/retry"
	"github.com/c360/statesync/transport"
)

// MessageEnvelope wraps all messages on the stream with type discrimination.
// Supported types:
//   - "list_entities": client request to enumerate reporting units
//   - "entities": device reply carrying the unit inventory
//   - "subscribe_states": client request to start the live state stream
//   - "state": one state report from a reporting unit
type MessageEnvelope struct {
	Type      string          `json:"type"`              // Message type (see above)
	ID        string          `json:"id,omitempty"`      // Correlation ID for request/reply
	Timestamp int64           `json:"timestamp"`         // Unix milliseconds
	Payload   json.RawMessage `json:"payload,omitempty"` // Type-specific payload
}

// ClientDeps holds the dependencies for a Client.
type ClientDeps struct {
	Config Config
	// Logger is optional; nil disables logging.
	Logger Logger
	// MetricsRegistry is optional; nil disables connection metrics.
	MetricsRegistry *metric.MetricsRegistry
}

// Logger is the subset of *slog.Logger the client uses, kept as an
// interface so callers without slog wiring can pass nil.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Client implements transport.StateStream over a WebSocket connection to
// a device. Requests are correlated by UUID; state events are dispatched
// from a single read loop goroutine in delivery order.
type Client struct {
	config  Config
	logger  Logger
	metrics *metric.Metrics

	connMu  sync.Mutex // serializes writes (gorilla allows one writer)
	conn    *websocket.Conn
	started atomic.Bool

	handlerMu sync.RWMutex
	handler   transport.StateHandler

	pendingMu sync.Mutex
	pending   map[string]chan *MessageEnvelope

	shutdown     chan struct{}
	shutdownOnce sync.Once
	wg           sync.WaitGroup
}

var _ transport.StateStream = (*Client)(nil)

// NewClient creates a WebSocket state stream client.
func NewClient(deps ClientDeps) (*Client, error) {
	if deps.Config.URL == "" {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: URL is required", errors.ErrInvalidConfig),
			"wsstream", "NewClient", "validate config")
	}

	cfg := deps.Config
	cfg.applyDefaults()

	var metrics *metric.Metrics
	if deps.MetricsRegistry != nil {
		metrics = deps.MetricsRegistry.CoreMetrics()
	}

	return &Client{
		config:   cfg,
		logger:   deps.Logger,
		metrics:  metrics,
		pending:  make(map[string]chan *MessageEnvelope),
		shutdown: make(chan struct{}),
	}, nil
}

// Connect dials the device and starts the read loop. The dial is retried
// per the configured retry policy; devices are routinely still booting
// when the harness first reaches for them.
func (c *Client) Connect(ctx context.Context) error {
	if c.started.Load() {
		return errors.WrapFatal(errors.ErrAlreadyStarted, "wsstream", "Connect", "check state")
	}

	dialer := &websocket.Dialer{HandshakeTimeout: c.config.HandshakeTimeout}

	conn, err := retry.DoWithResult(ctx, c.config.Dial, func() (*websocket.Conn, error) {
		conn, _, err := dialer.DialContext(ctx, c.config.URL, nil)
		if err != nil {
			if c.metrics != nil {
				c.metrics.StreamReconnects.Inc()
			}
			return nil, err
		}
		return conn, nil
	})
	if err != nil {
		return errors.WrapTransient(err, "wsstream", "Connect", "dial device")
	}

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()

	if c.metrics != nil {
		c.metrics.StreamConnected.Set(1)
	}
	if c.logger != nil {
		c.logger.Debug("connected to device stream", "url", c.config.URL)
	}

	c.started.Store(true)
	c.wg.Add(1)
	go c.readLoop()
	return nil
}

// Close tears down the connection and waits for the read loop to exit.
func (c *Client) Close(timeout time.Duration) error {
	if !c.started.Load() {
		return nil
	}

	c.shutdownOnce.Do(func() {
		close(c.shutdown)
	})

	c.connMu.Lock()
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.connMu.Unlock()

	doneCh := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(doneCh)
	}()

	select {
	case <-doneCh:
	case <-time.After(timeout):
		return errors.WrapTransient(
			fmt.Errorf("shutdown timeout after %v", timeout),
			"wsstream", "Close", "wait for read loop")
	}

	if c.metrics != nil {
		c.metrics.StreamConnected.Set(0)
	}
	c.started.Store(false)
	return nil
}

// ListEntities asks the device to enumerate its reporting units.
func (c *Client) ListEntities(ctx context.Context) ([]entity.Info, error) {
	reply, err := c.request(ctx, "list_entities", nil)
	if err != nil {
		return nil, err
	}

	var infos []entity.Info
	if err := json.Unmarshal(reply.Payload, &infos); err != nil {
		return nil, errors.WrapInvalid(err, "wsstream", "ListEntities", "decode entity list")
	}
	return infos, nil
}

// SubscribeStates installs handler as the state subscriber and tells the
// device to start streaming. The device responds with a snapshot of every
// unit's current state before genuine change events.
func (c *Client) SubscribeStates(handler transport.StateHandler) (transport.Unsubscribe, error) {
	if handler == nil {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: handler is required", errors.ErrInvalidConfig),
			"wsstream", "SubscribeStates", "validate handler")
	}

	c.handlerMu.Lock()
	if c.handler != nil {
		c.handlerMu.Unlock()
		return nil, errors.WrapInvalid(
			fmt.Errorf("state subscription already installed"),
			"wsstream", "SubscribeStates", "check subscription")
	}
	c.handler = handler
	c.handlerMu.Unlock()

	if err := c.send(&MessageEnvelope{
		Type:      "subscribe_states",
		Timestamp: time.Now().UnixMilli(),
	}); err != nil {
		c.clearHandler()
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(c.clearHandler)
	}, nil
}

func (c *Client) clearHandler() {
	c.handlerMu.Lock()
	c.handler = nil
	c.handlerMu.Unlock()
}

// request performs one correlated request/reply exchange.
func (c *Client) request(ctx context.Context, msgType string, payload json.RawMessage) (*MessageEnvelope, error) {
	id := uuid.NewString()
	replyCh := make(chan *MessageEnvelope, 1)

	c.pendingMu.Lock()
	c.pending[id] = replyCh
	c.pendingMu.Unlock()

	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
	}()

	if err := c.send(&MessageEnvelope{
		Type:      msgType,
		ID:        id,
		Timestamp: time.Now().UnixMilli(),
		Payload:   payload,
	}); err != nil {
		return nil, err
	}

	timer := time.NewTimer(c.config.RequestTimeout)
	defer timer.Stop()

	select {
	case reply := <-replyCh:
		return reply, nil
	case <-timer.C:
		return nil, errors.WrapTransient(
			fmt.Errorf("%w: %s after %v", errors.ErrRequestTimeout, msgType, c.config.RequestTimeout),
			"wsstream", "request", "await reply")
	case <-ctx.Done():
		return nil, errors.WrapTransient(ctx.Err(), "wsstream", "request", "await reply")
	case <-c.shutdown:
		return nil, errors.WrapFatal(errors.ErrStreamClosed, "wsstream", "request", "await reply")
	}
}

func (c *Client) send(envelope *MessageEnvelope) error {
	data, err := json.Marshal(envelope)
	if err != nil {
		return errors.WrapInvalid(err, "wsstream", "send", "marshal envelope")
	}

	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return errors.WrapTransient(errors.ErrNoConnection, "wsstream", "send", "check connection")
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return errors.WrapTransient(err, "wsstream", "send", "write envelope")
	}
	return nil
}

// readLoop reads envelopes until the connection closes and dispatches
// them: replies to their pending request, state events to the handler.
func (c *Client) readLoop() {
	defer c.wg.Done()

	for {
		select {
		case <-c.shutdown:
			return
		default:
		}

		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()
		if conn == nil {
			return
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.shutdown:
			default:
				if c.logger != nil {
					c.logger.Warn("device stream read failed", "error", err)
				}
				if c.metrics != nil {
					c.metrics.StreamConnected.Set(0)
				}
			}
			return
		}

		var envelope MessageEnvelope
		if err := json.Unmarshal(data, &envelope); err != nil {
			if c.logger != nil {
				c.logger.Warn("discarding malformed envelope", "error", err)
			}
			continue
		}

		c.dispatch(&envelope)
	}
}

func (c *Client) dispatch(envelope *MessageEnvelope) {
	switch envelope.Type {
	case "state":
		var state entity.State
		if err := json.Unmarshal(envelope.Payload, &state); err != nil {
			if c.logger != nil {
				c.logger.Warn("discarding malformed state event", "error", err)
			}
			return
		}

		c.handlerMu.RLock()
		handler := c.handler
		c.handlerMu.RUnlock()
		if handler != nil {
			handler(state)
		}

	default:
		// Anything with a correlation ID is a reply to a pending request.
		if envelope.ID == "" {
			return
		}
		c.pendingMu.Lock()
		replyCh, exists := c.pending[envelope.ID]
		if exists {
			delete(c.pending, envelope.ID)
		}
		c.pendingMu.Unlock()

		if exists {
			select {
			case replyCh <- envelope:
			default:
			}
		}
	}
}
