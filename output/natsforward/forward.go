// Package natsforward publishes forwarded state events to NATS, so a
// filtered device stream can feed NATS-based processing pipelines.
//
// The Forwarder is an initialsync downstream adapter: wire its Forward
// method as the filter's Downstream callback and every non-swallowed
// event is published to "<prefix>.<deviceID>.<key>" as JSON. Initial
// snapshots never reach NATS because the filter swallows them first.
package natsforward

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/c360/statesync/entity"
	"github.com/c360/statesync/errors"
)

// DefaultSubjectPrefix is used when the config does not name one.
const DefaultSubjectPrefix = "statesync.state"

// Publisher is the subset of a NATS connection the forwarder needs.
// *nats.Conn satisfies it.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Config configures a Forwarder.
type Config struct {
	// SubjectPrefix is prepended to "<deviceID>.<key>" when building
	// the publish subject. Defaults to DefaultSubjectPrefix.
	SubjectPrefix string
}

// ForwarderDeps holds the dependencies for a Forwarder.
type ForwarderDeps struct {
	Config Config
	// Publisher is the NATS connection (required).
	Publisher Publisher
	// Logger is optional; nil disables logging.
	Logger *slog.Logger
}

// Forwarder publishes state events to per-entity NATS subjects.
type Forwarder struct {
	prefix    string
	publisher Publisher
	logger    *slog.Logger
}

// NewForwarder creates a Forwarder.
func NewForwarder(deps ForwarderDeps) (*Forwarder, error) {
	if deps.Publisher == nil {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: publisher is required", errors.ErrInvalidConfig),
			"natsforward", "NewForwarder", "validate dependencies")
	}

	prefix := deps.Config.SubjectPrefix
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}

	return &Forwarder{
		prefix:    prefix,
		publisher: deps.Publisher,
		logger:    deps.Logger,
	}, nil
}

// Subject returns the publish subject for an identity.
func (f *Forwarder) Subject(id entity.ID) string {
	return fmt.Sprintf("%s.%d.%d", f.prefix, id.DeviceID, id.Key)
}

// Forward publishes one state event. It matches the initialsync
// Downstream signature, so publish failures are logged rather than
// returned: a broken pipeline must not make the filter misreport the
// device's behavior.
func (f *Forwarder) Forward(state entity.State) {
	data, err := json.Marshal(state)
	if err != nil {
		if f.logger != nil {
			f.logger.Error("failed to marshal state for NATS", "entity", state.ID(), "error", err)
		}
		return
	}

	subject := f.Subject(state.ID())
	if err := f.publisher.Publish(subject, data); err != nil {
		if f.logger != nil {
			f.logger.Error("failed to publish state to NATS", "subject", subject, "error", err)
		}
	}
}
