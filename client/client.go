// Package client implements the surface side of the bridge: read-only
// mirror stores fed by host snapshots and patches, plus an outward
// dispatch that never computes state locally.
package client

import (
	"fmt"
	"log/slog"
	stdSync "sync"

	bridgeErrors "github.com/c0deZ3R0/go-bridge-kit/errors"
	"github.com/c0deZ3R0/go-bridge-kit/logging"
	"github.com/c0deZ3R0/go-bridge-kit/patch"
	"github.com/c0deZ3R0/go-bridge-kit/store"
	"github.com/c0deZ3R0/go-bridge-kit/transport"
	"github.com/c0deZ3R0/go-bridge-kit/wire"
)

// IsSupported reports whether the surrounding environment handed this
// surface a usable message channel. It is a capability probe, not a
// protocol message: no traffic is generated.
func IsSupported(ch transport.Channel) bool {
	return ch != nil
}

// Option configures a client Bridge.
type Option func(*Bridge)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) {
		b.logger = logger
	}
}

// WithErrorHandler installs a callback for decode errors and protocol
// violations the client absorbs.
func WithErrorHandler(handler func(error)) Option {
	return func(b *Bridge) {
		b.errorHandler = handler
	}
}

// Bridge is the client-side mirror of the host bridge. It holds one
// mirror store per key and applies whatever the host pushes; local state
// changes only when the mirrored message arrives back.
type Bridge struct {
	channel      transport.Channel
	logger       *slog.Logger
	errorHandler func(error)

	mu        stdSync.Mutex
	stores    map[string]*Mirror
	readySent bool
}

// New wires a client bridge onto an established channel. The caller
// still has to announce readiness with Start once it can process pushes.
func New(ch transport.Channel, opts ...Option) (*Bridge, error) {
	if !IsSupported(ch) {
		return nil, fmt.Errorf("no message channel available")
	}
	b := &Bridge{
		channel: ch,
		logger:  logging.Default().Logger,
		stores:  make(map[string]*Mirror),
	}
	for _, opt := range opts {
		opt(b)
	}
	ch.OnMessage(b.handleIncoming)
	return b, nil
}

// Start sends the one-time BRIDGE_READY handshake. Calling it again is a
// no-op.
func (b *Bridge) Start() error {
	b.mu.Lock()
	if b.readySent {
		b.mu.Unlock()
		return nil
	}
	b.readySent = true
	b.mu.Unlock()

	raw, err := wire.Encode(wire.BridgeReady())
	if err != nil {
		return err
	}
	if err := b.channel.Send(raw); err != nil {
		return bridgeErrors.NewTransportError(bridgeErrors.OpSend, err)
	}
	return nil
}

// GetStore returns the mirror for key, creating it on first use. A
// mirror created before any STATE_INIT arrives reports a nil snapshot.
func (b *Bridge) GetStore(key string) *Mirror {
	b.mu.Lock()
	defer b.mu.Unlock()
	if m, ok := b.stores[key]; ok {
		return m
	}
	m := &Mirror{key: key, bridge: b}
	b.stores[key] = m
	return m
}

func (b *Bridge) handleIncoming(raw string) {
	msg, err := wire.Decode(raw)
	if err != nil {
		b.reportError(err)
		b.logger.Warn("dropped undecodable message", "error", err)
		return
	}

	switch msg.Type {
	case wire.TypeStateInit:
		b.applyInit(msg)
	case wire.TypeStateUpdate:
		b.applyUpdate(msg)
	default:
		violation := bridgeErrors.NewProtocolViolation(bridgeErrors.OpDecode,
			fmt.Errorf("surface received %s message", msg.Type))
		b.reportError(violation)
		b.logger.Warn("ignored surface-bound message of inbound type", "type", string(msg.Type))
	}
}

func (b *Bridge) applyInit(msg wire.Message) {
	snapshot, err := msg.DecodeData()
	if err != nil {
		b.reportError(bridgeErrors.NewDecodeError(bridgeErrors.OpDecode, err))
		return
	}
	b.GetStore(msg.StoreKey).commit(snapshot)
}

func (b *Bridge) applyUpdate(msg wire.Message) {
	mirror := b.GetStore(msg.StoreKey)

	// Full replacement sent as update
	if msg.Data != nil {
		snapshot, err := msg.DecodeData()
		if err != nil {
			b.reportError(bridgeErrors.NewDecodeError(bridgeErrors.OpDecode, err))
			return
		}
		mirror.commit(snapshot)
		return
	}

	mirror.mu.Lock()
	received := mirror.received
	current := mirror.snapshot
	mirror.mu.Unlock()
	if !received {
		violation := bridgeErrors.NewProtocolViolation(bridgeErrors.OpApplyPatch,
			fmt.Errorf("patch for store %q before any snapshot", msg.StoreKey))
		b.reportError(violation)
		b.logger.Warn("ignored patch without prior snapshot", "store", msg.StoreKey)
		return
	}

	next, err := patch.Apply(current, msg.Operations)
	if err != nil {
		violation := bridgeErrors.NewProtocolViolation(bridgeErrors.OpApplyPatch,
			fmt.Errorf("patch for store %q does not fit current snapshot: %w", msg.StoreKey, err))
		b.reportError(violation)
		b.logger.Warn("ignored inapplicable patch", "store", msg.StoreKey, "error", err)
		return
	}
	mirror.commit(next)
}

// dispatch serializes an EVENT message outward. Local mirrors are never
// touched; the host's producer decides what, if anything, changes.
func (b *Bridge) dispatch(storeKey string, event store.Event) error {
	raw, err := wire.Encode(wire.EventMessage(storeKey, event))
	if err != nil {
		return err
	}
	if err := b.channel.Send(raw); err != nil {
		return bridgeErrors.NewTransportError(bridgeErrors.OpSend, err)
	}
	return nil
}

func (b *Bridge) reportError(err error) {
	if b.errorHandler != nil {
		b.errorHandler(err)
	}
}
