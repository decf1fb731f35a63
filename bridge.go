package bridgekit

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	stdSync "sync"
	"time"

	bridgeErrors "github.com/c0deZ3R0/go-bridge-kit/errors"
	"github.com/c0deZ3R0/go-bridge-kit/journal"
	"github.com/c0deZ3R0/go-bridge-kit/logging"
	"github.com/c0deZ3R0/go-bridge-kit/state"
	"github.com/c0deZ3R0/go-bridge-kit/store"
	"github.com/c0deZ3R0/go-bridge-kit/wire"
)

// Surface is the opaque handle to one remote endpoint. Values must be
// equality-comparable; the bridge looks them up by identity scan, never
// as map keys. A transport.Channel satisfies this and is additionally
// wired for inbound routing at registration time.
type Surface interface {
	// Send transmits one encoded message to the remote endpoint.
	Send(msg string) error
}

// inboundWirer is implemented by surfaces whose inbound hook the bridge
// can wire itself (notably transport.Channel).
type inboundWirer interface {
	OnMessage(handler func(msg string))
}

// storeBinding pairs a registered store with the bridge's subscription to
// it and the last snapshot it broadcast, which seeds the next diff.
type storeBinding struct {
	store       *store.Store
	unsubscribe func()
	last        state.Value
}

type registrySubscriber struct {
	fn      func()
	removed bool
}

// Bridge is the host side of the state synchronization protocol. One
// Bridge is constructed per process and passed by reference to all
// consumers; there is no ambient global instance.
type Bridge struct {
	logger         *slog.Logger
	metrics        MetricsCollector
	errorHandler   func(error)
	patchSizeRatio float64
	patchSizeFloor int
	journal        journal.Recorder

	mu           stdSync.Mutex
	stores       map[string]*storeBinding
	registrySubs []*registrySubscriber
	surfaces     []*surfaceConn
	pendingReady []*pendingReadySub
	hub          []*hubEntry
	closed       bool
}

// New creates a Bridge with the given options.
func New(opts ...Option) *Bridge {
	b := &Bridge{
		logger:         logging.Default().Logger,
		metrics:        &NoOpMetricsCollector{},
		patchSizeRatio: DefaultPatchSizeRatio,
		patchSizeFloor: DefaultPatchSizeFloor,
		stores:         make(map[string]*storeBinding),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// SetStore binds a store to key. Passing nil unregisters the key.
// Binding over an existing key replaces it and, because the new store's
// history is unknown to the surfaces, triggers a full STATE_INIT
// re-broadcast to every ready surface. Registration is late-binding:
// surfaces already ready receive the new store's snapshot immediately.
func (b *Bridge) SetStore(key string, st *store.Store) {
	if key == "" {
		return
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	if old, ok := b.stores[key]; ok {
		old.unsubscribe()
		delete(b.stores, key)
	}
	if st != nil {
		binding := &storeBinding{store: st, last: st.GetSnapshot()}
		binding.unsubscribe = st.Subscribe(func(snapshot state.Value) {
			b.broadcast(key, snapshot)
		})
		b.stores[key] = binding
	}
	b.mu.Unlock()

	if st != nil {
		b.pushSnapshotToReady(key, st.GetSnapshot())
	}
	b.notifyRegistry()
}

// GetStore returns the store bound to key, or nil.
func (b *Bridge) GetStore(key string) *store.Store {
	b.mu.Lock()
	defer b.mu.Unlock()
	if binding, ok := b.stores[key]; ok {
		return binding.store
	}
	return nil
}

// StoreKeys returns the currently bound keys in sorted order.
func (b *Bridge) StoreKeys() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sortedStoreKeysLocked()
}

func (b *Bridge) sortedStoreKeysLocked() []string {
	keys := make([]string, 0, len(b.stores))
	for key := range b.stores {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Subscribe registers a callback notified on every registry change (store
// bound or unbound, any key). The returned function unsubscribes.
func (b *Bridge) Subscribe(fn func()) func() {
	sub := &registrySubscriber{fn: fn}
	b.mu.Lock()
	b.registrySubs = append(b.registrySubs, sub)
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub.removed {
			return
		}
		sub.removed = true
		for i, candidate := range b.registrySubs {
			if candidate == sub {
				b.registrySubs = append(b.registrySubs[:i], b.registrySubs[i+1:]...)
				break
			}
		}
	}
}

func (b *Bridge) notifyRegistry() {
	b.mu.Lock()
	subs := make([]*registrySubscriber, len(b.registrySubs))
	copy(subs, b.registrySubs)
	b.mu.Unlock()

	for _, sub := range subs {
		b.mu.Lock()
		skip := sub.removed
		b.mu.Unlock()
		if !skip {
			sub.fn()
		}
	}
}

// HandleIncomingMessage routes one raw message received from a surface.
// Decode failures are returned (and surfaced to the error handler); they
// never disturb store state. Protocol violations and reducer failures are
// absorbed: logged, surfaced to the error handler, and nil is returned,
// matching the contract that inbound traffic can never throw host state
// out from under its callers.
func (b *Bridge) HandleIncomingMessage(ref Surface, raw string) error {
	msg, err := wire.Decode(raw)
	if err != nil {
		b.metrics.RecordDecodeError()
		b.journalRecord(journal.Inbound, "", "undecodable", raw)
		b.reportError(err)
		b.logger.Warn("dropped undecodable message", "error", err)
		return err
	}
	b.metrics.RecordMessageReceived(string(msg.Type))
	b.journalRecord(journal.Inbound, msg.StoreKey, string(msg.Type), raw)

	switch msg.Type {
	case wire.TypeBridgeReady:
		b.markReady(ref)
	case wire.TypeEvent:
		b.dispatchInbound(msg.StoreKey, *msg.Event)
	default:
		violation := bridgeErrors.NewProtocolViolation(bridgeErrors.OpDecode,
			fmt.Errorf("host received %s message", msg.Type))
		b.reportError(violation)
		b.logger.Warn("ignored host-bound message of outbound type", "type", string(msg.Type))
	}
	return nil
}

// dispatchInbound runs hub listeners for the event, then dispatches it
// into the bound store.
func (b *Bridge) dispatchInbound(storeKey string, event store.Event) {
	target := b.GetStore(storeKey)
	if target == nil {
		violation := bridgeErrors.NewProtocolViolation(bridgeErrors.OpDispatch,
			fmt.Errorf("event for unknown store key %q", storeKey)).
			WithMetadata("event_type", event.Type)
		b.reportError(violation)
		b.logger.Warn("ignored event for unknown store", "store", storeKey, "event_type", event.Type)
		return
	}

	b.runEventListeners(storeKey, event, target)

	start := time.Now()
	if err := target.Dispatch(event); err != nil {
		b.reportError(err)
		b.logger.Warn("surface event dispatch failed", "store", storeKey, "event_type", event.Type, "error", err)
		return
	}
	b.metrics.RecordDispatch(storeKey, time.Since(start))
}

// Close disposes every surface, detaches from every store, and closes the
// journal. The bridge accepts no further registrations afterwards.
func (b *Bridge) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	for _, conn := range b.surfaces {
		conn.disposed = true
		conn.readyListeners = nil
		conn.sentSnapshots = nil
	}
	bindings := b.stores
	b.stores = make(map[string]*storeBinding)
	b.surfaces = nil
	b.registrySubs = nil
	b.pendingReady = nil
	b.hub = nil
	b.mu.Unlock()

	for _, binding := range bindings {
		binding.unsubscribe()
	}

	if b.journal != nil {
		if err := b.journal.Close(); err != nil {
			return bridgeErrors.WrapOpComponent(err, bridgeErrors.OpClose, "bridge")
		}
	}
	return nil
}

func (b *Bridge) reportError(err error) {
	if b.errorHandler != nil {
		b.errorHandler(err)
	}
}

func (b *Bridge) journalRecord(direction journal.Direction, storeKey, messageType, raw string) {
	if b.journal == nil {
		return
	}
	entry := journal.NewEntry(direction, storeKey, messageType, raw)
	if err := b.journal.Record(context.Background(), entry); err != nil {
		b.logger.Warn("journal record failed", "error", err)
	}
}
