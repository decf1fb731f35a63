package bridgekit

import (
	"context"
	"encoding/json"
	"fmt"
	stdSync "sync"

	bridgeErrors "github.com/c0deZ3R0/go-bridge-kit/errors"
	"github.com/c0deZ3R0/go-bridge-kit/journal"
	"github.com/c0deZ3R0/go-bridge-kit/patch"
	"github.com/c0deZ3R0/go-bridge-kit/state"
	"github.com/c0deZ3R0/go-bridge-kit/wire"
)

type readyListener struct {
	fn      func(ready bool)
	removed bool
}

// pendingReadySub holds a ready-state subscription taken out before its
// surface was registered. It is adopted by the connection at registration
// time; until then the surface is simply not ready.
type pendingReadySub struct {
	ref      Surface
	listener *readyListener
}

// surfaceConn tracks one registered surface: its readiness, its ready
// listeners, and the set of store keys it has received a STATE_INIT for.
// All fields are guarded by the bridge mutex.
type surfaceConn struct {
	ref            Surface
	ready          bool
	disposed       bool
	readyListeners []*readyListener
	sentSnapshots  map[string]bool
}

// findSurfaceLocked scans the connection list by identity. Surface values
// are equality-comparable but deliberately not used as map keys.
func (b *Bridge) findSurfaceLocked(ref Surface) *surfaceConn {
	for _, conn := range b.surfaces {
		if conn.ref == ref {
			return conn
		}
	}
	return nil
}

// RegisterSurface creates a pending connection entry for ref and returns
// its disposer. If ref implements the inbound-wiring hook (as
// transport.Channel does), received messages are routed into
// HandleIncomingMessage automatically. The disposer removes the entry and
// releases all its subscriptions; calling it twice is safe. Registering
// an already-registered surface returns a disposer for the existing
// entry.
func (b *Bridge) RegisterSurface(ref Surface) func() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return func() {}
	}
	if existing := b.findSurfaceLocked(ref); existing != nil {
		b.mu.Unlock()
		return func() { b.disposeSurface(existing) }
	}

	conn := &surfaceConn{
		ref:           ref,
		sentSnapshots: make(map[string]bool),
	}
	// Adopt ready-state subscriptions taken out before registration
	remaining := b.pendingReady[:0]
	for _, pending := range b.pendingReady {
		if pending.ref == ref {
			conn.readyListeners = append(conn.readyListeners, pending.listener)
		} else {
			remaining = append(remaining, pending)
		}
	}
	b.pendingReady = remaining
	b.surfaces = append(b.surfaces, conn)
	b.mu.Unlock()

	if wirer, ok := ref.(inboundWirer); ok {
		wirer.OnMessage(func(raw string) {
			_ = b.HandleIncomingMessage(ref, raw)
		})
	}

	return func() { b.disposeSurface(conn) }
}

// UnregisterSurface is equivalent to calling the disposer returned by
// RegisterSurface for ref. Unknown surfaces are a no-op.
func (b *Bridge) UnregisterSurface(ref Surface) {
	b.mu.Lock()
	conn := b.findSurfaceLocked(ref)
	b.mu.Unlock()
	if conn != nil {
		b.disposeSurface(conn)
	}
}

func (b *Bridge) disposeSurface(conn *surfaceConn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if conn.disposed {
		return
	}
	conn.disposed = true
	conn.readyListeners = nil
	conn.sentSnapshots = nil
	for i, candidate := range b.surfaces {
		if candidate == conn {
			b.surfaces = append(b.surfaces[:i], b.surfaces[i+1:]...)
			break
		}
	}
}

// GetReadyState reports whether ref has completed the readiness
// handshake. Unregistered surfaces are not ready. Never blocks.
func (b *Bridge) GetReadyState(ref Surface) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if conn := b.findSurfaceLocked(ref); conn != nil {
		return conn.ready
	}
	return false
}

// SubscribeToReadyState registers fn to be notified when ref's readiness
// transitions. Subscribing before the surface is registered is allowed:
// the surface counts as not ready and the subscription takes effect at
// registration. The returned function unsubscribes.
func (b *Bridge) SubscribeToReadyState(ref Surface, fn func(ready bool)) func() {
	listener := &readyListener{fn: fn}

	b.mu.Lock()
	conn := b.findSurfaceLocked(ref)
	if conn != nil {
		conn.readyListeners = append(conn.readyListeners, listener)
	} else {
		b.pendingReady = append(b.pendingReady, &pendingReadySub{ref: ref, listener: listener})
	}
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if listener.removed {
			return
		}
		listener.removed = true
		if conn := b.findSurfaceLocked(ref); conn != nil {
			for i, candidate := range conn.readyListeners {
				if candidate == listener {
					conn.readyListeners = append(conn.readyListeners[:i], conn.readyListeners[i+1:]...)
					break
				}
			}
			return
		}
		for i, pending := range b.pendingReady {
			if pending.listener == listener {
				b.pendingReady = append(b.pendingReady[:i], b.pendingReady[i+1:]...)
				break
			}
		}
	}
}

// WaitReady blocks until ref completes the readiness handshake or ctx is
// done. An already-ready surface returns immediately; registration may
// happen after the wait begins.
func (b *Bridge) WaitReady(ctx context.Context, ref Surface) error {
	readyCh := make(chan struct{})
	var once stdSync.Once
	unsubscribe := b.SubscribeToReadyState(ref, func(ready bool) {
		if ready {
			once.Do(func() { close(readyCh) })
		}
	})
	defer unsubscribe()

	if b.GetReadyState(ref) {
		return nil
	}
	select {
	case <-readyCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// markReady performs the Pending to Ready transition for ref. The
// transition happens at most once: a duplicate BRIDGE_READY is ignored.
// On transition the surface receives a STATE_INIT for every bound store
// (keys in sorted order), then the ready listeners fire.
func (b *Bridge) markReady(ref Surface) {
	b.mu.Lock()
	conn := b.findSurfaceLocked(ref)
	if conn == nil {
		b.mu.Unlock()
		violation := bridgeErrors.NewProtocolViolation(bridgeErrors.OpRegister,
			fmt.Errorf("BRIDGE_READY from unregistered surface"))
		b.reportError(violation)
		b.logger.Warn("ignored BRIDGE_READY from unregistered surface")
		return
	}
	if conn.ready {
		b.mu.Unlock()
		return
	}
	conn.ready = true

	keys := b.sortedStoreKeysLocked()
	listeners := make([]*readyListener, len(conn.readyListeners))
	copy(listeners, conn.readyListeners)
	b.mu.Unlock()

	// Flush one store at a time, re-reading the world before each send:
	// an inbound event arriving inside a Send can commit transitions and
	// fan them out before this loop reaches the next key. A key is only
	// skipped once its snapshot has actually been delivered.
	for _, key := range keys {
		b.mu.Lock()
		if conn.disposed {
			b.mu.Unlock()
			return
		}
		binding, ok := b.stores[key]
		if !ok || conn.sentSnapshots[key] {
			b.mu.Unlock()
			continue
		}
		snapshot := binding.store.GetSnapshot()
		b.mu.Unlock()
		b.sendStateInit(conn, key, snapshot)
	}
	for _, listener := range listeners {
		b.mu.Lock()
		skip := listener.removed
		b.mu.Unlock()
		if !skip {
			listener.fn(true)
		}
	}
}

func (b *Bridge) sendStateInit(conn *surfaceConn, key string, snapshot state.Value) {
	msg, err := wire.StateInit(key, snapshot)
	if err != nil {
		b.reportError(err)
		b.logger.Error("snapshot encode failed", "store", key, "error", err)
		return
	}
	raw, err := wire.Encode(msg)
	if err != nil {
		b.reportError(err)
		return
	}
	if b.sendRaw(conn, key, string(wire.TypeStateInit), raw) {
		b.markSnapshotSent(conn, key)
	}
}

// markSnapshotSent records that a surface holds a snapshot for key. Only
// called after a STATE_INIT was actually delivered: the first message a
// surface observes for any key must be its snapshot, so a failed or
// not-yet-completed send must leave the key eligible for a fresh init.
func (b *Bridge) markSnapshotSent(conn *surfaceConn, key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !conn.disposed {
		conn.sentSnapshots[key] = true
	}
}

// sendRaw delivers one encoded message to a surface, tolerating disposal
// that happened after the caller snapshotted the connection list. Reports
// whether the message was handed to the transport without error.
func (b *Bridge) sendRaw(conn *surfaceConn, key, messageType, raw string) bool {
	b.mu.Lock()
	disposed := conn.disposed
	b.mu.Unlock()
	if disposed {
		return false
	}

	if err := conn.ref.Send(raw); err != nil {
		sendErr := bridgeErrors.NewTransportError(bridgeErrors.OpSend, err).
			WithMetadata("store_key", key)
		b.reportError(sendErr)
		b.logger.Warn("surface send failed", "store", key, "type", messageType, "error", err)
		return false
	}
	b.metrics.RecordMessageSent(messageType, len(raw))
	b.journalRecord(journal.Outbound, key, messageType, raw)
	return true
}

// pushSnapshotToReady sends a fresh STATE_INIT for key to every ready
// surface. Used when a store is bound or replaced while surfaces are
// already connected.
func (b *Bridge) pushSnapshotToReady(key string, snapshot state.Value) {
	b.mu.Lock()
	targets := make([]*surfaceConn, 0, len(b.surfaces))
	for _, conn := range b.surfaces {
		if conn.ready && !conn.disposed {
			targets = append(targets, conn)
		}
	}
	b.mu.Unlock()

	for _, conn := range targets {
		b.sendStateInit(conn, key, snapshot)
	}
}

// broadcast fans one committed store transition out to every ready
// surface. Surfaces that already hold a snapshot for the key receive a
// patch when it is small enough, otherwise a fresh STATE_INIT; surfaces
// that joined later always receive the STATE_INIT. The connection list is
// snapshotted first, so a listener unregistering a surface mid-fan-out is
// tolerated.
func (b *Bridge) broadcast(key string, snapshot state.Value) {
	b.mu.Lock()
	binding, ok := b.stores[key]
	if !ok {
		b.mu.Unlock()
		return
	}
	prev := binding.last
	binding.last = snapshot
	targets := make([]*surfaceConn, 0, len(b.surfaces))
	for _, conn := range b.surfaces {
		if conn.ready && !conn.disposed {
			targets = append(targets, conn)
		}
	}
	b.mu.Unlock()

	b.metrics.RecordBroadcast(key, len(targets))
	if len(targets) == 0 {
		return
	}

	initMsg, err := wire.StateInit(key, snapshot)
	if err != nil {
		b.reportError(err)
		b.logger.Error("snapshot encode failed", "store", key, "error", err)
		return
	}
	initRaw, err := wire.Encode(initMsg)
	if err != nil {
		b.reportError(err)
		return
	}

	// The patch is computed once per transition and shared by every
	// surface it suits.
	ops := patch.Diff(prev, snapshot)
	patchRaw := ""
	patchFits := false
	if len(ops) > 0 {
		if raw, err := wire.Encode(wire.StateUpdatePatch(key, ops)); err == nil {
			patchRaw = raw
			limit := int(b.patchSizeRatio * float64(len(initMsg.Data)))
			if limit < b.patchSizeFloor {
				limit = b.patchSizeFloor
			}
			patchFits = opsSize(ops) <= limit
		} else {
			b.reportError(err)
		}
	}

	for _, conn := range targets {
		b.mu.Lock()
		disposed := conn.disposed
		needsInit := !disposed && !conn.sentSnapshots[key]
		b.mu.Unlock()
		if disposed {
			continue
		}

		switch {
		case needsInit:
			if b.sendRaw(conn, key, string(wire.TypeStateInit), initRaw) {
				b.markSnapshotSent(conn, key)
			}
		case len(ops) == 0:
			// Stale binding.last can make the diff empty; nothing to send.
		case patchFits:
			b.sendRaw(conn, key, string(wire.TypeStateUpdate), patchRaw)
		default:
			b.sendRaw(conn, key, string(wire.TypeStateInit), initRaw)
		}
	}
}

// opsSize is the encoded size of the operations payload, the quantity the
// size policy compares against the full snapshot encoding.
func opsSize(ops []patch.Op) int {
	data, err := json.Marshal(ops)
	if err != nil {
		return int(^uint(0) >> 1)
	}
	return len(data)
}
