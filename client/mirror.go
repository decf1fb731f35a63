package client

import (
	stdSync "sync"

	"github.com/c0deZ3R0/go-bridge-kit/state"
	"github.com/c0deZ3R0/go-bridge-kit/store"
)

type mirrorSubscriber struct {
	fn      store.Listener
	removed bool
}

// Mirror is the local read-only reflection of one host store. It holds
// the last state the host pushed and nothing else; consistency with the
// host is asynchronous and eventual.
type Mirror struct {
	key    string
	bridge *Bridge

	mu          stdSync.Mutex
	snapshot    state.Value
	received    bool
	subscribers []*mirrorSubscriber
}

// Key returns the store key this mirror reflects.
func (m *Mirror) Key() string {
	return m.key
}

// GetSnapshot returns the last applied snapshot, or nil if no STATE_INIT
// has arrived for this key yet.
func (m *Mirror) GetSnapshot() state.Value {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot
}

// Subscribe registers a listener invoked with every snapshot applied from
// the host. The returned function unsubscribes and is idempotent.
func (m *Mirror) Subscribe(fn store.Listener) func() {
	sub := &mirrorSubscriber{fn: fn}
	m.mu.Lock()
	m.subscribers = append(m.subscribers, sub)
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if sub.removed {
			return
		}
		sub.removed = true
		for i, candidate := range m.subscribers {
			if candidate == sub {
				m.subscribers = append(m.subscribers[:i], m.subscribers[i+1:]...)
				break
			}
		}
	}
}

// Dispatch forwards an event to the host. The mirror does not change
// until the host pushes the resulting state back, if it changes at all.
func (m *Mirror) Dispatch(event store.Event) error {
	return m.bridge.dispatch(m.key, event)
}

func (m *Mirror) commit(snapshot state.Value) {
	m.mu.Lock()
	m.snapshot = snapshot
	m.received = true
	subs := make([]*mirrorSubscriber, len(m.subscribers))
	copy(subs, m.subscribers)
	m.mu.Unlock()

	for _, sub := range subs {
		m.mu.Lock()
		skip := sub.removed
		m.mu.Unlock()
		if !skip {
			sub.fn(snapshot)
		}
	}
}
