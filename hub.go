package bridgekit

import (
	"github.com/c0deZ3R0/go-bridge-kit/store"
)

// EventListener observes a surface-originated event before the target
// store's producer commits. Listeners are side-effect hooks: they cannot
// alter the event or veto the dispatch. A listener that starts
// asynchronous work is not awaited; the dispatch proceeds regardless.
type EventListener func(event store.Event, target *store.Store)

type hubEntry struct {
	storeKey  string
	eventType string
	fn        EventListener
	removed   bool
}

// AddEventListener registers a hook for events with the given type
// dispatched to the given store key. All matching listeners run
// synchronously, in registration order, before the state transition
// becomes observable. The returned function removes exactly this
// registration and is idempotent.
func (b *Bridge) AddEventListener(storeKey, eventType string, fn EventListener) func() {
	entry := &hubEntry{storeKey: storeKey, eventType: eventType, fn: fn}
	b.mu.Lock()
	b.hub = append(b.hub, entry)
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if entry.removed {
			return
		}
		entry.removed = true
		for i, candidate := range b.hub {
			if candidate == entry {
				b.hub = append(b.hub[:i], b.hub[i+1:]...)
				break
			}
		}
	}
}

func (b *Bridge) runEventListeners(storeKey string, event store.Event, target *store.Store) {
	b.mu.Lock()
	matching := make([]*hubEntry, 0)
	for _, entry := range b.hub {
		if entry.storeKey == storeKey && entry.eventType == event.Type {
			matching = append(matching, entry)
		}
	}
	b.mu.Unlock()

	for _, entry := range matching {
		b.mu.Lock()
		skip := entry.removed
		b.mu.Unlock()
		if !skip {
			entry.fn(event, target)
		}
	}
}
