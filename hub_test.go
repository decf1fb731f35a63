package bridgekit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c0deZ3R0/go-bridge-kit/store"
	"github.com/c0deZ3R0/go-bridge-kit/wire"
)

func TestHub_ListenersRunInRegistrationOrderBeforeCommit(t *testing.T) {
	b := New()
	st := newCounterStore(t)
	b.SetStore("counter", st)
	surface := &mockSurface{name: "a"}
	b.RegisterSurface(surface)

	var order []string
	b.AddEventListener("counter", "INCREMENT", func(event store.Event, target *store.Store) {
		order = append(order, "first")
		// Listeners observe the world before the producer commits
		assert.Equal(t, float64(0), target.GetSnapshot().(map[string]interface{})["value"])
	})
	b.AddEventListener("counter", "INCREMENT", func(event store.Event, target *store.Store) {
		order = append(order, "second")
	})

	sendEvent(t, b, surface, "counter", "INCREMENT")

	assert.Equal(t, []string{"first", "second"}, order)
	assert.Equal(t, float64(1), st.GetSnapshot().(map[string]interface{})["value"])
}

func TestHub_OnlyMatchingListenersFire(t *testing.T) {
	b := New()
	b.SetStore("counter", newCounterStore(t))
	other, err := store.New("other", map[string]interface{}{}, func(draft interface{}, ev store.Event) interface{} { return draft })
	require.NoError(t, err)
	b.SetStore("other", other)
	surface := &mockSurface{name: "a"}
	b.RegisterSurface(surface)

	fired := map[string]int{}
	b.AddEventListener("counter", "INCREMENT", func(store.Event, *store.Store) { fired["counter/INCREMENT"]++ })
	b.AddEventListener("counter", "DECREMENT", func(store.Event, *store.Store) { fired["counter/DECREMENT"]++ })
	b.AddEventListener("other", "INCREMENT", func(store.Event, *store.Store) { fired["other/INCREMENT"]++ })

	sendEvent(t, b, surface, "counter", "INCREMENT")

	assert.Equal(t, map[string]int{"counter/INCREMENT": 1}, fired)
}

func TestHub_UnsubscribeRemovesExactlyOneRegistration(t *testing.T) {
	b := New()
	b.SetStore("counter", newCounterStore(t))
	surface := &mockSurface{name: "a"}
	b.RegisterSurface(surface)

	calls := 0
	listener := func(store.Event, *store.Store) { calls++ }
	remove := b.AddEventListener("counter", "INCREMENT", listener)
	b.AddEventListener("counter", "INCREMENT", listener)

	remove()
	remove()
	sendEvent(t, b, surface, "counter", "INCREMENT")

	assert.Equal(t, 1, calls, "the sibling registration survives")
}

func TestHub_ListenerFiresEvenWhenProducerIgnoresEvent(t *testing.T) {
	b := New()
	st := newCounterStore(t)
	b.SetStore("counter", st)
	surface := &mockSurface{name: "a"}
	b.RegisterSurface(surface)

	fired := 0
	b.AddEventListener("counter", "UNKNOWN", func(store.Event, *store.Store) { fired++ })

	sendEvent(t, b, surface, "counter", "UNKNOWN")

	assert.Equal(t, 1, fired, "hub hooks are independent of the reducer outcome")
	assert.Equal(t, float64(0), st.GetSnapshot().(map[string]interface{})["value"])
}

func TestHub_ListenerSeesEventPayload(t *testing.T) {
	setProducer := func(draft interface{}, event store.Event) interface{} {
		m := draft.(map[string]interface{})
		if event.Type == "SET" {
			m["value"] = event.Payload["value"]
		}
		return m
	}
	st, err := store.New("counter", map[string]interface{}{"value": 0}, setProducer)
	require.NoError(t, err)

	b := New()
	b.SetStore("counter", st)
	surface := &mockSurface{name: "a"}
	b.RegisterSurface(surface)

	var seen interface{}
	b.AddEventListener("counter", "SET", func(event store.Event, _ *store.Store) {
		seen, _ = event.Field("value")
	})

	raw, err := wire.Encode(wire.EventMessage("counter", store.NewEvent("SET", map[string]interface{}{"value": float64(42)})))
	require.NoError(t, err)
	require.NoError(t, b.HandleIncomingMessage(surface, raw))

	assert.Equal(t, float64(42), seen)
}
