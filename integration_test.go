package bridgekit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c0deZ3R0/go-bridge-kit/client"
	"github.com/c0deZ3R0/go-bridge-kit/state"
	"github.com/c0deZ3R0/go-bridge-kit/store"
	"github.com/c0deZ3R0/go-bridge-kit/transport/pipe"
)

func counterValue(t *testing.T, m *client.Mirror) float64 {
	t.Helper()
	snapshot := m.GetSnapshot()
	require.NotNil(t, snapshot)
	return snapshot.(map[string]interface{})["value"].(float64)
}

// Two in-process surfaces drive one host store over pipes; every dispatch
// from either side has to land on both mirrors.
func TestIntegration_TwoSurfacesOverPipes(t *testing.T) {
	host := New()
	defer host.Close()
	host.SetStore("counter", newCounterStore(t))

	hostEndA, surfaceEndA := pipe.NewPair()
	hostEndB, surfaceEndB := pipe.NewPair()
	host.RegisterSurface(hostEndA)
	host.RegisterSurface(hostEndB)

	clientA, err := client.New(surfaceEndA)
	require.NoError(t, err)
	clientB, err := client.New(surfaceEndB)
	require.NoError(t, err)

	mirrorA := clientA.GetStore("counter")
	mirrorB := clientB.GetStore("counter")

	require.NoError(t, clientA.Start())
	assert.True(t, host.GetReadyState(hostEndA))
	assert.Equal(t, float64(0), counterValue(t, mirrorA))
	assert.Nil(t, mirrorB.GetSnapshot(), "B has not announced readiness")

	require.NoError(t, clientB.Start())
	assert.Equal(t, float64(0), counterValue(t, mirrorB))

	require.NoError(t, mirrorA.Dispatch(store.NewEvent("INCREMENT", nil)))
	assert.Equal(t, float64(1), counterValue(t, mirrorA))
	assert.Equal(t, float64(1), counterValue(t, mirrorB))

	require.NoError(t, mirrorB.Dispatch(store.NewEvent("INCREMENT", nil)))
	require.NoError(t, mirrorB.Dispatch(store.NewEvent("DECREMENT", nil)))
	assert.Equal(t, float64(1), counterValue(t, mirrorA))
	assert.Equal(t, float64(1), counterValue(t, mirrorB))

	require.Equal(t, float64(1),
		host.GetStore("counter").GetSnapshot().(map[string]interface{})["value"])
}

// A store bound after a surface is already ready still reaches its mirror.
func TestIntegration_LateStoreBinding(t *testing.T) {
	host := New()
	defer host.Close()

	hostEnd, surfaceEnd := pipe.NewPair()
	host.RegisterSurface(hostEnd)

	c, err := client.New(surfaceEnd)
	require.NoError(t, err)
	require.NoError(t, c.Start())

	mirror := c.GetStore("settings")
	assert.Nil(t, mirror.GetSnapshot())

	settings, err := store.New("settings",
		map[string]interface{}{"theme": "dark"},
		func(draft state.Value, event store.Event) state.Value { return draft })
	require.NoError(t, err)
	host.SetStore("settings", settings)

	require.Equal(t, "dark", mirror.GetSnapshot().(map[string]interface{})["theme"])
}
