package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bridgeErrors "github.com/c0deZ3R0/go-bridge-kit/errors"
	"github.com/c0deZ3R0/go-bridge-kit/patch"
	"github.com/c0deZ3R0/go-bridge-kit/state"
	"github.com/c0deZ3R0/go-bridge-kit/store"
	"github.com/c0deZ3R0/go-bridge-kit/transport/pipe"
	"github.com/c0deZ3R0/go-bridge-kit/wire"
)

func newClient(t *testing.T) (*Bridge, *pipe.Pipe, *[]error) {
	t.Helper()
	hostEnd, surfaceEnd := pipe.NewPair()

	var reported []error
	b, err := New(surfaceEnd, WithErrorHandler(func(e error) { reported = append(reported, e) }))
	require.NoError(t, err)
	return b, hostEnd, &reported
}

func push(t *testing.T, hostEnd *pipe.Pipe, msg wire.Message) {
	t.Helper()
	raw, err := wire.Encode(msg)
	require.NoError(t, err)
	require.NoError(t, hostEnd.Send(raw))
}

func TestIsSupported(t *testing.T) {
	assert.False(t, IsSupported(nil))
	_, end := pipe.NewPair()
	assert.True(t, IsSupported(end))
}

func TestNew_RequiresChannel(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestStart_SendsReadyOnce(t *testing.T) {
	hostEnd, surfaceEnd := pipe.NewPair()

	var received []string
	hostEnd.OnMessage(func(msg string) { received = append(received, msg) })

	b, err := New(surfaceEnd)
	require.NoError(t, err)
	require.NoError(t, b.Start())
	require.NoError(t, b.Start())

	require.Len(t, received, 1)
	msg, err := wire.Decode(received[0])
	require.NoError(t, err)
	assert.Equal(t, wire.TypeBridgeReady, msg.Type)
}

func TestMirror_NilUntilFirstSnapshot(t *testing.T) {
	b, hostEnd, _ := newClient(t)

	mirror := b.GetStore("counter")
	assert.Nil(t, mirror.GetSnapshot())
	assert.Equal(t, "counter", mirror.Key())

	init, err := wire.StateInit("counter", map[string]interface{}{"value": float64(2)})
	require.NoError(t, err)
	push(t, hostEnd, init)

	snapshot := mirror.GetSnapshot()
	require.NotNil(t, snapshot)
	assert.Equal(t, float64(2), snapshot.(map[string]interface{})["value"])
}

func TestMirror_AppliesPatches(t *testing.T) {
	b, hostEnd, _ := newClient(t)
	mirror := b.GetStore("counter")

	var seen []float64
	mirror.Subscribe(func(snapshot state.Value) {
		seen = append(seen, snapshot.(map[string]interface{})["value"].(float64))
	})

	init, err := wire.StateInit("counter", map[string]interface{}{"value": float64(0)})
	require.NoError(t, err)
	push(t, hostEnd, init)
	push(t, hostEnd, wire.StateUpdatePatch("counter",
		[]patch.Op{{Kind: patch.OpReplace, Path: "/value", Value: float64(1)}}))
	push(t, hostEnd, wire.StateUpdatePatch("counter",
		[]patch.Op{{Kind: patch.OpReplace, Path: "/value", Value: float64(2)}}))

	assert.Equal(t, []float64{0, 1, 2}, seen)
}

func TestMirror_ReplacementUpdate(t *testing.T) {
	b, hostEnd, _ := newClient(t)
	mirror := b.GetStore("counter")

	init, err := wire.StateInit("counter", map[string]interface{}{"value": float64(0)})
	require.NoError(t, err)
	push(t, hostEnd, init)

	replacement, err := wire.StateUpdateReplace("counter", map[string]interface{}{"value": float64(9)})
	require.NoError(t, err)
	push(t, hostEnd, replacement)

	assert.Equal(t, float64(9), mirror.GetSnapshot().(map[string]interface{})["value"])
}

func TestMirror_PatchBeforeSnapshotIgnored(t *testing.T) {
	b, hostEnd, reported := newClient(t)
	mirror := b.GetStore("counter")

	notified := 0
	mirror.Subscribe(func(state.Value) { notified++ })

	push(t, hostEnd, wire.StateUpdatePatch("counter",
		[]patch.Op{{Kind: patch.OpReplace, Path: "/value", Value: float64(1)}}))

	assert.Nil(t, mirror.GetSnapshot(), "state left unchanged")
	assert.Equal(t, 0, notified)
	require.Len(t, *reported, 1)
	assert.True(t, bridgeErrors.IsProtocolViolation((*reported)[0]))
}

func TestMirror_InapplicablePatchIgnored(t *testing.T) {
	b, hostEnd, reported := newClient(t)
	mirror := b.GetStore("counter")

	init, err := wire.StateInit("counter", map[string]interface{}{"value": float64(0)})
	require.NoError(t, err)
	push(t, hostEnd, init)
	push(t, hostEnd, wire.StateUpdatePatch("counter",
		[]patch.Op{{Kind: patch.OpReplace, Path: "/missing", Value: float64(1)}}))

	assert.Equal(t, float64(0), mirror.GetSnapshot().(map[string]interface{})["value"])
	require.Len(t, *reported, 1)
	assert.True(t, bridgeErrors.IsProtocolViolation((*reported)[0]))
}

func TestMirror_DispatchForwardsWithoutLocalMutation(t *testing.T) {
	hostEnd, surfaceEnd := pipe.NewPair()

	var received []string
	hostEnd.OnMessage(func(msg string) { received = append(received, msg) })

	b, err := New(surfaceEnd)
	require.NoError(t, err)
	mirror := b.GetStore("counter")

	init, e := wire.StateInit("counter", map[string]interface{}{"value": float64(1)})
	require.NoError(t, e)
	raw, e := wire.Encode(init)
	require.NoError(t, e)
	require.NoError(t, hostEnd.Send(raw))

	require.NoError(t, mirror.Dispatch(store.NewEvent("INCREMENT", nil)))

	assert.Equal(t, float64(1), mirror.GetSnapshot().(map[string]interface{})["value"],
		"dispatch must not change the mirror; only the echoed push does")
	require.Len(t, received, 1)
	msg, e := wire.Decode(received[0])
	require.NoError(t, e)
	assert.Equal(t, wire.TypeEvent, msg.Type)
	assert.Equal(t, "INCREMENT", msg.Event.Type)
}

func TestClient_MalformedAndWrongDirectionAbsorbed(t *testing.T) {
	b, hostEnd, reported := newClient(t)
	mirror := b.GetStore("counter")

	require.NoError(t, hostEnd.Send(`{not json`))
	push(t, hostEnd, wire.BridgeReady())

	assert.Nil(t, mirror.GetSnapshot())
	require.Len(t, *reported, 2)
	assert.True(t, bridgeErrors.IsDecodeError((*reported)[0]))
	assert.True(t, bridgeErrors.IsProtocolViolation((*reported)[1]))
}
