package wire

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bridgeErrors "github.com/c0deZ3R0/go-bridge-kit/errors"
	"github.com/c0deZ3R0/go-bridge-kit/patch"
	"github.com/c0deZ3R0/go-bridge-kit/store"
)

func TestEncodeDecode_StateInit(t *testing.T) {
	msg, err := StateInit("counter", map[string]interface{}{"value": float64(2), "note": "a\nb"})
	require.NoError(t, err)

	raw, err := Encode(msg)
	require.NoError(t, err)
	assert.NotContains(t, raw, "\n", "wire text must be newline-free")

	back, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, TypeStateInit, back.Type)
	assert.Equal(t, "counter", back.StoreKey)

	snapshot, err := back.DecodeData()
	require.NoError(t, err)
	assert.Equal(t, float64(2), snapshot.(map[string]interface{})["value"])
}

func TestEncodeDecode_StateUpdatePatch(t *testing.T) {
	ops := []patch.Op{{Kind: patch.OpReplace, Path: "/value", Value: float64(3)}}
	raw, err := Encode(StateUpdatePatch("counter", ops))
	require.NoError(t, err)

	back, err := Decode(raw)
	require.NoError(t, err)
	require.Len(t, back.Operations, 1)
	assert.Equal(t, patch.OpReplace, back.Operations[0].Kind)
	assert.Nil(t, back.Data)
}

func TestEncodeDecode_Event(t *testing.T) {
	raw, err := Encode(EventMessage("counter", store.NewEvent("INCREMENT", nil)))
	require.NoError(t, err)

	back, err := Decode(raw)
	require.NoError(t, err)
	require.NotNil(t, back.Event)
	assert.Equal(t, "INCREMENT", back.Event.Type)
}

func TestEncodeDecode_BridgeReady(t *testing.T) {
	raw, err := Encode(BridgeReady())
	require.NoError(t, err)

	back, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, TypeBridgeReady, back.Type)
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `{not json`},
		{"empty", ``},
		{"missing type", `{"storeKey":"counter"}`},
		{"unknown type", `{"type":"STATE_DESTROY","storeKey":"counter"}`},
		{"init without data", `{"type":"STATE_INIT","storeKey":"counter"}`},
		{"init without key", `{"type":"STATE_INIT","data":{}}`},
		{"init with null data", `{"type":"STATE_INIT","storeKey":"counter","data":null}`},
		{"update with both", `{"type":"STATE_UPDATE","storeKey":"c","data":{},"operations":[{"op":"remove","path":"/x"}]}`},
		{"update with neither", `{"type":"STATE_UPDATE","storeKey":"c"}`},
		{"update with empty operations", `{"type":"STATE_UPDATE","storeKey":"c","operations":[]}`},
		{"update with bad op", `{"type":"STATE_UPDATE","storeKey":"c","operations":[{"op":"move","path":"/x"}]}`},
		{"event without payload", `{"type":"EVENT","storeKey":"c"}`},
		{"event without discriminant", `{"type":"EVENT","storeKey":"c","event":{"value":1}}`},
		{"ready with key", `{"type":"BRIDGE_READY","storeKey":"c"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.raw)
			require.Error(t, err)
			assert.True(t, bridgeErrors.IsDecodeError(err), "expected DECODE_FAILURE, got %v", err)
		})
	}
}

func TestEncode_RejectsInvalidUnion(t *testing.T) {
	_, err := Encode(Message{Type: TypeStateUpdate, StoreKey: "c"})
	require.Error(t, err)
	assert.Equal(t, bridgeErrors.ErrCodeValidationFailure, bridgeErrors.GetCode(err))
}

func TestDecode_IgnoresUnknownMembers(t *testing.T) {
	// Forward compatibility: surfaces on newer protocol revisions may add
	// members; they are ignored, not fatal.
	raw := `{"type":"BRIDGE_READY","protocolRevision":2}`
	msg, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, TypeBridgeReady, msg.Type)
}

func TestEncode_CompactOutput(t *testing.T) {
	msg, err := StateInit("s", map[string]interface{}{"a": strings.Repeat("x", 10)})
	require.NoError(t, err)
	raw, err := Encode(msg)
	require.NoError(t, err)
	assert.Equal(t, `{"type":"STATE_INIT","storeKey":"s","data":{"a":"xxxxxxxxxx"}}`, raw)
}
