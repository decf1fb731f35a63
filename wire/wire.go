// Package wire defines the serialized message families exchanged between
// the host and its surfaces, and validates their shape at the decode
// boundary so malformed traffic never reaches business logic.
//
// Messages are newline-free UTF-8 JSON text. Host to surface: STATE_INIT
// and STATE_UPDATE. Surface to host: EVENT and BRIDGE_READY.
package wire

import (
	"encoding/json"
	"fmt"

	bridgeErrors "github.com/c0deZ3R0/go-bridge-kit/errors"
	"github.com/c0deZ3R0/go-bridge-kit/patch"
	"github.com/c0deZ3R0/go-bridge-kit/state"
	"github.com/c0deZ3R0/go-bridge-kit/store"
)

// Type discriminates the message families.
type Type string

const (
	TypeStateInit   Type = "STATE_INIT"
	TypeStateUpdate Type = "STATE_UPDATE"
	TypeEvent       Type = "EVENT"
	TypeBridgeReady Type = "BRIDGE_READY"
)

// Message is the typed union for both directions. Field presence depends
// on Type: STATE_INIT carries Data; STATE_UPDATE carries exactly one of
// Data (full replacement) or Operations (patch); EVENT carries Event;
// BRIDGE_READY carries nothing.
type Message struct {
	Type       Type            `json:"type"`
	StoreKey   string          `json:"storeKey,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
	Operations []patch.Op      `json:"operations,omitempty"`
	Event      *store.Event    `json:"event,omitempty"`
}

// DecodeData parses the Data payload into a canonical state value.
func (m *Message) DecodeData() (state.Value, error) {
	if m.Data == nil {
		return nil, fmt.Errorf("message has no data payload")
	}
	return state.Decode(m.Data)
}

// StateInit builds a full-snapshot message for a store.
func StateInit(storeKey string, snapshot state.Value) (Message, error) {
	data, err := state.Encode(snapshot)
	if err != nil {
		return Message{}, bridgeErrors.NewValidationError(bridgeErrors.OpEncode, err)
	}
	return Message{Type: TypeStateInit, StoreKey: storeKey, Data: data}, nil
}

// StateUpdatePatch builds a patch-carrying update message.
func StateUpdatePatch(storeKey string, ops []patch.Op) Message {
	return Message{Type: TypeStateUpdate, StoreKey: storeKey, Operations: ops}
}

// StateUpdateReplace builds an update message carrying a full replacement.
func StateUpdateReplace(storeKey string, snapshot state.Value) (Message, error) {
	data, err := state.Encode(snapshot)
	if err != nil {
		return Message{}, bridgeErrors.NewValidationError(bridgeErrors.OpEncode, err)
	}
	return Message{Type: TypeStateUpdate, StoreKey: storeKey, Data: data}, nil
}

// EventMessage builds a surface-to-host event message.
func EventMessage(storeKey string, event store.Event) Message {
	return Message{Type: TypeEvent, StoreKey: storeKey, Event: &event}
}

// BridgeReady builds the readiness handshake message.
func BridgeReady() Message {
	return Message{Type: TypeBridgeReady}
}

// Encode validates a message and renders it as newline-free JSON text.
func Encode(m Message) (string, error) {
	if err := validate(&m); err != nil {
		return "", bridgeErrors.NewValidationError(bridgeErrors.OpEncode, err)
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "", bridgeErrors.NewValidationError(bridgeErrors.OpEncode, err)
	}
	return string(data), nil
}

// Decode parses and validates raw message text. Failures return a
// DECODE_FAILURE BridgeError; the caller drops the message.
func Decode(raw string) (Message, error) {
	var probe struct {
		Type       *Type           `json:"type"`
		StoreKey   string          `json:"storeKey"`
		Data       json.RawMessage `json:"data"`
		Operations json.RawMessage `json:"operations"`
		Event      json.RawMessage `json:"event"`
	}
	if err := json.Unmarshal([]byte(raw), &probe); err != nil {
		return Message{}, bridgeErrors.NewDecodeError(bridgeErrors.OpDecode,
			fmt.Errorf("malformed message text: %w", err))
	}
	if probe.Type == nil {
		return Message{}, bridgeErrors.NewDecodeError(bridgeErrors.OpDecode,
			fmt.Errorf("message missing type field"))
	}

	m := Message{Type: *probe.Type, StoreKey: probe.StoreKey}
	if len(probe.Data) > 0 && string(probe.Data) != "null" {
		m.Data = probe.Data
	}
	if len(probe.Operations) > 0 && string(probe.Operations) != "null" {
		var ops []patch.Op
		if err := json.Unmarshal(probe.Operations, &ops); err != nil {
			return Message{}, bridgeErrors.NewDecodeError(bridgeErrors.OpDecode,
				fmt.Errorf("invalid operations payload: %w", err))
		}
		if ops == nil {
			ops = []patch.Op{}
		}
		m.Operations = ops
	}
	if len(probe.Event) > 0 && string(probe.Event) != "null" {
		var ev store.Event
		if err := json.Unmarshal(probe.Event, &ev); err != nil {
			return Message{}, bridgeErrors.NewDecodeError(bridgeErrors.OpDecode,
				fmt.Errorf("invalid event payload: %w", err))
		}
		m.Event = &ev
	}

	if err := validate(&m); err != nil {
		return Message{}, bridgeErrors.NewDecodeError(bridgeErrors.OpDecode, err)
	}
	return m, nil
}

func validate(m *Message) error {
	switch m.Type {
	case TypeStateInit:
		if m.StoreKey == "" {
			return fmt.Errorf("STATE_INIT missing storeKey")
		}
		if m.Data == nil {
			return fmt.Errorf("STATE_INIT missing data")
		}
		if m.Operations != nil || m.Event != nil {
			return fmt.Errorf("STATE_INIT carries unexpected fields")
		}
	case TypeStateUpdate:
		if m.StoreKey == "" {
			return fmt.Errorf("STATE_UPDATE missing storeKey")
		}
		hasData := m.Data != nil
		hasOps := m.Operations != nil
		if hasData == hasOps {
			return fmt.Errorf("STATE_UPDATE must carry exactly one of data and operations")
		}
		if hasOps && len(m.Operations) == 0 {
			return fmt.Errorf("STATE_UPDATE operations must not be empty")
		}
		if m.Event != nil {
			return fmt.Errorf("STATE_UPDATE carries unexpected event")
		}
	case TypeEvent:
		if m.StoreKey == "" {
			return fmt.Errorf("EVENT missing storeKey")
		}
		if m.Event == nil {
			return fmt.Errorf("EVENT missing event payload")
		}
		if m.Data != nil || m.Operations != nil {
			return fmt.Errorf("EVENT carries unexpected fields")
		}
	case TypeBridgeReady:
		if m.StoreKey != "" || m.Data != nil || m.Operations != nil || m.Event != nil {
			return fmt.Errorf("BRIDGE_READY carries unexpected fields")
		}
	default:
		return fmt.Errorf("unknown message type %q", m.Type)
	}
	return nil
}
