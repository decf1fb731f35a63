// Package state defines the canonical structural form for store state.
//
// A state value is a tree of string-keyed maps, slices, and JSON primitives
// (string, float64, bool, nil). Every value a store commits or ships over
// the wire is normalized into this form first, so structural comparison and
// diffing can be defined once rather than per shape.
package state

import (
	"encoding/json"
	"fmt"
)

// Value is a canonical structural value: map[string]interface{},
// []interface{}, string, float64, bool, or nil.
type Value = interface{}

// Normalize converts an arbitrary serializable value into canonical form
// by round-tripping it through JSON. Values that cannot be serialized
// (functions, channels, cycles) produce an error.
func Normalize(v interface{}) (Value, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("state is not serializable: %w", err)
	}
	var out Value
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("state round-trip failed: %w", err)
	}
	return out, nil
}

// Clone returns a deep copy of a canonical value. The input must already
// be in canonical form; unknown node types are returned as-is.
func Clone(v Value) Value {
	switch node := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(node))
		for k, child := range node {
			out[k] = Clone(child)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(node))
		for i, child := range node {
			out[i] = Clone(child)
		}
		return out
	default:
		// Primitives are immutable
		return v
	}
}

// Equal reports whether two canonical values are structurally identical.
func Equal(a, b Value) bool {
	switch an := a.(type) {
	case map[string]interface{}:
		bn, ok := b.(map[string]interface{})
		if !ok || len(an) != len(bn) {
			return false
		}
		for k, av := range an {
			bv, ok := bn[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	case []interface{}:
		bn, ok := b.([]interface{})
		if !ok || len(an) != len(bn) {
			return false
		}
		for i, av := range an {
			if !Equal(av, bn[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

// Encode renders a canonical value as compact JSON. Map keys are emitted
// in sorted order by encoding/json, so identical values encode to
// identical bytes.
func Encode(v Value) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("state encode failed: %w", err)
	}
	return data, nil
}

// Decode parses compact JSON into a canonical value.
func Decode(data []byte) (Value, error) {
	var out Value
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("state decode failed: %w", err)
	}
	return out, nil
}
