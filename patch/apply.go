package patch

import (
	"fmt"
	"strconv"

	"github.com/c0deZ3R0/go-bridge-kit/state"
)

// Apply transforms a canonical value by the given operation list and
// returns the result. The input value is never mutated. Apply is the
// exact left inverse of Diff: Apply(s1, Diff(s1, s2)) equals s2 for any
// pair of canonical values.
func Apply(v state.Value, ops []Op) (state.Value, error) {
	out := state.Clone(v)
	for i, op := range ops {
		tokens, err := splitPath(op.Path)
		if err != nil {
			return nil, fmt.Errorf("op %d: %w", i, err)
		}
		out, err = applyOp(out, tokens, op)
		if err != nil {
			return nil, fmt.Errorf("op %d (%s %s): %w", i, op.Kind, op.Path, err)
		}
	}
	return out, nil
}

func applyOp(node state.Value, tokens []string, op Op) (state.Value, error) {
	if len(tokens) == 0 {
		switch op.Kind {
		case OpAdd, OpReplace:
			return state.Clone(op.Value), nil
		default:
			return nil, fmt.Errorf("cannot remove document root")
		}
	}

	head, rest := tokens[0], tokens[1:]
	switch parent := node.(type) {
	case map[string]interface{}:
		if len(rest) == 0 {
			return applyMapLeaf(parent, head, op)
		}
		child, ok := parent[head]
		if !ok {
			return nil, fmt.Errorf("path not found at %q", head)
		}
		newChild, err := applyOp(child, rest, op)
		if err != nil {
			return nil, err
		}
		parent[head] = newChild
		return parent, nil

	case []interface{}:
		idx, err := strconv.Atoi(head)
		if err != nil || idx < 0 {
			return nil, fmt.Errorf("invalid array index %q", head)
		}
		if len(rest) == 0 {
			return applySliceLeaf(parent, idx, op)
		}
		if idx >= len(parent) {
			return nil, fmt.Errorf("array index %d out of range", idx)
		}
		newChild, err := applyOp(parent[idx], rest, op)
		if err != nil {
			return nil, err
		}
		parent[idx] = newChild
		return parent, nil

	default:
		return nil, fmt.Errorf("path traverses non-container at %q", head)
	}
}

func applyMapLeaf(parent map[string]interface{}, key string, op Op) (state.Value, error) {
	_, exists := parent[key]
	switch op.Kind {
	case OpAdd:
		if exists {
			return nil, fmt.Errorf("add to existing key %q", key)
		}
		parent[key] = state.Clone(op.Value)
	case OpReplace:
		if !exists {
			return nil, fmt.Errorf("replace of missing key %q", key)
		}
		parent[key] = state.Clone(op.Value)
	case OpRemove:
		if !exists {
			return nil, fmt.Errorf("remove of missing key %q", key)
		}
		delete(parent, key)
	}
	return parent, nil
}

func applySliceLeaf(parent []interface{}, idx int, op Op) (state.Value, error) {
	switch op.Kind {
	case OpAdd:
		if idx > len(parent) {
			return nil, fmt.Errorf("add index %d out of range", idx)
		}
		out := make([]interface{}, 0, len(parent)+1)
		out = append(out, parent[:idx]...)
		out = append(out, state.Clone(op.Value))
		out = append(out, parent[idx:]...)
		return out, nil
	case OpReplace:
		if idx >= len(parent) {
			return nil, fmt.Errorf("replace index %d out of range", idx)
		}
		parent[idx] = state.Clone(op.Value)
		return parent, nil
	default:
		if idx >= len(parent) {
			return nil, fmt.Errorf("remove index %d out of range", idx)
		}
		out := make([]interface{}, 0, len(parent)-1)
		out = append(out, parent[:idx]...)
		out = append(out, parent[idx+1:]...)
		return out, nil
	}
}
