// Package patch computes and applies structural diffs between canonical
// state values. A patch is an ordered list of add/remove/replace operations
// addressed by JSON Pointer paths; applying the patch to the old value
// reconstructs the new one exactly.
package patch

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/c0deZ3R0/go-bridge-kit/state"
)

// OpKind identifies a structural operation.
type OpKind string

const (
	OpAdd     OpKind = "add"
	OpRemove  OpKind = "remove"
	OpReplace OpKind = "replace"
)

// Op is a single structural operation. Path is a JSON Pointer into the
// state tree; Value carries the new subtree for add and replace.
type Op struct {
	Kind  OpKind
	Path  string
	Value state.Value
}

// Wire shapes for Op. Remove carries no value field; add and replace
// always carry one, including an explicit null.
type opWithValue struct {
	Op    OpKind      `json:"op"`
	Path  string      `json:"path"`
	Value state.Value `json:"value"`
}

type opWithoutValue struct {
	Op   OpKind `json:"op"`
	Path string `json:"path"`
}

func (o Op) MarshalJSON() ([]byte, error) {
	if o.Kind == OpRemove {
		return json.Marshal(opWithoutValue{Op: o.Kind, Path: o.Path})
	}
	return json.Marshal(opWithValue{Op: o.Kind, Path: o.Path, Value: o.Value})
}

func (o *Op) UnmarshalJSON(data []byte) error {
	var raw struct {
		Op    OpKind          `json:"op"`
		Path  *string         `json:"path"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.Op {
	case OpAdd, OpRemove, OpReplace:
	default:
		return fmt.Errorf("unknown patch op %q", raw.Op)
	}
	if raw.Path == nil {
		return fmt.Errorf("patch op %q missing path", raw.Op)
	}
	o.Kind = raw.Op
	o.Path = *raw.Path
	o.Value = nil
	if raw.Op != OpRemove {
		if raw.Value == nil {
			return fmt.Errorf("patch op %q at %q missing value", raw.Op, *raw.Path)
		}
		var v state.Value
		if err := json.Unmarshal(raw.Value, &v); err != nil {
			return err
		}
		o.Value = v
	}
	return nil
}

// escapeToken escapes a path segment per JSON Pointer rules.
func escapeToken(token string) string {
	token = strings.ReplaceAll(token, "~", "~0")
	return strings.ReplaceAll(token, "/", "~1")
}

func unescapeToken(token string) string {
	token = strings.ReplaceAll(token, "~1", "/")
	return strings.ReplaceAll(token, "~0", "~")
}

func childPath(parent, token string) string {
	return parent + "/" + escapeToken(token)
}

// splitPath breaks a JSON Pointer into unescaped tokens. The empty pointer
// addresses the document root and yields no tokens.
func splitPath(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	if !strings.HasPrefix(path, "/") {
		return nil, fmt.Errorf("invalid patch path %q", path)
	}
	parts := strings.Split(path[1:], "/")
	tokens := make([]string, len(parts))
	for i, part := range parts {
		tokens[i] = unescapeToken(part)
	}
	return tokens, nil
}
