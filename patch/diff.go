package patch

import (
	"sort"
	"strconv"

	"github.com/c0deZ3R0/go-bridge-kit/state"
)

// Diff computes the ordered operation list transforming old into new.
// Emission follows a pre-order traversal with map keys visited in sorted
// order, so diffing the same transition twice yields byte-identical
// patches. Diff of structurally equal values is empty.
func Diff(old, new state.Value) []Op {
	return diffValue("", old, new, nil)
}

func diffValue(path string, old, new state.Value, ops []Op) []Op {
	oldMap, oldIsMap := old.(map[string]interface{})
	newMap, newIsMap := new.(map[string]interface{})
	if oldIsMap && newIsMap {
		return diffMap(path, oldMap, newMap, ops)
	}

	oldSlice, oldIsSlice := old.([]interface{})
	newSlice, newIsSlice := new.([]interface{})
	if oldIsSlice && newIsSlice {
		return diffSlice(path, oldSlice, newSlice, ops)
	}

	if !state.Equal(old, new) {
		ops = append(ops, Op{Kind: OpReplace, Path: path, Value: state.Clone(new)})
	}
	return ops
}

func diffMap(path string, old, new map[string]interface{}, ops []Op) []Op {
	keys := make([]string, 0, len(old)+len(new))
	seen := make(map[string]bool, len(old)+len(new))
	for k := range old {
		keys = append(keys, k)
		seen[k] = true
	}
	for k := range new {
		if !seen[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		oldChild, inOld := old[k]
		newChild, inNew := new[k]
		switch {
		case inOld && inNew:
			ops = diffValue(childPath(path, k), oldChild, newChild, ops)
		case inOld:
			ops = append(ops, Op{Kind: OpRemove, Path: childPath(path, k)})
		default:
			ops = append(ops, Op{Kind: OpAdd, Path: childPath(path, k), Value: state.Clone(newChild)})
		}
	}
	return ops
}

func diffSlice(path string, old, new []interface{}, ops []Op) []Op {
	common := len(old)
	if len(new) < common {
		common = len(new)
	}
	for i := 0; i < common; i++ {
		ops = diffValue(childPath(path, strconv.Itoa(i)), old[i], new[i], ops)
	}
	// Appends in ascending order
	for i := len(old); i < len(new); i++ {
		ops = append(ops, Op{Kind: OpAdd, Path: childPath(path, strconv.Itoa(i)), Value: state.Clone(new[i])})
	}
	// Tail removals in descending order so each index is valid when applied
	for i := len(old) - 1; i >= len(new); i-- {
		ops = append(ops, Op{Kind: OpRemove, Path: childPath(path, strconv.Itoa(i))})
	}
	return ops
}
