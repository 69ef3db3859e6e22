// Package merge implements the partial-patch semantics shared by persona and
// strategy editing: scalar fields replace, nested record fields merge
// recursively, and list fields replace wholesale unless an index or
// delimiter-based sub-operation is used.
package merge

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Maps merges patch into dst recursively and returns the merged result.
// Neither input is mutated. A patch value that is itself an object merges
// into the corresponding dst object; every other value replaces.
func Maps(dst, patch map[string]any) map[string]any {
	out := make(map[string]any, len(dst)+len(patch))
	for k, v := range dst {
		out[k] = v
	}
	for k, v := range patch {
		pv, patchIsMap := v.(map[string]any)
		dv, dstIsMap := out[k].(map[string]any)
		if patchIsMap && dstIsMap {
			out[k] = Maps(dv, pv)
			continue
		}
		out[k] = v
	}
	return out
}

// Apply merges a patch into a typed entity through its JSON representation
// and returns the patched entity. Fields absent from the patch keep their
// current values, including sibling sub-fields of nested records.
func Apply[T any](entity T, patch map[string]any) (T, error) {
	var out T
	data, err := json.Marshal(entity)
	if err != nil {
		return out, fmt.Errorf("marshal entity: %w", err)
	}
	var current map[string]any
	if err := json.Unmarshal(data, &current); err != nil {
		return out, fmt.Errorf("entity is not an object: %w", err)
	}
	merged, err := json.Marshal(Maps(current, patch))
	if err != nil {
		return out, fmt.Errorf("marshal merged entity: %w", err)
	}
	if err := json.Unmarshal(merged, &out); err != nil {
		return out, fmt.Errorf("patch does not fit entity shape: %w", err)
	}
	return out, nil
}

// SetIndex returns a copy of list with the element at index i replaced.
// An out-of-range index leaves the list unchanged.
func SetIndex(list []string, i int, value string) []string {
	out := make([]string, len(list))
	copy(out, list)
	if i >= 0 && i < len(out) {
		out[i] = value
	}
	return out
}

// SplitList re-splits delimiter-joined text into an ordered list, trimming
// whitespace and discarding blank entries. Used for bulk re-entry of list
// fields such as goals or interests.
func SplitList(text, sep string) []string {
	parts := strings.Split(text, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// SplitLines is SplitList with a newline delimiter, the form used by the
// editing UI's multi-line text areas.
func SplitLines(text string) []string {
	return SplitList(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
}
