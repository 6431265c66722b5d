package storage

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Change is one difference between two rendered exports.
type Change struct {
	Path string `json:"path"`
	Old  string `json:"old,omitempty"`
	New  string `json:"new,omitempty"`
}

// Diff lists the paths added, removed and changed between two exports.
type Diff struct {
	Added   []Change `json:"added,omitempty"`
	Removed []Change `json:"removed,omitempty"`
	Changed []Change `json:"changed,omitempty"`
}

// Empty reports whether the exports are equivalent.
func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// Compare diffs two JSON documents. Arrays of objects carrying a "name" key
// (warehouse column lists) are keyed by name, so reordering columns is not
// reported as a change.
func Compare(oldBody, newBody []byte) (Diff, error) {
	oldFlat, err := flattenJSON(oldBody)
	if err != nil {
		return Diff{}, fmt.Errorf("old snapshot: %w", err)
	}
	newFlat, err := flattenJSON(newBody)
	if err != nil {
		return Diff{}, fmt.Errorf("new snapshot: %w", err)
	}

	var d Diff
	for path, nv := range newFlat {
		ov, ok := oldFlat[path]
		switch {
		case !ok:
			d.Added = append(d.Added, Change{Path: path, New: nv})
		case ov != nv:
			d.Changed = append(d.Changed, Change{Path: path, Old: ov, New: nv})
		}
	}
	for path, ov := range oldFlat {
		if _, ok := newFlat[path]; !ok {
			d.Removed = append(d.Removed, Change{Path: path, Old: ov})
		}
	}
	for _, list := range [][]Change{d.Added, d.Removed, d.Changed} {
		sort.Slice(list, func(i, j int) bool { return list[i].Path < list[j].Path })
	}
	return d, nil
}

func flattenJSON(body []byte) (map[string]string, error) {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, err
	}
	out := make(map[string]string)
	flatten("", v, out)
	return out, nil
}

func flatten(path string, v any, out map[string]string) {
	switch t := v.(type) {
	case map[string]any:
		if len(t) == 0 {
			out[path] = "{}"
			return
		}
		for k, child := range t {
			flatten(join(path, k), child, out)
		}
	case []any:
		if len(t) == 0 {
			out[path] = "[]"
			return
		}
		for i, item := range t {
			if obj, ok := item.(map[string]any); ok {
				if name, ok := obj["name"].(string); ok {
					flattenNamed(join(path, name), obj, out)
					continue
				}
			}
			flatten(path+"["+strconv.Itoa(i)+"]", item, out)
		}
	default:
		b, _ := json.Marshal(t)
		out[path] = string(b)
	}
}

// flattenNamed flattens an array element whose name already forms the path.
func flattenNamed(path string, obj map[string]any, out map[string]string) {
	if len(obj) == 1 {
		out[path] = "{}"
		return
	}
	for k, child := range obj {
		if k != "name" {
			flatten(join(path, k), child, out)
		}
	}
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
