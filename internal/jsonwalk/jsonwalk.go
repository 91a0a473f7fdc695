// Package jsonwalk provides a schema-agnostic walk over decoded JSON trees.
// It exists because embedded data blobs (e.g. a Next.js __NEXT_DATA__ script)
// have no contractually stable shape, so record-like objects must be hunted
// for rather than addressed by path.
package jsonwalk

import (
	"iter"
	"sort"
)

// Maps yields every map node in root, depth first, the root map first. The
// sequence is lazy: traversal stops as soon as the consumer breaks. Child
// keys are visited in sorted order so traversal is deterministic.
func Maps(root any) iter.Seq[map[string]any] {
	return func(yield func(map[string]any) bool) {
		walk(root, yield)
	}
}

func walk(node any, yield func(map[string]any) bool) bool {
	switch v := node.(type) {
	case map[string]any:
		if !yield(v) {
			return false
		}
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if !walk(v[k], yield) {
				return false
			}
		}
	case []any:
		for _, child := range v {
			if !walk(child, yield) {
				return false
			}
		}
	}
	return true
}
