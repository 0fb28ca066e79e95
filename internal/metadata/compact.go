// Package metadata normalizes the opaque metadata documents held by drafts.
package metadata

import "strings"

// MetaKey holds editor bookkeeping that must never reach the catalog.
const MetaKey = "_meta"

// Compact returns a copy of doc with every blank leaf removed.
//
// Blank means nil, a whitespace-only string, an array whose elements are all
// blank, or an object whose values are all blank. Removal is applied bottom-up,
// so an object left empty after its children were removed disappears too.
// Booleans and numbers are never blank. The result is never nil.
func Compact(doc map[string]interface{}) map[string]interface{} {
	out, ok := compactValue(doc).(map[string]interface{})
	if !ok {
		return map[string]interface{}{}
	}
	return out
}

// compactValue returns the compacted value, or nil when v is blank.
func compactValue(v interface{}) interface{} {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		if strings.TrimSpace(t) == "" {
			return nil
		}
		return t
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, child := range t {
			if c := compactValue(child); c != nil {
				out[k] = c
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	case []interface{}:
		out := make([]interface{}, 0, len(t))
		for _, child := range t {
			if c := compactValue(child); c != nil {
				out = append(out, c)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	case []string:
		out := make([]interface{}, 0, len(t))
		for _, s := range t {
			if strings.TrimSpace(s) != "" {
				out = append(out, s)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	default:
		return v
	}
}

// Without returns a shallow copy of doc minus the given top-level keys.
func Without(doc map[string]interface{}, keys ...string) map[string]interface{} {
	out := make(map[string]interface{}, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	for _, k := range keys {
		delete(out, k)
	}
	return out
}
