// Package flatten turns nested JSON records into single-level maps keyed by
// the path to each scalar ("address.city", "tags.0").
package flatten

import "strconv"

// DefaultSeparator joins path segments.
const DefaultSeparator = "."

// Record flattens v using sep between path segments. Objects contribute
// their keys, arrays their indexes. Empty objects and arrays produce no keys.
// A scalar at the root is stored under the empty key.
// Key collisions are not detected; the last write wins.
func Record(v any, sep string) map[string]any {
	out := make(map[string]any)
	walk(out, v, "", sep)
	return out
}

// Records flattens every element of records.
func Records(records []any, sep string) []any {
	flat := make([]any, len(records))
	for i, r := range records {
		flat[i] = Record(r, sep)
	}
	return flat
}

func walk(out map[string]any, v any, prefix, sep string) {
	switch node := v.(type) {
	case map[string]any:
		for k, child := range node {
			walk(out, child, join(prefix, k, sep), sep)
		}
	case []any:
		for i, child := range node {
			walk(out, child, join(prefix, strconv.Itoa(i), sep), sep)
		}
	default:
		out[prefix] = v
	}
}

func join(prefix, key, sep string) string {
	if prefix == "" {
		return key
	}
	return prefix + sep + key
}
