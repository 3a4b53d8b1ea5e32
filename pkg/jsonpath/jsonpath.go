// Package jsonpath parses JSON documents into generic values and looks up
// fields inside them by dotted path ("meta.pagination.total", "items.0.id").
//
// Numbers are decoded as json.Number so record values survive a
// parse/encode round trip without float64 precision loss.
package jsonpath

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

// API is the shared codec. It mirrors encoding/json but keeps numbers as json.Number.
var API = jsoniter.Config{
	EscapeHTML:             false,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
	UseNumber:              true,
}.Froze()

// ErrNotNumber is returned when a value cannot be interpreted as an integer.
var ErrNotNumber = errors.New("value is not an integer")

// Parse decodes data into a generic JSON value (map[string]any, []any,
// json.Number, string, bool or nil).
func Parse(data []byte) (any, error) {
	var v any
	if err := API.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	return v, nil
}

// Get returns the value at path. An empty path returns root itself.
// Numeric segments index into arrays.
func Get(root any, path string) (any, bool) {
	if path == "" {
		return root, true
	}

	cur := root
	for _, seg := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			cur = node[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}

// Int looks up path and converts the value to an int. Numeric strings are
// accepted since some APIs quote their pagination counters.
func Int(root any, path string) (int, error) {
	v, ok := Get(root, path)
	if !ok || v == nil {
		return 0, fmt.Errorf("field %q: not present", path)
	}
	n, err := ToInt(v)
	if err != nil {
		return 0, fmt.Errorf("field %q: %w", path, err)
	}
	return n, nil
}

// ToInt converts a decoded JSON scalar to an int.
func ToInt(v any) (int, error) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), nil
		}
		f, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrNotNumber, n)
		}
		return floatToInt(f)
	case float64:
		return floatToInt(n)
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrNotNumber, n)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("%w: %T", ErrNotNumber, v)
	}
}

func floatToInt(f float64) (int, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, fmt.Errorf("%w: %v", ErrNotNumber, f)
	}
	return int(f), nil
}

// String looks up path and returns it when it holds a string.
func String(root any, path string) (string, bool) {
	v, ok := Get(root, path)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
