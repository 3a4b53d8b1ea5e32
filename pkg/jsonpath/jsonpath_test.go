package jsonpath

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	v, err := Parse([]byte(`{"page":1,"data":[{"id":9007199254740993}]}`))
	require.NoError(t, err)

	id, ok := Get(v, "data.0.id")
	require.True(t, ok)
	assert.Equal(t, json.Number("9007199254740993"), id)
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse([]byte(`{"page":`))
	assert.Error(t, err)
}

func TestGet(t *testing.T) {
	doc, err := Parse([]byte(`{
		"meta": {"pagination": {"total": 42}},
		"items": [{"name": "a"}, {"name": "b"}],
		"empty": null
	}`))
	require.NoError(t, err)

	tests := []struct {
		name  string
		path  string
		want  any
		found bool
	}{
		{"nested object", "meta.pagination.total", json.Number("42"), true},
		{"array index", "items.1.name", "b", true},
		{"null value", "empty", nil, true},
		{"missing key", "meta.nope", nil, false},
		{"index out of range", "items.5", nil, false},
		{"non numeric index", "items.x", nil, false},
		{"through scalar", "meta.pagination.total.more", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Get(doc, tt.path)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGet_EmptyPathReturnsRoot(t *testing.T) {
	root := []any{"x"}
	got, ok := Get(root, "")
	assert.True(t, ok)
	assert.Equal(t, root, got)
}

func TestInt(t *testing.T) {
	doc, err := Parse([]byte(`{"a":10,"b":"25","c":2.0,"d":2.5,"e":"x","f":true}`))
	require.NoError(t, err)

	n, err := Int(doc, "a")
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	n, err = Int(doc, "b")
	require.NoError(t, err)
	assert.Equal(t, 25, n)

	n, err = Int(doc, "c")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for _, path := range []string{"d", "e", "f"} {
		_, err := Int(doc, path)
		assert.True(t, errors.Is(err, ErrNotNumber), "path %s: %v", path, err)
	}

	_, err = Int(doc, "missing")
	assert.Error(t, err)
}

func TestString(t *testing.T) {
	doc, err := Parse([]byte(`{"token":"abc","n":1}`))
	require.NoError(t, err)

	s, ok := String(doc, "token")
	assert.True(t, ok)
	assert.Equal(t, "abc", s)

	_, ok = String(doc, "n")
	assert.False(t, ok)
}
