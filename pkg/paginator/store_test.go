package paginator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResultStore_OrdersByPage(t *testing.T) {
	s := NewResultStore()
	s.Reserve(3)

	assert.True(t, s.Put(3, []any{"e"}))
	assert.True(t, s.Put(1, []any{"a", "b"}))
	assert.True(t, s.Put(2, []any{"c", "d"}))

	assert.Equal(t, []any{"a", "b", "c", "d", "e"}, s.Finalize())
	assert.Equal(t, 5, s.Len())
	assert.Equal(t, 3, s.PagesStored())
}

func TestResultStore_PutIsIdempotent(t *testing.T) {
	s := NewResultStore()
	s.Reserve(2)

	assert.True(t, s.Put(1, []any{"a"}))
	assert.False(t, s.Put(1, []any{"x", "y"}))

	assert.Equal(t, []any{"a"}, s.Finalize())
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 1, s.PagesStored())
}

func TestResultStore_OutOfRange(t *testing.T) {
	s := NewResultStore()
	s.Reserve(2)

	assert.False(t, s.Put(0, []any{"a"}))
	assert.False(t, s.Put(3, []any{"a"}))
	assert.Empty(t, s.Finalize())
}

func TestResultStore_ReserveDiscards(t *testing.T) {
	s := NewResultStore()
	s.Reserve(1)
	s.Put(1, []any{"a"})

	s.Reserve(-1)
	assert.Equal(t, 0, s.Len())
	assert.False(t, s.Put(1, []any{"b"}))
	assert.Empty(t, s.Finalize())
}

func TestResultStore_EmptyPages(t *testing.T) {
	s := NewResultStore()
	s.Reserve(3)
	s.Put(1, []any{"a"})
	s.Put(2, []any{})
	s.Put(3, nil)

	assert.Equal(t, []any{"a"}, s.Finalize())
	assert.Equal(t, 3, s.PagesStored())
}
