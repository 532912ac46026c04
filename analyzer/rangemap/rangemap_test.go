package rangemap

import (
	"testing"

	"github.com/bmerry/datagrind/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertFind(t *testing.T) {
	var m Map
	require.NoError(t, m.Insert(0x1000, 0x2000, "a"))
	v, ok := m.Find(0x1000)
	require.True(t, ok)
	assert.Equal(t, "a", v)

	v, ok = m.Find(0x1fff)
	require.True(t, ok)
	assert.Equal(t, "a", v)

	_, ok = m.Find(0x2000)
	assert.False(t, ok, "end is exclusive")
}

func TestInsertRejectsOverlap(t *testing.T) {
	var m Map
	require.NoError(t, m.Insert(0x1000, 0x2000, "a"))
	err := m.Insert(0x1800, 0x2800, "b")
	assert.ErrorIs(t, err, ErrOverlap)

	err = m.Insert(0x0800, 0x1800, "c")
	assert.ErrorIs(t, err, ErrOverlap)

	// adjacent, non-overlapping ranges are fine
	require.NoError(t, m.Insert(0x2000, 0x3000, "d"))
}

func TestInsertRejectsBackwardsRange(t *testing.T) {
	var m Map
	err := m.Insert(0x2000, 0x1000, "a")
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestEraseByStart(t *testing.T) {
	var m Map
	require.NoError(t, m.Insert(0x1000, 0x2000, "a"))
	m.Erase(0x1000)
	_, ok := m.Find(0x1000)
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len())
}

func TestWalkAscendingOrder(t *testing.T) {
	var m Map
	require.NoError(t, m.Insert(0x3000, 0x4000, "c"))
	require.NoError(t, m.Insert(0x1000, 0x2000, "a"))
	require.NoError(t, m.Insert(0x2000, 0x3000, "b"))

	var seen []string
	m.Walk(func(start, end codec.HWord, value interface{}) bool {
		seen = append(seen, value.(string))
		return true
	})
	assert.Equal(t, []string{"a", "b", "c"}, seen)
}

func TestWalkStopsEarly(t *testing.T) {
	var m Map
	require.NoError(t, m.Insert(0x1000, 0x2000, "a"))
	require.NoError(t, m.Insert(0x2000, 0x3000, "b"))

	var seen []string
	m.Walk(func(start, end codec.HWord, value interface{}) bool {
		seen = append(seen, value.(string))
		return false
	})
	assert.Equal(t, []string{"a"}, seen)
}
