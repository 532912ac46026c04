package pageremap

import (
	"testing"

	"github.com/bmerry/datagrind/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDensePreservesIntraPageOffset(t *testing.T) {
	m := New()
	m.Observe(0x1000)
	m.Observe(0x1FFF)
	m.Build()

	a, ok := m.Dense(0x1000)
	require.True(t, ok)
	b, ok := m.Dense(0x1FFF)
	require.True(t, ok)
	assert.Equal(t, codec.HWord(0x1FFF-0x1000), b-a)
}

func TestDistinctPagesDisjointSlots(t *testing.T) {
	m := New()
	m.Observe(0x5000) // page 5
	m.Observe(0x1000)
	m.Build()

	a, _ := m.Dense(0x1000)
	b, _ := m.Dense(0x5000)
	assert.NotEqual(t, a/PageSize, b/PageSize)
	assert.Less(t, a, b, "ascending guest-address order")
	assert.Equal(t, codec.HWord(0), a)
	assert.Equal(t, codec.HWord(PageSize), b)
}

func TestDenseUnobservedPage(t *testing.T) {
	m := New()
	m.Observe(0x1000)
	m.Build()
	_, ok := m.Dense(0x9000)
	assert.False(t, ok)
}

func TestSparseIsInverse(t *testing.T) {
	m := New()
	m.Observe(0x1000)
	m.Observe(0x5000)
	m.Build()

	for _, addr := range []codec.HWord{0x1000, 0x1abc, 0x5fff} {
		d, ok := m.Dense(addr)
		require.True(t, ok)
		back, ok := m.Sparse(d)
		require.True(t, ok)
		assert.Equal(t, addr, back)
	}
}

func TestNumPages(t *testing.T) {
	m := New()
	m.Observe(0x1000)
	m.Observe(0x1800) // same page as above
	m.Observe(0x5000)
	m.Build()
	assert.Equal(t, 2, m.NumPages())
}
