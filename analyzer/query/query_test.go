package query_test

import (
	"testing"

	"github.com/bmerry/datagrind/analyzer/access"
	"github.com/bmerry/datagrind/analyzer/query"
	"github.com/bmerry/datagrind/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTwoAccessIndex(t *testing.T) *access.Index {
	t.Helper()
	idx := access.New(access.FilterOptions{})
	idx.BBDef(codec.BBDefBody{
		Instrs: []codec.BBDefInstrRec{{Addr: 0x1000, Size: 4}, {Addr: 0x1004, Size: 4}},
		Accesses: []codec.BBDefAccessRec{
			{Dir: codec.Read, Size: 4, ISeq: 0},
			{Dir: codec.Write, Size: 4, ISeq: 1},
		},
	})
	idx.Context(codec.ContextBody{BBDefIndex: 0, Stack: []codec.HWord{0x1000}})
	idx.BBRun(codec.BBRunBody{ContextIndex: 0, NInstrs: 2, Addrs: []codec.HWord{0x100, 0x108}})
	idx.FinishLoad()
	require.Equal(t, 2, idx.TotalKept())
	return idx
}

func TestNearestExactMatch(t *testing.T) {
	idx := buildTwoAccessIndex(t)
	a, ok := query.Nearest(idx, 0x108, 1, 1.0)
	require.True(t, ok)
	assert.Equal(t, codec.HWord(0x108), a.Addr)
}

func TestNearestGraceEmptiness(t *testing.T) {
	idx := access.New(access.FilterOptions{})
	_, ok := query.Nearest(idx, 0, 0, 1.0)
	assert.False(t, ok)
}

func TestNearestTieBreaksFirstSeen(t *testing.T) {
	idx := access.New(access.FilterOptions{})
	idx.BBDef(codec.BBDefBody{
		Instrs: []codec.BBDefInstrRec{{Addr: 0x1000, Size: 4}},
		Accesses: []codec.BBDefAccessRec{
			{Dir: codec.Read, Size: 4, ISeq: 0},
			{Dir: codec.Read, Size: 4, ISeq: 0},
		},
	})
	idx.Context(codec.ContextBody{BBDefIndex: 0, Stack: []codec.HWord{0x1000}})
	// both accesses at iseq=0 (same instruction issues two), different addrs.
	idx.BBRun(codec.BBRunBody{ContextIndex: 0, NInstrs: 1, Addrs: []codec.HWord{0x100, 0x108}})
	idx.FinishLoad()

	a, ok := query.Nearest(idx, 0x104, 0, 1.0)
	require.True(t, ok)
	assert.Equal(t, codec.HWord(0x100), a.Addr, "equidistant ties break to the first-seen access")
}

func TestNearestCorrectnessAgainstOracle(t *testing.T) {
	idx := access.New(access.FilterOptions{})
	var addrs []codec.HWord
	var accesses []codec.BBDefAccessRec
	var instrs []codec.BBDefInstrRec
	for i := 0; i < 20; i++ {
		instrs = append(instrs, codec.BBDefInstrRec{Addr: codec.HWord(0x1000 + i*4), Size: 4})
		accesses = append(accesses, codec.BBDefAccessRec{Dir: codec.Read, Size: 4, ISeq: uint8(i)})
		addrs = append(addrs, codec.HWord(0x1000+i*37))
	}
	idx.BBDef(codec.BBDefBody{Instrs: instrs, Accesses: accesses})
	idx.Context(codec.ContextBody{BBDefIndex: 0, Stack: []codec.HWord{0x1000}})
	idx.BBRun(codec.BBRunBody{ContextIndex: 0, NInstrs: 20, Addrs: addrs})
	idx.FinishLoad()

	const ratio = 0.5
	qAddr, qIseq := codec.HWord(0x1000+11*37+3), uint64(9)

	got, ok := query.Nearest(idx, qAddr, qIseq, ratio)
	require.True(t, ok)

	// O(N) oracle
	var want access.Access
	bestScore := -1.0
	idx.Walk(func(a access.Access) {
		dx := float64(int64(a.Addr)-int64(qAddr)) * ratio
		dy := float64(int64(a.ISeq) - int64(qIseq))
		d := dx*dx + dy*dy
		if bestScore < 0 || d < bestScore {
			bestScore, want = d, a
		}
	})
	assert.Equal(t, want.Addr, got.Addr)
	assert.Equal(t, want.ISeq, got.ISeq)
}
