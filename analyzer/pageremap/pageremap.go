// Package pageremap builds the bijection between sparsely touched guest
// pages and a dense 4 KiB-slotted display coordinate space (§4.9).
package pageremap

import (
	"sort"

	"github.com/bmerry/datagrind/codec"
)

// PageSize is the guest page granularity the remap operates on.
const PageSize = 4096

func pageBase(addr codec.HWord) codec.HWord {
	return addr &^ (PageSize - 1)
}

// Map assigns each distinct page observed via Observe a unique, ascending
// dense slot once Build is called. It must not be queried before Build.
type Map struct {
	seen  map[codec.HWord]struct{}
	toIdx map[codec.HWord]codec.HWord
	pages []codec.HWord // sorted page bases, index i -> dense slot i
}

func New() *Map {
	return &Map{seen: make(map[codec.HWord]struct{})}
}

// Observe registers the page containing addr as touched. Must be called
// for every address that will later be queried via Dense, before Build.
func (m *Map) Observe(addr codec.HWord) {
	m.seen[pageBase(addr)] = struct{}{}
}

// Build finalizes the bijection: pages are assigned dense slots in
// ascending guest-address order. Safe to call multiple times; later calls
// re-sort in case more pages were Observed since the prior Build.
func (m *Map) Build() {
	pages := make([]codec.HWord, 0, len(m.seen))
	for p := range m.seen {
		pages = append(pages, p)
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i] < pages[j] })

	m.pages = pages
	m.toIdx = make(map[codec.HWord]codec.HWord, len(pages))
	for i, p := range pages {
		m.toIdx[p] = codec.HWord(i)
	}
}

// Dense maps a guest address to its dense coordinate. Returns false if the
// address's page was never Observed.
func (m *Map) Dense(addr codec.HWord) (codec.HWord, bool) {
	idx, ok := m.toIdx[pageBase(addr)]
	if !ok {
		return 0, false
	}
	offset := addr & (PageSize - 1)
	return idx*PageSize + offset, true
}

// Sparse is the inverse of Dense: given a dense coordinate, recovers the
// original guest address. Returns false if the dense coordinate falls
// beyond the last assigned page.
func (m *Map) Sparse(dense codec.HWord) (codec.HWord, bool) {
	idx := dense / PageSize
	if int(idx) >= len(m.pages) {
		return 0, false
	}
	offset := dense % PageSize
	return m.pages[idx] + offset, true
}

// NumPages returns the number of distinct pages assigned a dense slot.
func (m *Map) NumPages() int {
	return len(m.pages)
}
