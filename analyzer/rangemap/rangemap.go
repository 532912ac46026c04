// Package rangemap implements a non-overlapping, half-open interval map
// keyed by [start, end) over the Analyzer's HWord address space. It backs
// live MemBlock lookups (§4.8); active live ranges are not stored here.
package rangemap

import (
	"sort"

	"github.com/bmerry/datagrind/codec"
	"github.com/pkg/errors"
)

// ErrOverlap is returned by Insert when the new interval overlaps an
// existing one.
var ErrOverlap = errors.New("rangemap: overlapping interval")

// ErrInvalidRange is returned by Insert when start > end.
var ErrInvalidRange = errors.New("rangemap: start > end")

type entry struct {
	start, end codec.HWord
	value      interface{}
}

// Map is an ordered set of disjoint [start, end) intervals. The zero
// value is an empty map ready to use.
type Map struct {
	entries []entry // kept sorted by start
}

// Insert adds [start, end) with the given value. It fails if start > end
// or if the new interval overlaps any existing one.
func (m *Map) Insert(start, end codec.HWord, value interface{}) error {
	if start > end {
		return ErrInvalidRange
	}
	i := sort.Search(len(m.entries), func(i int) bool { return m.entries[i].start >= start })
	if i < len(m.entries) && m.entries[i].start < end {
		return ErrOverlap
	}
	if i > 0 && m.entries[i-1].end > start {
		return ErrOverlap
	}
	m.entries = append(m.entries, entry{})
	copy(m.entries[i+1:], m.entries[i:])
	m.entries[i] = entry{start: start, end: end, value: value}
	return nil
}

// Find returns the value of the interval containing addr, if any.
func (m *Map) Find(addr codec.HWord) (interface{}, bool) {
	i := sort.Search(len(m.entries), func(i int) bool { return m.entries[i].start > addr })
	if i == 0 {
		return nil, false
	}
	e := m.entries[i-1]
	if addr >= e.start && addr < e.end {
		return e.value, true
	}
	return nil, false
}

// Erase removes every interval whose start equals startAddr.
func (m *Map) Erase(startAddr codec.HWord) {
	out := m.entries[:0]
	for _, e := range m.entries {
		if e.start != startAddr {
			out = append(out, e)
		}
	}
	m.entries = out
}

// Walk visits every interval in ascending start order, stopping early if
// fn returns false.
func (m *Map) Walk(fn func(start, end codec.HWord, value interface{}) bool) {
	for _, e := range m.entries {
		if !fn(e.start, e.end, e.value) {
			return
		}
	}
}

// Len returns the number of intervals currently stored.
func (m *Map) Len() int {
	return len(m.entries)
}
