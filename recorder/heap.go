package recorder

import "github.com/bmerry/datagrind/codec"

// blockMeta is the bookkeeping HeapTracker keeps per live heap block.
type blockMeta struct {
	size       codec.HWord
	actualSize codec.HWord
	allocStack []codec.HWord
}

// HeapTracker maps live guest-heap base addresses to their metadata. It
// is pure bookkeeping: Recorder drives it from malloc/calloc/memalign/
// free/realloc/usable-size hooks and emits MALLOC_BLOCK/FREE_BLOCK records
// from the values it returns.
type HeapTracker struct {
	blocks map[codec.HWord]blockMeta
}

func NewHeapTracker() *HeapTracker {
	return &HeapTracker{blocks: make(map[codec.HWord]blockMeta)}
}

// Add registers a newly allocated block, overwriting any stale entry at
// the same address (a base address may be reused after a prior free).
func (h *HeapTracker) Add(addr, size, actualSize codec.HWord, stack []codec.HWord) {
	h.blocks[addr] = blockMeta{size: size, actualSize: actualSize, allocStack: stack}
}

// Remove deletes addr's block, reporting whether one was present.
func (h *HeapTracker) Remove(addr codec.HWord) bool {
	if _, ok := h.blocks[addr]; !ok {
		return false
	}
	delete(h.blocks, addr)
	return true
}

// UsableSize reports the actual allocated size at addr, used by the
// Recorder to decide whether a realloc can be satisfied in place.
func (h *HeapTracker) UsableSize(addr codec.HWord) (codec.HWord, bool) {
	m, ok := h.blocks[addr]
	if !ok {
		return 0, false
	}
	return m.actualSize, true
}
