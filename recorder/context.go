package recorder

import (
	"strconv"
	"strings"

	"github.com/bmerry/datagrind/codec"
)

// ContextTable deduplicates call stacks observed at a BBDef's entry,
// assigning dense global context ids and reporting whether a CONTEXT
// record must be emitted for a newly seen (BBDef, stack) pair.
//
// Identity is (bbdef_index, exact stack): each BBDef owns its own private
// sub-table, matching §4.4's "looks up (BBDef, exact stack) in that
// BBDef's private context table".
type ContextTable struct {
	perBBDef map[codec.BBDefIndex]map[string]codec.ContextIndex
	next     uint64
}

func NewContextTable() *ContextTable {
	return &ContextTable{
		perBBDef: make(map[codec.BBDefIndex]map[string]codec.ContextIndex),
	}
}

func stackKey(stack []codec.HWord) string {
	var sb strings.Builder
	for i, pc := range stack {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatUint(uint64(pc), 16))
	}
	return sb.String()
}

// Lookup returns the context id for (bbdefIndex, stack) and whether it
// was already known. On a miss, the caller must call Assign to mint one
// before emitting a CONTEXT record.
func (c *ContextTable) Lookup(bbdefIndex codec.BBDefIndex, stack []codec.HWord) (codec.ContextIndex, bool) {
	sub, ok := c.perBBDef[bbdefIndex]
	if !ok {
		return 0, false
	}
	id, ok := sub[stackKey(stack)]
	return id, ok
}

// Assign mints the next global context id for (bbdefIndex, stack) and
// caches it for future Lookup calls.
func (c *ContextTable) Assign(bbdefIndex codec.BBDefIndex, stack []codec.HWord) codec.ContextIndex {
	sub, ok := c.perBBDef[bbdefIndex]
	if !ok {
		sub = make(map[string]codec.ContextIndex)
		c.perBBDef[bbdefIndex] = sub
	}
	id := codec.ContextIndex(c.next)
	c.next++
	sub[stackKey(stack)] = id
	return id
}

// Discard drops the private context table for a BBDef whose owning
// superblock was discarded by the host (§4.3). Already-emitted context
// ids remain valid in the file; only the Recorder-side lookup table is
// forgotten.
func (c *ContextTable) Discard(bbdefIndex codec.BBDefIndex) {
	delete(c.perBBDef, bbdefIndex)
}
