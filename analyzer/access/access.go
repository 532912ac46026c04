// Package access implements the Analyzer's in-memory AccessIndex: the
// BBDef/Context/BBRun tables, the heap and live-range shadows needed to
// filter and resolve accesses, and on-demand access-tuple reconstruction
// (§4.10). It implements parser.Handler directly, so a RecordParser can
// drive an Index straight from a trace stream.
package access

import (
	"github.com/bmerry/datagrind/analyzer/pageremap"
	"github.com/bmerry/datagrind/analyzer/pool"
	"github.com/bmerry/datagrind/analyzer/rangemap"
	"github.com/bmerry/datagrind/codec"
)

// MemBlock is a live (or formerly live) heap allocation as tracked by the
// Recorder's HeapTracker and mirrored here. Retained in blockStorage even
// after removal from the live-block RangeMap, so BBRuns recorded while
// the block was live keep a valid pointer (§3 Lifecycle).
type MemBlock struct {
	Addr       codec.HWord
	Size       codec.HWord
	AllocStack []codec.HWord
}

type liveRange struct {
	addr, size codec.HWord
	label      string
}

// Access is a fully materialised access record: everything needed to
// render, filter, or query one memory operation.
type Access struct {
	Addr  codec.HWord
	Dir   codec.AccessDir
	Size  uint8
	IAddr codec.HWord
	ISeq  uint64
	Block *MemBlock // nil if not covered by a live heap block
	Stack []codec.HWord
}

type bbrunEntry struct {
	contextIndex codec.ContextIndex
	nInstrs      uint8
	addrs        []codec.HWord // sentinel 0 = filtered out at load time
	blocks       []*MemBlock   // resolved in parallel with addrs
	iseqStart    uint64
	dseqStart    uint64
}

// FilterOptions selects which accesses Index retains at load time,
// mirroring the Analyzer CLI's --ranges/--events/--malloc-only (§6.4).
type FilterOptions struct {
	Ranges     []string // label selection; nil/empty means "no range filter"
	Events     []string // label selection; nil/empty means "no event filter"
	MallocOnly bool
}

// Index is the Analyzer's in-memory trace model. Build one with New and
// drive it with an analyzer/parser.RecordParser.
type Index struct {
	opts FilterOptions

	bbdefs   []codec.BBDefBody
	contexts []codec.ContextBody
	bbruns   []bbrunEntry

	addrArena  pool.Arena[codec.HWord]
	blockArena pool.Arena[*MemBlock]

	heap         rangemap.Map
	blockStorage []*MemBlock

	ranges []liveRange

	selectedRanges map[string]bool
	selectedEvents map[string]bool
	activeEvents   map[string]int

	nextIseq uint64
	nextDseq uint64

	totalKept int

	pages *pageremap.Map
}

// New returns an empty Index applying the given filter options.
func New(opts FilterOptions) *Index {
	idx := &Index{
		opts:           opts,
		selectedRanges: toSet(opts.Ranges),
		selectedEvents: toSet(opts.Events),
		activeEvents:   make(map[string]int),
		pages:          pageremap.New(),
	}
	return idx
}

func toSet(labels []string) map[string]bool {
	if len(labels) == 0 {
		return nil
	}
	m := make(map[string]bool, len(labels))
	for _, l := range labels {
		m[l] = true
	}
	return m
}

// Header implements parser.Handler. The Index does not need the header
// fields themselves; word-size/endian validation already happened in the
// RecordParser before this is called.
func (idx *Index) Header(codec.Header) error { return nil }

func (idx *Index) LegacyAccess(codec.RecordType, codec.LegacyAccessBody) error {
	// Legacy uncompressed records carry no context/bbdef linkage, so they
	// cannot be reconstructed into the same (block, stack) tuple as
	// BBDEF/BBRUN accesses; they are outside this index's reconstruction
	// model and are ignored here; a consumer needing them reads the
	// record stream directly instead of through the Index.
	return nil
}

func (idx *Index) TrackRange(b codec.TrackRangeBody) error {
	idx.ranges = append(idx.ranges, liveRange{addr: b.Addr, size: b.Size, label: b.Label})
	return nil
}

func (idx *Index) UntrackRange(b codec.UntrackRangeBody) error {
	for i, r := range idx.ranges {
		if r.addr == b.Addr && r.size == b.Size {
			idx.ranges = append(idx.ranges[:i], idx.ranges[i+1:]...)
			return nil
		}
	}
	return nil
}

func (idx *Index) StartEvent(b codec.EventBody) error {
	idx.activeEvents[b.Label]++
	return nil
}

func (idx *Index) EndEvent(b codec.EventBody) error {
	if idx.activeEvents[b.Label] > 0 {
		idx.activeEvents[b.Label]--
	}
	return nil
}

func (idx *Index) TextAVMA(codec.TextAVMABody) error { return nil }

func (idx *Index) BBDef(b codec.BBDefBody) error {
	idx.bbdefs = append(idx.bbdefs, b)
	return nil
}

func (idx *Index) Context(b codec.ContextBody) error {
	if int(b.BBDefIndex) >= len(idx.bbdefs) {
		return codec.NewContentError("CONTEXT references unknown bbdef_index")
	}
	idx.contexts = append(idx.contexts, b)
	return nil
}

func (idx *Index) MallocBlock(b codec.MallocBlockBody) error {
	block := &MemBlock{Addr: b.Addr, Size: b.Size, AllocStack: b.IPs}
	idx.blockStorage = append(idx.blockStorage, block)
	if err := idx.heap.Insert(b.Addr, b.Addr+b.Size, block); err != nil {
		// A live block already claims this range; the Recorder contract
		// guarantees FREE_BLOCK precedes a reused address, so treat this
		// as a stale entry and reclaim the range.
		idx.heap.Erase(b.Addr)
		_ = idx.heap.Insert(b.Addr, b.Addr+b.Size, block)
	}
	return nil
}

func (idx *Index) FreeBlock(b codec.FreeBlockBody) error {
	idx.heap.Erase(b.Addr)
	return nil
}

func (idx *Index) eventsPass() bool {
	if len(idx.selectedEvents) == 0 {
		return true
	}
	for label := range idx.selectedEvents {
		if idx.activeEvents[label] > 0 {
			return true
		}
	}
	return false
}

func (idx *Index) rangesPass(addr, size codec.HWord) bool {
	if len(idx.selectedRanges) == 0 {
		return true
	}
	end := addr + size
	for _, r := range idx.ranges {
		if !idx.selectedRanges[r.label] {
			continue
		}
		if addr < r.addr+r.size && r.addr < end {
			return true
		}
	}
	return false
}

func (idx *Index) findBlock(addr codec.HWord) *MemBlock {
	v, ok := idx.heap.Find(addr)
	if !ok {
		return nil
	}
	return v.(*MemBlock)
}

func (idx *Index) mallocOnlyPass(addr codec.HWord) bool {
	if !idx.opts.MallocOnly {
		return true
	}
	return idx.findBlock(addr) != nil
}

// BBRun implements parser.Handler: applies the filtering policy per
// access (§4.10) and retains the run only if at least one access survives.
func (idx *Index) BBRun(b codec.BBRunBody) error {
	if int(b.ContextIndex) >= len(idx.contexts) {
		return codec.NewContentError("BBRUN references unknown context_index")
	}
	ctx := idx.contexts[b.ContextIndex]
	bbd := idx.bbdefs[ctx.BBDefIndex]
	if len(b.Addrs) > len(bbd.Accesses) {
		return codec.NewContentError("BBRUN has more addrs than its BBDef has accesses")
	}
	if int(b.NInstrs) > len(bbd.Instrs) {
		return codec.NewContentError("BBRUN n_instrs exceeds its BBDef's instruction count")
	}

	addrs := idx.addrArena.Alloc(len(b.Addrs))
	blocks := idx.blockArena.Alloc(len(b.Addrs))
	kept := 0

	for j, addr := range b.Addrs {
		bbda := bbd.Accesses[j]
		size := codec.HWord(bbda.Size)

		ok := idx.eventsPass() && idx.rangesPass(addr, size) && idx.mallocOnlyPass(addr)
		if !ok {
			addrs[j] = 0
			blocks[j] = nil
			continue
		}
		addrs[j] = addr
		blocks[j] = idx.findBlock(addr)
		idx.pages.Observe(addr)
		kept++
	}

	// The counters advance for every BBRun, retained or not, so an
	// access's iseq does not depend on the filter options.
	iseqStart, dseqStart := idx.nextIseq, idx.nextDseq
	idx.nextIseq += uint64(b.NInstrs)
	idx.nextDseq += uint64(len(b.Addrs))

	if kept == 0 {
		return nil
	}

	idx.bbruns = append(idx.bbruns, bbrunEntry{
		contextIndex: codec.ContextIndex(b.ContextIndex),
		nInstrs:      b.NInstrs,
		addrs:        addrs,
		blocks:       blocks,
		iseqStart:    iseqStart,
		dseqStart:    dseqStart,
	})
	idx.totalKept += kept
	return nil
}

// FinishLoad must be called once after the driving RecordParser's Walk
// returns, to finalize the page remap over every kept access address.
func (idx *Index) FinishLoad() {
	idx.pages.Build()
}

// TotalKept returns the number of accesses retained after filtering,
// across every BBRun. Zero means "no accesses match the criteria" (§8
// end-to-end scenarios 1 and 3).
func (idx *Index) TotalKept() int {
	return idx.totalKept
}

// NumBBRuns returns the number of retained BBRuns, in iseq_start order.
func (idx *Index) NumBBRuns() int {
	return len(idx.bbruns)
}

// BBRunIseqStart returns bbrun i's cumulative instruction counter at entry,
// counting the instructions of every earlier BBRUN record, including
// runs dropped by the filter.
func (idx *Index) BBRunIseqStart(i int) uint64 {
	return idx.bbruns[i].iseqStart
}

// BBRunNumAddrs returns the number of access slots (including filtered
// sentinels) bbrun i carries.
func (idx *Index) BBRunNumAddrs(i int) int {
	return len(idx.bbruns[i].addrs)
}

// Access reconstructs the access at position j of bbrun i, per the
// formulas of §4.10. Returns false for a filtered-out (sentinel) slot.
func (idx *Index) Access(i, j int) (Access, bool) {
	run := idx.bbruns[i]
	if run.addrs[j] == 0 {
		return Access{}, false
	}
	ctx := idx.contexts[run.contextIndex]
	bbd := idx.bbdefs[ctx.BBDefIndex]
	bbda := bbd.Accesses[j]
	iaddr := bbd.Instrs[bbda.ISeq].Addr

	stack := make([]codec.HWord, 0, len(ctx.Stack))
	stack = append(stack, iaddr)
	if len(ctx.Stack) > 1 {
		stack = append(stack, ctx.Stack[1:]...)
	}

	return Access{
		Addr:  run.addrs[j],
		Dir:   bbda.Dir,
		Size:  bbda.Size,
		IAddr: iaddr,
		ISeq:  run.iseqStart + uint64(bbda.ISeq),
		Block: run.blocks[j],
		Stack: stack,
	}, true
}

// Pages returns the page remap built over every kept access address.
// Valid only after FinishLoad.
func (idx *Index) Pages() *pageremap.Map {
	return idx.pages
}

// Walk visits every retained, non-sentinel access in file order.
func (idx *Index) Walk(fn func(a Access)) {
	for i := range idx.bbruns {
		for j := range idx.bbruns[i].addrs {
			if a, ok := idx.Access(i, j); ok {
				fn(a)
			}
		}
	}
}
