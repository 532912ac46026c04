// Package recorder implements the Recorder half of datagrind: the
// BBDef/Context/BBRun compression scheme, the heap and debug-info
// trackers, and the record stream they emit. It assumes the
// single-writer, non-thread-safe contract of §5 — callers embedding it in
// an Instrumentation Host must serialize calls per guest thread.
package recorder

import (
	"encoding/binary"
	"io"

	"github.com/bmerry/datagrind/codec"
)

// Truncation caps applied to strings the Recorder itself emits (§6.3).
const (
	maxTypeLen  = 64
	maxLabelLen = 128
	maxFileLen  = 128
)

// SuperblockID groups the BBDefs produced by one Instrument call so they
// can be evicted together on a host discard notification (§4.3).
type SuperblockID uint64

type bbdefInfo struct {
	leaf     codec.HWord
	nInstrs  uint8
	nAccess  int
	superblk SuperblockID
}

// Recorder is the single-writer trace producer described in §4.3–§4.5 and
// §4.12. Exactly one Recorder is expected per traced process (§9).
type Recorder struct {
	order    binary.ByteOrder
	wordSize uint8
	out      *codec.OutputBuffer

	walker     StackWalker
	stackDepth int

	nextBBDefIndex uint64
	nextSuperblock uint64
	bbdefs         map[codec.BBDefIndex]bbdefInfo
	superblocks    map[SuperblockID][]codec.BBDefIndex

	contexts *ContextTable
	heap     *HeapTracker
	debug    *DebugInfoTracker

	// BBRun open/none state machine (§4.12).
	runOpen    bool
	runCtx     codec.ContextIndex
	runNInstrs uint8
	runAddrs   []codec.HWord
}

// New opens a Recorder writing to sink. wordSize must be 4 or 8.
func New(sink io.Writer, wordSize uint8, bigEndian bool, walker StackWalker, stackDepth int) (*Recorder, error) {
	if wordSize != 4 && wordSize != 8 {
		return nil, codec.NewContentError("unsupported word size")
	}
	order := binary.ByteOrder(binary.LittleEndian)
	if bigEndian {
		order = binary.BigEndian
	}
	if stackDepth <= 0 {
		stackDepth = 8
	}

	r := &Recorder{
		order:       order,
		wordSize:    wordSize,
		out:         codec.NewOutputBuffer(sink),
		walker:      walker,
		stackDepth:  stackDepth,
		bbdefs:      make(map[codec.BBDefIndex]bbdefInfo),
		superblocks: make(map[SuperblockID][]codec.BBDefIndex),
		contexts:    NewContextTable(),
		heap:        NewHeapTracker(),
		debug:       NewDebugInfoTracker(),
	}

	header := codec.Header{Version: codec.Version, BigEndian: bigEndian, WordSize: wordSize}
	w := codec.NewBodyWriter(order, wordSize)
	header.Marshal(w)
	if err := codec.WriteFrame(r.out, order, codec.RecordHeader, w.Bytes()); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Recorder) emit(tag codec.RecordType, marshal func(*codec.BodyWriter)) error {
	w := codec.NewBodyWriter(r.order, r.wordSize)
	marshal(w)
	return codec.WriteFrame(r.out, r.order, tag, w.Bytes())
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// Instrument finalizes every BBDef produced by sb, assigns each a global
// bbdef_index, emits its BBDEF record, and groups them under a new
// SuperblockID for later discard. Returns the indices in program order.
func (r *Recorder) Instrument(sb *BBDefBuilder) (SuperblockID, []codec.BBDefIndex, error) {
	bodies := sb.Finish()
	sbID := SuperblockID(r.nextSuperblock)
	r.nextSuperblock++

	indices := make([]codec.BBDefIndex, 0, len(bodies))
	for _, body := range bodies {
		idx := codec.BBDefIndex(r.nextBBDefIndex)
		r.nextBBDefIndex++

		if err := r.emit(codec.RecordBBDef, body.Marshal); err != nil {
			return sbID, nil, err
		}
		r.bbdefs[idx] = bbdefInfo{
			leaf:     body.Instrs[0].Addr,
			nInstrs:  uint8(len(body.Instrs)),
			nAccess:  len(body.Accesses),
			superblk: sbID,
		}
		indices = append(indices, idx)
	}
	r.superblocks[sbID] = indices
	return sbID, indices, nil
}

// DiscardSuperblock evicts the Recorder-side BBDef and context metadata
// for a superblock the host has discarded (§4.3). BBDef indices already
// written to the file remain valid.
func (r *Recorder) DiscardSuperblock(id SuperblockID) {
	for _, idx := range r.superblocks[id] {
		r.contexts.Discard(idx)
		delete(r.bbdefs, idx)
	}
	delete(r.superblocks, id)
}

// EnterBlock is the host callback placed at a BBDef's first instruction
// (§4.4 step 1-4). It flushes any open BBRun, captures and dedups the
// call stack, and opens a new BBRun.
func (r *Recorder) EnterBlock(bbdefIndex codec.BBDefIndex, tid int) error {
	if err := r.flushRun(); err != nil {
		return err
	}

	info, ok := r.bbdefs[bbdefIndex]
	if !ok {
		return codec.NewContentError("EnterBlock on unknown or discarded bbdef")
	}

	stack := r.walker.GetStackTrace(tid, r.stackDepth, 0)
	if len(stack) == 0 {
		stack = []codec.HWord{info.leaf}
	} else {
		// The host's ip_delta is expected to make the leaf equal the
		// block's own entry; enforce the invariant regardless.
		stack[0] = info.leaf
	}

	ctxID, found := r.contexts.Lookup(bbdefIndex, stack)
	if !found {
		ctxID = r.contexts.Assign(bbdefIndex, stack)
		body := codec.ContextBody{BBDefIndex: codec.HWord(bbdefIndex), Stack: stack}
		if err := r.emit(codec.RecordContext, body.Marshal); err != nil {
			return err
		}
	}

	r.runOpen = true
	r.runCtx = ctxID
	r.runNInstrs = info.nInstrs
	r.runAddrs = nil
	return nil
}

// RecordAccess appends an effective address to the currently open BBRun.
// Callers must not call this when a guard predicate evaluated false
// (§4.3): no entry is produced for a guarded-out access.
func (r *Recorder) RecordAccess(addr codec.HWord) {
	if r.runOpen {
		r.runAddrs = append(r.runAddrs, addr)
	}
}

// BranchExit updates the currently open BBRun's executed instruction
// count when a mid-block branch is taken (§4.3).
func (r *Recorder) BranchExit(nInstrs uint8) {
	if r.runOpen {
		r.runNInstrs = nInstrs
	}
}

func (r *Recorder) flushRun() error {
	if !r.runOpen {
		return nil
	}
	body := codec.BBRunBody{ContextIndex: codec.HWord(r.runCtx), NInstrs: r.runNInstrs, Addrs: r.runAddrs}
	r.runOpen = false
	r.runAddrs = nil
	return r.emit(codec.RecordBBRun, body.Marshal)
}

// MallocLike records a fresh heap allocation.
func (r *Recorder) MallocLike(addr, size, actualSize codec.HWord, stack []codec.HWord) error {
	r.heap.Add(addr, size, actualSize, stack)
	body := codec.MallocBlockBody{Addr: addr, Size: size, IPs: stack}
	return r.emit(codec.RecordMallocBlock, body.Marshal)
}

// CustomBlock records a user-annotated block from an explicit client
// request; actual_size equals size (§4.5).
func (r *Recorder) CustomBlock(addr, size codec.HWord, stack []codec.HWord) error {
	return r.MallocLike(addr, size, size, stack)
}

// FreeLike records a heap block's release. A free of an address with no
// tracked block is a silent no-op, matching a host that frees blocks the
// tracker never saw allocated (e.g. blocks allocated before tracing
// started).
func (r *Recorder) FreeLike(addr codec.HWord) error {
	if !r.heap.Remove(addr) {
		return nil
	}
	body := codec.FreeBlockBody{Addr: addr}
	return r.emit(codec.RecordFreeBlock, body.Marshal)
}

// UsableSize reports the previously recorded actual size of a live block.
func (r *Recorder) UsableSize(addr codec.HWord) (codec.HWord, bool) {
	return r.heap.UsableSize(addr)
}

// Realloc records a size change. Per §4.5/§9, the record stream always
// observes FREE_BLOCK(oldAddr) followed by MALLOC_BLOCK(newAddr, newSize)
// regardless of whether the host's allocator resized in place
// (newAddr == oldAddr) or moved the block; the allocation stack recorded
// is the realloc call's own stack, not the original malloc's.
func (r *Recorder) Realloc(oldAddr, newAddr, newSize, newActualSize codec.HWord, stack []codec.HWord) error {
	if err := r.FreeLike(oldAddr); err != nil {
		return err
	}
	return r.MallocLike(newAddr, newSize, newActualSize, stack)
}

// ObjectFileLoaded emits TEXT_AVMA the first time handle is observed
// (§4.13). Subsequent calls for the same handle are no-ops.
func (r *Recorder) ObjectFileLoaded(handle string, textAVMA codec.HWord, filename string) error {
	if !r.debug.Observe(handle) {
		return nil
	}
	body := codec.TextAVMABody{TextAVMA: textAVMA, Filename: truncate(filename, maxFileLen)}
	return r.emit(codec.RecordTextAVMA, body.Marshal)
}

// TrackRange emits a TRACK_RANGE record for a client-injected memory
// range annotation.
func (r *Recorder) TrackRange(addr, size codec.HWord, typ, label string) error {
	body := codec.TrackRangeBody{Addr: addr, Size: size, Type: truncate(typ, maxTypeLen), Label: truncate(label, maxLabelLen)}
	return r.emit(codec.RecordTrackRange, body.Marshal)
}

// UntrackRange emits an UNTRACK_RANGE record.
func (r *Recorder) UntrackRange(addr, size codec.HWord) error {
	body := codec.UntrackRangeBody{Addr: addr, Size: size}
	return r.emit(codec.RecordUntrackRange, body.Marshal)
}

// StartEvent emits a START_EVENT record.
func (r *Recorder) StartEvent(label string) error {
	body := codec.EventBody{Label: truncate(label, maxLabelLen)}
	return r.emit(codec.RecordStartEvent, body.Marshal)
}

// EndEvent emits an END_EVENT record.
func (r *Recorder) EndEvent(label string) error {
	body := codec.EventBody{Label: truncate(label, maxLabelLen)}
	return r.emit(codec.RecordEndEvent, body.Marshal)
}

// LegacyAccess emits an uncompressed READ/WRITE/INSTR record, for hosts
// that do not go through the BBDef/BBRun path (§4.1's "optional" legacy
// records).
func (r *Recorder) LegacyAccess(dir codec.AccessDir, size uint8, addr codec.HWord) error {
	var tag codec.RecordType
	switch dir {
	case codec.Read:
		tag = codec.RecordRead
	case codec.Write:
		tag = codec.RecordWrite
	default:
		tag = codec.RecordInstr
	}
	body := codec.LegacyAccessBody{Size: size, Addr: addr}
	return r.emit(tag, body.Marshal)
}

// Finalize flushes any open BBRun and every buffered byte to the sink.
// It must be called on every exit path, including error propagation
// (§9's "scoped acquisition").
func (r *Recorder) Finalize() error {
	if err := r.flushRun(); err != nil {
		return err
	}
	return r.out.Flush()
}
