package recorder

import "github.com/bmerry/datagrind/codec"

// maxInstrsPerBBDef is the split point: a BBDef's instrs vector is never
// allowed to exceed this, since BBDefAccess.ISeq is a single byte (§4.3).
const maxInstrsPerBBDef = 255

// BBDefBuilder collects the instruction marks and access marks the
// Instrumentation Host's IR walk delivers for one superblock, splitting
// into multiple BBDefs whenever the running block hits maxInstrsPerBBDef
// instructions. It is pure bookkeeping: no I/O happens here, Recorder
// drains Finish() and emits BBDEF records for the caller.
type BBDefBuilder struct {
	done    []codec.BBDefBody
	current codec.BBDefBody
}

func NewBBDefBuilder() *BBDefBuilder {
	return &BBDefBuilder{}
}

// InstrMark records one instruction's address and byte length. If the
// in-progress BBDef is already full, it is finalized first.
func (b *BBDefBuilder) InstrMark(addr codec.HWord, size uint8) {
	if len(b.current.Instrs) >= maxInstrsPerBBDef {
		b.finalizeCurrent()
	}
	b.current.Instrs = append(b.current.Instrs, codec.BBDefInstrRec{Addr: addr, Size: size})
}

// Access records one memory access issued by the most recently marked
// instruction in the in-progress BBDef.
func (b *BBDefBuilder) Access(dir codec.AccessDir, size uint8) {
	iseq := uint8(len(b.current.Instrs) - 1)
	b.current.Accesses = append(b.current.Accesses, codec.BBDefAccessRec{
		Dir:  dir,
		Size: size,
		ISeq: iseq,
	})
}

func (b *BBDefBuilder) finalizeCurrent() {
	if len(b.current.Instrs) > 0 {
		b.done = append(b.done, b.current)
		b.current = codec.BBDefBody{}
	}
}

// Finish finalizes any in-progress BBDef and returns every BBDef produced
// for this superblock, in program order.
func (b *BBDefBuilder) Finish() []codec.BBDefBody {
	b.finalizeCurrent()
	out := b.done
	b.done = nil
	return out
}
