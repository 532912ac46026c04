package recorder

import "github.com/bmerry/datagrind/codec"

// StackWalker is the one piece of the Instrumentation Host capability set
// (§6.1) the Recorder actually calls out to at run time: unwinding the
// guest call stack at a BBDef's entry. Everything else in §6.1 — IR
// rewriting, the code cache, malloc-replacement plumbing, the
// client-request channel — lives entirely on the host side and reaches
// the Recorder only as calls into the methods below; this module has no
// need to model it as Go types.
type StackWalker interface {
	// GetStackTrace returns up to maxFrames return-site PCs for tid,
	// leaf-first, with ipDelta already applied so the leaf equals the
	// block's own entry address.
	GetStackTrace(tid int, maxFrames int, ipDelta int) []codec.HWord
}

// StaticStackWalker is a StackWalker for callers (tests, or a host
// integration without real unwinding) that already have a full call
// stack in hand and just want it truncated to maxFrames.
type StaticStackWalker struct {
	Stack []codec.HWord
}

func (w StaticStackWalker) GetStackTrace(tid int, maxFrames int, ipDelta int) []codec.HWord {
	if len(w.Stack) <= maxFrames {
		return w.Stack
	}
	return w.Stack[:maxFrames]
}
