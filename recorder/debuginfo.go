package recorder

// DebugInfoTracker remembers which object files have already had a
// TEXT_AVMA record emitted for them, so the Recorder announces each
// object file's .text base exactly once (§4.13). The object file handle
// is whatever opaque, comparable identity the Instrumentation Host hands
// back from its debug-info enumeration (§6.1) — a path is sufficient for
// hosts that don't reload objects at a different address.
type DebugInfoTracker struct {
	seen map[string]bool
}

func NewDebugInfoTracker() *DebugInfoTracker {
	return &DebugInfoTracker{seen: make(map[string]bool)}
}

// Observe reports whether handle has not been seen before, marking it
// seen as a side effect.
func (d *DebugInfoTracker) Observe(handle string) bool {
	if d.seen[handle] {
		return false
	}
	d.seen[handle] = true
	return true
}
