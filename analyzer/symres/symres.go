// Package symres implements the abstract SymbolResolver consumer
// described in §6.2: turning a code address into a human-readable label
// by locating the object file it falls within (via the TEXT_AVMA records
// observed during load) and deferring the actual line lookup to a
// pluggable backend.
package symres

import (
	"fmt"

	"github.com/bmerry/datagrind/codec"
)

// Backend performs the actual file/line lookup for one object file, given
// an address relative to its .text AVMA. Implementations wrap a real
// debug-info reader (DWARF, a sibling .debug file, etc.); this module
// ships no such backend, only the registry and the no-info fallback.
type Backend interface {
	// Lookup returns a function name and file:line for offset bytes into
	// this object's .text section. ok is false if nothing is known about
	// that offset.
	Lookup(offset codec.HWord) (function, file string, line int, ok bool)
}

type object struct {
	textAVMA codec.HWord
	filename string
	backend  Backend
}

// Resolver maps code addresses to labels using the object files announced
// via TEXT_AVMA during trace load. Register a Backend per object handle
// that can supply a function/file/line; objects with no registered
// backend still resolve to the bare hex address, per §6.2's "absence of
// info yields just the hex address".
type Resolver struct {
	objects map[string]*object
	// byAVMA is sorted by TextAVMA ascending; used to find which object
	// (if any) the queried address falls within, assuming nearest-below
	// semantics since object sizes are not recorded.
	byAVMA []*object
}

func New() *Resolver {
	return &Resolver{objects: make(map[string]*object)}
}

// ObjectLoaded registers an object file's .text AVMA, mirroring a
// TEXT_AVMA record observed by the parser. Call AttachBackend separately
// to supply symbol data for it.
func (r *Resolver) ObjectLoaded(handle string, textAVMA codec.HWord, filename string) {
	obj := &object{textAVMA: textAVMA, filename: filename}
	r.objects[handle] = obj
	r.insertSorted(obj)
}

func (r *Resolver) insertSorted(obj *object) {
	i := 0
	for i < len(r.byAVMA) && r.byAVMA[i].textAVMA < obj.textAVMA {
		i++
	}
	r.byAVMA = append(r.byAVMA, nil)
	copy(r.byAVMA[i+1:], r.byAVMA[i:])
	r.byAVMA[i] = obj
}

// AttachBackend supplies the symbol backend for a previously loaded
// object. A handle with no attached backend resolves to the hex address.
func (r *Resolver) AttachBackend(handle string, backend Backend) {
	if obj, ok := r.objects[handle]; ok {
		obj.backend = backend
	}
}

// Label formats addr as `0xADDR [in function] (filename[:line])`, falling
// back to the bare hex address when no object covers addr or no backend
// has symbol data for it.
func (r *Resolver) Label(addr codec.HWord) string {
	obj := r.objectFor(addr)
	if obj == nil || obj.backend == nil {
		return fmt.Sprintf("0x%x", uint64(addr))
	}
	offset := addr - obj.textAVMA
	fn, file, line, ok := obj.backend.Lookup(offset)
	if !ok {
		return fmt.Sprintf("0x%x", uint64(addr))
	}
	if file == "" {
		return fmt.Sprintf("0x%x in %s", uint64(addr), fn)
	}
	if line > 0 {
		return fmt.Sprintf("0x%x in %s (%s:%d)", uint64(addr), fn, file, line)
	}
	return fmt.Sprintf("0x%x in %s (%s)", uint64(addr), fn, file)
}

// objectFor returns the object with the greatest textAVMA <= addr, the
// best guess available without per-object size information.
func (r *Resolver) objectFor(addr codec.HWord) *object {
	var best *object
	for _, obj := range r.byAVMA {
		if obj.textAVMA > addr {
			break
		}
		best = obj
	}
	return best
}
