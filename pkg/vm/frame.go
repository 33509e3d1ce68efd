package vm

import "github.com/blocklang/blocklang/pkg/object"

// frame is one activation record: a linear array of local slots plus the
// program counter to resume at on Return. Grounded on the original
// implementation's LinearMemory (vm/mod.rs): Store grows the slot array as
// needed, an out-of-range Load yields the zero Ref (which reads back as
// Invalid), and there is no bound on the number of slots besides what the
// owning function's layout.Tracker assigned at compile time.
type frame struct {
	memory    []object.Ref
	returnPC  int
	hasReturn bool
}

func newFrame(returnPC int) *frame {
	return &frame{returnPC: returnPC, hasReturn: true}
}

func (f *frame) store(slot int, v object.Ref) {
	if slot >= len(f.memory) {
		grown := make([]object.Ref, slot+1)
		copy(grown, f.memory)
		f.memory = grown
	}
	f.memory[slot] = v
}

func (f *frame) load(slot int) object.Ref {
	if slot < 0 || slot >= len(f.memory) {
		return object.Ref{}
	}
	return f.memory[slot]
}
