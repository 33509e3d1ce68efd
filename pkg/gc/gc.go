// Package gc implements the tracing mark-sweep collector that owns every
// heap-allocated object.Value in the interpreter.
//
// The design is an intrusive singly-linked all-objects list identical in
// shape to the collector the language's original Rust implementation used
// (object/gc.rs): each Object carries a mark bit and a next pointer, the
// collector walks the whole chain on sweep, and collection is triggered by
// an allocation count threshold rather than by a timer or allocation size.
// There is no moving or copying step - object identity (and therefore
// in-place Instance mutation visible through every other reference to the
// same object) is preserved across a collection.
package gc

import "github.com/blocklang/blocklang/pkg/object"

// RootsFunc returns every object.Ref directly reachable from the VM's live
// state - the operand stack, every frame's locals, and the globals table -
// at the moment a collection is requested. The collector calls it exactly
// once per collection and treats its result as the mark phase's seed set.
type RootsFunc func() []object.Ref

// GC is a mark-sweep collector over a singly-linked chain of heap objects.
type GC struct {
	head, tail *object.Object
	numObjects int
	maxObjects int

	// Collections counts completed collect passes, for diagnostics and tests.
	Collections int
}

// New returns a collector that triggers a collection when an allocation
// finds numObjects already at maxObjects. A non-positive maxObjects is
// treated as 1.
func New(maxObjects int) *GC {
	if maxObjects <= 0 {
		maxObjects = 1
	}
	return &GC{maxObjects: maxObjects}
}

// Alloc boxes v as a new heap object, running a collection first if the
// object count has reached the threshold, and links the result onto the
// chain. roots is consulted only if a collection is triggered.
func (g *GC) Alloc(v object.Value, roots RootsFunc) object.Ref {
	if g.numObjects >= g.maxObjects {
		g.Collect(roots)
	}

	o := object.NewHeapObject(v)
	if g.head == nil {
		g.head = o
		g.tail = o
	} else {
		g.tail.SetNext(o)
		g.tail = o
	}
	g.numObjects++
	return object.RefFor(o)
}

// Collect runs one full mark-sweep pass unconditionally.
func (g *GC) Collect(roots RootsFunc) {
	g.mark(roots())
	g.sweep()
	g.Collections++
}

// NumObjects reports the number of live objects currently on the chain.
func (g *GC) NumObjects() int { return g.numObjects }

// mark walks an explicit worklist (not the call stack) from the roots,
// setting the mark bit on every reachable object exactly once. An explicit
// stack avoids recursion depth tracking the depth of interpreted data
// structures.
func (g *GC) mark(roots []object.Ref) {
	work := make([]object.Ref, 0, len(roots))
	work = append(work, roots...)

	for len(work) > 0 {
		n := len(work) - 1
		ref := work[n]
		work = work[:n]

		o := ref.Obj()
		if o == nil || o.Marked() {
			continue
		}
		o.SetMarked(true)
		work = append(work, ref.Children()...)
	}
}

// sweep walks the whole chain once, splicing out and discarding every
// unmarked object and clearing the mark bit on every survivor so the next
// collection starts from a clean slate.
func (g *GC) sweep() {
	var newHead, newTail *object.Object
	survivors := 0

	for o := g.head; o != nil; {
		next := o.Next()
		if o.Marked() {
			o.SetMarked(false)
			o.SetNext(nil)
			if newHead == nil {
				newHead = o
				newTail = o
			} else {
				newTail.SetNext(o)
				newTail = o
			}
			survivors++
		}
		o = next
	}

	g.head = newHead
	g.tail = newTail
	g.numObjects = survivors
}
