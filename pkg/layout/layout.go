// Package layout assigns dense, 0-based local-slot indices to names within
// one compilation unit (the top-level program or a single function body).
//
// Grounded on the original implementation's compiler/layout.rs LayoutTracker:
// registration is idempotent (re-registering an already-known name returns
// its existing slot rather than allocating a new one) and slots are handed
// out in first-seen order starting at 0.
package layout

// Tracker assigns local-variable slots for one compilation unit. The zero
// value is ready to use.
type Tracker struct {
	order []string
	index map[string]int
}

// Register assigns name a slot if it does not already have one, and
// returns the (possibly pre-existing) slot.
func (t *Tracker) Register(name string) int {
	if t.index == nil {
		t.index = make(map[string]int)
	}
	if slot, ok := t.index[name]; ok {
		return slot
	}
	slot := len(t.order)
	t.order = append(t.order, name)
	t.index[name] = slot
	return slot
}

// Get returns the slot assigned to name and whether name has been
// registered at all.
func (t *Tracker) Get(name string) (int, bool) {
	slot, ok := t.index[name]
	return slot, ok
}

// Size returns the number of distinct names registered, i.e. the number of
// local slots the owning frame needs.
func (t *Tracker) Size() int { return len(t.order) }
