package layout

import "testing"

func TestRegisterAssignsDenseSlotsInFirstSeenOrder(t *testing.T) {
	var tr Tracker
	if got := tr.Register("a"); got != 0 {
		t.Errorf("Register(a) = %d, want 0", got)
	}
	if got := tr.Register("b"); got != 1 {
		t.Errorf("Register(b) = %d, want 1", got)
	}
	if got := tr.Register("c"); got != 2 {
		t.Errorf("Register(c) = %d, want 2", got)
	}
	if got := tr.Size(); got != 3 {
		t.Errorf("Size() = %d, want 3", got)
	}
}

func TestRegisterIsIdempotent(t *testing.T) {
	var tr Tracker
	first := tr.Register("x")
	second := tr.Register("x")
	if first != second {
		t.Errorf("re-registering x returned %d, want %d", second, first)
	}
	if got := tr.Size(); got != 1 {
		t.Errorf("Size() = %d, want 1", got)
	}
}

func TestGetReportsUnregisteredNames(t *testing.T) {
	var tr Tracker
	if _, ok := tr.Get("missing"); ok {
		t.Error("Get(missing) on empty tracker should report ok=false")
	}
	tr.Register("y")
	if slot, ok := tr.Get("y"); !ok || slot != 0 {
		t.Errorf("Get(y) = (%d, %v), want (0, true)", slot, ok)
	}
}

func TestZeroValueTrackerIsReady(t *testing.T) {
	var tr Tracker
	if got := tr.Size(); got != 0 {
		t.Errorf("Size() of zero value = %d, want 0", got)
	}
	if got := tr.Register("first"); got != 0 {
		t.Errorf("Register on zero value = %d, want 0", got)
	}
}
