// Package object defines the runtime value model: the tagged Value sum
// type, the heap Object wrapper the garbage collector walks, and Ref, the
// opaque object-reference handle held by the operand stack, frames, and
// globals.
//
// Every runtime value the interpreted program can observe is boxed in an
// Object allocated through pkg/gc; nothing outside pkg/gc constructs an
// Object directly except via New*, which build the value but do not link
// it into the heap's all-objects chain.
package object

import "fmt"

// Kind tags which variant of Value is populated.
type Kind int

const (
	KindInvalid Kind = iota
	KindNull
	KindInteger
	KindBoolean
	KindString
	KindFunction
	KindInstance
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindNull:
		return "null"
	case KindInteger:
		return "integer"
	case KindBoolean:
		return "boolean"
	case KindString:
		return "string"
	case KindFunction:
		return "function"
	case KindInstance:
		return "instance"
	default:
		return "?"
	}
}

// AddressKind distinguishes a bytecode function from a native one.
type AddressKind int

const (
	AddrBytecode AddressKind = iota
	AddrNative
)

// NativeFunc is the calling convention for a native extension function: the
// VM evaluates and unwraps the call's arguments to plain Values, invokes
// the function, and boxes whatever it returns (or raises the error it
// returns as a runtime error). This is a deliberate simplification of the
// original implementation's native ABI, which instead handed the native
// function a VM handle and had it pull each argument by index - with Value
// already a self-contained, non-recursive struct there is nothing left for
// a native function to need the VM for.
type NativeFunc func(args []Value) (Value, error)

// FunctionValue describes a callable: either a bytecode entry address or a
// native function pointer, plus its arity.
type FunctionValue struct {
	Addr   AddressKind
	PC     int // valid when Addr == AddrBytecode
	Native NativeFunc
	Arity  int
	Name   string // debug name, for stack traces and disassembly only
}

// Instance is an object instance: an optional class reference and a
// string-keyed field map. Reserved by the data model (spec §3) but not
// surfaced by the grammar; the GC must still walk it.
type Instance struct {
	Class  *Ref
	Fields map[string]Ref
}

// Value is the tagged runtime value sum type. Exactly one field is
// meaningful, selected by Kind; reading Int/Bool/Str/Fun/Inst when Kind
// does not match is a programming error in this package, not a recoverable
// condition - callers are expected to check Kind first (As* accessors
// panic when the kind does not match, mirroring the Invalid-access
// semantics spec.md §7.5 requires for the interpreted program).
type Value struct {
	Kind Kind
	Int  int64
	Bool bool
	Str  string
	Fun  FunctionValue
	Inst Instance
}

func Invalid() Value    { return Value{Kind: KindInvalid} }
func Null() Value       { return Value{Kind: KindNull} }
func Int(i int64) Value { return Value{Kind: KindInteger, Int: i} }
func Bool(b bool) Value { return Value{Kind: KindBoolean, Bool: b} }
func Str(s string) Value {
	return Value{Kind: KindString, Str: s}
}
func Func(f FunctionValue) Value { return Value{Kind: KindFunction, Fun: f} }
func Inst(classRef *Ref) Value {
	return Value{Kind: KindInstance, Inst: Instance{Class: classRef, Fields: map[string]Ref{}}}
}

// InvalidAccessError is raised when the program reads an Invalid value.
type InvalidAccessError struct{}

func (InvalidAccessError) Error() string { return "access to uninitialized value" }

// AsInt returns the integer payload, panicking with InvalidAccessError if
// Kind is Invalid and a generic type error otherwise.
func (v Value) AsInt() int64 {
	switch v.Kind {
	case KindInteger:
		return v.Int
	case KindInvalid:
		panic(InvalidAccessError{})
	default:
		panic(fmt.Errorf("expected integer, got %s", v.Kind))
	}
}

// AsBool returns the boolean payload.
func (v Value) AsBool() bool {
	switch v.Kind {
	case KindBoolean:
		return v.Bool
	case KindInvalid:
		panic(InvalidAccessError{})
	default:
		panic(fmt.Errorf("expected boolean, got %s", v.Kind))
	}
}

// AsString returns the string payload.
func (v Value) AsString() string {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindInvalid:
		panic(InvalidAccessError{})
	default:
		panic(fmt.Errorf("expected string, got %s", v.Kind))
	}
}

// AsFunction returns the function payload.
func (v Value) AsFunction() FunctionValue {
	switch v.Kind {
	case KindFunction:
		return v.Fun
	case KindInvalid:
		panic(InvalidAccessError{})
	default:
		panic(fmt.Errorf("expected function, got %s", v.Kind))
	}
}

// Display renders a human-readable form of v, used by the println native.
func (v Value) Display() string {
	switch v.Kind {
	case KindInvalid:
		panic(InvalidAccessError{})
	case KindNull:
		return "null"
	case KindInteger:
		return fmt.Sprintf("%d", v.Int)
	case KindBoolean:
		return fmt.Sprintf("%t", v.Bool)
	case KindString:
		return v.Str
	case KindFunction:
		return "<function>"
	case KindInstance:
		return "<instance>"
	default:
		return "?"
	}
}

// Object is a heap node: a value, a GC mark bit, and the intrusive link
// that forms the GC's all-objects chain (spec.md §3 "Objects and object
// references").
type Object struct {
	Value  Value
	marked bool
	next   *Object
}

// Ref is the opaque, identity-preserving handle stored in stack slots,
// frame slots, and globals. Cloning a Ref yields sharing, never a copy of
// the underlying Object - it is a thin pointer, exactly like the Rust
// original's ObjectPtr.
type Ref struct {
	obj *Object
}

// WrapForTest constructs a Ref directly over a fresh, unlinked Object. Only
// pkg/gc should normally mint Refs (via Alloc) since it is responsible for
// linking the object into the reachability chain; this constructor exists
// for table-driven tests in other packages that need a Ref without a GC.
func WrapForTest(v Value) Ref {
	return Ref{obj: &Object{Value: v}}
}

// Value returns the boxed value.
func (r Ref) Value() Value {
	if r.obj == nil {
		return Invalid()
	}
	return r.obj.Value
}

// IsZero reports whether r is the zero Ref (never allocated).
func (r Ref) IsZero() bool { return r.obj == nil }

// Children returns the direct GC children of the referenced value, per the
// variant table in spec.md §4.3.
func (r Ref) Children() []Ref {
	if r.obj == nil {
		return nil
	}
	switch r.obj.Value.Kind {
	case KindInstance:
		inst := r.obj.Value.Inst
		children := make([]Ref, 0, len(inst.Fields)*2+1)
		if inst.Class != nil {
			children = append(children, *inst.Class)
		}
		for k, v := range inst.Fields {
			children = append(children, WrapForTest(Str(k)), v)
		}
		return children
	default:
		return nil
	}
}

// SetField sets a field on an Instance value, mutating the object in
// place. Sharing is observable: any other Ref to the same Object sees the
// update (spec.md §3 "mutating through either reference ... is observable
// through the other").
func (r Ref) SetField(key string, value Ref) {
	if r.obj.Value.Kind != KindInstance {
		panic(fmt.Errorf("SetField on non-instance value %s", r.obj.Value.Kind))
	}
	r.obj.Value.Inst.Fields[key] = value
}

// GetField reads a field on an Instance value.
func (r Ref) GetField(key string) (Ref, bool) {
	if r.obj.Value.Kind != KindInstance {
		panic(fmt.Errorf("GetField on non-instance value %s", r.obj.Value.Kind))
	}
	v, ok := r.obj.Value.Inst.Fields[key]
	return v, ok
}

// --- internal accessors used only by pkg/gc, which owns allocation and
// the intrusive chain. These are exported via the gc-facing helpers below
// rather than struct fields so pkg/gc does not need unsafe or reflection
// tricks to reach into an opaque Ref from a different package.

// NewHeapObject allocates a fresh, unlinked Object wrapping v. Used only by
// pkg/gc.Alloc.
func NewHeapObject(v Value) *Object {
	return &Object{Value: v}
}

// RefFor wraps an *Object in a Ref. Used only by pkg/gc.Alloc.
func RefFor(o *Object) Ref { return Ref{obj: o} }

// Marked reports the object's mark bit. Used only by pkg/gc.
func (o *Object) Marked() bool { return o.marked }

// SetMarked sets the object's mark bit. Used only by pkg/gc.
func (o *Object) SetMarked(m bool) { o.marked = m }

// Next returns the intrusive chain link. Used only by pkg/gc.
func (o *Object) Next() *Object { return o.next }

// SetNext sets the intrusive chain link. Used only by pkg/gc.
func (o *Object) SetNext(n *Object) { o.next = n }

// Obj exposes the underlying *Object for pkg/gc's chain walk.
func (r Ref) Obj() *Object { return r.obj }
