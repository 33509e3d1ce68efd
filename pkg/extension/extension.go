// Package extension provides the native-function ABI: a uniform way to
// register native functions as first-class callable values, per spec.md
// §4.5/§6.
//
// Grounded on the original implementation's extension/mod.rs
// RegisterableExtension trait: a Group is a named collection of native
// functions, Register binds every Func in it into a VM's globals, and the
// function's calling convention (object.NativeFunc) matches what
// extension/basic.rs's println registers.
package extension

import "github.com/blocklang/blocklang/pkg/object"

// Func is one native function: a name bound in the VM's globals, its
// fixed arity, and its implementation.
type Func struct {
	Name  string
	Arity int
	Fn    object.NativeFunc
}

// Group is a named collection of related native functions, registered
// together (e.g. "basic").
type Group struct {
	Name      string
	Functions []Func
}

// registrar is the subset of *vm.VM that Register needs. Defined here
// rather than imported from pkg/vm to keep pkg/extension from creating an
// import cycle (pkg/vm never needs to import pkg/extension).
type registrar interface {
	RegisterNative(name string, arity int, fn object.NativeFunc)
}

// Register binds every function in every given group into vm's globals.
func Register(vm registrar, groups ...Group) {
	for _, g := range groups {
		for _, fn := range g.Functions {
			vm.RegisterNative(fn.Name, fn.Arity, fn.Fn)
		}
	}
}

// Standard returns every group this package ships. spec.md §6 names
// exactly two native functions installed at start-up, println and str,
// both in Basic; there is no further standard library to wire in, so
// Standard is Basic alone.
func Standard() []Group {
	return []Group{Basic()}
}
