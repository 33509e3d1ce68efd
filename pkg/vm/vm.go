// Package vm implements the stack machine that executes a linked
// bytecode.Program: the fetch-execute loop, the operand stack, the frame
// (activation record) stack, the global name table, and the runtime error
// reporting built on top of all three.
//
// Grounded directly on the original implementation's vm/mod.rs: the same
// opcode contract (StepCode here is step_code there), the same allocate-
// roots-from-stack+frames+globals discipline feeding pkg/gc, and the same
// frame shape (return address plus a growable slot array). Where the
// original panics via unwrap() on a programming-model violation (reading
// an Invalid value, dividing by zero, calling a non-function), this VM
// panics with a typed error and StepCode recovers it into a *RuntimeError
// with a stack trace, which Run returns - see errors.go.
package vm

import (
	"fmt"

	"github.com/blocklang/blocklang/pkg/bytecode"
	"github.com/blocklang/blocklang/pkg/gc"
	"github.com/blocklang/blocklang/pkg/object"
)

// VM executes one linked bytecode.Program to completion.
type VM struct {
	stack []object.Ref
	sp    int

	frames  []*frame
	globals map[string]object.Ref

	gc   *gc.GC
	code *bytecode.Program
	pc   int

	halted   bool
	exitCode int

	debugger *Debugger
}

// New returns a VM with a fixed-capacity operand stack of stackCapacity
// slots and a collector that runs a collection once the heap reaches
// maxObjects live objects.
func New(stackCapacity, maxObjects int) *VM {
	vm := &VM{
		stack:   make([]object.Ref, stackCapacity),
		globals: make(map[string]object.Ref),
		gc:      gc.New(maxObjects),
	}
	// The grammar has no dedicated boolean/null literal node (spec.md §3's
	// ast only carries IntLiteral/StringLiteral), so the parser lowers the
	// true/false/nil keywords to bare NameExpr lookups. Seed the three
	// names every program implicitly has in scope, the same way the
	// original's front end wired its builtin constants into global().
	vm.globals["true"] = vm.alloc(object.Bool(true))
	vm.globals["false"] = vm.alloc(object.Bool(false))
	vm.globals["nil"] = vm.alloc(object.Null())
	return vm
}

// SetCode installs the program to execute and resets the program counter
// to its first instruction. It does not reset the stack, frames, globals,
// or heap, so a script's definitions survive across SetCode calls in
// embedding scenarios (e.g. a REPL) that compile and run one chunk at a
// time against long-lived VM state.
func (vm *VM) SetCode(p *bytecode.Program) {
	vm.code = p
	vm.pc = 0
	vm.halted = false
}

// AttachDebugger installs an interactive stepper that Run consults before
// every instruction.
func (vm *VM) AttachDebugger(d *Debugger) {
	vm.debugger = d
}

// PC returns the address of the next instruction to execute.
func (vm *VM) PC() int { return vm.pc }

// Halted reports whether Exit has been executed.
func (vm *VM) Halted() bool { return vm.halted }

// ExitCode returns the value passed to Exit, or 0 if the program never
// executed one.
func (vm *VM) ExitCode() int { return vm.exitCode }

// RegisterNative binds name in the global table to a native function
// value of the given arity, for use by pkg/extension.
func (vm *VM) RegisterNative(name string, arity int, fn object.NativeFunc) {
	ref := vm.alloc(object.Func(object.FunctionValue{
		Addr:   object.AddrNative,
		Native: fn,
		Arity:  arity,
		Name:   name,
	}))
	vm.globals[name] = ref
}

// Run executes instructions until Exit halts the machine or a fatal
// condition raises a *RuntimeError.
func (vm *VM) Run() error {
	for !vm.halted {
		if vm.debugger != nil && vm.debugger.enabled && vm.debugger.ShouldPause() {
			if !vm.debugger.InteractivePrompt(vm.code) {
				return nil
			}
		}
		halted, err := vm.StepCode()
		if err != nil {
			return err
		}
		if halted {
			return nil
		}
	}
	return nil
}

// StepCode executes exactly one instruction, recovering any fatal
// condition it raises into a returned error rather than propagating a
// panic to the caller. It is exported so a debugger or REPL can single-
// step independently of Run's pause logic.
func (vm *VM) StepCode() (halted bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = vm.toRuntimeError(r)
			vm.halted = true
			halted = true
		}
	}()

	if vm.halted {
		return true, nil
	}
	if vm.pc < 0 || vm.pc >= len(vm.code.Instructions) {
		panic(fmt.Errorf("vm: program counter %d out of range", vm.pc))
	}

	instr := vm.code.Instructions[vm.pc]
	nextPC := vm.pc + 1

	switch instr.Op {
	case bytecode.Nop:
		// no-op

	case bytecode.ConstNull:
		vm.push(vm.alloc(object.Null()))

	case bytecode.ConstInt:
		vm.push(vm.alloc(object.Int(int64(instr.IntArg))))

	case bytecode.ConstString:
		vm.push(vm.alloc(object.Str(instr.StrArg)))

	case bytecode.Add2, bytecode.Sub2, bytecode.Mul2, bytecode.Div2, bytecode.Mod2:
		vm.execArith(instr.Op)

	case bytecode.Eq2, bytecode.Neq2, bytecode.Lt2, bytecode.Le2, bytecode.Gt2, bytecode.Ge2:
		vm.execCompare(instr.Op)

	case bytecode.Discard:
		vm.pop()

	case bytecode.Rot2:
		top := vm.pop()
		under := vm.pop()
		vm.push(top)
		vm.push(under)

	case bytecode.Store:
		vm.currentFrame().store(instr.IntArg, vm.pop())

	case bytecode.Load:
		vm.push(vm.currentFrame().load(instr.IntArg))

	case bytecode.StoreGlobal:
		vm.globals[instr.StrArg] = vm.pop()

	case bytecode.LoadGlobal:
		vm.push(vm.globals[instr.StrArg])

	case bytecode.JmpAlways:
		nextPC = instr.IntArg

	case bytecode.JmpIfTrue:
		if vm.pop().Value().AsBool() {
			nextPC = instr.IntArg
		}

	case bytecode.JmpIfFalse:
		if !vm.pop().Value().AsBool() {
			nextPC = instr.IntArg
		}

	case bytecode.CreateFunction:
		fv := object.FunctionValue{Addr: object.AddrBytecode, PC: instr.IntArg, Arity: instr.Arity, Name: instr.StrArg}
		vm.push(vm.alloc(object.Func(fv)))

	case bytecode.CallNoKw:
		nextPC = vm.execCall(instr.IntArg, vm.pc)

	case bytecode.Return:
		nextPC = vm.execReturn()

	case bytecode.Exit:
		vm.execExit()
		return true, nil

	default:
		panic(fmt.Errorf("vm: unknown opcode %v", instr.Op))
	}

	vm.pc = nextPC
	return false, nil
}

func (vm *VM) alloc(v object.Value) object.Ref {
	return vm.gc.Alloc(v, vm.roots)
}

// roots returns every Ref directly reachable from live VM state: the
// occupied part of the operand stack, every frame's slots, and every
// global. pkg/gc treats this as the mark phase's seed set.
func (vm *VM) roots() []object.Ref {
	out := make([]object.Ref, 0, vm.sp+len(vm.globals))
	out = append(out, vm.stack[:vm.sp]...)
	for _, f := range vm.frames {
		out = append(out, f.memory...)
	}
	for _, ref := range vm.globals {
		out = append(out, ref)
	}
	return out
}

func (vm *VM) push(r object.Ref) {
	if vm.sp >= len(vm.stack) {
		panic(fmt.Errorf("vm: operand stack overflow (capacity %d)", len(vm.stack)))
	}
	vm.stack[vm.sp] = r
	vm.sp++
}

func (vm *VM) pop() object.Ref {
	if vm.sp == 0 {
		panic(fmt.Errorf("vm: operand stack underflow"))
	}
	vm.sp--
	return vm.stack[vm.sp]
}

func (vm *VM) currentFrame() *frame {
	if len(vm.frames) == 0 {
		panic(fmt.Errorf("vm: local slot access with no active frame"))
	}
	return vm.frames[len(vm.frames)-1]
}

func (vm *VM) execArith(op bytecode.Opcode) {
	rightVal := vm.pop().Value()
	leftVal := vm.pop().Value()

	// Add2 is the one arithmetic opcode overloaded onto strings: two
	// strings concatenate instead of summing (spec.md §4.2). Every other
	// combination of kinds is a type error.
	if op == bytecode.Add2 && leftVal.Kind == object.KindString && rightVal.Kind == object.KindString {
		vm.push(vm.alloc(object.Str(leftVal.AsString() + rightVal.AsString())))
		return
	}

	right := rightVal.AsInt()
	left := leftVal.AsInt()

	var result int64
	switch op {
	case bytecode.Add2:
		result = left + right
	case bytecode.Sub2:
		result = left - right
	case bytecode.Mul2:
		result = left * right
	case bytecode.Div2:
		if right == 0 {
			panic(fmt.Errorf("vm: division by zero"))
		}
		result = left / right
	case bytecode.Mod2:
		if right == 0 {
			panic(fmt.Errorf("vm: modulo by zero"))
		}
		result = left % right
	}
	vm.push(vm.alloc(object.Int(result)))
}

func (vm *VM) execCompare(op bytecode.Opcode) {
	right := vm.pop().Value()
	left := vm.pop().Value()

	var result bool
	switch op {
	case bytecode.Eq2:
		result = valuesEqual(left, right)
	case bytecode.Neq2:
		result = !valuesEqual(left, right)
	default:
		li, ri := left.AsInt(), right.AsInt()
		switch op {
		case bytecode.Lt2:
			result = li < ri
		case bytecode.Le2:
			result = li <= ri
		case bytecode.Gt2:
			result = li > ri
		case bytecode.Ge2:
			result = li >= ri
		}
	}
	vm.push(vm.alloc(object.Bool(result)))
}

func valuesEqual(a, b object.Value) bool {
	if a.Kind == object.KindInvalid || b.Kind == object.KindInvalid {
		panic(object.InvalidAccessError{})
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case object.KindNull:
		return true
	case object.KindInteger:
		return a.Int == b.Int
	case object.KindBoolean:
		return a.Bool == b.Bool
	case object.KindString:
		return a.Str == b.Str
	default:
		// Functions and instances compare by identity in the original
		// model; Value has already been unwrapped from its Ref by the
		// time it reaches here, so identity is unavailable. Treating
		// every such comparison as unequal is a conservative
		// simplification.
		return false
	}
}

// execCall pops the callee and its arguments, dispatches to a native or
// bytecode function, and returns the program counter execution should
// resume at.
func (vm *VM) execCall(nArgs int, callSitePC int) int {
	args := make([]object.Ref, nArgs)
	for i := nArgs - 1; i >= 0; i-- {
		args[i] = vm.pop()
	}
	callee := vm.pop().Value().AsFunction()
	if callee.Arity != nArgs {
		panic(fmt.Errorf("vm: %s expects %d argument(s), got %d", describeCallee(callee), callee.Arity, nArgs))
	}

	if callee.Addr == object.AddrNative {
		values := make([]object.Value, nArgs)
		for i, a := range args {
			values[i] = a.Value()
		}
		result, err := callee.Native(values)
		if err != nil {
			panic(err)
		}
		vm.push(vm.alloc(result))
		return callSitePC + 1
	}

	f := newFrame(callSitePC + 1)
	for i, a := range args {
		f.store(i, a)
	}
	vm.frames = append(vm.frames, f)
	return callee.PC
}

func describeCallee(fn object.FunctionValue) string {
	if fn.Name != "" {
		return fn.Name
	}
	return "<anonymous function>"
}

func (vm *VM) execReturn() int {
	val := vm.pop()
	if len(vm.frames) == 0 {
		panic(fmt.Errorf("vm: return with no active frame"))
	}
	f := vm.frames[len(vm.frames)-1]
	vm.frames = vm.frames[:len(vm.frames)-1]
	vm.push(val)
	return f.returnPC
}

func (vm *VM) execExit() {
	code := vm.pop().Value().AsInt()
	vm.exitCode = int(code)
	vm.halted = true
}

// toRuntimeError converts a recovered panic value into a *RuntimeError
// carrying a stack trace built from the frame stack at the moment of
// failure.
func (vm *VM) toRuntimeError(r interface{}) *RuntimeError {
	var msg string
	switch e := r.(type) {
	case error:
		msg = e.Error()
	default:
		msg = fmt.Sprintf("%v", e)
	}

	trace := make([]StackFrame, 0, len(vm.frames)+1)
	trace = append(trace, StackFrame{Name: "top-level", IP: vm.pc})
	for i, f := range vm.frames {
		trace = append(trace, StackFrame{Name: fmt.Sprintf("call depth %d", i+1), IP: f.returnPC})
	}
	return newRuntimeError(msg, trace)
}
