// Package compiler lowers an *ast.BlockStmt into a linked bytecode.Program
// in two passes, grounded directly on the original implementation's
// compiler/mod.rs, compiler/layout.rs and compiler/global.rs.
//
// Pass one (CompileTop and the per-function compiles it triggers) walks
// the tree once, emitting instructions with symbolic jump targets:
// "L0", "L1", ... for compiler-generated labels and "Ffoo" for the entry
// point of a function named foo. Labels are attached to whichever
// instruction is emitted next after the label is requested, so a label
// requested at the end of a branch with no further code in it still
// resolves correctly once the branches are concatenated.
//
// Pass two (Link) concatenates the main unit's code with every function
// body's code (each compiled in total isolation, with its own fresh local
// slot numbering) into one flat instruction array and rewrites every
// symbolic jump target to the absolute instruction index the label ended
// up at. A label that is requested but never attached to an instruction
// is a compiler bug, not a malformed-program condition, and Link panics
// if it finds one - exactly as the original's link_jumps does with
// unwrap().
package compiler

import (
	"fmt"

	"github.com/blocklang/blocklang/pkg/ast"
	"github.com/blocklang/blocklang/pkg/bytecode"
	"github.com/blocklang/blocklang/pkg/layout"
)

// globalTable tracks which names have been registered as globals.
// Registration is idempotent and, unlike layout.Tracker, does not assign
// slot numbers - globals are addressed by name at runtime (StoreGlobal,
// LoadGlobal), so the table only needs to remember that a name exists.
type globalTable struct {
	names map[string]bool
}

func newGlobalTable() *globalTable {
	return &globalTable{names: make(map[string]bool)}
}

func (g *globalTable) register(name string) {
	g.names[name] = true
}

// instrMeta carries the two-pass-resolution metadata for one pending
// instruction: the symbolic label its operand should resolve to (if any),
// and the labels that point at this instruction's eventual address.
type instrMeta struct {
	jmpLabel   string
	thisLabels []string
}

type pendingInstr struct {
	instr bytecode.Instruction
	meta  instrMeta
}

// unitCompiler compiles one compilation unit - the top-level program or a
// single function body - into a self-contained, unlinked instruction
// sequence with its own fresh layout.Tracker.
type unitCompiler struct {
	isGlobal bool
	globals  *globalTable
	code     []pendingInstr
	layout   layout.Tracker

	labelSeq *int
	units    *[]*unitCompiler // shared collection of function-body units, in discovery order

	pendingLabels []string // labels waiting to attach to the next emitted instruction
}

func newUnitCompiler(isGlobal bool, globals *globalTable, labelSeq *int, units *[]*unitCompiler) *unitCompiler {
	return &unitCompiler{isGlobal: isGlobal, globals: globals, labelSeq: labelSeq, units: units}
}

func (u *unitCompiler) genLabel() string {
	label := fmt.Sprintf("L%d", *u.labelSeq)
	*u.labelSeq++
	return label
}

func funcLabel(name string) string { return "F" + name }

// queueLabel requests that label be attached to whatever instruction is
// emitted next, whenever and wherever that happens.
func (u *unitCompiler) queueLabel(label string) {
	u.pendingLabels = append(u.pendingLabels, label)
}

func (u *unitCompiler) appendRaw(instr bytecode.Instruction) int {
	idx := len(u.code)
	pi := pendingInstr{instr: instr}
	if len(u.pendingLabels) > 0 {
		pi.meta.thisLabels = u.pendingLabels
		u.pendingLabels = nil
	}
	u.code = append(u.code, pi)
	return idx
}

func (u *unitCompiler) emit(op bytecode.Opcode) {
	u.appendRaw(bytecode.Instruction{Op: op})
}

func (u *unitCompiler) emitInt(op bytecode.Opcode, n int) {
	u.appendRaw(bytecode.Instruction{Op: op, IntArg: n})
}

func (u *unitCompiler) emitStr(op bytecode.Opcode, s string) {
	u.appendRaw(bytecode.Instruction{Op: op, StrArg: s})
}

// emitJmp emits a jump instruction whose target is the address label
// eventually resolves to.
func (u *unitCompiler) emitJmp(op bytecode.Opcode, label string) {
	idx := u.appendRaw(bytecode.Instruction{Op: op})
	u.code[idx].meta.jmpLabel = label
}

// emitCreateFunction emits CreateFunction with an address that resolves to
// label once linked.
func (u *unitCompiler) emitCreateFunction(label string, arity int, name string) {
	idx := u.appendRaw(bytecode.Instruction{Op: bytecode.CreateFunction, Arity: arity, StrArg: name})
	u.code[idx].meta.jmpLabel = label
}

// finish flushes any pending label onto a trailing Nop, guaranteeing every
// requested label resolves to a real instruction.
func (u *unitCompiler) finish() {
	if len(u.pendingLabels) > 0 {
		u.emit(bytecode.Nop)
	}
}

func (u *unitCompiler) compileBlock(b *ast.BlockStmt) error {
	if len(b.Stmts) == 0 {
		u.emit(bytecode.Nop)
		return nil
	}
	for _, stmt := range b.Stmts {
		if err := u.compileStmt(stmt); err != nil {
			return err
		}
	}
	return nil
}

// compileBranch compiles the Then/Else/Body of a conditional or loop,
// which the parser may hand over as a block or as a single statement.
func (u *unitCompiler) compileBranch(s ast.Statement) error {
	if block, ok := s.(*ast.BlockStmt); ok {
		return u.compileBlock(block)
	}
	return u.compileStmt(s)
}

func (u *unitCompiler) compileStmt(s ast.Statement) error {
	switch st := s.(type) {
	case *ast.ExprStmt:
		if err := u.compileExpr(st.Expr); err != nil {
			return err
		}
		u.emit(bytecode.Discard)
		return nil

	case *ast.AssignStmt:
		if err := u.compileExpr(st.Expr); err != nil {
			return err
		}
		if slot, ok := u.layout.Get(st.Name); ok {
			u.emitInt(bytecode.Store, slot)
		} else if u.isGlobal {
			u.globals.register(st.Name)
			u.emitStr(bytecode.StoreGlobal, st.Name)
		} else {
			slot := u.layout.Register(st.Name)
			u.emitInt(bytecode.Store, slot)
		}
		return nil

	case *ast.BlockStmt:
		return u.compileBlock(st)

	case *ast.IfStmt:
		return u.compileIf(st)

	case *ast.WhileStmt:
		return u.compileWhile(st)

	case *ast.FuncDefStmt:
		return u.compileFuncDef(st)

	case *ast.ReturnStmt:
		if st.Expr != nil {
			if err := u.compileExpr(st.Expr); err != nil {
				return err
			}
		} else {
			u.emit(bytecode.ConstNull)
		}
		u.emit(bytecode.Return)
		return nil

	case *ast.ObjectAssignStmt:
		return fmt.Errorf("compiler: indexed assignment is not supported by this grammar")

	default:
		return fmt.Errorf("compiler: unknown statement type %T", s)
	}
}

func (u *unitCompiler) compileIf(st *ast.IfStmt) error {
	if err := u.compileExpr(st.Cond); err != nil {
		return err
	}
	elseLabel := u.genLabel()
	u.emitJmp(bytecode.JmpIfFalse, elseLabel)

	if err := u.compileBranch(st.Then); err != nil {
		return err
	}

	if st.Otherwise != nil {
		endLabel := u.genLabel()
		u.emitJmp(bytecode.JmpAlways, endLabel)
		u.queueLabel(elseLabel)
		if err := u.compileBranch(st.Otherwise); err != nil {
			return err
		}
		u.queueLabel(endLabel)
	} else {
		u.queueLabel(elseLabel)
	}
	return nil
}

func (u *unitCompiler) compileWhile(st *ast.WhileStmt) error {
	condLabel := u.genLabel()
	endLabel := u.genLabel()

	u.queueLabel(condLabel)
	if err := u.compileExpr(st.Cond); err != nil {
		return err
	}
	u.emitJmp(bytecode.JmpIfFalse, endLabel)

	if err := u.compileBranch(st.Body); err != nil {
		return err
	}
	u.emitJmp(bytecode.JmpAlways, condLabel)
	u.queueLabel(endLabel)
	return nil
}

// compileFuncDef registers the function's name (as a global, or as a
// local slot when nested inside another function body) before compiling
// its body, so the body can call itself recursively, compiles the body
// in a fresh unit with its own slot numbering (params occupy slots
// 0..n-1, in order), and appends a ConstNull;Return trailer so a function
// whose body falls off the end returns null rather than executing past
// its own code. A nested function's slot belongs to the enclosing unit;
// its own body, compiled with a fresh layout, looks its name up as a
// global.
func (u *unitCompiler) compileFuncDef(st *ast.FuncDefStmt) error {
	label := funcLabel(st.Name)

	slot := -1
	if u.isGlobal {
		u.globals.register(st.Name)
	} else {
		slot = u.layout.Register(st.Name)
	}

	body := newUnitCompiler(false, u.globals, u.labelSeq, u.units)
	for _, p := range st.Params {
		body.layout.Register(p)
	}
	body.queueLabel(label)
	if err := body.compileBranch(st.Body); err != nil {
		return err
	}
	body.emit(bytecode.ConstNull)
	body.emit(bytecode.Return)
	body.finish()
	*u.units = append(*u.units, body)

	u.emitCreateFunction(label, len(st.Params), st.Name)
	if u.isGlobal {
		u.emitStr(bytecode.StoreGlobal, st.Name)
	} else {
		u.emitInt(bytecode.Store, slot)
	}
	return nil
}

func (u *unitCompiler) compileExpr(e ast.Expression) error {
	switch ex := e.(type) {
	case *ast.IntLiteral:
		u.emitInt(bytecode.ConstInt, int(ex.Value))
		return nil

	case *ast.StringLiteral:
		u.emitStr(bytecode.ConstString, ex.Value)
		return nil

	case *ast.NameExpr:
		if slot, ok := u.layout.Get(ex.Name); ok {
			u.emitInt(bytecode.Load, slot)
		} else {
			u.emitStr(bytecode.LoadGlobal, ex.Name)
		}
		return nil

	case *ast.BinaryExpr:
		if err := u.compileExpr(ex.Left); err != nil {
			return err
		}
		if err := u.compileExpr(ex.Right); err != nil {
			return err
		}
		op, err := binaryOpcode(ex.Op)
		if err != nil {
			return err
		}
		u.emit(op)
		return nil

	case *ast.FunCallExpr:
		if err := u.compileExpr(ex.Callee); err != nil {
			return err
		}
		for _, arg := range ex.Args {
			if err := u.compileExpr(arg); err != nil {
				return err
			}
		}
		u.emitInt(bytecode.CallNoKw, len(ex.Args))
		// Landing pad: gives a call site's return address a concrete
		// instruction distinct from whatever code follows, so a label
		// queued immediately after a call (e.g. an if-branch that ends in
		// a discarded call) always has somewhere to attach.
		u.emit(bytecode.Nop)
		return nil

	case *ast.ListLiteral:
		return fmt.Errorf("compiler: list literals are not supported by this grammar")

	case *ast.IndexExpr:
		return fmt.Errorf("compiler: indexing is not supported by this grammar")

	default:
		return fmt.Errorf("compiler: unknown expression type %T", e)
	}
}

func binaryOpcode(op ast.BinaryOperator) (bytecode.Opcode, error) {
	switch op {
	case ast.Add:
		return bytecode.Add2, nil
	case ast.Sub:
		return bytecode.Sub2, nil
	case ast.Mul:
		return bytecode.Mul2, nil
	case ast.Div:
		return bytecode.Div2, nil
	case ast.Mod:
		return bytecode.Mod2, nil
	case ast.Eq:
		return bytecode.Eq2, nil
	case ast.Neq:
		return bytecode.Neq2, nil
	case ast.Lt:
		return bytecode.Lt2, nil
	case ast.Le:
		return bytecode.Le2, nil
	case ast.Gt:
		return bytecode.Gt2, nil
	case ast.Ge:
		return bytecode.Ge2, nil
	default:
		return 0, fmt.Errorf("compiler: unknown binary operator %v", op)
	}
}

// Compiler orchestrates compiling a whole program: one top-level unit plus
// one unit per function definition discovered anywhere in the tree
// (including inside other functions), then links them all into one
// bytecode.Program.
type Compiler struct {
	globals  *globalTable
	labelSeq int
	units    []*unitCompiler
	main     *unitCompiler
}

// New returns a compiler ready to compile one program.
func New() *Compiler {
	return &Compiler{globals: newGlobalTable()}
}

// CompileTop compiles the top-level program. Assignments at this level
// bind globals; names resolve to locals only inside a function body.
func (c *Compiler) CompileTop(program *ast.BlockStmt) error {
	c.main = newUnitCompiler(true, c.globals, &c.labelSeq, &c.units)
	if err := c.main.compileBlock(program); err != nil {
		return err
	}
	c.main.finish()
	return nil
}

// Link concatenates the main unit with every function unit discovered
// during CompileTop and resolves every symbolic label to its absolute
// instruction index in the concatenated program. The main unit runs first
// and, since it is the global unit, is followed by ConstInt(0);Exit so a
// top-level program that runs off the end of its own statements halts
// cleanly instead of falling into the first function body's code.
func (c *Compiler) Link() *bytecode.Program {
	sections := make([][]pendingInstr, 0, 1+len(c.units))
	sections = append(sections, c.main.code)
	sections = append(sections, []pendingInstr{
		{instr: bytecode.Instruction{Op: bytecode.ConstInt, IntArg: 0}},
		{instr: bytecode.Instruction{Op: bytecode.Exit}},
	})
	for _, u := range c.units {
		sections = append(sections, u.code)
	}

	addrs := make(map[string]int)
	flat := make([]pendingInstr, 0)
	for _, section := range sections {
		for _, pi := range section {
			for _, label := range pi.meta.thisLabels {
				addrs[label] = len(flat)
			}
			flat = append(flat, pi)
		}
	}

	instrs := make([]bytecode.Instruction, len(flat))
	for i, pi := range flat {
		instr := pi.instr
		if pi.meta.jmpLabel != "" {
			addr, ok := addrs[pi.meta.jmpLabel]
			if !ok {
				panic(fmt.Sprintf("compiler: unresolved label %q", pi.meta.jmpLabel))
			}
			instr.IntArg = addr
		}
		instrs[i] = instr
	}
	return &bytecode.Program{Instructions: instrs}
}
