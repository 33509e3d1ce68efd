// Package bytecode defines the instruction set that pkg/compiler emits and
// pkg/vm executes.
//
// The instruction set is deliberately small and stack-oriented: every
// instruction pops zero or more operands off the VM's operand stack and
// pushes zero or one result, except Rot2, which pushes back the two entries
// it swaps. Jumps and Store/Load address VM-local state
// (the current frame's slots or the global table) directly, rather than
// going through the operand stack. This mirrors the opcode set of the
// language's original Rust implementation (opcode.rs) one for one; nothing
// here is inherited from a message-passing VM.
package bytecode

import "strconv"

// Opcode is a single instruction's operation.
type Opcode byte

const (
	// Nop does nothing. Used as a landing pad for jumps that target the
	// instruction immediately following a call whose result is discarded.
	Nop Opcode = iota

	// ConstNull pushes Null.
	ConstNull

	// ConstInt pushes the integer in Instruction.IntArg.
	ConstInt

	// ConstString pushes the string in Instruction.StrArg.
	ConstString

	// Add2, Sub2, Mul2, Div2, Mod2 pop right then left, push left OP right.
	Add2
	Sub2
	Mul2
	Div2
	Mod2

	// Eq2, Neq2, Lt2, Le2, Gt2, Ge2 pop right then left, push the boolean
	// comparison left OP right.
	Eq2
	Neq2
	Lt2
	Le2
	Gt2
	Ge2

	// Discard pops and drops the top of stack.
	Discard

	// Rot2 swaps the top two stack entries in place.
	Rot2

	// Store pops the top of stack into local slot IntArg of the current
	// frame.
	Store

	// Load pushes local slot IntArg of the current frame.
	Load

	// StoreGlobal pops the top of stack into the global named StrArg.
	StoreGlobal

	// LoadGlobal pushes the value of the global named StrArg.
	LoadGlobal

	// JmpAlways sets the program counter to IntArg unconditionally.
	JmpAlways

	// JmpIfTrue pops a boolean; if true, sets the program counter to
	// IntArg.
	JmpIfTrue

	// JmpIfFalse pops a boolean; if false, sets the program counter to
	// IntArg.
	JmpIfFalse

	// CreateFunction pushes a bytecode Function value with entry address
	// IntArg, arity Arity, and debug name StrArg (used only for stack
	// traces and disassembly, never for dispatch).
	CreateFunction

	// CallNoKw pops IntArg positional arguments (pushed in forward order
	// above the callee, so popped in reverse) and then the callee, invokes
	// the callee, and pushes its result.
	CallNoKw

	// Return pops the top of stack, tears down the current frame, and
	// resumes at the frame's return address, pushing the popped value as
	// the call's result.
	Return

	// Exit pops an integer and halts the VM with it as the process exit
	// code.
	Exit
)

var opcodeNames = map[Opcode]string{
	Nop:             "Nop",
	ConstNull:       "ConstNull",
	ConstInt:        "ConstInt",
	ConstString:     "ConstString",
	Add2:            "Add2",
	Sub2:            "Sub2",
	Mul2:            "Mul2",
	Div2:            "Div2",
	Mod2:            "Mod2",
	Eq2:             "Eq2",
	Neq2:            "Neq2",
	Lt2:             "Lt2",
	Le2:             "Le2",
	Gt2:             "Gt2",
	Ge2:             "Ge2",
	Discard:         "Discard",
	Rot2:            "Rot2",
	Store:           "Store",
	Load:            "Load",
	StoreGlobal:     "StoreGlobal",
	LoadGlobal:      "LoadGlobal",
	JmpAlways:       "JmpAlways",
	JmpIfTrue:       "JmpIfTrue",
	JmpIfFalse:      "JmpIfFalse",
	CreateFunction:  "CreateFunction",
	CallNoKw:        "CallNoKw",
	Return:          "Return",
	Exit:            "Exit",
}

// String returns the opcode's mnemonic, used by disassembly and error
// messages.
func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return "Unknown"
}

// Instruction is one decoded bytecode instruction. Only the field(s)
// relevant to Op are meaningful; which ones those are is documented on the
// Opcode constant itself.
type Instruction struct {
	Op     Opcode
	IntArg int
	StrArg string
	Arity  int // meaningful only for CreateFunction
}

// Program is a fully linked, ready-to-run instruction sequence - the
// output of Compiler.Link (see pkg/compiler).
type Program struct {
	Instructions []Instruction
}

// Disassemble renders the program as "index: mnemonic operand" lines, one
// per instruction, for the -dump CLI flag and debugger listings.
func (p *Program) Disassemble() []string {
	lines := make([]string, len(p.Instructions))
	for i, instr := range p.Instructions {
		lines[i] = disassembleOne(i, instr)
	}
	return lines
}

func disassembleOne(index int, instr Instruction) string {
	base := strconv.Itoa(index) + ": " + instr.Op.String()
	switch instr.Op {
	case ConstInt, Store, Load, JmpAlways, JmpIfTrue, JmpIfFalse, CallNoKw:
		return base + " " + strconv.Itoa(instr.IntArg)
	case ConstString, StoreGlobal, LoadGlobal:
		return base + " " + instr.StrArg
	case CreateFunction:
		line := base + " addr=" + strconv.Itoa(instr.IntArg) + " arity=" + strconv.Itoa(instr.Arity)
		if instr.StrArg != "" {
			line += " " + instr.StrArg
		}
		return line
	default:
		return base
	}
}
