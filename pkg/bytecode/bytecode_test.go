package bytecode

import "testing"

func TestOpcodeString(t *testing.T) {
	cases := []struct {
		op   Opcode
		want string
	}{
		{Nop, "Nop"},
		{ConstInt, "ConstInt"},
		{Add2, "Add2"},
		{JmpIfFalse, "JmpIfFalse"},
		{CallNoKw, "CallNoKw"},
		{Return, "Return"},
		{Exit, "Exit"},
		{Opcode(255), "Unknown"},
	}
	for _, c := range cases {
		if got := c.op.String(); got != c.want {
			t.Errorf("Opcode(%d).String() = %q, want %q", c.op, got, c.want)
		}
	}
}

func TestProgramDisassemble(t *testing.T) {
	p := &Program{Instructions: []Instruction{
		{Op: ConstInt, IntArg: 41},
		{Op: ConstInt, IntArg: 1},
		{Op: Add2},
		{Op: StoreGlobal, StrArg: "x"},
		{Op: LoadGlobal, StrArg: "x"},
		{Op: CreateFunction, IntArg: 10, Arity: 2},
		{Op: Exit},
	}}

	lines := p.Disassemble()
	if len(lines) != len(p.Instructions) {
		t.Fatalf("got %d lines, want %d", len(lines), len(p.Instructions))
	}
	want := []string{
		"0: ConstInt 41",
		"1: ConstInt 1",
		"2: Add2",
		"3: StoreGlobal x",
		"4: LoadGlobal x",
		"5: CreateFunction addr=10 arity=2",
		"6: Exit",
	}
	for i, w := range want {
		if lines[i] != w {
			t.Errorf("line %d = %q, want %q", i, lines[i], w)
		}
	}
}
