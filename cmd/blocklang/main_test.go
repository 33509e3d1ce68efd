package main

import (
	"io"
	"os"
	"strings"
	"testing"

	"github.com/blocklang/blocklang/pkg/compiler"
	"github.com/blocklang/blocklang/pkg/extension"
	"github.com/blocklang/blocklang/pkg/parser"
	"github.com/blocklang/blocklang/pkg/vm"
)

// runSource drives the same pipeline main does (parse, compile, link,
// run on a fresh VM with the basic natives registered), and captures
// whatever println writes to stdout along the way, so the six spec.md §8
// end-to-end scenarios can be exercised against real source text instead
// of hand-built ast.Statement trees.
func runSource(t *testing.T, source string, maxObjects int) (stdout string, exitCode int) {
	t.Helper()

	p := parser.New(source)
	tree, err := p.Parse()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	c := compiler.New()
	if err := c.CompileTop(tree); err != nil {
		t.Fatalf("compile error: %v", err)
	}
	program := c.Link()

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	origStdout := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = origStdout }()

	machine := vm.New(1024, maxObjects)
	extension.Register(machine, extension.Basic())
	machine.SetCode(program)

	runErr := machine.Run()
	w.Close()

	out, readErr := io.ReadAll(r)
	if readErr != nil {
		t.Fatalf("reading captured stdout: %v", readErr)
	}
	if runErr != nil {
		t.Fatalf("runtime error: %v", runErr)
	}
	return string(out), machine.ExitCode()
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

func TestEndToEndConstantArithmetic(t *testing.T) {
	stdout, exit := runSource(t, "do println(1 + 2 * 3) end", 4096)
	if firstLine(stdout) != "7" {
		t.Errorf("stdout = %q, want first line 7", stdout)
	}
	if exit != 0 {
		t.Errorf("exit = %d, want 0", exit)
	}
}

func TestEndToEndLocalAssignmentAndRead(t *testing.T) {
	stdout, exit := runSource(t, "do x = 10 y = x + 5 println(y) end", 4096)
	if firstLine(stdout) != "15" {
		t.Errorf("stdout = %q, want first line 15", stdout)
	}
	if exit != 0 {
		t.Errorf("exit = %d, want 0", exit)
	}
}

func TestEndToEndConditionalWithElse(t *testing.T) {
	stdout, exit := runSource(t, "do if 3 < 5 do println(1) end else do println(0) end end", 4096)
	if firstLine(stdout) != "1" {
		t.Errorf("stdout = %q, want first line 1", stdout)
	}
	if exit != 0 {
		t.Errorf("exit = %d, want 0", exit)
	}
}

func TestEndToEndWhileLoop(t *testing.T) {
	source := `do i = 0 s = 0
   while i < 5 do i = i + 1 s = s + i end
   println(s)
end`
	stdout, exit := runSource(t, source, 4096)
	if firstLine(stdout) != "15" {
		t.Errorf("stdout = %q, want first line 15", stdout)
	}
	if exit != 0 {
		t.Errorf("exit = %d, want 0", exit)
	}
}

func TestEndToEndRecursion(t *testing.T) {
	source := `do def fact(n) do if n == 0 do return 1 end else do return n * fact(n - 1) end end end
   println(fact(5))
end`
	stdout, exit := runSource(t, source, 4096)
	if firstLine(stdout) != "120" {
		t.Errorf("stdout = %q, want first line 120", stdout)
	}
	if exit != 0 {
		t.Errorf("exit = %d, want 0", exit)
	}
}

func TestEndToEndGCLivenessUnderPressure(t *testing.T) {
	// A max-objects threshold of 8 against 100 loop iterations, each of
	// which allocates a fresh transient string via str(i), forces many
	// collections over the course of the run (spec.md §8 scenario 6: 10x
	// the threshold). Only the last string written to the "kept" global
	// is reachable at any given collection; the rest must be reclaimed
	// without disturbing the one the global still holds.
	source := `do i = 0
   while i < 100 do
     kept = str(i)
     i = i + 1
   end
   println(kept)
end`
	stdout, exit := runSource(t, source, 8)
	if firstLine(stdout) != "99" {
		t.Errorf("stdout = %q, want first line 99 (last value written to the surviving global)", stdout)
	}
	if exit != 0 {
		t.Errorf("exit = %d, want 0", exit)
	}
}
