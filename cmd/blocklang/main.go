// Command blocklang is the driver described in spec.md §6: it reads a
// source program from standard input, lexes and parses it, compiles and
// links the result, registers the native extensions, and runs it on a
// fresh VM to completion.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/blocklang/blocklang/pkg/compiler"
	"github.com/blocklang/blocklang/pkg/extension"
	"github.com/blocklang/blocklang/pkg/parser"
	"github.com/blocklang/blocklang/pkg/vm"
)

const version = "0.1.0"

func main() {
	var (
		stackCapacity = flag.Int("stack", 1024, "operand stack capacity")
		maxObjects    = flag.Int("max-objects", 4096, "GC collection threshold, in live objects")
		dump          = flag.Bool("dump", false, "write a disassembly of the linked program to stderr before running")
		debug         = flag.Bool("debug", false, "attach the interactive single-step debugger")
		showVersion   = flag.Bool("version", false, "print the version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("blocklang version %s\n", version)
		return
	}

	source, err := io.ReadAll(os.Stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error reading stdin: %v\n", err)
		os.Exit(1)
	}

	p := parser.New(string(source))
	tree, err := p.Parse()
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse error: %v\n", err)
		os.Exit(1)
	}

	c := compiler.New()
	if err := c.CompileTop(tree); err != nil {
		fmt.Fprintf(os.Stderr, "compile error: %v\n", err)
		os.Exit(1)
	}
	program := c.Link()

	if *dump {
		for _, line := range program.Disassemble() {
			fmt.Fprintln(os.Stderr, line)
		}
	}

	machine := vm.New(*stackCapacity, *maxObjects)
	extension.Register(machine, extension.Basic())
	machine.SetCode(program)

	if *debug {
		d := vm.NewDebugger(machine)
		d.Enable()
		d.SetStepMode(true)
		machine.AttachDebugger(d)
	}

	if err := machine.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "runtime error: %v\n", err)
		os.Exit(1)
	}
	os.Exit(machine.ExitCode())
}
