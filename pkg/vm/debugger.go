// Package vm - debugger support
package vm

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/blocklang/blocklang/pkg/bytecode"
)

// Debugger provides interactive, breakpoint-driven stepping over a VM's
// execution, invoked by Run before every instruction.
type Debugger struct {
	vm          *VM
	breakpoints map[int]bool
	stepMode    bool
	enabled     bool
}

// NewDebugger creates a debugger attached to vm, initially disabled.
func NewDebugger(vm *VM) *Debugger {
	return &Debugger{
		vm:          vm,
		breakpoints: make(map[int]bool),
	}
}

// Enable activates the debugger.
func (d *Debugger) Enable() { d.enabled = true }

// Disable deactivates the debugger; Run no longer pauses.
func (d *Debugger) Disable() { d.enabled = false }

// SetStepMode enables or disables pausing before every instruction.
func (d *Debugger) SetStepMode(enabled bool) { d.stepMode = enabled }

// AddBreakpoint pauses execution before the instruction at ip runs.
func (d *Debugger) AddBreakpoint(ip int) { d.breakpoints[ip] = true }

// RemoveBreakpoint removes a previously added breakpoint.
func (d *Debugger) RemoveBreakpoint(ip int) { delete(d.breakpoints, ip) }

// ClearBreakpoints removes every breakpoint.
func (d *Debugger) ClearBreakpoints() { d.breakpoints = make(map[int]bool) }

// ShouldPause reports whether execution should pause before the next
// instruction.
func (d *Debugger) ShouldPause() bool {
	if !d.enabled {
		return false
	}
	if d.stepMode {
		return true
	}
	return d.breakpoints[d.vm.pc]
}

// ShowCurrentInstruction prints the instruction about to execute.
func (d *Debugger) ShowCurrentInstruction(p *bytecode.Program) {
	if d.vm.pc >= len(p.Instructions) {
		fmt.Println("No current instruction")
		return
	}
	fmt.Printf("  %s\n", p.Instructions[d.vm.pc].Op)
}

// ShowStack displays the operand stack, top first.
func (d *Debugger) ShowStack() {
	fmt.Println("Stack (top to bottom):")
	if d.vm.sp == 0 {
		fmt.Println("  (empty)")
		return
	}
	for i := d.vm.sp - 1; i >= 0; i-- {
		fmt.Printf("  [%d] %s\n", i, d.vm.stack[i].Value().Kind)
	}
}

// ShowLocals displays the current frame's local slots.
func (d *Debugger) ShowLocals() {
	fmt.Println("Local slots:")
	if len(d.vm.frames) == 0 {
		fmt.Println("  (no active frame)")
		return
	}
	f := d.vm.frames[len(d.vm.frames)-1]
	if len(f.memory) == 0 {
		fmt.Println("  (none set)")
		return
	}
	for i, ref := range f.memory {
		fmt.Printf("  [%d] %s\n", i, ref.Value().Display())
	}
}

// ShowGlobals displays every bound global.
func (d *Debugger) ShowGlobals() {
	fmt.Println("Globals:")
	if len(d.vm.globals) == 0 {
		fmt.Println("  (none)")
		return
	}
	for name, ref := range d.vm.globals {
		fmt.Printf("  %s = %s\n", name, ref.Value().Kind)
	}
}

// ShowCallStack displays every active frame's return address.
func (d *Debugger) ShowCallStack() {
	fmt.Println("Call stack (top to bottom):")
	if len(d.vm.frames) == 0 {
		fmt.Println("  (empty)")
		return
	}
	for i := len(d.vm.frames) - 1; i >= 0; i-- {
		fmt.Printf("  frame %d [returns to %d]\n", i, d.vm.frames[i].returnPC)
	}
}

// InteractivePrompt reads and executes debugger commands until one of them
// resumes execution, returning whether to continue running at all.
func (d *Debugger) InteractivePrompt(p *bytecode.Program) (continueExecution bool) {
	scanner := bufio.NewScanner(os.Stdin)

	fmt.Println("\n=== paused ===")
	d.ShowCurrentInstruction(p)

	for {
		fmt.Print("debug> ")
		if !scanner.Scan() {
			return false
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		command := parts[0]

		switch command {
		case "help", "h", "?":
			d.printHelp()

		case "continue", "c":
			d.SetStepMode(false)
			return true

		case "step", "s", "next", "n":
			d.SetStepMode(true)
			return true

		case "stack", "st":
			d.ShowStack()

		case "locals", "l":
			d.ShowLocals()

		case "globals", "g":
			d.ShowGlobals()

		case "callstack", "cs":
			d.ShowCallStack()

		case "instruction", "i":
			d.ShowCurrentInstruction(p)

		case "breakpoint", "b":
			if len(parts) < 2 {
				fmt.Println("Usage: breakpoint <instruction_number>")
				continue
			}
			ip, err := strconv.Atoi(parts[1])
			if err != nil {
				fmt.Println("Invalid instruction number")
				continue
			}
			d.AddBreakpoint(ip)
			fmt.Printf("Breakpoint added at instruction %d\n", ip)

		case "delete", "d":
			if len(parts) < 2 {
				fmt.Println("Usage: delete <instruction_number>")
				continue
			}
			ip, err := strconv.Atoi(parts[1])
			if err != nil {
				fmt.Println("Invalid instruction number")
				continue
			}
			d.RemoveBreakpoint(ip)
			fmt.Printf("Breakpoint removed at instruction %d\n", ip)

		case "list", "ls":
			d.listInstructions(p)

		case "quit", "q":
			return false

		default:
			fmt.Printf("Unknown command: %s (type 'help' for commands)\n", command)
		}
	}
}

func (d *Debugger) printHelp() {
	fmt.Println("Debugger commands:")
	fmt.Println("  help, h, ?           Show this help")
	fmt.Println("  continue, c          Continue execution")
	fmt.Println("  step, s, next, n     Execute one instruction and pause again")
	fmt.Println("  stack, st            Show operand stack")
	fmt.Println("  locals, l            Show current frame's local slots")
	fmt.Println("  globals, g           Show global variables")
	fmt.Println("  callstack, cs        Show call stack")
	fmt.Println("  instruction, i       Show current instruction")
	fmt.Println("  breakpoint <n>, b    Add breakpoint at instruction n")
	fmt.Println("  delete <n>, d        Remove breakpoint at instruction n")
	fmt.Println("  list, ls             List all instructions")
	fmt.Println("  quit, q              Quit debugging (abort execution)")
}

func (d *Debugger) listInstructions(p *bytecode.Program) {
	fmt.Println("Instructions:")
	for i, line := range p.Disassemble() {
		marker := "  "
		if i == d.vm.pc {
			marker = "->"
		} else if d.breakpoints[i] {
			marker = "*"
		}
		fmt.Printf("%s %s\n", marker, line)
	}
}
