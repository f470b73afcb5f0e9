// Package vm implements a small virtual machine for a line-oriented,
// assembly-like language: three named registers, a fixed-size value stack,
// integer/text/pointer values and call/jump/return control flow.
//
// A program moves through three phases. ParseProgram turns source text into
// an immutable instruction sequence; Check statically verifies that every
// call and jump target reaches its required terminator; the Interpreter then
// drives a fetch/execute/transfer loop over mutable Memory until the program
// yields a terminal value or faults. Data effects (Execute) and control-flow
// transitions (transfer) are deliberately split so arithmetic/memory
// correctness and control-flow correctness can be tested independently.
package vm

import (
	"fmt"
	"io"
	"os"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("jonesy.vm")

// Interpreter drives a parsed program to completion. It owns the machine
// state exclusively and mutates it strictly sequentially; the only external
// side effect during a run is syscall output on the configured writer.
type Interpreter struct {
	program   []Instruction
	pc        int
	mem       *Memory
	out       io.Writer
	stackSize int
	trace     bool
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithOutput directs syscall output to w instead of standard output.
func WithOutput(w io.Writer) Option {
	return func(i *Interpreter) { i.out = w }
}

// WithStackSize sets the value stack length.
func WithStackSize(n int) Option {
	return func(i *Interpreter) { i.stackSize = n }
}

// WithTrace logs every executed instruction at debug verbosity.
func WithTrace(enabled bool) Option {
	return func(i *Interpreter) { i.trace = enabled }
}

// NewInterpreter builds an interpreter for a parsed program with
// all-untyped machine state.
func NewInterpreter(program []Instruction, opts ...Option) *Interpreter {
	i := &Interpreter{
		program:   program,
		out:       os.Stdout,
		stackSize: DefaultStackSize,
	}
	for _, opt := range opts {
		opt(i)
	}
	i.mem = NewMemory(i.stackSize)
	return i
}

// Load parses source text and builds an interpreter for it.
func Load(source string, opts ...Option) (*Interpreter, error) {
	program, err := ParseProgram(source)
	if err != nil {
		return nil, err
	}
	return NewInterpreter(program, opts...), nil
}

// Program returns the parsed instruction sequence. It is built once and
// never mutated structurally.
func (i *Interpreter) Program() []Instruction { return i.program }

// PC returns the current program counter.
func (i *Interpreter) PC() int { return i.pc }

// Memory exposes the machine state, for dumps and tests.
func (i *Interpreter) Memory() *Memory { return i.mem }

// Check runs the static semantic checker over the program.
func (i *Interpreter) Check() error { return Check(i.program) }

// Step executes the instruction under the program counter: data effect,
// then control-flow effect, then the advance by one. It returns the
// program's terminal value once one is produced, and nil while the program
// can continue. Stepping past the end of the program is a no-op.
func (i *Interpreter) Step() (*Value, error) {
	if i.pc < 0 || i.pc >= len(i.program) {
		return nil, nil
	}
	in := i.program[i.pc]
	if i.trace {
		log.Debugf("%04d  %s", i.pc, in)
	}

	if err := Execute(in, i.mem, i.pc, i.out); err != nil {
		return nil, fmt.Errorf("at instruction %d (%s): %w", i.pc, in, err)
	}
	terminal, err := i.transfer(in)
	if err != nil {
		return nil, fmt.Errorf("at instruction %d (%s): %w", i.pc, in, err)
	}
	if terminal != nil {
		return terminal, nil
	}
	i.pc++
	return nil, nil
}

// Run semantically checks the program and executes it to completion,
// returning the process exit code. Running off the end of the program
// terminates with exit code zero; the first error of any tier aborts the
// run.
func (i *Interpreter) Run() (int, error) {
	if err := i.Check(); err != nil {
		return 1, err
	}

	for i.pc >= 0 && i.pc < len(i.program) {
		terminal, err := i.Step()
		if err != nil {
			return 1, err
		}
		if terminal != nil {
			return ExitCode(*terminal), nil
		}
	}
	return 0, nil
}

// ExitCode maps a terminal value to a process exit code: an integer maps to
// its own value, every other kind to 1.
func ExitCode(v Value) int {
	if v.Kind() == KindInteger {
		return int(v.Int())
	}
	return 1
}
