package vm

import (
	"fmt"
	"io"
	"strings"
)

// formatMarker is the printf substitution marker; the first occurrence is
// replaced with rbx's raw textual form.
const formatMarker = "{}"

// Execute applies in's data effect to memory: arithmetic, writes, frame
// creation and syscall side effects. Control-flow transitions (program
// counter and frame unwinding) are applied separately by the interpreter's
// transfer step, so each half can be tested on its own.
func Execute(in Instruction, m *Memory, pc int, out io.Writer) error {
	switch in.Op {
	case OpMov:
		v, err := m.Get(in.A)
		if err != nil {
			return err
		}
		return m.Set(in.Dest, v)

	case OpAdd, OpSub, OpCmp:
		a, err := m.Get(in.A)
		if err != nil {
			return err
		}
		b, err := m.Get(in.B)
		if err != nil {
			return err
		}
		var result Value
		switch in.Op {
		case OpAdd:
			result, err = a.Add(b)
		case OpSub:
			result, err = a.Sub(b)
		default:
			result, err = a.Compare(b)
		}
		if err != nil {
			return err
		}
		return m.Set(in.Dest, result)

	case OpLea:
		loc, ok := in.A.(Location)
		if !ok {
			return &SegfaultError{Message: "lea requires an addressable operand"}
		}
		return m.Set(in.Dest, PointerValue(loc.Addr))

	case OpCall:
		m.PushFrame(Frame{ReturnPC: pc, Dest: in.Dest, Saved: m.Snapshot()})

	case OpCallVoid:
		m.PushFrame(Frame{ReturnPC: pc, Saved: m.Snapshot()})

	case OpJmp, OpJl, OpJg, OpJe, OpJne:
		// Conditional jumps push like jmp; transfer pops the frame again
		// when the branch is not taken.
		m.PushFrame(Frame{ReturnPC: pc, EnteredByJump: true, Saved: m.Snapshot()})

	case OpSyscall:
		return execSyscall(in.Label, m, out)

	case OpLabel, OpRet, OpLeave:
		// no data effect
	}
	return nil
}

// knownSyscalls is the closed set of kernel-provided routines. The static
// checker rejects names outside this set before execution begins.
var knownSyscalls = map[string]bool{
	"printf": true,
}

// KnownSyscalls returns the valid syscall names, for tooling.
func KnownSyscalls() []string {
	return []string{"printf"}
}

func execSyscall(name string, m *Memory, out io.Writer) error {
	switch name {
	case "printf":
		format := m.Registers[RegRAX]
		if format.Kind() != KindText {
			return &WrongTypeError{Expected: "text", Actual: format}
		}
		line := strings.Replace(format.Text(), formatMarker, m.Registers[RegRBX].Raw(), 1)
		_, err := fmt.Fprintln(out, line)
		return err
	}
	// Unreachable for checked programs; guards programs built by hand.
	return &SemanticError{Label: name, Message: fmt.Sprintf("unknown syscall %q", name)}
}
