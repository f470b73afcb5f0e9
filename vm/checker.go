package vm

import "fmt"

// terminator describes what a call/jump target's block must reach.
type terminator uint8

const (
	needsRet        terminator = iota // value-returning call: ret required
	needsRetOrLeave                   // void call or jump: ret or leave
)

// Check statically verifies the program before execution: every call and
// jump target must exist and its block must reach the required terminator,
// and every syscall name must be known.
//
// The block scan is a single linear walk from the label: it succeeds on the
// first satisfying terminator and fails when another label definition is
// reached first. Calls and jumps inside the block are stepped over, which is
// sound because the language has no other intra-block branching.
func Check(program []Instruction) error {
	for _, in := range program {
		switch in.Op {
		case OpCall:
			if err := blockEndsWith(program, in.Label, needsRet); err != nil {
				return err
			}
		case OpCallVoid, OpJmp, OpJl, OpJg, OpJe, OpJne:
			if err := blockEndsWith(program, in.Label, needsRetOrLeave); err != nil {
				return err
			}
		case OpSyscall:
			if !knownSyscalls[in.Label] {
				return &SemanticError{
					Label:   in.Label,
					Message: fmt.Sprintf("unknown syscall %q", in.Label),
				}
			}
		}
	}
	return nil
}

func blockEndsWith(program []Instruction, label string, want terminator) error {
	start, ok := findLabel(program, label)
	if !ok {
		return &LabelNotFoundError{Label: label}
	}

	for idx := start + 1; idx < len(program); idx++ {
		switch in := program[idx]; {
		case in.Op == OpLabel:
			return missingTerminator(label, want)
		case in.Op == OpRet:
			return nil
		case in.Op == OpLeave && want == needsRetOrLeave:
			return nil
		}
	}
	return missingTerminator(label, want)
}

func missingTerminator(label string, want terminator) error {
	if want == needsRet {
		return &SemanticError{
			Label:   label,
			Message: fmt.Sprintf("the label %q is called expecting a return value, but not every code path provides `ret`", label),
		}
	}
	return &SemanticError{
		Label:   label,
		Message: fmt.Sprintf("the label %q is entered via call or jump, but not every code path provides `ret` or `leave`", label),
	}
}
