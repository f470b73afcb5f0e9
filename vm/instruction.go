package vm

import "fmt"

// Opcode identifies one instruction of the machine's closed instruction set.
type Opcode uint8

const (
	OpMov      Opcode = iota // mov D S       copy a value to D
	OpAdd                    // add D S1 S2   D = S1 + S2
	OpSub                    // sub D S1 S2   D = S1 - S2
	OpCmp                    // cmp D S1 S2   D = -1, 0 or 1
	OpLea                    // lea D A       D = pointer to A
	OpCall                   // call D L      call L, return value into D
	OpCallVoid               // call L        call L, discard nothing
	OpJmp                    // jmp L         jump without register restore
	OpJl                     // jl S L        jump when S == -1
	OpJg                     // jg S L        jump when S == 1
	OpJe                     // je S L        jump when S == 0
	OpJne                    // jne S L       jump when S != 0
	OpLabel                  // L:            call/jump target marker
	OpRet                    // ret S         return S to the caller
	OpLeave                  // leave         return without a value
	OpSyscall                // syscall NAME  kernel-provided routine
)

var mnemonics = [...]string{
	OpMov:      "mov",
	OpAdd:      "add",
	OpSub:      "sub",
	OpCmp:      "cmp",
	OpLea:      "lea",
	OpCall:     "call",
	OpCallVoid: "call",
	OpJmp:      "jmp",
	OpJl:       "jl",
	OpJg:       "jg",
	OpJe:       "je",
	OpJne:      "jne",
	OpLabel:    "label",
	OpRet:      "ret",
	OpLeave:    "leave",
	OpSyscall:  "syscall",
}

func (op Opcode) String() string {
	if int(op) < len(mnemonics) {
		return mnemonics[op]
	}
	return fmt.Sprintf("op(%d)", uint8(op))
}

// Mnemonics returns the user-facing instruction mnemonics, for tooling.
func Mnemonics() []string {
	return []string{
		"mov", "add", "sub", "cmp", "lea", "call", "jmp",
		"jl", "jg", "je", "jne", "ret", "leave", "syscall",
	}
}

// Instruction is one parsed source line. The struct is flat: Dest holds the
// destination address where the opcode takes one, A and B hold the source
// operands, Label holds call/jump targets, label-definition names and
// syscall names. Unused fields stay nil/empty.
type Instruction struct {
	Op    Opcode
	Dest  Address
	A, B  Operand
	Label string
}

// String renders the instruction in listing form. The output is for humans
// and disassembly; it is close to, but not guaranteed identical with, the
// accepted source syntax.
func (in Instruction) String() string {
	switch in.Op {
	case OpLabel:
		return in.Label + ":"
	case OpLeave:
		return "leave"
	case OpSyscall, OpJmp, OpCallVoid:
		return fmt.Sprintf("%s %s", in.Op, in.Label)
	case OpCall:
		return fmt.Sprintf("call %s %s", in.Dest, in.Label)
	case OpRet:
		return fmt.Sprintf("ret %s", in.A)
	case OpMov, OpLea:
		return fmt.Sprintf("%s %s %s", in.Op, in.Dest, in.A)
	case OpJl, OpJg, OpJe, OpJne:
		return fmt.Sprintf("%s %s %s", in.Op, in.A, in.Label)
	case OpAdd, OpSub, OpCmp:
		return fmt.Sprintf("%s %s %s %s", in.Op, in.Dest, in.A, in.B)
	}
	return in.Op.String()
}
