package vm

import "fmt"

// Register identifies one of the machine's three general-purpose registers.
// The set is closed; every consumer switches exhaustively over it.
type Register uint8

const (
	RegRAX Register = iota
	RegRBX
	RegRCX

	// NumRegisters is the size of the register file.
	NumRegisters = 3
)

func (r Register) String() string {
	switch r {
	case RegRAX:
		return "rax"
	case RegRBX:
		return "rbx"
	case RegRCX:
		return "rcx"
	}
	return fmt.Sprintf("reg(%d)", uint8(r))
}

// ParseRegister maps a source-form register name to its Register.
func ParseRegister(s string) (Register, bool) {
	switch s {
	case "rax":
		return RegRAX, true
	case "rbx":
		return RegRBX, true
	case "rcx":
		return RegRCX, true
	}
	return 0, false
}

// RegisterNames returns the source-form names of all registers.
func RegisterNames() []string {
	return []string{"rax", "rbx", "rcx"}
}
