package vm

import (
	"fmt"
	"strings"
)

// Disassemble returns a human-readable listing of a parsed program. Label
// definitions sit flush left; instructions are indented under them with
// their index in the instruction sequence.
func Disassemble(program []Instruction) string {
	var sb strings.Builder

	sb.WriteString("; jonesy program listing\n")
	fmt.Fprintf(&sb, "; %d instructions\n\n", len(program))

	for idx, in := range program {
		if in.Op == OpLabel {
			fmt.Fprintf(&sb, "%04d  %s:\n", idx, in.Label)
			continue
		}
		fmt.Fprintf(&sb, "%04d      %s\n", idx, in)
	}
	return sb.String()
}
