package vm

import (
	"fmt"
	"strings"
)

// Dump renders the machine state for the post-run report: every register,
// then the stack with runs of untyped slots collapsed into a single range
// line.
func (m *Memory) Dump() string {
	var sb strings.Builder

	sb.WriteString("machine state:\n")
	for r := Register(0); r < NumRegisters; r++ {
		fmt.Fprintf(&sb, "  %s: %s\n", r, m.Registers[r])
	}
	sb.WriteString("  stack:\n")
	for _, line := range collapseStack(m.Stack) {
		fmt.Fprintf(&sb, "    %s\n", line)
	}
	return sb.String()
}

func collapseStack(stack []Value) []string {
	var lines []string

	for idx := 0; idx < len(stack); {
		if !stack[idx].IsUntyped() {
			lines = append(lines, fmt.Sprintf("sp[%d]: %s", idx, stack[idx]))
			idx++
			continue
		}
		end := idx
		for end+1 < len(stack) && stack[end+1].IsUntyped() {
			end++
		}
		if end == idx {
			lines = append(lines, fmt.Sprintf("sp[%d]: <untyped>", idx))
		} else {
			lines = append(lines, fmt.Sprintf("sp[%d..%d]: <untyped>", idx, end))
		}
		idx = end + 1
	}
	return lines
}
