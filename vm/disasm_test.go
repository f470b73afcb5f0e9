package vm

import (
	"strings"
	"testing"
)

func TestDisassembleListing(t *testing.T) {
	program := mustParse(t,
		"mov rax 5",
		"jmp done",
		"done:",
		`ret "bye"`,
	)

	listing := Disassemble(program)
	want := []string{
		"; 4 instructions",
		"0000      mov rax 5",
		"0001      jmp done",
		"0002  done:",
		`0003      ret "bye"`,
	}
	for _, line := range want {
		if !strings.Contains(listing, line) {
			t.Errorf("Listing missing %q:\n%s", line, listing)
		}
	}
}

func TestDumpCollapsesUntypedRuns(t *testing.T) {
	m := NewMemory(8)
	m.Registers[RegRAX] = IntegerValue(5)
	m.Stack[0] = TextValue("head")
	m.Stack[4] = IntegerValue(9)

	dump := m.Dump()
	want := []string{
		"rax: 5",
		"rbx: <untyped>",
		`sp[0]: "head"`,
		"sp[1..3]: <untyped>",
		"sp[4]: 9",
		"sp[5..7]: <untyped>",
	}
	for _, line := range want {
		if !strings.Contains(dump, line) {
			t.Errorf("Dump missing %q:\n%s", line, dump)
		}
	}
}

func TestDumpSingleUntypedSlot(t *testing.T) {
	m := NewMemory(3)
	m.Stack[0] = IntegerValue(1)
	m.Stack[2] = IntegerValue(2)

	dump := m.Dump()
	if !strings.Contains(dump, "sp[1]: <untyped>") {
		t.Errorf("Single untyped slot should not render as a range:\n%s", dump)
	}
}
