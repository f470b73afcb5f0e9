package vm

import (
	"errors"
	"strings"
	"testing"
)

// ============ Tokenizer Tests ============

func TestSplitTokensQuoteMerging(t *testing.T) {
	tokens := splitTokens(`mov rax "hello world"`)
	if len(tokens) != 3 {
		t.Fatalf("Expected 3 tokens, got %d: %v", len(tokens), tokens)
	}
	if tokens[2] != `"hello world"` {
		t.Errorf("Expected quoted span as one token, got %q", tokens[2])
	}
}

func TestSplitTokensCommentTail(t *testing.T) {
	tokens := splitTokens("mov rax 5 ; set up the counter")
	if len(tokens) != 3 {
		t.Fatalf("Expected comment tail to be dropped, got %v", tokens)
	}
}

func TestSplitTokensCommentMarkerInsideQuotes(t *testing.T) {
	tokens := splitTokens(`mov rax "a;b"`)
	if len(tokens) != 3 {
		t.Fatalf("Expected 3 tokens, got %v", tokens)
	}
	if tokens[2] != `"a;b"` {
		t.Errorf("Quoted comment marker must survive, got %q", tokens[2])
	}
}

// ============ Line Grammar Tests ============

func TestParseLineSingleToken(t *testing.T) {
	in, err := ParseLine("leave")
	if err != nil {
		t.Fatalf("ParseLine failed: %v", err)
	}
	if in.Op != OpLeave {
		t.Errorf("Expected OpLeave, got %v", in.Op)
	}

	in, err = ParseLine("main:")
	if err != nil {
		t.Fatalf("ParseLine failed: %v", err)
	}
	if in.Op != OpLabel || in.Label != "main" {
		t.Errorf("Expected label 'main', got %+v", in)
	}

	if _, err := ParseLine("bogus"); err == nil {
		t.Error("Expected error for unknown single-token instruction")
	}
}

func TestParseLineTwoTokens(t *testing.T) {
	cases := []struct {
		line  string
		op    Opcode
		label string
	}{
		{"syscall printf", OpSyscall, "printf"},
		{"jmp loop", OpJmp, "loop"},
		{"call helper", OpCallVoid, "helper"},
	}
	for _, tc := range cases {
		in, err := ParseLine(tc.line)
		if err != nil {
			t.Fatalf("ParseLine(%q) failed: %v", tc.line, err)
		}
		if in.Op != tc.op || in.Label != tc.label {
			t.Errorf("ParseLine(%q) = %+v, want op %v label %q", tc.line, in, tc.op, tc.label)
		}
	}

	in, err := ParseLine("ret 42")
	if err != nil {
		t.Fatalf("ParseLine failed: %v", err)
	}
	lit, ok := in.A.(Literal)
	if !ok || lit.Value.Int() != 42 {
		t.Errorf("Expected ret with literal 42, got %+v", in.A)
	}
}

func TestParseLineThreeTokens(t *testing.T) {
	in, err := ParseLine("mov rax 5")
	if err != nil {
		t.Fatalf("ParseLine failed: %v", err)
	}
	if in.Op != OpMov {
		t.Errorf("Expected OpMov, got %v", in.Op)
	}
	if in.Dest != (RegisterAddress{Reg: RegRAX}) {
		t.Errorf("Expected rax destination, got %v", in.Dest)
	}

	in, err = ParseLine("call rbx answer")
	if err != nil {
		t.Fatalf("ParseLine failed: %v", err)
	}
	if in.Op != OpCall || in.Label != "answer" {
		t.Errorf("Expected value-returning call, got %+v", in)
	}

	in, err = ParseLine("lea rax sp[3]")
	if err != nil {
		t.Fatalf("ParseLine failed: %v", err)
	}
	loc, ok := in.A.(Location)
	if !ok || loc.Addr != (StackSlot{Index: 3}) {
		t.Errorf("Expected lea source sp[3], got %+v", in.A)
	}

	in, err = ParseLine("jl rax loop")
	if err != nil {
		t.Fatalf("ParseLine failed: %v", err)
	}
	if in.Op != OpJl || in.Label != "loop" {
		t.Errorf("Expected jl, got %+v", in)
	}
}

func TestParseLineFourTokens(t *testing.T) {
	in, err := ParseLine("add rax rbx 1")
	if err != nil {
		t.Fatalf("ParseLine failed: %v", err)
	}
	if in.Op != OpAdd {
		t.Errorf("Expected OpAdd, got %v", in.Op)
	}

	in, err = ParseLine("sub sp[2] sp[2] 1")
	if err != nil {
		t.Fatalf("ParseLine failed: %v", err)
	}
	if in.Dest != (StackSlot{Index: 2}) {
		t.Errorf("Expected sp[2] destination, got %v", in.Dest)
	}

	in, err = ParseLine("cmp rax rcx 6")
	if err != nil {
		t.Fatalf("ParseLine failed: %v", err)
	}
	if in.Op != OpCmp {
		t.Errorf("Expected OpCmp, got %v", in.Op)
	}
}

func TestParseLineBadShapes(t *testing.T) {
	bad := []string{
		"mov rax",               // too few operands
		"add rax rbx rcx rdx",   // too many tokens
		"frob rax rbx",          // unknown mnemonic
		"mov rdx 5",             // unknown register
		"mov rax 'single'",      // unsupported quoting
		"mov [sp[|]] 1",         // bad stack index
	}
	for _, line := range bad {
		if _, err := ParseLine(line); err == nil {
			t.Errorf("ParseLine(%q) should fail", line)
		}
	}
}

// ============ Operand Grammar Tests ============

func TestParseOperandForms(t *testing.T) {
	cases := []struct {
		src  string
		want Operand
	}{
		{"sp", Location{Addr: StackSlot{}}},
		{"sp[7]", Location{Addr: StackSlot{Index: 7}}},
		{"rbx", Location{Addr: RegisterAddress{Reg: RegRBX}}},
		{"[rcx]", Location{Addr: Reference{Target: RegisterAddress{Reg: RegRCX}}}},
		{"[sp[4]]", Location{Addr: Reference{Target: StackSlot{Index: 4}}}},
		{"-17", Literal{Value: IntegerValue(-17)}},
		{`"hi"`, Literal{Value: TextValue("hi")}},
	}
	for _, tc := range cases {
		got, err := parseOperand(tc.src)
		if err != nil {
			t.Fatalf("parseOperand(%q) failed: %v", tc.src, err)
		}
		if got != tc.want {
			t.Errorf("parseOperand(%q) = %#v, want %#v", tc.src, got, tc.want)
		}
	}
}

func TestParseOperandRejectsNestedReference(t *testing.T) {
	if _, err := parseOperand("[[rax]]"); err == nil {
		t.Error("Nested reference must be a parse error")
	}
}

func TestParseOperandRejectsNegativeSlot(t *testing.T) {
	if _, err := parseOperand("sp[-1]"); err == nil {
		t.Error("Negative stack index must be a parse error")
	}
}

// ============ Program Loader Tests ============

func TestParseProgramSkipsBlanksAndComments(t *testing.T) {
	source := strings.Join([]string{
		"; setup",
		"",
		"mov rax 1",
		"   ; indented comment",
		"ret rax",
	}, "\n")

	program, err := ParseProgram(source)
	if err != nil {
		t.Fatalf("ParseProgram failed: %v", err)
	}
	if len(program) != 2 {
		t.Fatalf("Expected 2 instructions, got %d", len(program))
	}
}

func TestParseProgramReportsLineNumber(t *testing.T) {
	source := "mov rax 1\nmov rax\nret rax"

	_, err := ParseProgram(source)
	if err == nil {
		t.Fatal("Expected parse error")
	}
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("Expected *ParseError, got %T", err)
	}
	if pe.Line != 2 {
		t.Errorf("Expected error on line 2, got line %d", pe.Line)
	}
}
