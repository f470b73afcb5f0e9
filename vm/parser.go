package vm

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// CommentMarker starts a comment; everything after it on a line is ignored
// unless it appears inside a quoted string.
const CommentMarker = ';'

// splitTokens tokenizes one source line on whitespace, merging double-quoted
// spans into a single token and dropping an unquoted comment tail.
func splitTokens(line string) []string {
	var tokens []string
	var b strings.Builder
	inQuotes := false

	flush := func() {
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}

	for _, r := range line {
		switch {
		case r == CommentMarker && !inQuotes:
			flush()
			return tokens
		case r == '"':
			inQuotes = !inQuotes
			b.WriteRune(r)
		case unicode.IsSpace(r) && !inQuotes:
			flush()
		default:
			b.WriteRune(r)
		}
	}
	flush()
	return tokens
}

// ParseLine parses one non-blank, non-comment source line into an
// instruction. Parsing is total: it either yields a complete instruction or
// an error, and never touches machine state.
func ParseLine(line string) (Instruction, error) {
	tokens := splitTokens(line)

	switch len(tokens) {
	case 1:
		t := tokens[0]
		if t == "leave" {
			return Instruction{Op: OpLeave}, nil
		}
		if len(t) > 1 && strings.HasSuffix(t, ":") {
			return Instruction{Op: OpLabel, Label: strings.TrimSuffix(t, ":")}, nil
		}
		return Instruction{}, &ParseError{Message: fmt.Sprintf("unknown instruction: %s", t)}

	case 2:
		switch tokens[0] {
		case "syscall":
			return Instruction{Op: OpSyscall, Label: tokens[1]}, nil
		case "jmp":
			return Instruction{Op: OpJmp, Label: tokens[1]}, nil
		case "call":
			return Instruction{Op: OpCallVoid, Label: tokens[1]}, nil
		case "ret":
			op, err := parseOperand(tokens[1])
			if err != nil {
				return Instruction{}, err
			}
			return Instruction{Op: OpRet, A: op}, nil
		}
		return Instruction{}, &ParseError{Message: fmt.Sprintf("unknown instruction: %s", tokens[0])}

	case 3:
		switch tokens[0] {
		case "mov":
			dest, err := parseAddress(tokens[1])
			if err != nil {
				return Instruction{}, err
			}
			src, err := parseOperand(tokens[2])
			if err != nil {
				return Instruction{}, err
			}
			return Instruction{Op: OpMov, Dest: dest, A: src}, nil
		case "lea":
			dest, err := parseAddress(tokens[1])
			if err != nil {
				return Instruction{}, err
			}
			addr, err := parseAddress(tokens[2])
			if err != nil {
				return Instruction{}, err
			}
			return Instruction{Op: OpLea, Dest: dest, A: Location{Addr: addr}}, nil
		case "call":
			dest, err := parseAddress(tokens[1])
			if err != nil {
				return Instruction{}, err
			}
			return Instruction{Op: OpCall, Dest: dest, Label: tokens[2]}, nil
		case "jl", "jg", "je", "jne":
			cond, err := parseOperand(tokens[1])
			if err != nil {
				return Instruction{}, err
			}
			return Instruction{Op: condOpcode(tokens[0]), A: cond, Label: tokens[2]}, nil
		}
		return Instruction{}, &ParseError{Message: fmt.Sprintf("unknown instruction: %s", tokens[0])}

	case 4:
		var op Opcode
		switch tokens[0] {
		case "add":
			op = OpAdd
		case "sub":
			op = OpSub
		case "cmp":
			op = OpCmp
		default:
			return Instruction{}, &ParseError{Message: fmt.Sprintf("unknown instruction: %s", tokens[0])}
		}
		dest, err := parseAddress(tokens[1])
		if err != nil {
			return Instruction{}, err
		}
		a, err := parseOperand(tokens[2])
		if err != nil {
			return Instruction{}, err
		}
		b, err := parseOperand(tokens[3])
		if err != nil {
			return Instruction{}, err
		}
		return Instruction{Op: op, Dest: dest, A: a, B: b}, nil
	}

	return Instruction{}, &ParseError{Message: fmt.Sprintf("unknown shape of instruction %q", strings.TrimSpace(line))}
}

func condOpcode(mnemonic string) Opcode {
	switch mnemonic {
	case "jl":
		return OpJl
	case "jg":
		return OpJg
	case "je":
		return OpJe
	}
	return OpJne
}

// parseAddress parses the address sub-grammar: "sp", "sp[N]", "[X]" with X
// a register or stack slot, or a bare register name.
func parseAddress(s string) (Address, error) {
	if s == "sp" {
		return StackSlot{}, nil
	}
	if reg, ok := ParseRegister(s); ok {
		return RegisterAddress{Reg: reg}, nil
	}
	if strings.HasPrefix(s, "sp[") && strings.HasSuffix(s, "]") {
		raw := strings.TrimSpace(s[3 : len(s)-1])
		idx, err := strconv.Atoi(raw)
		if err != nil || idx < 0 {
			return nil, &ParseError{Message: fmt.Sprintf("bad stack index %q", raw)}
		}
		return StackSlot{Index: idx}, nil
	}
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		inner, err := parseAddress(strings.TrimSpace(s[1 : len(s)-1]))
		if err != nil {
			return nil, err
		}
		switch inner.(type) {
		case RegisterAddress, StackSlot:
			return Reference{Target: inner}, nil
		}
		return nil, &ParseError{Message: fmt.Sprintf("only one level of indirection is supported: %s", s)}
	}
	return nil, &ParseError{Message: fmt.Sprintf("address unknown: %s", s)}
}

// parseOperand parses an operand: an address, an integer literal, or a
// quoted text literal.
func parseOperand(s string) (Operand, error) {
	if addr, err := parseAddress(s); err == nil {
		return Location{Addr: addr}, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Literal{Value: IntegerValue(n)}, nil
	}
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		return Literal{Value: TextValue(s[1 : len(s)-1])}, nil
	}
	return nil, &ParseError{Message: fmt.Sprintf("%s cannot be parsed as an operand", s)}
}

// ParseProgram parses full source text into an instruction sequence. Blank
// lines and comment lines are skipped before parsing; errors carry 1-based
// source line numbers.
func ParseProgram(source string) ([]Instruction, error) {
	var program []Instruction
	for num, line := range strings.Split(source, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || trimmed[0] == CommentMarker {
			continue
		}
		in, err := ParseLine(trimmed)
		if err != nil {
			var pe *ParseError
			if errors.As(err, &pe) {
				pe.Line = num + 1
				return nil, pe
			}
			return nil, fmt.Errorf("line %d: %w", num+1, err)
		}
		program = append(program, in)
	}
	return program, nil
}
