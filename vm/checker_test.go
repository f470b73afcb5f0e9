package vm

import (
	"errors"
	"strings"
	"testing"
)

func mustParse(t *testing.T, lines ...string) []Instruction {
	t.Helper()
	program, err := ParseProgram(strings.Join(lines, "\n"))
	if err != nil {
		t.Fatalf("ParseProgram failed: %v", err)
	}
	return program
}

func TestCheckAcceptsReturningCall(t *testing.T) {
	program := mustParse(t,
		"call rax answer",
		"ret rax",
		"answer:",
		"ret 42",
	)
	if err := Check(program); err != nil {
		t.Errorf("Check failed: %v", err)
	}
}

func TestCheckValueCallRequiresRet(t *testing.T) {
	program := mustParse(t,
		"call rax broken",
		"ret rax",
		"broken:",
		"mov rax 1",
		"leave", // not good enough for a value-returning call
	)
	err := Check(program)
	var semantic *SemanticError
	if !errors.As(err, &semantic) {
		t.Fatalf("Expected SemanticError, got %v", err)
	}
	if semantic.Label != "broken" {
		t.Errorf("Diagnostic should name 'broken', got %q", semantic.Label)
	}
}

func TestCheckBlockEndedByAnotherLabel(t *testing.T) {
	program := mustParse(t,
		"call first",
		"leave",
		"first:",
		"mov rax 1",
		"second:",
		"ret rax",
	)
	err := Check(program)
	var semantic *SemanticError
	if !errors.As(err, &semantic) {
		t.Fatalf("Expected SemanticError, got %v", err)
	}
	if semantic.Label != "first" {
		t.Errorf("Diagnostic should name 'first', got %q", semantic.Label)
	}
}

func TestCheckVoidCallAcceptsLeave(t *testing.T) {
	program := mustParse(t,
		"call helper",
		"leave",
		"helper:",
		"mov rcx 1",
		"leave",
	)
	if err := Check(program); err != nil {
		t.Errorf("Check failed: %v", err)
	}
}

func TestCheckJumpAcceptsRet(t *testing.T) {
	program := mustParse(t,
		"jmp exit",
		"exit:",
		"ret 0",
	)
	if err := Check(program); err != nil {
		t.Errorf("Check failed: %v", err)
	}
}

func TestCheckConditionalJumpTargets(t *testing.T) {
	program := mustParse(t,
		"cmp rax rcx 6",
		"jl rax dangling",
		"leave",
		"dangling:",
		"mov rax 1",
	)
	err := Check(program)
	var semantic *SemanticError
	if !errors.As(err, &semantic) {
		t.Fatalf("Expected SemanticError for conditional jump target, got %v", err)
	}
}

func TestCheckLabelNotFound(t *testing.T) {
	program := mustParse(t, "jmp nowhere")
	err := Check(program)
	var notFound *LabelNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("Expected LabelNotFoundError, got %v", err)
	}
	if notFound.Label != "nowhere" {
		t.Errorf("Diagnostic should name 'nowhere', got %q", notFound.Label)
	}
}

func TestCheckUnknownSyscall(t *testing.T) {
	program := mustParse(t, "syscall reboot")
	err := Check(program)
	var semantic *SemanticError
	if !errors.As(err, &semantic) {
		t.Fatalf("Expected SemanticError, got %v", err)
	}
	if !strings.Contains(semantic.Error(), "reboot") {
		t.Errorf("Diagnostic should name the syscall, got %q", semantic.Error())
	}
}

func TestCheckRunsBeforeExecution(t *testing.T) {
	var out strings.Builder
	interp, err := Load(strings.Join([]string{
		`mov rax "should not print"`,
		"syscall printf",
		"call rax broken",
		"ret rax",
		"broken:",
		"mov rax 1",
	}, "\n"), WithOutput(&out))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if _, err := interp.Run(); err == nil {
		t.Fatal("Expected semantic failure")
	}
	if out.Len() != 0 {
		t.Errorf("No instruction may execute before the check passes, printed %q", out.String())
	}
	if interp.PC() != 0 {
		t.Errorf("Program counter must not move, got %d", interp.PC())
	}
}
