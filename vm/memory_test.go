package vm

import (
	"errors"
	"testing"
)

// ============ Read/Write Basics ============

func TestMemoryStartsUntyped(t *testing.T) {
	m := NewMemory(DefaultStackSize)
	for r := Register(0); r < NumRegisters; r++ {
		if !m.Registers[r].IsUntyped() {
			t.Errorf("Register %s should start untyped", r)
		}
	}
	for idx, v := range m.Stack {
		if !v.IsUntyped() {
			t.Errorf("Slot %d should start untyped", idx)
		}
	}
}

func TestMemoryRegisterRoundTrip(t *testing.T) {
	m := NewMemory(DefaultStackSize)
	if err := m.Set(RegisterAddress{Reg: RegRBX}, IntegerValue(9)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, err := m.Read(RegisterAddress{Reg: RegRBX})
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got.Int() != 9 {
		t.Errorf("Expected 9, got %s", got)
	}
}

func TestMemoryStackBounds(t *testing.T) {
	m := NewMemory(64)

	// Every in-range slot accepts a write.
	for idx := 0; idx < 64; idx++ {
		if err := m.Set(StackSlot{Index: idx}, IntegerValue(int64(idx))); err != nil {
			t.Fatalf("Set(sp[%d]) failed: %v", idx, err)
		}
	}

	var write *WriteError
	if err := m.Set(StackSlot{Index: 64}, IntegerValue(1)); !errors.As(err, &write) {
		t.Errorf("Expected WriteError for sp[64], got %v", err)
	}

	var read *ReadError
	if _, err := m.Read(StackSlot{Index: 64}); !errors.As(err, &read) {
		t.Errorf("Expected ReadError for sp[64], got %v", err)
	}
}

func TestMemoryGetLiteral(t *testing.T) {
	m := NewMemory(8)
	got, err := m.Get(Literal{Value: TextValue("lit")})
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Text() != "lit" {
		t.Errorf("Expected literal passthrough, got %s", got)
	}
}

// ============ Reference Resolution ============

func TestReferenceThroughIntegerRegister(t *testing.T) {
	m := NewMemory(16)
	m.Registers[RegRCX] = IntegerValue(5)

	ref := Reference{Target: RegisterAddress{Reg: RegRCX}}
	if err := m.Set(ref, TextValue("indirect")); err != nil {
		t.Fatalf("Set through reference failed: %v", err)
	}
	if m.Stack[5].Text() != "indirect" {
		t.Errorf("Expected write-through to sp[5], stack: %v", m.Stack[:8])
	}

	got, err := m.Read(ref)
	if err != nil {
		t.Fatalf("Read through reference failed: %v", err)
	}
	if got.Text() != "indirect" {
		t.Errorf("Expected read-through of sp[5], got %s", got)
	}
}

func TestReferenceThroughStackSlotPointer(t *testing.T) {
	m := NewMemory(16)
	m.Stack[2] = PointerValue(StackSlot{Index: 7})

	ref := Reference{Target: StackSlot{Index: 2}}
	if err := m.Set(ref, IntegerValue(42)); err != nil {
		t.Fatalf("Set through pointer failed: %v", err)
	}
	if m.Stack[7].Int() != 42 {
		t.Errorf("Expected write-through to sp[7], got %s", m.Stack[7])
	}
}

func TestReferenceRejectsNonPositiveInteger(t *testing.T) {
	m := NewMemory(16)
	m.Registers[RegRAX] = IntegerValue(0)

	var read *ReadError
	err := m.Set(Reference{Target: RegisterAddress{Reg: RegRAX}}, IntegerValue(1))
	if !errors.As(err, &read) {
		t.Errorf("Expected ReadError for slot 0 via integer, got %v", err)
	}

	m.Registers[RegRAX] = IntegerValue(16)
	err = m.Set(Reference{Target: RegisterAddress{Reg: RegRAX}}, IntegerValue(1))
	if !errors.As(err, &read) {
		t.Errorf("Expected ReadError for out-of-range slot, got %v", err)
	}
}

func TestReferenceRejectsRegisterPointer(t *testing.T) {
	m := NewMemory(16)
	m.Registers[RegRAX] = PointerValue(RegisterAddress{Reg: RegRBX})

	var fault *SegfaultError
	err := m.Set(Reference{Target: RegisterAddress{Reg: RegRAX}}, IntegerValue(1))
	if !errors.As(err, &fault) {
		t.Errorf("Expected SegfaultError for register pointer target, got %v", err)
	}
}

func TestReferenceRejectsNestedPointer(t *testing.T) {
	m := NewMemory(16)
	m.Registers[RegRAX] = PointerValue(Reference{Target: StackSlot{Index: 1}})

	var fault *SegfaultError
	err := m.Set(Reference{Target: RegisterAddress{Reg: RegRAX}}, IntegerValue(1))
	if !errors.As(err, &fault) {
		t.Errorf("Expected SegfaultError for nested pointer, got %v", err)
	}
}

func TestReferenceRejectsTextValue(t *testing.T) {
	m := NewMemory(16)
	m.Registers[RegRAX] = TextValue("not a slot")

	var read *ReadError
	err := m.Set(Reference{Target: RegisterAddress{Reg: RegRAX}}, IntegerValue(1))
	if !errors.As(err, &read) {
		t.Errorf("Expected ReadError for text pointer target, got %v", err)
	}
}

// ============ Frame Stack ============

func TestFrameStackIsLIFO(t *testing.T) {
	m := NewMemory(8)
	m.PushFrame(Frame{ReturnPC: 1})
	m.PushFrame(Frame{ReturnPC: 2})
	m.PushFrame(Frame{ReturnPC: 3})

	for want := 3; want >= 1; want-- {
		f, ok := m.PopFrame()
		if !ok {
			t.Fatalf("PopFrame failed at depth %d", want)
		}
		if f.ReturnPC != want {
			t.Errorf("Expected frame %d, got %d", want, f.ReturnPC)
		}
	}
	if _, ok := m.PopFrame(); ok {
		t.Error("PopFrame on empty stack should report false")
	}
}
