package vm

// DefaultStackSize is the stack length used when no size is configured.
const DefaultStackSize = 64

// Frame records the context saved when entering a label via call or jmp.
type Frame struct {
	// ReturnPC is the index of the call/jump instruction itself; the driver
	// advances past it after the frame unwinds.
	ReturnPC int
	// EnteredByJump marks frames created by jmp and the conditional jumps.
	// Register state is not restored when such a frame unwinds.
	EnteredByJump bool
	// Dest is where a value-returning call stores its result. It is always
	// nil for void calls and jumps; popping a nil-Dest frame with a
	// value-returning ret simply discards nothing, while popping a non-nil
	// Dest frame with leave is a contract violation.
	Dest Address
	// Saved snapshots the full register file at frame creation.
	Saved [NumRegisters]Value
}

// Memory is the machine's mutable state: the register file, the fixed-size
// value stack and the LIFO call-frame stack. It is created once per run with
// all cells untyped and mutated in place, one instruction at a time.
type Memory struct {
	Registers [NumRegisters]Value
	Stack     []Value

	frames []Frame
}

// NewMemory creates memory with the given stack length; sizes below one fall
// back to DefaultStackSize.
func NewMemory(stackSize int) *Memory {
	if stackSize <= 0 {
		stackSize = DefaultStackSize
	}
	return &Memory{Stack: make([]Value, stackSize)}
}

// PushFrame pushes a call frame. Frames are strictly LIFO: PopFrame always
// removes the most recently pushed frame.
func (m *Memory) PushFrame(f Frame) {
	m.frames = append(m.frames, f)
}

// PopFrame removes and returns the innermost frame. The second result is
// false when the frame stack is empty.
func (m *Memory) PopFrame() (Frame, bool) {
	if len(m.frames) == 0 {
		return Frame{}, false
	}
	f := m.frames[len(m.frames)-1]
	m.frames = m.frames[:len(m.frames)-1]
	return f, true
}

// FrameDepth returns the number of live call frames.
func (m *Memory) FrameDepth() int { return len(m.frames) }

// Snapshot copies the current register file.
func (m *Memory) Snapshot() [NumRegisters]Value { return m.Registers }

// Restore overwrites the register file with a snapshot.
func (m *Memory) Restore(regs [NumRegisters]Value) { m.Registers = regs }

// Get reads the value an operand names: literals yield their value, locations
// are read from storage.
func (m *Memory) Get(op Operand) (Value, error) {
	switch o := op.(type) {
	case Literal:
		return o.Value, nil
	case Location:
		return m.Read(o.Addr)
	}
	return Value{}, &ReadError{Operand: op}
}

// Read reads the value stored at an address. Stack slots are bounds-checked;
// references resolve their target's value to a slot and read through it.
func (m *Memory) Read(addr Address) (Value, error) {
	switch a := addr.(type) {
	case RegisterAddress:
		return m.Registers[a.Reg], nil
	case StackSlot:
		if a.Index < 0 || a.Index >= len(m.Stack) {
			return Value{}, &ReadError{Operand: Location{Addr: a}}
		}
		return m.Stack[a.Index], nil
	case Reference:
		slot, err := m.resolve(a)
		if err != nil {
			return Value{}, err
		}
		return m.Read(slot)
	}
	return Value{}, &ReadError{Operand: Location{Addr: addr}}
}

// Set writes a value to a destination address. Stack slots are
// bounds-checked; references resolve their target's value to a slot and
// write through it.
func (m *Memory) Set(addr Address, v Value) error {
	switch a := addr.(type) {
	case RegisterAddress:
		m.Registers[a.Reg] = v
		return nil
	case StackSlot:
		if a.Index < 0 || a.Index >= len(m.Stack) {
			return &WriteError{Addr: a}
		}
		m.Stack[a.Index] = v
		return nil
	case Reference:
		slot, err := m.resolve(a)
		if err != nil {
			return err
		}
		return m.Set(slot, v)
	}
	return &WriteError{Addr: addr}
}

// resolve turns a reference into the stack slot it points at. The value
// stored at the reference target must be a positive in-range integer or a
// stack-slot pointer. A register pointer or a second level of indirection is
// an addressing fault, not a pointer chase.
func (m *Memory) resolve(ref Reference) (StackSlot, error) {
	inner, err := m.Read(ref.Target)
	if err != nil {
		return StackSlot{}, err
	}

	switch inner.Kind() {
	case KindInteger:
		n := inner.Int()
		if n <= 0 || n >= int64(len(m.Stack)) {
			return StackSlot{}, &ReadError{Operand: Literal{Value: inner}}
		}
		return StackSlot{Index: int(n)}, nil
	case KindPointer:
		switch p := inner.Pointer().(type) {
		case StackSlot:
			return p, nil
		case RegisterAddress:
			return StackSlot{}, &SegfaultError{Message: "cannot address a register's position"}
		}
		return StackSlot{}, &SegfaultError{Message: "only single pointers are supported"}
	}
	return StackSlot{}, &ReadError{Operand: Literal{Value: inner}}
}
