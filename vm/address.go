package vm

import "fmt"

// Address describes where a value lives: a register, a stack slot, or one
// level of indirection through another location. The variants form a closed
// set; resolution never chases more than a single pointer.
type Address interface {
	fmt.Stringer
	isAddress()
}

// RegisterAddress names a register as a storage location.
type RegisterAddress struct {
	Reg Register
}

func (RegisterAddress) isAddress() {}

func (a RegisterAddress) String() string { return a.Reg.String() }

// StackSlot names one cell of the value stack. Index is non-negative; bounds
// are checked against the live stack on every read and write.
type StackSlot struct {
	Index int
}

func (StackSlot) isAddress() {}

func (a StackSlot) String() string { return fmt.Sprintf("sp[%d]", a.Index) }

// Reference reads or writes through the value stored at Target. Target is
// always a register or a stack slot; the parser rejects nested references,
// so indirection depth is one by construction.
type Reference struct {
	Target Address
}

func (Reference) isAddress() {}

func (a Reference) String() string { return "[" + a.Target.String() + "]" }

// Operand is the source of a value for an instruction: either a literal or
// an address to read from.
type Operand interface {
	fmt.Stringer
	isOperand()
}

// Literal is an operand carrying its value directly.
type Literal struct {
	Value Value
}

func (Literal) isOperand() {}

func (o Literal) String() string { return o.Value.String() }

// Location is an operand read from an address.
type Location struct {
	Addr Address
}

func (Location) isOperand() {}

func (o Location) String() string { return o.Addr.String() }
