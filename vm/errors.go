package vm

import "fmt"

// ParseError reports a malformed source line. Line is 1-based and zero when
// the error is not attached to a specific line.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// SemanticError reports a program that parses but violates a static rule:
// a call or jump target whose block never reaches its required terminator,
// or an unknown syscall name.
type SemanticError struct {
	Label   string
	Message string
}

func (e *SemanticError) Error() string { return e.Message }

// LabelNotFoundError reports a call or jump to a label the program never
// defines.
type LabelNotFoundError struct {
	Label string
}

func (e *LabelNotFoundError) Error() string {
	return fmt.Sprintf("cannot find call or jump destination %q", e.Label)
}

// ReadError reports a read from an operand that names no readable cell,
// such as an out-of-range stack slot or a value unusable as a pointer.
type ReadError struct {
	Operand Operand
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("cannot read at: %s", e.Operand)
}

// WriteError reports a write to an address outside the machine's storage.
type WriteError struct {
	Addr Address
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("cannot write at: %s", e.Addr)
}

// SegfaultError reports an addressing fault: writing through a register, or
// more than one level of indirection.
type SegfaultError struct {
	Message string
}

func (e *SegfaultError) Error() string {
	return "segmentation fault: " + e.Message
}

// IncompatibleTypesError reports an arithmetic combination the machine does
// not define.
type IncompatibleTypesError struct {
	Left, Right Value
}

func (e *IncompatibleTypesError) Error() string {
	return fmt.Sprintf("incompatible types: (%s %s, %s %s)",
		e.Left.Kind(), e.Left, e.Right.Kind(), e.Right)
}

// SubtractionError reports a subtraction between kinds that have no defined
// difference.
type SubtractionError struct {
	Left, Right Value
}

func (e *SubtractionError) Error() string {
	return fmt.Sprintf("attempted subtracting two incompatible types: [%s %s] - [%s %s]",
		e.Left.Kind(), e.Left, e.Right.Kind(), e.Right)
}

// WrongTypeError reports a value of the wrong kind where a specific kind is
// required, such as a non-text printf format.
type WrongTypeError struct {
	Expected string
	Actual   Value
}

func (e *WrongTypeError) Error() string {
	return fmt.Sprintf("type %s is expected but the actual value was %s %s",
		e.Expected, e.Actual.Kind(), e.Actual)
}
