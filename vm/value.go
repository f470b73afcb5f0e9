package vm

import (
	"strconv"
	"strings"
)

// ValueKind tags the variants of the machine's value union.
type ValueKind uint8

const (
	// KindUntyped is the default content of every register and stack slot.
	KindUntyped ValueKind = iota
	KindInteger
	KindText
	KindPointer
)

func (k ValueKind) String() string {
	switch k {
	case KindUntyped:
		return "untyped"
	case KindInteger:
		return "integer"
	case KindText:
		return "text"
	case KindPointer:
		return "pointer"
	}
	return "unknown"
}

// Value is a machine value: a signed integer, a text string, a pointer to a
// storage location, or the untyped initial state. The kind set is closed and
// every consumer (arithmetic, formatting, syscalls) switches exhaustively.
type Value struct {
	kind ValueKind
	n    int64
	s    string
	addr Address
}

// Untyped is the zero value of every storage cell.
var Untyped = Value{}

// IntegerValue builds an integer value.
func IntegerValue(n int64) Value { return Value{kind: KindInteger, n: n} }

// TextValue builds a text value.
func TextValue(s string) Value { return Value{kind: KindText, s: s} }

// PointerValue builds a pointer to the given address.
func PointerValue(a Address) Value { return Value{kind: KindPointer, addr: a} }

func (v Value) Kind() ValueKind { return v.kind }

// Int returns the integer payload; only meaningful for KindInteger.
func (v Value) Int() int64 { return v.n }

// Text returns the text payload; only meaningful for KindText.
func (v Value) Text() string { return v.s }

// Pointer returns the address payload; only meaningful for KindPointer.
func (v Value) Pointer() Address { return v.addr }

// IsUntyped reports whether the value is still in its initial state.
func (v Value) IsUntyped() bool { return v.kind == KindUntyped }

// Raw returns the bare textual form used by printf substitution and the
// concatenation fallback of Add. Untyped contributes empty text.
func (v Value) Raw() string {
	switch v.kind {
	case KindInteger:
		return strconv.FormatInt(v.n, 10)
	case KindText:
		return v.s
	case KindPointer:
		return v.addr.String()
	}
	return ""
}

// String returns the diagnostic form used in dumps and error messages. It is
// not required to re-parse as source syntax.
func (v Value) String() string {
	switch v.kind {
	case KindInteger:
		return strconv.FormatInt(v.n, 10)
	case KindText:
		return strconv.Quote(v.s)
	case KindPointer:
		return "&" + v.addr.String()
	}
	return "<untyped>"
}

// Add applies the machine's addition table:
//
//   - integer + integer yields an integer; overflow wraps (two's-complement
//     int64, Go's native semantics)
//   - stack-slot pointer + integer, and stack-slot pointer + stack-slot
//     pointer, yield a stack-slot pointer
//   - any other combination involving a pointer is an incompatible-types
//     error
//   - everything else concatenates the raw textual forms into text
func (v Value) Add(other Value) (Value, error) {
	if v.kind == KindPointer || other.kind == KindPointer {
		return addPointer(v, other)
	}
	if v.kind == KindInteger && other.kind == KindInteger {
		return IntegerValue(v.n + other.n), nil
	}
	return TextValue(v.Raw() + other.Raw()), nil
}

func addPointer(a, b Value) (Value, error) {
	if a.kind == KindPointer {
		if slot, ok := a.addr.(StackSlot); ok {
			if b.kind == KindInteger {
				return PointerValue(StackSlot{Index: slot.Index + int(b.n)}), nil
			}
			if b.kind == KindPointer {
				if bs, ok := b.addr.(StackSlot); ok {
					return PointerValue(StackSlot{Index: slot.Index + bs.Index}), nil
				}
			}
		}
	}
	return Value{}, &IncompatibleTypesError{Left: a, Right: b}
}

// Sub applies the machine's subtraction table: integer - integer yields an
// integer, stack-slot pointer - stack-slot pointer yields the integer
// distance between the slots. Every other combination is an error naming
// both operand kinds.
func (v Value) Sub(other Value) (Value, error) {
	if v.kind == KindInteger && other.kind == KindInteger {
		return IntegerValue(v.n - other.n), nil
	}
	if v.kind == KindPointer && other.kind == KindPointer {
		ls, lok := v.addr.(StackSlot)
		rs, rok := other.addr.(StackSlot)
		if lok && rok {
			return IntegerValue(int64(ls.Index - rs.Index)), nil
		}
	}
	return Value{}, &SubtractionError{Left: v, Right: other}
}

// Compare orders two values of the same kind, yielding Integer -1, 0 or 1.
// Integers compare numerically, text lexicographically; mixed kinds are an
// incompatible-types error.
func (v Value) Compare(other Value) (Value, error) {
	if v.kind == KindInteger && other.kind == KindInteger {
		switch {
		case v.n < other.n:
			return IntegerValue(-1), nil
		case v.n > other.n:
			return IntegerValue(1), nil
		}
		return IntegerValue(0), nil
	}
	if v.kind == KindText && other.kind == KindText {
		return IntegerValue(int64(strings.Compare(v.s, other.s))), nil
	}
	return Value{}, &IncompatibleTypesError{Left: v, Right: other}
}
