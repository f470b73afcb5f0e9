package vm

import (
	"encoding/binary"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Program images let a parsed program be stored and reloaded without
// re-parsing source text. The layout is a 4-byte magic, a big-endian uint16
// format version, and a canonical CBOR body:
//
//	[magic:4] [version:2] [cbor body...]
//
// Canonical encoding keeps images deterministic for a given program.
const (
	ImageMagic   = "JYBC"
	ImageVersion = 1
)

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("vm: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Wire forms. The in-memory instruction uses interfaces for addresses and
// operands; the wire form flattens them into tagged structs.

const (
	wireAddrRegister uint8 = iota
	wireAddrStackSlot
	wireAddrReference
)

type imageAddress struct {
	Kind  uint8         `cbor:"k"`
	Reg   uint8         `cbor:"r,omitempty"`
	Index int           `cbor:"i,omitempty"`
	Inner *imageAddress `cbor:"p,omitempty"`
}

type imageValue struct {
	Kind uint8         `cbor:"k"`
	Int  int64         `cbor:"n,omitempty"`
	Text string        `cbor:"s,omitempty"`
	Addr *imageAddress `cbor:"a,omitempty"`
}

type imageOperand struct {
	Literal *imageValue   `cbor:"v,omitempty"`
	Addr    *imageAddress `cbor:"a,omitempty"`
}

type imageInstruction struct {
	Op    uint8         `cbor:"op"`
	Dest  *imageAddress `cbor:"d,omitempty"`
	A     *imageOperand `cbor:"a,omitempty"`
	B     *imageOperand `cbor:"b,omitempty"`
	Label string        `cbor:"l,omitempty"`
}

type imageProgram struct {
	Instructions []imageInstruction `cbor:"program"`
}

// IsImage reports whether data begins with the program-image magic.
func IsImage(data []byte) bool {
	return len(data) >= len(ImageMagic) && string(data[:len(ImageMagic)]) == ImageMagic
}

// SerializeProgram encodes a parsed program into image bytes.
func SerializeProgram(program []Instruction) ([]byte, error) {
	wire := imageProgram{Instructions: make([]imageInstruction, 0, len(program))}
	for _, in := range program {
		encoded, err := encodeInstruction(in)
		if err != nil {
			return nil, err
		}
		wire.Instructions = append(wire.Instructions, encoded)
	}

	body, err := cborEncMode.Marshal(&wire)
	if err != nil {
		return nil, fmt.Errorf("vm: marshal image: %w", err)
	}

	buf := make([]byte, 0, len(ImageMagic)+2+len(body))
	buf = append(buf, ImageMagic...)
	buf = binary.BigEndian.AppendUint16(buf, ImageVersion)
	return append(buf, body...), nil
}

// LoadImage decodes image bytes produced by SerializeProgram back into a
// parsed program.
func LoadImage(data []byte) ([]Instruction, error) {
	if !IsImage(data) {
		return nil, fmt.Errorf("vm: invalid image magic: expected %q", ImageMagic)
	}
	if len(data) < len(ImageMagic)+2 {
		return nil, fmt.Errorf("vm: truncated image header")
	}
	version := binary.BigEndian.Uint16(data[len(ImageMagic):])
	if version != ImageVersion {
		return nil, fmt.Errorf("vm: unsupported image version %d (want %d)", version, ImageVersion)
	}

	var wire imageProgram
	if err := cbor.Unmarshal(data[len(ImageMagic)+2:], &wire); err != nil {
		return nil, fmt.Errorf("vm: unmarshal image: %w", err)
	}

	program := make([]Instruction, 0, len(wire.Instructions))
	for idx, encoded := range wire.Instructions {
		in, err := decodeInstruction(encoded)
		if err != nil {
			return nil, fmt.Errorf("vm: image instruction %d: %w", idx, err)
		}
		program = append(program, in)
	}
	return program, nil
}

func encodeInstruction(in Instruction) (imageInstruction, error) {
	encoded := imageInstruction{Op: uint8(in.Op), Label: in.Label}

	if in.Dest != nil {
		dest, err := encodeAddress(in.Dest)
		if err != nil {
			return imageInstruction{}, err
		}
		encoded.Dest = dest
	}
	for _, pair := range []struct {
		src Operand
		dst **imageOperand
	}{{in.A, &encoded.A}, {in.B, &encoded.B}} {
		if pair.src == nil {
			continue
		}
		op, err := encodeOperand(pair.src)
		if err != nil {
			return imageInstruction{}, err
		}
		*pair.dst = op
	}
	return encoded, nil
}

func decodeInstruction(encoded imageInstruction) (Instruction, error) {
	if int(encoded.Op) >= len(mnemonics) {
		return Instruction{}, fmt.Errorf("unknown opcode %d", encoded.Op)
	}
	in := Instruction{Op: Opcode(encoded.Op), Label: encoded.Label}

	if encoded.Dest != nil {
		dest, err := decodeAddress(encoded.Dest)
		if err != nil {
			return Instruction{}, err
		}
		in.Dest = dest
	}
	if encoded.A != nil {
		a, err := decodeOperand(encoded.A)
		if err != nil {
			return Instruction{}, err
		}
		in.A = a
	}
	if encoded.B != nil {
		b, err := decodeOperand(encoded.B)
		if err != nil {
			return Instruction{}, err
		}
		in.B = b
	}
	return in, nil
}

func encodeAddress(addr Address) (*imageAddress, error) {
	switch a := addr.(type) {
	case RegisterAddress:
		return &imageAddress{Kind: wireAddrRegister, Reg: uint8(a.Reg)}, nil
	case StackSlot:
		return &imageAddress{Kind: wireAddrStackSlot, Index: a.Index}, nil
	case Reference:
		inner, err := encodeAddress(a.Target)
		if err != nil {
			return nil, err
		}
		if inner.Kind == wireAddrReference {
			return nil, fmt.Errorf("nested reference cannot be encoded")
		}
		return &imageAddress{Kind: wireAddrReference, Inner: inner}, nil
	}
	return nil, fmt.Errorf("unknown address variant %T", addr)
}

func decodeAddress(encoded *imageAddress) (Address, error) {
	switch encoded.Kind {
	case wireAddrRegister:
		if encoded.Reg >= NumRegisters {
			return nil, fmt.Errorf("unknown register %d", encoded.Reg)
		}
		return RegisterAddress{Reg: Register(encoded.Reg)}, nil
	case wireAddrStackSlot:
		if encoded.Index < 0 {
			return nil, fmt.Errorf("negative stack index %d", encoded.Index)
		}
		return StackSlot{Index: encoded.Index}, nil
	case wireAddrReference:
		if encoded.Inner == nil || encoded.Inner.Kind == wireAddrReference {
			return nil, fmt.Errorf("reference must target a register or stack slot")
		}
		inner, err := decodeAddress(encoded.Inner)
		if err != nil {
			return nil, err
		}
		return Reference{Target: inner}, nil
	}
	return nil, fmt.Errorf("unknown address kind %d", encoded.Kind)
}

func encodeValue(v Value) (*imageValue, error) {
	encoded := &imageValue{Kind: uint8(v.Kind())}
	switch v.Kind() {
	case KindUntyped:
	case KindInteger:
		encoded.Int = v.Int()
	case KindText:
		encoded.Text = v.Text()
	case KindPointer:
		addr, err := encodeAddress(v.Pointer())
		if err != nil {
			return nil, err
		}
		encoded.Addr = addr
	}
	return encoded, nil
}

func decodeValue(encoded *imageValue) (Value, error) {
	switch ValueKind(encoded.Kind) {
	case KindUntyped:
		return Untyped, nil
	case KindInteger:
		return IntegerValue(encoded.Int), nil
	case KindText:
		return TextValue(encoded.Text), nil
	case KindPointer:
		if encoded.Addr == nil {
			return Value{}, fmt.Errorf("pointer value without an address")
		}
		addr, err := decodeAddress(encoded.Addr)
		if err != nil {
			return Value{}, err
		}
		return PointerValue(addr), nil
	}
	return Value{}, fmt.Errorf("unknown value kind %d", encoded.Kind)
}

func encodeOperand(op Operand) (*imageOperand, error) {
	switch o := op.(type) {
	case Literal:
		v, err := encodeValue(o.Value)
		if err != nil {
			return nil, err
		}
		return &imageOperand{Literal: v}, nil
	case Location:
		addr, err := encodeAddress(o.Addr)
		if err != nil {
			return nil, err
		}
		return &imageOperand{Addr: addr}, nil
	}
	return nil, fmt.Errorf("unknown operand variant %T", op)
}

func decodeOperand(encoded *imageOperand) (Operand, error) {
	switch {
	case encoded.Literal != nil:
		v, err := decodeValue(encoded.Literal)
		if err != nil {
			return nil, err
		}
		return Literal{Value: v}, nil
	case encoded.Addr != nil:
		addr, err := decodeAddress(encoded.Addr)
		if err != nil {
			return nil, err
		}
		return Location{Addr: addr}, nil
	}
	return nil, fmt.Errorf("operand with neither literal nor address")
}
