package vm

// transfer applies in's control-flow effect: label resolution, frame
// unwinding, return-value propagation and program-counter updates. A non-nil
// result is the program's terminal value; the driver maps it to an exit
// code. For every taken transfer the driver still advances the program
// counter by one afterwards, so jumps land on the instruction after the
// label and returns resume after the call.
func (i *Interpreter) transfer(in Instruction) (*Value, error) {
	switch in.Op {
	case OpCall, OpCallVoid, OpJmp:
		return nil, i.jumpTo(in.Label)

	case OpJl, OpJg, OpJe, OpJne:
		return nil, i.conditionalJump(in)

	case OpRet:
		// Read the operand before any register restore; it may name a
		// register of the returning block.
		v, err := i.mem.Get(in.A)
		if err != nil {
			return nil, err
		}
		frame, ok := i.mem.PopFrame()
		if !ok {
			// Top-level return: the value becomes the terminal result.
			return &v, nil
		}
		if !frame.EnteredByJump {
			i.mem.Restore(frame.Saved)
		}
		if frame.Dest != nil {
			if err := i.mem.Set(frame.Dest, v); err != nil {
				return nil, err
			}
		}
		i.pc = frame.ReturnPC

	case OpLeave:
		frame, ok := i.mem.PopFrame()
		if !ok {
			// Top-level leave terminates with the default result zero.
			zero := IntegerValue(0)
			return &zero, nil
		}
		if frame.Dest != nil {
			return nil, &SegfaultError{Message: "leave from a call that expects a return value"}
		}
		if !frame.EnteredByJump {
			i.mem.Restore(frame.Saved)
		}
		i.pc = frame.ReturnPC
	}
	return nil, nil
}

// jumpTo resolves a label by a linear scan and moves the program counter to
// its definition.
func (i *Interpreter) jumpTo(label string) error {
	idx, ok := findLabel(i.program, label)
	if !ok {
		return &LabelNotFoundError{Label: label}
	}
	i.pc = idx
	return nil
}

func findLabel(program []Instruction, label string) (int, bool) {
	for idx, in := range program {
		if in.Op == OpLabel && in.Label == label {
			return idx, true
		}
	}
	return 0, false
}

// conditionalJump evaluates the condition operand against the opcode's
// expectation. When taken it behaves like jmp; when not taken it discards
// the frame the data phase pushed and falls through.
func (i *Interpreter) conditionalJump(in Instruction) error {
	v, err := i.mem.Get(in.A)
	if err != nil {
		return err
	}
	if v.Kind() != KindInteger {
		return &WrongTypeError{Expected: "integer", Actual: v}
	}

	var taken bool
	switch in.Op {
	case OpJl:
		taken = v.Int() == -1
	case OpJg:
		taken = v.Int() == 1
	case OpJe:
		taken = v.Int() == 0
	case OpJne:
		taken = v.Int() != 0
	}

	if taken {
		return i.jumpTo(in.Label)
	}
	i.mem.PopFrame()
	return nil
}
