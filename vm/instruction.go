package vm

import (
	"errors"
	"fmt"
	"strings"

	"go.creack.net/evm/op"
)

// Instruction is a decoded operation with its operands.
type Instruction struct {
	OpCode op.OpCode
	Args   []Operand
	Addr   uint32 // Bit address of the opcode.
	Size   uint32 // In bits, opcode included.
}

func (ins *Instruction) String() string {
	if len(ins.Args) == 0 {
		return ins.OpCode.Name
	}
	parts := make([]string, 0, len(ins.Args))
	for _, elem := range ins.Args {
		parts = append(parts, elem.String())
	}
	return ins.OpCode.Name + " " + strings.Join(parts, string(op.SeparatorChar)+" ")
}

// Describe renders the instruction with the current operand values of t.
func (ins *Instruction) Describe(t *Thread) string {
	if len(ins.Args) == 0 {
		return ins.OpCode.Name
	}
	parts := make([]string, 0, len(ins.Args))
	for _, elem := range ins.Args {
		parts = append(parts, elem.describe(t))
	}
	return ins.OpCode.Name + " " + strings.Join(parts, string(op.SeparatorChar)+" ")
}

// Decode decodes the instruction at the given bit address. Returns the instruction
// and the address of the next one.
// Opcodes are matched from the shortest width to the longest.
func Decode(bb *BitBuffer, addr uint32) (*Instruction, uint32, error) {
	var (
		oc    op.OpCode
		found bool
	)
	for _, width := range op.Widths {
		code, err := bb.GetU8(addr, width, false)
		if err != nil {
			return nil, addr, fmt.Errorf("%w: opcode at %d: %w", ErrProgramOutOfRange, addr, err)
		}
		if oc, found = op.Find(width, code); found {
			break
		}
	}
	if !found {
		return nil, addr, fmt.Errorf("%w at %d", ErrUnknownOpcode, addr)
	}

	ins := &Instruction{
		OpCode: oc,
		Args:   make([]Operand, 0, len(oc.ParamTypes)),
		Addr:   addr,
	}
	offset := addr + uint32(oc.Width)
	for i, pt := range oc.ParamTypes {
		var (
			arg Operand
			err error
		)
		switch pt {
		case op.TArg:
			arg, err = DecodeArgOperand(bb, &offset)
		case op.TConst:
			arg, err = DecodeConstOperand(bb, &offset)
		case op.TAddr:
			arg, err = DecodeAddressOperand(bb, &offset)
		default:
			err = fmt.Errorf("%w: parameter type %s", ErrNotImplemented, pt)
		}
		if err != nil {
			return nil, addr, fmt.Errorf("failed to decode %s parameter %d: %w", oc.Name, i+1, err)
		}
		ins.Args = append(ins.Args, arg)
	}
	ins.Size = offset - addr
	return ins, offset, nil
}

// IsOutOfRange reports whether a decode error is due to the end of the program.
func IsOutOfRange(err error) bool {
	return errors.Is(err, ErrProgramOutOfRange)
}
