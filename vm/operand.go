package vm

import (
	"fmt"

	"go.creack.net/evm/op"
)

// OperandKind tags the Operand variant.
type OperandKind int

const (
	OperandRegister OperandKind = iota
	OperandMemory
	OperandConst
	OperandAddress
)

// Operand is a decoded instruction argument.
type Operand struct {
	Kind  OperandKind
	Reg   int        // Register and memory operands.
	Size  op.MemSize // Memory operands.
	Value uint64     // Constants and addresses.
}

func RegisterOperand(reg int) Operand { return Operand{Kind: OperandRegister, Reg: reg} }

func MemoryOperand(size op.MemSize, reg int) Operand {
	return Operand{Kind: OperandMemory, Size: size, Reg: reg}
}

func ConstOperand(v uint64) Operand { return Operand{Kind: OperandConst, Value: v} }

func AddressOperand(addr uint32) Operand { return Operand{Kind: OperandAddress, Value: uint64(addr)} }

// Address returns the jump target of an address operand.
func (o Operand) Address() uint32 { return uint32(o.Value) }

// Get reads the operand value in the context of t.
func (o Operand) Get(t *Thread) (uint64, error) {
	switch o.Kind {
	case OperandRegister:
		return t.Reg(o.Reg)
	case OperandMemory:
		addr, err := t.Reg(o.Reg)
		if err != nil {
			return 0, err
		}
		v, err := t.app.data.GetValue(addr, o.Size)
		if err != nil {
			return 0, fmt.Errorf("%w: %w", ErrDataOutOfRange, err)
		}
		return v, nil
	case OperandConst, OperandAddress:
		return o.Value, nil
	default:
		return 0, fmt.Errorf("invalid operand kind %d", o.Kind)
	}
}

// Set writes v through the operand.
func (o Operand) Set(t *Thread, v uint64) error {
	switch o.Kind {
	case OperandRegister:
		return t.SetReg(o.Reg, v)
	case OperandMemory:
		addr, err := t.Reg(o.Reg)
		if err != nil {
			return err
		}
		if err := t.app.data.SetValue(addr, o.Size, v); err != nil {
			return fmt.Errorf("%w: %w", ErrDataOutOfRange, err)
		}
		return nil
	case OperandConst, OperandAddress:
		return fmt.Errorf("%w: %s", ErrWriteToConstant, o)
	default:
		return fmt.Errorf("invalid operand kind %d", o.Kind)
	}
}

// String renders the operand in assembler syntax.
func (o Operand) String() string {
	switch o.Kind {
	case OperandRegister:
		return fmt.Sprintf("%c%d", op.RegisterChar, o.Reg)
	case OperandMemory:
		return fmt.Sprintf("%s%c%c%d%c", o.Size, op.MemOpenChar, op.RegisterChar, o.Reg, op.MemCloseChar)
	case OperandConst:
		return fmt.Sprintf("0x%x", o.Value)
	case OperandAddress:
		return fmt.Sprintf("%d", o.Value)
	default:
		return fmt.Sprintf("<operand %d>", o.Kind)
	}
}

// describe renders the operand with its current value.
func (o Operand) describe(t *Thread) string {
	if o.Kind == OperandConst || o.Kind == OperandAddress {
		return o.String()
	}
	v, err := o.Get(t)
	if err != nil {
		return o.String() + "(?)"
	}
	return fmt.Sprintf("%s(0x%x)", o, v)
}

// DecodeArgOperand decodes a register or memory operand at *offset.
func DecodeArgOperand(bb *BitBuffer, offset *uint32) (Operand, error) {
	tag, err := bb.GetU8(*offset, op.OperandTagBits, false)
	if err != nil {
		return Operand{}, fmt.Errorf("%w: operand tag: %w", ErrProgramOutOfRange, err)
	}
	if tag == 0 {
		reg, err := bb.GetU8(*offset+op.OperandTagBits, op.RegisterBits, true)
		if err != nil {
			return Operand{}, fmt.Errorf("%w: register: %w", ErrProgramOutOfRange, err)
		}
		*offset += op.RegisterOperandBits
		return RegisterOperand(int(reg)), nil
	}
	size, err := bb.GetU8(*offset+op.OperandTagBits, op.MemSizeBits, false)
	if err != nil {
		return Operand{}, fmt.Errorf("%w: memory size: %w", ErrProgramOutOfRange, err)
	}
	reg, err := bb.GetU8(*offset+op.OperandTagBits+op.MemSizeBits, op.RegisterBits, true)
	if err != nil {
		return Operand{}, fmt.Errorf("%w: memory register: %w", ErrProgramOutOfRange, err)
	}
	*offset += op.MemoryOperandBits
	return MemoryOperand(op.MemSize(size), int(reg)), nil
}

// DecodeConstOperand decodes a 64 bits constant at *offset.
func DecodeConstOperand(bb *BitBuffer, offset *uint32) (Operand, error) {
	v, err := bb.GetU64(*offset, op.ConstantBits, true)
	if err != nil {
		return Operand{}, fmt.Errorf("%w: constant: %w", ErrProgramOutOfRange, err)
	}
	*offset += op.ConstantBits
	return ConstOperand(v), nil
}

// DecodeAddressOperand decodes a 32 bits code address at *offset.
func DecodeAddressOperand(bb *BitBuffer, offset *uint32) (Operand, error) {
	v, err := bb.GetU32(*offset, op.AddressBits, true)
	if err != nil {
		return Operand{}, fmt.Errorf("%w: address: %w", ErrProgramOutOfRange, err)
	}
	*offset += op.AddressBits
	return AddressOperand(v), nil
}
