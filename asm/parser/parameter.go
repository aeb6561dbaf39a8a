package parser

import (
	"fmt"
	"strconv"
	"strings"

	"go.creack.net/evm/op"
)

type ParamKind int

const (
	ParamRegister ParamKind = iota
	ParamMemory
	ParamNumber
	ParamLabel
)

// Parameter represents a parameter in an instruction.
type Parameter struct {
	Kind     ParamKind
	Reg      int        // Register and memory.
	Size     op.MemSize // Memory.
	Value    uint64     // Number, or resolved label.
	RawValue string     // Number as written, or label name.
}

func (p Parameter) String() string {
	switch p.Kind {
	case ParamRegister:
		return fmt.Sprintf("%c%d", op.RegisterChar, p.Reg)
	case ParamMemory:
		return fmt.Sprintf("%s%c%c%d%c", p.Size, op.MemOpenChar, op.RegisterChar, p.Reg, op.MemCloseChar)
	case ParamNumber, ParamLabel:
		return p.RawValue
	default:
		return fmt.Sprintf("unknown param kind %d", p.Kind)
	}
}

// Type returns the operand types the parameter can be encoded as.
func (p Parameter) Type() op.ParamType {
	switch p.Kind {
	case ParamRegister, ParamMemory:
		return op.TArg
	case ParamNumber:
		return op.TConst | op.TAddr
	case ParamLabel:
		return op.TAddr
	default:
		return 0
	}
}

// parseNumber parses a 64 bits number. Negative values are stored as two's complement.
func parseNumber(in string) (uint64, error) {
	in = strings.ReplaceAll(in, "_", "")
	neg := false
	if strings.HasPrefix(in, "-") {
		neg = true
		in = in[1:]
	} else {
		in = strings.TrimPrefix(in, "+")
	}

	var (
		n   uint64
		err error
	)
	if strings.HasPrefix(in, "0x") || strings.HasPrefix(in, "0X") {
		n, err = strconv.ParseUint(in[2:], 16, 64)
	} else if strings.HasPrefix(in, "0o") || strings.HasPrefix(in, "0O") {
		n, err = strconv.ParseUint(in[2:], 8, 64)
	} else if strings.HasPrefix(in, "0b") || strings.HasPrefix(in, "0B") {
		n, err = strconv.ParseUint(in[2:], 2, 64)
	} else {
		n, err = strconv.ParseUint(in, 10, 64)
	}
	if err != nil {
		return 0, err
	}
	if neg {
		if n > 1<<63 {
			return 0, fmt.Errorf("-%d overflows int64", n)
		}
		n = -n
	}
	return n, nil
}

// parseRegister parses `r<n>`.
func parseRegister(in string) (int, bool) {
	if len(in) < 2 || in[0] != op.RegisterChar {
		return 0, false
	}
	n, err := strconv.Atoi(in[1:])
	if err != nil || n < 0 || n >= op.RegisterCount || strconv.Itoa(n) != in[1:] {
		return 0, false
	}
	return n, true
}

// Encode writes the parameter as an operand of type pt.
func (p Parameter) Encode(w *BitWriter, pt op.ParamType) error {
	switch pt {
	case op.TArg:
		switch p.Kind {
		case ParamRegister:
			w.Write(0, op.OperandTagBits, false)
			w.Write(uint64(p.Reg), op.RegisterBits, true)
		case ParamMemory:
			w.Write(1, op.OperandTagBits, false)
			w.Write(uint64(p.Size), op.MemSizeBits, false)
			w.Write(uint64(p.Reg), op.RegisterBits, true)
		default:
			return fmt.Errorf("expected register or memory, got %q", p)
		}
	case op.TConst:
		if p.Kind != ParamNumber {
			return fmt.Errorf("expected constant, got %q", p)
		}
		w.Write(p.Value, op.ConstantBits, true)
	case op.TAddr:
		if p.Kind != ParamNumber && p.Kind != ParamLabel {
			return fmt.Errorf("expected address, got %q", p)
		}
		if p.Value > 0xffffffff {
			return fmt.Errorf("address %q overflows 32 bits", p)
		}
		w.Write(p.Value, op.AddressBits, true)
	default:
		return fmt.Errorf("unexpected param type %s for parameter %q", pt, p)
	}
	return nil
}
