package op

import (
	"fmt"
	"strings"
)

// ParamType enum type.
type ParamType int

// ParamType values.
const (
	TArg   ParamType = 1 << iota // Register or memory through register.
	TConst                       // 64 bits constant.
	TAddr                        // 32 bits code address.
)

func (pt ParamType) String() string {
	var parts []string
	if pt&TArg != 0 {
		parts = append(parts, "argument")
	}
	if pt&TConst != 0 {
		parts = append(parts, "constant")
	}
	if pt&TAddr != 0 {
		parts = append(parts, "address")
	}
	if len(parts) == 0 {
		return "unknown"
	}
	return strings.Join(parts, "|")
}

// Size returns the encoded size in bits.
// Arguments depend on the register/memory tag, -1 is returned.
func (pt ParamType) Size() int {
	switch pt {
	case TConst:
		return ConstantBits
	case TAddr:
		return AddressBits
	default:
		return -1
	}
}

// MemSize is the access width of a memory operand.
type MemSize uint8

// MemSize values, in encoding order.
const (
	MemByte MemSize = iota
	MemWord
	MemDword
	MemQword
)

// Bytes returns the access width in bytes.
func (ms MemSize) Bytes() int {
	return 1 << ms
}

func (ms MemSize) String() string {
	switch ms {
	case MemByte:
		return "byte"
	case MemWord:
		return "word"
	case MemDword:
		return "dword"
	case MemQword:
		return "qword"
	default:
		return fmt.Sprintf("memsize(%d)", uint8(ms))
	}
}

// ParseMemSize is the inverse of MemSize.String.
func ParseMemSize(s string) (MemSize, bool) {
	for ms := MemByte; ms <= MemQword; ms++ {
		if ms.String() == s {
			return ms, true
		}
	}
	return 0, false
}
