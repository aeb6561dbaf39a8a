package vm

import (
	"fmt"
	"math"
	"math/bits"
)

// BitBuffer is a read-only bit addressable view over bytes.
// Bit 0 is the most significant bit of the first byte.
type BitBuffer struct {
	data []byte
}

// NewBitBuffer copies data.
func NewBitBuffer(data []byte) *BitBuffer {
	return &BitBuffer{data: append([]byte(nil), data...)}
}

// Len returns the length in bytes.
func (bb *BitBuffer) Len() int { return len(bb.data) }

// Size returns the length in bits.
func (bb *BitBuffer) Size() (uint32, error) {
	n := uint64(len(bb.data)) * 8
	if n > math.MaxUint32 {
		return 0, fmt.Errorf("%w: %d bytes", ErrProgramTooLarge, len(bb.data))
	}
	return uint32(n), nil
}

// get reads size bits at addr.
// Normal reads put the first bit at the top: the natural value of the run.
// Reversed reads put the first bit at the bottom: bit i of the stream is bit i of the value.
func get[T uint8 | uint16 | uint32 | uint64](bb *BitBuffer, addr uint32, size int, reversed bool) (T, error) {
	var zero T
	width := bits.Len64(uint64(^zero))
	if size < 1 || size > width {
		return 0, fmt.Errorf("%w: can't read %d bits into %d bits", ErrOutOfRange, size, width)
	}
	end := uint64(addr) + uint64(size)
	if (end+7)/8 > uint64(len(bb.data)) {
		return 0, fmt.Errorf("%w: bits [%d, %d) with %d bytes", ErrOutOfRange, addr, end, len(bb.data))
	}

	var res T
	for i := 0; i < size; i++ {
		a := uint64(addr) + uint64(i)
		bit := T(bb.data[a/8]>>(7-a%8)) & 1
		if reversed {
			res |= bit << i
		} else {
			res = res<<1 | bit
		}
	}
	return res, nil
}

func (bb *BitBuffer) GetU8(addr uint32, size int, reversed bool) (uint8, error) {
	return get[uint8](bb, addr, size, reversed)
}

func (bb *BitBuffer) GetU16(addr uint32, size int, reversed bool) (uint16, error) {
	return get[uint16](bb, addr, size, reversed)
}

func (bb *BitBuffer) GetU32(addr uint32, size int, reversed bool) (uint32, error) {
	return get[uint32](bb, addr, size, reversed)
}

func (bb *BitBuffer) GetU64(addr uint32, size int, reversed bool) (uint64, error) {
	return get[uint64](bb, addr, size, reversed)
}
