package vm

import (
	"math/bits"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.creack.net/evm/op"
)

func TestBitBufferGet(t *testing.T) {
	bb := NewBitBuffer([]byte{0b10110010, 0b01000001})

	v, err := bb.GetU8(0, 3, false)
	require.NoError(t, err)
	assert.Equal(t, uint8(0b101), v)

	// Reversed: the first bit read is the lowest bit of the value.
	v, err = bb.GetU8(0, 3, true)
	require.NoError(t, err)
	assert.Equal(t, uint8(0b101), v)
	v, err = bb.GetU8(0, 4, true)
	require.NoError(t, err)
	assert.Equal(t, uint8(0b1101), v)

	// Across the byte boundary.
	v16, err := bb.GetU16(6, 4, false)
	require.NoError(t, err)
	assert.Equal(t, uint16(0b1001), v16)

	v64, err := bb.GetU64(0, 16, false)
	require.NoError(t, err)
	assert.Equal(t, uint64(0b1011001001000001), v64)

	size, err := bb.Size()
	require.NoError(t, err)
	assert.Equal(t, uint32(16), size)
	assert.Equal(t, 2, bb.Len())
}

func TestBitBufferReversedWidths(t *testing.T) {
	rnd := rand.New(rand.NewPCG(1, 2))
	buf := make([]byte, 32)
	for i := range buf {
		buf[i] = byte(rnd.UintN(256))
	}
	bb := NewBitBuffer(buf)

	for addr := uint32(0); addr+64 <= 32*8; addr += 3 {
		v8, err := bb.GetU8(addr, 8, false)
		require.NoError(t, err)
		r8, err := bb.GetU8(addr, 8, true)
		require.NoError(t, err)
		assert.Equal(t, bits.Reverse8(v8), r8, "addr %d", addr)

		v16, err := bb.GetU16(addr, 16, false)
		require.NoError(t, err)
		r16, err := bb.GetU16(addr, 16, true)
		require.NoError(t, err)
		assert.Equal(t, bits.Reverse16(v16), r16, "addr %d", addr)

		v32, err := bb.GetU32(addr, 32, false)
		require.NoError(t, err)
		r32, err := bb.GetU32(addr, 32, true)
		require.NoError(t, err)
		assert.Equal(t, bits.Reverse32(v32), r32, "addr %d", addr)

		v64, err := bb.GetU64(addr, 64, false)
		require.NoError(t, err)
		r64, err := bb.GetU64(addr, 64, true)
		require.NoError(t, err)
		assert.Equal(t, bits.Reverse64(v64), r64, "addr %d", addr)
	}

	_, err := bb.GetU64(193, 64, true)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestBitBufferOutOfRange(t *testing.T) {
	bb := NewBitBuffer([]byte{0xff})

	_, err := bb.GetU8(6, 3, false)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = bb.GetU8(0, 9, false)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = bb.GetU32(0, 0, false)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = bb.GetU32(0xffffffff, 32, true)
	assert.ErrorIs(t, err, ErrOutOfRange)

	v, err := bb.GetU8(5, 3, false)
	require.NoError(t, err)
	assert.Equal(t, uint8(0b111), v)
}

func TestBitBufferCopiesInput(t *testing.T) {
	in := []byte{0xff}
	bb := NewBitBuffer(in)
	in[0] = 0
	v, err := bb.GetU8(0, 8, false)
	require.NoError(t, err)
	assert.Equal(t, uint8(0xff), v)
}

func TestMemory(t *testing.T) {
	m, err := NewMemory(16, []byte{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 16, m.Size())

	v, err := m.GetValue(0, op.MemDword)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x030201), v)

	require.NoError(t, m.SetValue(8, op.MemQword, 0x1122334455667788))
	b, err := m.Read(8, 8)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x88, 0x77, 0x66, 0x55, 0x44, 0x33, 0x22, 0x11}, b)

	// Narrow stores keep the low bytes.
	require.NoError(t, m.SetValue(8, op.MemWord, 0xabcd))
	v, err = m.GetValue(8, op.MemQword)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x112233445566abcd), v)

	v, err = m.GetValue(15, op.MemByte)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x11), v)

	_, err = m.GetValue(15, op.MemWord)
	assert.ErrorIs(t, err, ErrOutOfRange)
	assert.ErrorIs(t, m.SetValue(1<<40, op.MemByte, 0), ErrOutOfRange)
	assert.ErrorIs(t, m.Write(10, make([]byte, 7)), ErrOutOfRange)
	require.NoError(t, m.Write(16, nil))

	_, err = NewMemory(2, []byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestSetReadOnlyOperand(t *testing.T) {
	for _, o := range []Operand{ConstOperand(1), AddressOperand(1)} {
		assert.ErrorIs(t, o.Set(nil, 2), ErrWriteToConstant, o.String())
	}
}
