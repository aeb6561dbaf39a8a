package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.creack.net/evm/asm"
	"go.creack.net/evm/op"
)

func assemble(t *testing.T, src string) *op.File {
	t.Helper()
	buf, _, err := asm.Compile("test.s", src)
	require.NoError(t, err)
	f, err := op.Parse(buf)
	require.NoError(t, err)
	return f
}

func TestDecode(t *testing.T) {
	f := assemble(t, `
	mov r1, qword[r2]
	loadConst -2, byte[r15]
	jumpEqual 7, r0, dword[r3]
	read r0, r1, r2, r3
	hlt
`)
	bb := NewBitBuffer(f.Code())

	var (
		addr uint32
		got  []string
	)
	for range 5 {
		ins, next, err := Decode(bb, addr)
		require.NoError(t, err)
		assert.Equal(t, addr, ins.Addr)
		assert.Equal(t, next-addr, ins.Size)
		got = append(got, ins.String())
		addr = next
	}
	assert.Equal(t, []string{
		"mov r1, qword[r2]",
		"loadConst 0xfffffffffffffffe, byte[r15]",
		"jumpEqual 7, r0, dword[r3]",
		"read r0, r1, r2, r3",
		"hlt",
	}, got)
	// 15 + 74 + 49 + 25 + 5 bits.
	assert.Equal(t, uint32(168), addr)
}

func TestDecodeDeterministic(t *testing.T) {
	f := assemble(t, "add r1, r2, word[r3]\nhlt")
	bb := NewBitBuffer(f.Code())
	a, nextA, err := Decode(bb, 0)
	require.NoError(t, err)
	b, nextB, err := Decode(bb, 0)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, nextA, nextB)
	assert.Equal(t, op.Add, a.OpCode.Kind)
	assert.Equal(t, []Operand{RegisterOperand(1), RegisterOperand(2), MemoryOperand(op.MemWord, 3)}, a.Args)
}

func TestDecodeErrors(t *testing.T) {
	// 010000 is not an opcode at any width.
	_, _, err := Decode(NewBitBuffer([]byte{0b01000000}), 0)
	assert.ErrorIs(t, err, ErrUnknownOpcode)

	// Truncated constant.
	f := assemble(t, "loadConst 1, r0")
	_, _, err = Decode(NewBitBuffer(f.Code()[:4]), 0)
	assert.ErrorIs(t, err, ErrProgramOutOfRange)
	assert.True(t, IsOutOfRange(err))

	// Past the end.
	_, _, err = Decode(NewBitBuffer(f.Code()), 72)
	assert.ErrorIs(t, err, ErrProgramOutOfRange)

	// The zero padding of a 5 bits program is not an instruction.
	_, _, err = Decode(NewBitBuffer([]byte{0b10110000}), 5)
	assert.ErrorIs(t, err, ErrProgramOutOfRange)
}
