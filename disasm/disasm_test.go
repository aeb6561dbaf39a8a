package disasm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.creack.net/evm/asm"
	"go.creack.net/evm/assets"
	"go.creack.net/evm/op"
)

const src = `
.dataSize 64
.data "0123456789abcdefXYZ"
	loadConst -3, r0
	loadConst 1, r1
loop:
	add r0, r1, r0
	mov r0, qword[r2]
	jumpEqual out, r0, r3
	jump loop
out:
	createThread worker, r4
	joinThread r4
	call fn
	hlt
fn:
	ret
worker:
	consoleWrite word[r4]
	jump 3
`

func TestRoundTrip(t *testing.T) {
	buf, _, err := asm.Compile("test.s", src)
	require.NoError(t, err)

	p, err := Disasm("test.evm", buf)
	require.NoError(t, err)
	assert.Empty(t, p.Sample)

	out := p.String()
	assert.Contains(t, out, ".dataSize 64\n")
	assert.Contains(t, out, ".data 0x30 0x31")
	assert.Contains(t, out, "\tjump         l_")
	// 3 is not an instruction boundary.
	assert.Contains(t, out, "\tjump         3\n")
	assert.Contains(t, out, "\tloadConst    0xfffffffffffffffd, r0\n")

	buf2, _, err := asm.Compile("out.s", out)
	require.NoError(t, err, out)
	assert.Equal(t, buf, buf2)
}

func TestLabelAtEnd(t *testing.T) {
	buf, _, err := asm.Compile("test.s", "jump end\nend:")
	require.NoError(t, err)
	p, err := Disasm("test.evm", buf)
	require.NoError(t, err)
	assert.Equal(t, ".dataSize 0\n\tjump         l_37\n\nl_37:\n", p.String())

	buf2, _, err := asm.Compile("out.s", p.String())
	require.NoError(t, err)
	assert.Equal(t, buf, buf2)
}

func TestSamplesAreRecognized(t *testing.T) {
	samples, err := assets.Samples()
	require.NoError(t, err)
	require.NotEmpty(t, samples)
	for name, s := range samples {
		t.Run(name, func(t *testing.T) {
			buf, _, err := asm.Compile(name+".s", s)
			require.NoError(t, err)
			p, err := Disasm(name+".evm", buf)
			require.NoError(t, err)
			assert.Equal(t, name, p.Sample)

			buf2, _, err := asm.Compile("out.s", p.String())
			require.NoError(t, err)
			assert.Equal(t, buf, buf2)
		})
	}
}

func TestDecodePadding(t *testing.T) {
	// hlt, then 3 zero bits.
	ins, err := Decode([]byte{0b10110000})
	require.NoError(t, err)
	require.Len(t, ins, 1)
	assert.Equal(t, "hlt", ins[0].String())

	// Non zero trailing bits.
	_, err = Decode([]byte{0b10110001})
	assert.Error(t, err)

	// A full byte of zeros is not padding.
	_, err = Decode([]byte{0b10110000, 0})
	assert.Error(t, err)

	ins, err = Decode(nil)
	require.NoError(t, err)
	assert.Empty(t, ins)
}

func TestDisasmErrors(t *testing.T) {
	_, err := Disasm("bad.evm", []byte("nope"))
	assert.ErrorIs(t, err, op.ErrFileParse)

	// Unknown opcode.
	buf, err := op.Encode([]byte{0b01000000}, nil, 0)
	require.NoError(t, err)
	_, err = Disasm("bad.evm", buf)
	assert.Error(t, err)
}
