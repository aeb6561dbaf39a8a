package asm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.creack.net/evm/op"
)

func compileCode(t *testing.T, src string) (*op.File, map[string]uint32) {
	t.Helper()
	buf, pr, err := Compile("test.s", src)
	require.NoError(t, err)
	f, err := op.Parse(buf)
	require.NoError(t, err)
	return f, pr.Labels()
}

func TestCompileEncoding(t *testing.T) {
	for _, tc := range []struct {
		name string
		src  string
		code []byte
	}{
		{"hlt", "hlt", []byte{0b10110000}},
		{"loadConst", "loadConst 5, r0", []byte{0x34, 0, 0, 0, 0, 0, 0, 0, 0}},
		{"mov-mem", "mov r1, qword[r2]", []byte{0x08, 0xe8}},
		{"ret", "ret", []byte{0b11010000}},
		{"negative", "loadConst -1, r15", []byte{0x3f, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xef}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f, _ := compileCode(t, tc.src)
			assert.Equal(t, tc.code, f.Code())
			assert.Equal(t, uint32(len(tc.code)), f.Header.CodeSize)
		})
	}
}

func TestCompileLabels(t *testing.T) {
	f, labels := compileCode(t, `
	jump end ; forward reference
	hlt
end:
	hlt
`)
	// jump is 5+32 bits, hlt 5 bits.
	assert.Equal(t, uint32(42), labels["end"])
	assert.Equal(t, uint32(6), f.Header.CodeSize)

	// Address operand, reversed on 32 bits: 42 = 0b101010.
	f2, _ := compileCode(t, "jump 42\nhlt\nhlt")
	assert.Equal(t, f2.Code(), f.Code())
}

func TestCompileData(t *testing.T) {
	f, _ := compileCode(t, `
.data "hi" 0x0a
.data 0xff, -1
hlt
`)
	assert.Equal(t, []byte("hi\n\xff\xff"), f.InitialData())
	assert.Equal(t, uint32(5), f.Header.DataSize)

	f, _ = compileCode(t, ".dataSize 64\n.data 1 2 3\nhlt")
	assert.Equal(t, uint32(64), f.Header.DataSize)
	assert.Equal(t, uint32(3), f.Header.InitialDataSize)
}

func TestCompileErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		src  string
		msg  string
	}{
		{"unknown instruction", "hlt\n  foo r1", "test.s:2:3: unknown instruction"},
		{"bad register", "mov r16, r0", "invalid parameter 1"},
		{"missing param", "mov r1", "expected 2 parameters, got 1"},
		{"const as arg", "mov 1, r0", "invalid parameter 1"},
		{"duplicate label", "a:\nhlt\na:\nhlt", "duplicate label"},
		{"unknown label", "jump nowhere", `unknown label "nowhere"`},
		{"trailing comma", "mov r1,", "unexpected comma"},
		{"bad number", "loadConst 12ab, r0", "bad number syntax"},
		{"unknown directive", ".name \"x\"", "unknown directive"},
		{"data too small", ".dataSize 1\n.data 1 2", "exceeds data size"},
		{"byte overflow", ".data 256", "does not fit in a byte"},
		{"unterminated string", `.data "abc`, "missing closing quote"},
		{"extra param", "hlt r1", "expected 0 parameters, got 1"},
		{"extra token", "mov r1, r2 r3", "expected ','"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := Compile("test.s", tc.src)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.msg)
		})
	}
}
