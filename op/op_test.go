package op

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpCodeTableCollisionFree(t *testing.T) {
	seen := map[string]string{}
	names := map[string]bool{}
	for _, elem := range OpCodeTable {
		require.Contains(t, Widths, elem.Width, elem.Name)
		require.Less(t, int(elem.Code), 1<<elem.Width, elem.Name)

		bits := fmt.Sprintf("%0*b", elem.Width, elem.Code)
		other, ok := seen[bits]
		assert.False(t, ok, "%s aliases %s", elem.Name, other)
		seen[bits] = elem.Name

		assert.False(t, names[elem.Name], "duplicate name %s", elem.Name)
		names[elem.Name] = true
		assert.LessOrEqual(t, len(elem.ParamTypes), MaxArgsNumber)
	}

	// A code must never be a prefix of a longer one, otherwise the longer
	// one would be unreachable.
	for a, nameA := range seen {
		for b, nameB := range seen {
			if len(a) < len(b) {
				assert.NotEqual(t, a, b[:len(a)], "%s (%s) is a prefix of %s (%s)", nameA, a, nameB, b)
			}
		}
	}
}

func TestFindAndLookup(t *testing.T) {
	oc, ok := Find(3, 0b001)
	require.True(t, ok)
	assert.Equal(t, "loadConst", oc.Name)
	assert.Equal(t, LoadConst, oc.Kind)

	oc, ok = Find(6, 0b010101)
	require.True(t, ok)
	assert.Equal(t, Mul, oc.Kind)

	_, ok = Find(4, 0b0100)
	assert.False(t, ok)

	oc, ok = Lookup("jumpEqual")
	require.True(t, ok)
	assert.Equal(t, []ParamType{TAddr, TArg, TArg}, oc.ParamTypes)
	assert.Equal(t, "jumpEqual", JumpEqual.String())

	_, ok = Lookup("live")
	assert.False(t, ok)
}

func TestMemSize(t *testing.T) {
	for ms, n := range map[MemSize]int{MemByte: 1, MemWord: 2, MemDword: 4, MemQword: 8} {
		assert.Equal(t, n, ms.Bytes())
		back, ok := ParseMemSize(ms.String())
		require.True(t, ok)
		assert.Equal(t, ms, back)
	}
	_, ok := ParseMemSize("oword")
	assert.False(t, ok)
}

func TestEncodeParse(t *testing.T) {
	code := []byte{0x20, 0x00, 0xff}
	data := []byte{1, 2, 3, 4}
	buf, err := Encode(code, data, 16)
	require.NoError(t, err)
	require.Len(t, buf, HeaderSize+len(code)+len(data))
	assert.Equal(t, Magic, string(buf[:8]))

	f, err := Parse(buf)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), f.Header.CodeSize)
	assert.Equal(t, uint32(16), f.Header.DataSize)
	assert.Equal(t, uint32(4), f.Header.InitialDataSize)
	assert.Equal(t, code, f.Code())
	assert.Equal(t, data, f.InitialData())
	assert.Contains(t, f.String(), "code size 3")

	_, err = Encode(code, data, 2)
	assert.Error(t, err)
}

func TestParseMalformed(t *testing.T) {
	valid, err := Encode([]byte{0x20}, []byte{7}, 1)
	require.NoError(t, err)

	mutate := func(f func(b []byte) []byte) []byte {
		b := append([]byte(nil), valid...)
		return f(b)
	}

	for name, data := range map[string][]byte{
		"too small":   valid[:HeaderSize-1],
		"bad magic":   mutate(func(b []byte) []byte { b[0] = 'X'; return b }),
		"trailing":    mutate(func(b []byte) []byte { return append(b, 0) }),
		"truncated":   valid[:len(valid)-1],
		"code size":   mutate(func(b []byte) []byte { Endian.PutUint32(b[8:], 2); return b }),
		"data size":   mutate(func(b []byte) []byte { Endian.PutUint32(b[12:], 0); return b }),
		"huge fields": mutate(func(b []byte) []byte { Endian.PutUint32(b[8:], 0xffffffff); Endian.PutUint32(b[16:], 0xffffffff); return b }),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(data)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrFileParse)
		})
	}
}
