package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLexer(t *testing.T) {
	l := NewLexer("test.s", "loop: add r1, byte[r2], r3 ; sum\n\n.data \"a\\n\" 0x10\n")
	var got []itemType
	var vals []string
	for {
		it := l.nextItem()
		got = append(got, it.typ)
		vals = append(vals, it.val)
		if it.typ == itemEOF || it.typ == itemError {
			break
		}
	}
	assert.Equal(t, []itemType{
		itemLabel, itemIdentifier, itemIdentifier, itemComa, itemIdentifier, itemMemOpen, itemIdentifier, itemMemClose,
		itemComa, itemIdentifier, itemComment, itemNewline,
		itemDirective, itemRawString, itemNumber, itemNewline, itemEOF,
	}, got)
	assert.Equal(t, "loop", vals[0])
	assert.Equal(t, "; sum", vals[10])
	assert.Equal(t, ".data", vals[12])
	assert.Equal(t, `"a\n"`, vals[13])
}

func TestParseNumber(t *testing.T) {
	for in, want := range map[string]uint64{
		"0":          0,
		"42":         42,
		"+7":         7,
		"-1":         0xffffffffffffffff,
		"0x1F":       31,
		"0o17":       15,
		"0b1010":     10,
		"1_000":      1000,
		"-0x80":      0xffffffffffffff80,
		"0xffffffff": 0xffffffff,
	} {
		got, err := parseNumber(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "-", "0x", "0b2", "18446744073709551616", "-9223372036854775809"} {
		_, err := parseNumber(in)
		assert.Error(t, err, in)
	}
}

func TestParseRegister(t *testing.T) {
	n, ok := parseRegister("r15")
	assert.True(t, ok)
	assert.Equal(t, 15, n)

	for _, in := range []string{"r16", "r", "r01", "x1", "r-1"} {
		_, ok := parseRegister(in)
		assert.False(t, ok, in)
	}
}

func TestBitWriter(t *testing.T) {
	var w BitWriter
	w.Write(0b101, 3, false)
	w.Write(0b0001, 4, true)
	assert.Equal(t, uint32(7), w.Len())
	assert.Equal(t, []byte{0b10110000}, w.Bytes())

	w.Write(0xff, 8, false)
	assert.Equal(t, uint32(15), w.Len())
	assert.Equal(t, []byte{0b10110001, 0b11111110}, w.Bytes())

	w.Reset()
	assert.Zero(t, w.Len())
	assert.Empty(t, w.Bytes())
}

func TestPrettyPrint(t *testing.T) {
	const src = `.dataSize 16
.data "hi" 0x0a
start:
	loadConst    0x10, r0
	mov          r0, qword[r1]

end:
	jump         start
`
	p := NewParser("test.s", src)
	require.NoError(t, p.Parse())
	assert.Equal(t, src, p.PrettyPrint())
	assert.Equal(t, []string{"start", "end"}, p.Labels())

	// Pretty printing is stable.
	p2 := NewParser("test.s", p.PrettyPrint())
	require.NoError(t, p2.Parse())
	assert.Equal(t, src, p2.PrettyPrint())
}
