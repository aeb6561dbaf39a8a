package parser

// BitWriter packs bits MSB first, the inverse of vm.BitBuffer.
type BitWriter struct {
	buf []byte
	n   uint32 // Bits written.
}

// Write appends the low size bits of v. Reversed writes emit bit 0 first,
// normal writes emit bit size-1 first.
func (w *BitWriter) Write(v uint64, size int, reversed bool) {
	for i := 0; i < size; i++ {
		var bit uint64
		if reversed {
			bit = v >> i & 1
		} else {
			bit = v >> (size - 1 - i) & 1
		}
		if w.n%8 == 0 {
			w.buf = append(w.buf, 0)
		}
		if bit != 0 {
			w.buf[w.n/8] |= 1 << (7 - w.n%8)
		}
		w.n++
	}
}

// Len returns the number of bits written.
func (w *BitWriter) Len() uint32 { return w.n }

// Bytes returns the written bits, zero padded to a byte boundary.
func (w *BitWriter) Bytes() []byte { return w.buf }

func (w *BitWriter) Reset() {
	w.buf = w.buf[:0]
	w.n = 0
}
