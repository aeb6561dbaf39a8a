package vm

import (
	"fmt"

	"go.creack.net/evm/op"
)

// Memory is the data memory shared by all threads.
// Accesses are not synchronized, programs use lock/unlock.
type Memory struct {
	data []byte
}

// NewMemory allocates size bytes and copies initial at the start.
func NewMemory(size uint32, initial []byte) (*Memory, error) {
	if uint64(len(initial)) > uint64(size) {
		return nil, fmt.Errorf("%w: initial data %d bytes for %d bytes memory", ErrOutOfRange, len(initial), size)
	}
	m := &Memory{data: make([]byte, size)}
	copy(m.data, initial)
	return m, nil
}

func (m *Memory) Size() int { return len(m.data) }

func (m *Memory) check(addr uint64, size int) error {
	if size < 0 || addr > uint64(len(m.data)) || uint64(size) > uint64(len(m.data))-addr {
		return fmt.Errorf("%w: [%d, %d+%d) with %d bytes", ErrOutOfRange, addr, addr, size, len(m.data))
	}
	return nil
}

// Read returns a copy of size bytes at addr.
func (m *Memory) Read(addr uint64, size int) ([]byte, error) {
	if err := m.check(addr, size); err != nil {
		return nil, err
	}
	out := make([]byte, size)
	copy(out, m.data[addr:])
	return out, nil
}

func (m *Memory) Write(addr uint64, data []byte) error {
	if err := m.check(addr, len(data)); err != nil {
		return err
	}
	copy(m.data[addr:], data)
	return nil
}

// GetValue reads a little endian value of the given size.
func (m *Memory) GetValue(addr uint64, size op.MemSize) (uint64, error) {
	n := size.Bytes()
	if err := m.check(addr, n); err != nil {
		return 0, err
	}
	b := m.data[addr : addr+uint64(n)]
	switch size {
	case op.MemByte:
		return uint64(b[0]), nil
	case op.MemWord:
		return uint64(op.Endian.Uint16(b)), nil
	case op.MemDword:
		return uint64(op.Endian.Uint32(b)), nil
	default:
		return op.Endian.Uint64(b), nil
	}
}

// SetValue stores the low bytes of value, little endian.
func (m *Memory) SetValue(addr uint64, size op.MemSize, value uint64) error {
	n := size.Bytes()
	if err := m.check(addr, n); err != nil {
		return err
	}
	b := m.data[addr : addr+uint64(n)]
	switch size {
	case op.MemByte:
		b[0] = byte(value)
	case op.MemWord:
		op.Endian.PutUint16(b, uint16(value))
	case op.MemDword:
		op.Endian.PutUint32(b, uint32(value))
	default:
		op.Endian.PutUint64(b, value)
	}
	return nil
}

// Snapshot copies the whole memory for monitors. Running threads may be
// writing concurrently, the copy is not atomic.
func (m *Memory) Snapshot() []byte {
	return append([]byte(nil), m.data...)
}
