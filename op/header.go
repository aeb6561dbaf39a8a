package op

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
)

// Header.
const (
	Magic      = "ESET-VM2"
	HeaderSize = 20
)

// ErrFileParse is wrapped by every container validation failure.
var ErrFileParse = errors.New("error while parsing evm file")

type Header struct {
	Magic           [8]byte
	CodeSize        uint32
	DataSize        uint32
	InitialDataSize uint32
}

// File is a loaded EVM container.
type File struct {
	Header   Header
	Payload  []byte
	FileSize int
}

// ReadFile loads and validates the EVM file at path.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFileParse, err)
	}
	return Parse(data)
}

// Parse decodes and validates an EVM container.
func Parse(data []byte) (*File, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%w: file size too small (%d bytes)", ErrFileParse, len(data))
	}
	f := &File{FileSize: len(data)}
	copy(f.Header.Magic[:], data[:8])
	f.Header.CodeSize = Endian.Uint32(data[8:])
	f.Header.DataSize = Endian.Uint32(data[12:])
	f.Header.InitialDataSize = Endian.Uint32(data[16:])
	f.Payload = data[HeaderSize:]

	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// Validate checks the header against the payload.
func (f *File) Validate() error {
	h := f.Header
	if string(h.Magic[:]) != Magic {
		return fmt.Errorf("%w: bad header: magic incorrect %q", ErrFileParse, h.Magic[:])
	}
	if h.DataSize < h.InitialDataSize {
		return fmt.Errorf("%w: data size %d < initial data size %d", ErrFileParse, h.DataSize, h.InitialDataSize)
	}
	// Computed on 64 bits so the sum can't wrap.
	if expect := uint64(h.CodeSize) + uint64(h.InitialDataSize) + HeaderSize; expect != uint64(f.FileSize) {
		return fmt.Errorf("%w: values in header don't match file size: %d != %d", ErrFileParse, expect, f.FileSize)
	}
	if uint64(h.CodeSize) > uint64(len(f.Payload)) {
		return fmt.Errorf("%w: code size %d exceeds payload size %d", ErrFileParse, h.CodeSize, len(f.Payload))
	}
	return nil
}

// Code returns the program bit stream.
func (f *File) Code() []byte {
	return f.Payload[:f.Header.CodeSize]
}

// InitialData returns the bytes copied at the start of data memory.
func (f *File) InitialData() []byte {
	return f.Payload[f.Header.CodeSize : f.Header.CodeSize+f.Header.InitialDataSize]
}

func (f *File) String() string {
	return fmt.Sprintf("EVM file:\nmagic %s\ncode size %d\ndata size %d\ninit data size %d\nfile size %d\npayload size %d\n",
		f.Header.Magic[:], f.Header.CodeSize, f.Header.DataSize, f.Header.InitialDataSize, f.FileSize, len(f.Payload))
}

// Encode builds an EVM container.
func Encode(code, initialData []byte, dataSize uint32) ([]byte, error) {
	if uint64(len(initialData)) > uint64(dataSize) {
		return nil, fmt.Errorf("initial data (%d bytes) exceeds data size %d", len(initialData), dataSize)
	}
	buf := bytes.NewBuffer(make([]byte, 0, HeaderSize+len(code)+len(initialData)))
	if err := (Header{
		CodeSize:        uint32(len(code)),
		DataSize:        dataSize,
		InitialDataSize: uint32(len(initialData)),
	}).Encode(buf); err != nil {
		return nil, err
	}
	buf.Write(code)
	buf.Write(initialData)
	return buf.Bytes(), nil
}

// Encode writes the 20 bytes header. The magic is always the expected one.
func (h Header) Encode(w io.Writer) error {
	tmp := make([]byte, HeaderSize)
	copy(tmp, Magic)
	Endian.PutUint32(tmp[8:], h.CodeSize)
	Endian.PutUint32(tmp[12:], h.DataSize)
	Endian.PutUint32(tmp[16:], h.InitialDataSize)
	if _, err := w.Write(tmp); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	return nil
}
