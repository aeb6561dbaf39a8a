package trace

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"

	"go.creack.net/evm/vm"
)

// Trace formats.
const (
	FormatText  = "text"
	FormatJSONL = "jsonl"
	FormatCBOR  = "cbor"
)

// Formats lists the supported formats.
var Formats = []string{FormatText, FormatJSONL, FormatCBOR}

// ErrWriterClosed is returned when writing after Close.
var ErrWriterClosed = errors.New("trace writer is closed")

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("trace: cbor enc mode: %v", err))
	}
	cborEncMode = em
}

// Writer is a vm.Tracer serializing events to an io.Writer.
// It is safe for concurrent use by multiple threads.
type Writer struct {
	mu     sync.Mutex
	buf    *bufio.Writer
	encode func(Record) error
	closer io.Closer // Only set when we own the underlying writer.
	closed bool
	err    error // First write error.
}

func newWriter(w io.Writer, format string) (*Writer, error) {
	buf := bufio.NewWriterSize(w, 64*1024)
	tw := &Writer{buf: buf}
	switch format {
	case FormatText, "":
		tw.encode = func(r Record) error {
			_, err := fmt.Fprintln(buf, r.String())
			return err
		}
	case FormatJSONL:
		enc := json.NewEncoder(buf)
		enc.SetEscapeHTML(false)
		tw.encode = func(r Record) error { return enc.Encode(r) }
	case FormatCBOR:
		enc := cborEncMode.NewEncoder(buf)
		tw.encode = func(r Record) error { return enc.Encode(r) }
	default:
		return nil, fmt.Errorf("unknown trace format %q, expect one of %v", format, Formats)
	}
	return tw, nil
}

// NewWriter creates a Writer in the given format.
// The writer passed in is not closed by Close, only flushed.
func NewWriter(w io.Writer, format string) (*Writer, error) {
	return newWriter(w, format)
}

// Create creates or truncates the file at path and returns a Writer owning it.
func Create(path, format string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace file: %w", err)
	}
	tw, err := newWriter(f, format)
	if err != nil {
		_ = f.Close() // Best effort.
		return nil, err
	}
	tw.closer = f
	return tw, nil
}

// Trace implements vm.Tracer. Errors are kept and reported by Err and Close.
func (w *Writer) Trace(ev vm.Event) {
	if err := w.Write(NewRecord(ev)); err != nil {
		w.mu.Lock()
		if w.err == nil {
			w.err = err
		}
		w.mu.Unlock()
	}
}

// Write encodes a single record.
func (w *Writer) Write(r Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWriterClosed
	}
	return w.encode(r)
}

// Err returns the first error encountered by Trace.
func (w *Writer) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// Flush forces buffered data to be written to the underlying writer.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWriterClosed
	}
	return w.buf.Flush()
}

// Close flushes the buffer and closes the underlying writer if we own it.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	err := w.buf.Flush()
	if w.closer != nil {
		err = errors.Join(err, w.closer.Close())
	}
	return errors.Join(w.err, err)
}
