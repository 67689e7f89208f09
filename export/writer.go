package export

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-tracer/errors"
	"github.com/wippyai/wasm-tracer/tables"
	"github.com/wippyai/wasm-tracer/tracer"
)

const bufferSize = 64 * 1024

// Table discriminators of exported rows.
const (
	TableInstruction = "itable"
	TableInitMemory  = "imtable"
	TableExecution   = "etable"
	TableFrame       = "frame"
)

// Writer streams trace tables as JSON Lines, one row per line.
type Writer struct {
	mu     sync.Mutex
	buf    *bufio.Writer
	enc    *json.Encoder
	closer io.Closer
	closed bool
	rows   int
}

// NewWriter writes rows to w. Close flushes but does not close w.
func NewWriter(w io.Writer) *Writer {
	buf := bufio.NewWriterSize(w, bufferSize)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	return &Writer{buf: buf, enc: enc}
}

// NewFileWriter creates path and writes rows to it. Close closes the file.
func NewFileWriter(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseExport, errors.KindInvalidInput, err, "create "+path)
	}
	w := NewWriter(f)
	w.closer = f
	return w, nil
}

func errClosed() error {
	return errors.New(errors.PhaseExport, errors.KindInvalidInput).
		Detail("writer is closed").
		Build()
}

// WriteTables writes every row of t: instructions, initial memory,
// execution steps and frames, in that order.
func (w *Writer) WriteTables(t tracer.Tables) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return errClosed()
	}

	for _, e := range t.Instructions {
		if err := w.encode(instructionRowOf(e)); err != nil {
			return err
		}
	}
	for _, e := range t.InitMemory {
		if err := w.encode(initMemoryRowOf(e)); err != nil {
			return err
		}
	}
	for _, e := range t.Execution {
		if err := w.encode(executionRowOf(e)); err != nil {
			return err
		}
	}
	for _, e := range t.Frames {
		if err := w.encode(frameRowOf(e)); err != nil {
			return err
		}
	}

	Logger().Debug("tables written",
		zap.Int("instructions", len(t.Instructions)),
		zap.Int("init_memory", len(t.InitMemory)),
		zap.Int("execution", len(t.Execution)),
		zap.Int("frames", len(t.Frames)))
	return nil
}

// WriteStep writes a single execution row.
func (w *Writer) WriteStep(e tables.ExecutionTableEntry) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return errClosed()
	}
	return w.encode(executionRowOf(e))
}

func (w *Writer) encode(row any) error {
	if err := w.enc.Encode(row); err != nil {
		return errors.Wrap(errors.PhaseExport, errors.KindInvalidData, err, "encode row")
	}
	w.rows++
	return nil
}

// Rows returns the number of rows written so far.
func (w *Writer) Rows() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rows
}

// Flush writes buffered rows to the underlying writer.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	return w.buf.Flush()
}

// Close flushes and, for file writers, closes the file. Closing twice is
// a no-op.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true

	err := w.buf.Flush()
	if w.closer != nil {
		if cerr := w.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
