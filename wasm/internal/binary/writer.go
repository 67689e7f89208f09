package binary

import (
	"encoding/binary"
	"math"
)

// Writer accumulates an encoded module or function body.
type Writer struct {
	buf []byte
}

func NewWriter() *Writer {
	return &Writer{}
}

func (w *Writer) Bytes() []byte { return w.buf }

func (w *Writer) Len() int { return len(w.buf) }

func (w *Writer) Byte(b byte) { w.buf = append(w.buf, b) }

func (w *Writer) WriteBytes(data []byte) { w.buf = append(w.buf, data...) }

func (w *Writer) WriteU32(v uint32) { w.WriteU64(uint64(v)) }

func (w *Writer) WriteU64(v uint64) {
	for v >= 0x80 {
		w.buf = append(w.buf, byte(v)|0x80)
		v >>= 7
	}
	w.buf = append(w.buf, byte(v))
}

func (w *Writer) WriteS32(v int32) { w.WriteS64(int64(v)) }

func (w *Writer) WriteS64(v int64) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		// Done once the remaining bits are pure sign extension of b.
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			w.buf = append(w.buf, b)
			return
		}
		w.buf = append(w.buf, b|0x80)
	}
}

// WriteName writes a length-prefixed name.
func (w *Writer) WriteName(s string) {
	w.WriteU32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

func (w *Writer) WriteU32LE(v uint32) { w.buf = binary.LittleEndian.AppendUint32(w.buf, v) }

func (w *Writer) WriteF32(v float32) { w.WriteU32LE(math.Float32bits(v)) }

func (w *Writer) WriteF64(v float64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, math.Float64bits(v))
}
