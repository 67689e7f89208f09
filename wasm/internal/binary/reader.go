package binary

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"unicode/utf8"
)

// ErrOverflow is returned when a LEB128 value does not fit its target width.
var ErrOverflow = errors.New("leb128: overflow")

// Reader is a cursor over an in-memory module or function body. The
// position is the byte offset the decoder reports in errors.
type Reader struct {
	data []byte
	pos  int
}

func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

func (r *Reader) Position() int { return r.pos }

// Len returns the number of unread bytes.
func (r *Reader) Len() int { return len(r.data) - r.pos }

// Slice returns the bytes consumed since offset from.
func (r *Reader) Slice(from int) []byte { return r.data[from:r.pos] }

func (r *Reader) ReadByte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	r.pos++
	return r.data[r.pos-1], nil
}

// ReadBytes returns the next n bytes without copying.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 || n > r.Len() {
		return nil, r.wrapError(io.ErrUnexpectedEOF)
	}
	start := r.pos
	r.pos += n
	return r.data[start:r.pos], nil
}

// ReadRemaining consumes the rest of the input.
func (r *Reader) ReadRemaining() []byte {
	rest := r.data[r.pos:]
	r.pos = len(r.data)
	return rest
}

// leb reads a LEB128 number of at most bits significant bits. The raw
// bits are returned with their final shift, so signed callers can
// sign-extend.
func (r *Reader) leb(bits uint) (v uint64, shift uint, last byte, err error) {
	maxShift := (bits + 6) / 7 * 7
	for {
		if last, err = r.ReadByte(); err != nil {
			return 0, 0, 0, err
		}
		v |= uint64(last&0x7f) << shift
		shift += 7
		if last&0x80 == 0 {
			return v, shift, last, nil
		}
		if shift >= maxShift {
			return 0, 0, 0, r.wrapError(ErrOverflow)
		}
	}
}

func (r *Reader) signed(bits uint) (int64, error) {
	v, shift, last, err := r.leb(bits)
	if err != nil {
		return 0, err
	}
	if shift < 64 && last&0x40 != 0 {
		v |= ^uint64(0) << shift
	}
	return int64(v), nil
}

func (r *Reader) ReadU32() (uint32, error) {
	v, _, _, err := r.leb(32)
	return uint32(v), err
}

func (r *Reader) ReadU64() (uint64, error) {
	v, _, _, err := r.leb(64)
	return v, err
}

func (r *Reader) ReadS32() (int32, error) {
	v, err := r.signed(32)
	return int32(v), err
}

func (r *Reader) ReadS64() (int64, error) {
	return r.signed(64)
}

// ReadName reads a length-prefixed UTF-8 name.
func (r *Reader) ReadName() (string, error) {
	n, err := r.ReadU32()
	if err != nil {
		return "", err
	}
	raw, err := r.ReadBytes(int(n))
	if err != nil {
		return "", err
	}
	if !utf8.Valid(raw) {
		return "", r.wrapError(errors.New("invalid UTF-8 in name"))
	}
	return string(raw), nil
}

// ReadU32LE reads a fixed-width little-endian uint32, as in the header.
func (r *Reader) ReadU32LE() (uint32, error) {
	raw, err := r.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(raw), nil
}

func (r *Reader) ReadF32() (float32, error) {
	bits, err := r.ReadU32LE()
	return math.Float32frombits(bits), err
}

func (r *Reader) ReadF64() (float64, error) {
	raw, err := r.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(raw)), nil
}

func (r *Reader) wrapError(err error) error {
	return fmt.Errorf("at position %d: %w", r.pos, err)
}

// ParseError locates a decoding failure inside a module.
type ParseError struct {
	Err      error
	Section  string
	Position int
}

func (e *ParseError) Error() string {
	if e.Section == "" {
		return fmt.Sprintf("wasm: at position %d: %v", e.Position, e.Err)
	}
	return fmt.Sprintf("wasm: %s at position %d: %v", e.Section, e.Position, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// WrapError attaches the current position and the section being decoded.
func (r *Reader) WrapError(section string, err error) error {
	return &ParseError{Err: err, Section: section, Position: r.pos}
}
