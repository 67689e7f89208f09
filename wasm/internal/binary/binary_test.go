package binary

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestReaderReadByte(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03}
	r := NewReader(data)

	for i, want := range data {
		if r.Position() != i {
			t.Errorf("position before read %d: got %d, want %d", i, r.Position(), i)
		}
		b, err := r.ReadByte()
		if err != nil {
			t.Fatalf("ReadByte %d: %v", i, err)
		}
		if b != want {
			t.Errorf("ReadByte %d: got 0x%02x, want 0x%02x", i, b, want)
		}
	}

	if r.Len() != 0 {
		t.Errorf("Len after full read: got %d, want 0", r.Len())
	}
	if _, err := r.ReadByte(); !errors.Is(err, io.EOF) {
		t.Errorf("expected EOF, got %v", err)
	}
}

func TestReaderSlice(t *testing.T) {
	r := NewReader([]byte{0x41, 0x80, 0x01, 0x0b})
	start := r.Position()
	if _, err := r.ReadByte(); err != nil {
		t.Fatal(err)
	}
	if _, err := r.ReadS32(); err != nil {
		t.Fatal(err)
	}
	if got := r.Slice(start); !bytes.Equal(got, []byte{0x41, 0x80, 0x01}) {
		t.Errorf("Slice = %x", got)
	}
	if _, err := r.ReadBytes(2); err == nil {
		t.Error("expected error reading past end")
	}
}

func TestLEB128RoundTrip(t *testing.T) {
	u32s := []uint32{0, 1, 127, 128, 255, 624485, 0xFFFFFFFF}
	for _, v := range u32s {
		w := NewWriter()
		w.WriteU32(v)
		got, err := NewReader(w.Bytes()).ReadU32()
		if err != nil || got != v {
			t.Errorf("u32 %d: got %d, err %v", v, got, err)
		}
	}

	s64s := []int64{0, 1, -1, 63, -64, 64, -65, 1 << 40, -(1 << 62)}
	for _, v := range s64s {
		w := NewWriter()
		w.WriteS64(v)
		got, err := NewReader(w.Bytes()).ReadS64()
		if err != nil || got != v {
			t.Errorf("s64 %d: got %d, err %v", v, got, err)
		}
	}

	s32s := []int32{0, -1, 2147483647, -2147483648}
	for _, v := range s32s {
		w := NewWriter()
		w.WriteS32(v)
		got, err := NewReader(w.Bytes()).ReadS32()
		if err != nil || got != v {
			t.Errorf("s32 %d: got %d, err %v", v, got, err)
		}
	}
}

func TestReaderOverflow(t *testing.T) {
	_, err := NewReader([]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0x01}).ReadU32()
	if !errors.Is(err, ErrOverflow) {
		t.Errorf("expected ErrOverflow, got %v", err)
	}
}

func TestFloats(t *testing.T) {
	w := NewWriter()
	w.WriteF32(1.5)
	w.WriteF64(-2.25)
	r := NewReader(w.Bytes())
	f32, err := r.ReadF32()
	if err != nil || f32 != 1.5 {
		t.Errorf("f32: got %v, err %v", f32, err)
	}
	f64, err := r.ReadF64()
	if err != nil || f64 != -2.25 {
		t.Errorf("f64: got %v, err %v", f64, err)
	}
}

func TestReadName(t *testing.T) {
	w := NewWriter()
	w.WriteName("wasm_input")
	got, err := NewReader(w.Bytes()).ReadName()
	if err != nil || got != "wasm_input" {
		t.Errorf("ReadName: got %q, err %v", got, err)
	}

	if _, err := NewReader([]byte{0x02, 0xff, 0xfe}).ReadName(); err == nil {
		t.Error("expected error for invalid UTF-8")
	}
}
