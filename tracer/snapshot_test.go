package tracer

import (
	"encoding/binary"
	"testing"

	"github.com/wippyai/wasm-tracer/errors"
	"github.com/wippyai/wasm-tracer/tables"
	"github.com/wippyai/wasm-tracer/wasm"
)

func TestPushInitMemory(t *testing.T) {
	mem := newMemory(2)
	for i := range mem.data {
		mem.data[i] = byte(i * 7)
	}

	tr := New(nil, Config{})
	if err := tr.PushInitMemory(mem); err != nil {
		t.Fatal(err)
	}

	cells := tr.Tables().InitMemory
	if len(cells) != 2*CellsPerPage {
		t.Fatalf("cells = %d, want %d", len(cells), 2*CellsPerPage)
	}

	restored := make([]byte, len(mem.data))
	for i, c := range cells {
		if c.Offset != uint32(i) {
			t.Fatalf("cell %d offset = %d", i, c.Offset)
		}
		if c.LocationType != tables.LocationHeap || c.ValueType != tables.ValueTypeI64 || !c.IsMutable || c.InstanceID != 1 {
			t.Fatalf("cell %d = %+v", i, c)
		}
		binary.LittleEndian.PutUint64(restored[i*8:], c.Value)
	}
	for i := range restored {
		if restored[i] != mem.data[i] {
			t.Fatalf("byte %d = %#x, want %#x", i, restored[i], mem.data[i])
		}
	}

	if id, err := tr.LookupMemoryInstance(mem); err != nil || id != 1 {
		t.Errorf("memory id = %d, %v", id, err)
	}
	if tr.NextMemoryID() != 2 {
		t.Errorf("NextMemoryID = %d, want 2", tr.NextMemoryID())
	}
	if err := tr.PushInitMemory(mem); !errors.IsKind(err, errors.KindAlreadyRegistered) {
		t.Errorf("second push err = %v", err)
	}
}

func TestPushInitMemoryEmpty(t *testing.T) {
	tr := New(nil, Config{})
	mem := newMemory(0)
	if err := tr.PushInitMemory(mem); err != nil {
		t.Fatal(err)
	}
	if n := len(tr.Tables().InitMemory); n != 0 {
		t.Errorf("cells = %d, want 0", n)
	}
	if _, err := tr.LookupMemoryInstance(mem); err != nil {
		t.Errorf("empty memory still registers: %v", err)
	}
}

func TestPushInitMemoryReadFailure(t *testing.T) {
	mem := newMemory(2)
	mem.data = mem.data[:wasm.PageSize]

	tr := New(nil, Config{})
	if err := tr.PushInitMemory(mem); !errors.IsKind(err, errors.KindOutOfBounds) {
		t.Fatalf("err = %v", err)
	}
	if n := len(tr.Tables().InitMemory); n != 0 {
		t.Errorf("partial snapshot left %d cells", n)
	}
	if _, err := tr.LookupMemoryInstance(mem); err == nil {
		t.Error("failed snapshot registered the memory")
	}
}

func TestPushGlobal(t *testing.T) {
	tests := []struct {
		name    string
		typ     wasm.ValType
		mutable bool
		raw     uint64
		want    uint64
		vt      tables.ValueType
	}{
		{"i32 zero-extended", wasm.ValI32, false, 0xFFFFFFFF_FFFFFFFF, 0xFFFFFFFF, tables.ValueTypeI32},
		{"i64 mutable", wasm.ValI64, true, 1 << 40, 1 << 40, tables.ValueTypeI64},
		{"f32 bits", wasm.ValF32, false, 0x3F800000, 0x3F800000, tables.ValueTypeF32},
		{"f64 bits", wasm.ValF64, true, 0x3FF0000000000000, 0x3FF0000000000000, tables.ValueTypeF64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := New(nil, Config{})
			g := newGlobal(tt.typ, tt.mutable, tt.raw)
			if err := tr.PushGlobal(3, 5, g); err != nil {
				t.Fatal(err)
			}
			entries := tr.Tables().InitMemory
			if len(entries) != 1 {
				t.Fatalf("entries = %d", len(entries))
			}
			e := entries[0]
			want := tables.InitMemoryTableEntry{
				LocationType: tables.LocationGlobal,
				IsMutable:    tt.mutable,
				InstanceID:   3,
				Offset:       5,
				ValueType:    tt.vt,
				Value:        tt.want,
			}
			if e != want {
				t.Errorf("entry = %+v, want %+v", e, want)
			}
			if ref, ok := tr.LookupGlobalInstance(g); !ok || ref != (GlobalRef{ModuleID: 3, Index: 5}) {
				t.Errorf("ref = %+v, %v", ref, ok)
			}
		})
	}
}

func TestPushGlobalAliasing(t *testing.T) {
	tr := New(nil, Config{})
	g := newGlobal(wasm.ValI32, true, 1)
	if err := tr.PushGlobal(1, 0, g); err != nil {
		t.Fatal(err)
	}
	err := tr.PushGlobal(2, 0, g)
	if !errors.IsKind(err, errors.KindUnimplemented) {
		t.Fatalf("err = %v, want unimplemented", err)
	}
	if n := len(tr.Tables().InitMemory); n != 1 {
		t.Errorf("entries = %d, want 1", n)
	}
}

func TestPushGlobalReferenceType(t *testing.T) {
	tr := New(nil, Config{})
	g := newGlobal(wasm.ValFuncRef, false, 0)
	if err := tr.PushGlobal(1, 0, g); !errors.IsKind(err, errors.KindUnsupported) {
		t.Fatalf("err = %v", err)
	}
	if _, ok := tr.LookupGlobalInstance(g); ok {
		t.Error("rejected global was registered")
	}
}
