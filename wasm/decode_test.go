package wasm_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/wippyai/wasm-tracer/wasm"
)

func constI32(v int32) []byte {
	return wasm.EncodeInstructions([]wasm.Instruction{
		{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: v}},
		{Opcode: wasm.OpEnd},
	})
}

func sampleModule() *wasm.Module {
	start := uint32(1)
	maxPages := uint32(4)
	return &wasm.Module{
		Types: []wasm.FuncType{
			{Params: []wasm.ValType{wasm.ValI32}, Results: []wasm.ValType{wasm.ValI64}},
			{},
		},
		Imports: []wasm.Import{
			{Module: "env", Name: "wasm_input", Desc: wasm.ImportDesc{Kind: wasm.KindFunc, TypeIdx: 0}},
		},
		Funcs:    []uint32{1, 0},
		Tables:   []wasm.TableType{{ElemType: wasm.ValFuncRef, Limits: wasm.Limits{Min: 2}}},
		Memories: []wasm.MemoryType{{Limits: wasm.Limits{Min: 1, Max: &maxPages}}},
		Globals: []wasm.Global{
			{Type: wasm.GlobalType{ValType: wasm.ValI32, Mutable: true}, Init: constI32(-5)},
		},
		Exports: []wasm.Export{
			{Name: "main", Kind: wasm.KindFunc, Idx: 2},
			{Name: "memory", Kind: wasm.KindMemory, Idx: 0},
		},
		Start:    &start,
		Elements: []wasm.Element{{Offset: constI32(0), FuncIdxs: []uint32{1, 2}, ElemType: wasm.ValFuncRef}},
		Code: []wasm.FuncBody{
			{Code: wasm.EncodeInstructions([]wasm.Instruction{{Opcode: wasm.OpEnd}})},
			{
				Locals: []wasm.LocalEntry{{Count: 2, ValType: wasm.ValI64}},
				Code: wasm.EncodeInstructions([]wasm.Instruction{
					{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: 0}},
					{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: 0}},
					{Opcode: wasm.OpEnd},
				}),
			},
		},
		Data: []wasm.DataSegment{{Offset: constI32(16), Init: []byte("hello")}},
		Names: &wasm.NameSection{
			ModuleName: "sample",
			FuncNames:  map[uint32]string{1: "init", 2: "main"},
		},
	}
}

func TestParseModuleRoundTrip(t *testing.T) {
	orig := sampleModule()
	m, err := wasm.ParseModule(orig.Encode())
	if err != nil {
		t.Fatalf("ParseModule: %v", err)
	}

	if !reflect.DeepEqual(m.Types, orig.Types) {
		t.Errorf("Types = %v, want %v", m.Types, orig.Types)
	}
	if len(m.Imports) != 1 || m.Imports[0].Name != "wasm_input" || m.Imports[0].Desc.Kind != wasm.KindFunc {
		t.Errorf("Imports = %+v", m.Imports)
	}
	if !reflect.DeepEqual(m.Funcs, orig.Funcs) {
		t.Errorf("Funcs = %v, want %v", m.Funcs, orig.Funcs)
	}
	if len(m.Memories) != 1 || m.Memories[0].Limits.Min != 1 || *m.Memories[0].Limits.Max != 4 {
		t.Errorf("Memories = %+v", m.Memories)
	}
	if !reflect.DeepEqual(m.Globals, orig.Globals) {
		t.Errorf("Globals = %+v, want %+v", m.Globals, orig.Globals)
	}
	if m.Start == nil || *m.Start != 1 {
		t.Errorf("Start = %v, want 1", m.Start)
	}
	if len(m.Elements) != 1 || !reflect.DeepEqual(m.Elements[0].FuncIdxs, []uint32{1, 2}) || !m.Elements[0].Active() {
		t.Errorf("Elements = %+v", m.Elements)
	}
	if !reflect.DeepEqual(m.Code, orig.Code) {
		t.Errorf("Code = %+v, want %+v", m.Code, orig.Code)
	}
	if len(m.Data) != 1 || string(m.Data[0].Init) != "hello" || !m.Data[0].Active() {
		t.Errorf("Data = %+v", m.Data)
	}
	if m.Names == nil || m.Names.ModuleName != "sample" || m.Names.FuncNames[2] != "main" {
		t.Errorf("Names = %+v", m.Names)
	}
}

func TestModuleHelpers(t *testing.T) {
	m := sampleModule()

	if n := m.NumImportedFuncs(); n != 1 {
		t.Errorf("NumImportedFuncs = %d, want 1", n)
	}

	ft, ok := m.FuncTypeOf(0)
	if !ok || ft.String() != "(i32) -> i64" {
		t.Errorf("FuncTypeOf(0) = %v, %v", ft, ok)
	}
	ft, ok = m.FuncTypeOf(1)
	if !ok || ft.String() != "() -> ()" {
		t.Errorf("FuncTypeOf(1) = %v, %v", ft, ok)
	}
	if _, ok := m.FuncTypeOf(3); ok {
		t.Error("FuncTypeOf(3) should be out of range")
	}

	if name := m.FuncName(1); name != "init" {
		t.Errorf("FuncName(1) = %q, want init", name)
	}
	if name := m.FuncName(0); name != "env.wasm_input" {
		t.Errorf("FuncName(0) = %q, want env.wasm_input", name)
	}
	m.Names = nil
	if name := m.FuncName(2); name != "main" {
		t.Errorf("FuncName(2) without names = %q, want export name", name)
	}

	if idx, ok := m.ExportedFunc("main"); !ok || idx != 2 {
		t.Errorf("ExportedFunc(main) = %d, %v", idx, ok)
	}
	if _, ok := m.ExportedFunc("memory"); ok {
		t.Error("memory export should not resolve as a function")
	}
}

func TestParseModuleErrors(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"bad magic", []byte{0x00, 0x61, 0x73, 0x6e, 0x01, 0x00, 0x00, 0x00}, wasm.ErrInvalidMagic},
		{"bad version", []byte{0x00, 0x61, 0x73, 0x6d, 0x02, 0x00, 0x00, 0x00}, wasm.ErrInvalidVersion},
		{"truncated header", []byte{0x00, 0x61}, nil},
		{"out of order sections", append(append([]byte{}, header()...), 0x03, 0x01, 0x00, 0x01, 0x01, 0x00), nil},
		{"unknown section", append(append([]byte{}, header()...), 0x0d, 0x00), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := wasm.ParseModule(tt.data)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseModuleCountMismatch(t *testing.T) {
	m := &wasm.Module{
		Types: []wasm.FuncType{{}},
		Funcs: []uint32{0, 0},
		Code:  []wasm.FuncBody{{Code: []byte{wasm.OpEnd}}},
	}
	if _, err := wasm.ParseModule(m.Encode()); err == nil {
		t.Error("expected function/code count mismatch error")
	}
}

func header() []byte {
	return []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
}
