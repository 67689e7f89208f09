package wasm_test

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/wippyai/wasm-tracer/wasm"
)

func TestInstructionRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		instr wasm.Instruction
	}{
		{"unreachable", wasm.Instruction{Opcode: wasm.OpUnreachable}},
		{"block void", wasm.Instruction{Opcode: wasm.OpBlock, Imm: wasm.BlockImm{Type: wasm.BlockTypeEmpty}}},
		{"loop i32", wasm.Instruction{Opcode: wasm.OpLoop, Imm: wasm.BlockImm{Type: -1}}},
		{"if typeidx", wasm.Instruction{Opcode: wasm.OpIf, Imm: wasm.BlockImm{Type: 3}}},
		{"br_if", wasm.Instruction{Opcode: wasm.OpBrIf, Imm: wasm.BranchImm{LabelIdx: 1}}},
		{"br_table", wasm.Instruction{Opcode: wasm.OpBrTable, Imm: wasm.BrTableImm{Labels: []uint32{0, 1, 2}, Default: 3}}},
		{"call", wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: 300}}},
		{"call_indirect", wasm.Instruction{Opcode: wasm.OpCallIndirect, Imm: wasm.CallIndirectImm{TypeIdx: 1}}},
		{"select typed", wasm.Instruction{Opcode: wasm.OpSelectTyped, Imm: wasm.SelectTypeImm{Types: []wasm.ValType{wasm.ValI64}}}},
		{"local.tee", wasm.Instruction{Opcode: wasm.OpLocalTee, Imm: wasm.LocalImm{LocalIdx: 2}}},
		{"global.set", wasm.Instruction{Opcode: wasm.OpGlobalSet, Imm: wasm.GlobalImm{GlobalIdx: 1}}},
		{"i64.load", wasm.Instruction{Opcode: wasm.OpI64Load, Imm: wasm.MemoryImm{Align: 3, Offset: 1024}}},
		{"i32.store8", wasm.Instruction{Opcode: wasm.OpI32Store8, Imm: wasm.MemoryImm{Offset: 7}}},
		{"memory.grow", wasm.Instruction{Opcode: wasm.OpMemoryGrow, Imm: wasm.MemoryIdxImm{}}},
		{"i32.const negative", wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: -129}}},
		{"i64.const", wasm.Instruction{Opcode: wasm.OpI64Const, Imm: wasm.I64Imm{Value: 1 << 40}}},
		{"f32.const", wasm.Instruction{Opcode: wasm.OpF32Const, Imm: wasm.F32Imm{Value: 3.5}}},
		{"f64.const", wasm.Instruction{Opcode: wasm.OpF64Const, Imm: wasm.F64Imm{Value: -0.25}}},
		{"i32.wrap_i64", wasm.Instruction{Opcode: wasm.OpI32WrapI64}},
		{"i64.extend32_s", wasm.Instruction{Opcode: wasm.OpI64Extend32S}},
		{"ref.null", wasm.Instruction{Opcode: wasm.OpRefNull, Imm: wasm.RefNullImm{Type: wasm.ValFuncRef}}},
		{"ref.func", wasm.Instruction{Opcode: wasm.OpRefFunc, Imm: wasm.RefFuncImm{FuncIdx: 4}}},
		{"trunc_sat", wasm.Instruction{Opcode: wasm.OpPrefixMisc, Imm: wasm.MiscImm{SubOpcode: 3}}},
		{"memory.copy", wasm.Instruction{Opcode: wasm.OpPrefixMisc, Imm: wasm.MiscImm{SubOpcode: wasm.MiscMemoryCopy, Operands: []uint32{0, 0}}}},
		{"memory.fill", wasm.Instruction{Opcode: wasm.OpPrefixMisc, Imm: wasm.MiscImm{SubOpcode: wasm.MiscMemoryFill, Operands: []uint32{0}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := wasm.EncodeInstruction(tt.instr)
			decoded, err := wasm.DecodeInstructions(encoded)
			if err != nil {
				t.Fatalf("decode error: %v", err)
			}
			if len(decoded) != 1 {
				t.Fatalf("expected 1 instruction, got %d", len(decoded))
			}
			if !reflect.DeepEqual(decoded[0], tt.instr) {
				t.Errorf("round trip mismatch: got %#v, want %#v", decoded[0], tt.instr)
			}
		})
	}
}

func TestDecodeInstructionsIndexedByPC(t *testing.T) {
	body := []wasm.Instruction{
		{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: 0}},
		{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 1}},
		{Opcode: wasm.OpI32Add},
		{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: 2}},
		{Opcode: wasm.OpEnd},
	}
	decoded, err := wasm.DecodeInstructions(wasm.EncodeInstructions(body))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(decoded, body) {
		t.Fatalf("decoded body mismatch:\n got %v\nwant %v", decoded, body)
	}
}

func TestDecodeInstructionAt(t *testing.T) {
	code := wasm.EncodeInstructions([]wasm.Instruction{
		{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 1000}},
		{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: 1}},
		{Opcode: wasm.OpEnd},
	})

	first, n, err := wasm.DecodeInstructionAt(code, 0)
	if err != nil {
		t.Fatal(err)
	}
	if first.Opcode != wasm.OpI32Const || n != 3 {
		t.Fatalf("first = %v (len %d), want i32.const of length 3", first, n)
	}

	second, n2, err := wasm.DecodeInstructionAt(code, n)
	if err != nil {
		t.Fatal(err)
	}
	if target, ok := second.GetCallTarget(); !ok || target != 1 || n2 != 2 {
		t.Fatalf("second = %v (len %d), want call 1 of length 2", second, n2)
	}

	if _, _, err := wasm.DecodeInstructionAt(code, len(code)); err == nil {
		t.Error("expected error decoding past the end")
	}
}

func TestDecodeUnsupportedOpcode(t *testing.T) {
	// 0xFD is the SIMD prefix
	if _, err := wasm.DecodeInstructions([]byte{0xFD, 0x00}); err == nil {
		t.Error("expected error for SIMD prefix")
	}
	if _, err := wasm.DecodeInstructions([]byte{0xFC, 0x20}); err == nil {
		t.Error("expected error for unknown 0xfc sub-opcode")
	}
}

func TestWithCallTarget(t *testing.T) {
	call := wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: 9}}
	got := call.WithCallTarget(2)
	if target, _ := got.GetCallTarget(); target != 2 {
		t.Errorf("retargeted call = %v, want call 2", got)
	}
	if target, _ := call.GetCallTarget(); target != 9 {
		t.Error("WithCallTarget mutated the receiver")
	}

	nop := wasm.Instruction{Opcode: wasm.OpNop}
	if !reflect.DeepEqual(nop.WithCallTarget(5), nop) {
		t.Error("non-call instruction should be unchanged")
	}
}

func TestInstructionString(t *testing.T) {
	tests := []struct {
		instr wasm.Instruction
		want  string
	}{
		{wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: 3}}, "call 3"},
		{wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: -1}}, "i32.const -1"},
		{wasm.Instruction{Opcode: wasm.OpI32WrapI64}, "i32.wrap_i64"},
		{wasm.Instruction{Opcode: wasm.OpBlock, Imm: wasm.BlockImm{Type: -2}}, "block (result i64)"},
		{wasm.Instruction{Opcode: wasm.OpPrefixMisc, Imm: wasm.MiscImm{SubOpcode: wasm.MiscDataDrop, Operands: []uint32{1}}}, "data.drop 1"},
	}
	for _, tt := range tests {
		if got := tt.instr.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestEncodeInstructionsConcatenates(t *testing.T) {
	a := wasm.Instruction{Opcode: wasm.OpI64Const, Imm: wasm.I64Imm{Value: 42}}
	b := wasm.Instruction{Opcode: wasm.OpReturn}
	want := append(wasm.EncodeInstruction(a), wasm.EncodeInstruction(b)...)
	if got := wasm.EncodeInstructions([]wasm.Instruction{a, b}); !bytes.Equal(got, want) {
		t.Errorf("EncodeInstructions = %x, want %x", got, want)
	}
}
