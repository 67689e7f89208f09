// Package wasmtest builds small modules for tests of the packages that
// link and run them.
package wasmtest

import "github.com/wippyai/wasm-tracer/wasm"

// Signatures used by the sample modules.
var (
	Void      = wasm.FuncType{}
	Input     = wasm.FuncType{Params: []wasm.ValType{wasm.ValI32}, Results: []wasm.ValType{wasm.ValI64}}
	RetI64    = wasm.FuncType{Results: []wasm.ValType{wasm.ValI64}}
	RetI32    = wasm.FuncType{Results: []wasm.ValType{wasm.ValI32}}
	I32ToVoid = wasm.FuncType{Params: []wasm.ValType{wasm.ValI32}}
)

// Op returns an instruction without immediate.
func Op(code byte) wasm.Instruction {
	return wasm.Instruction{Opcode: code}
}

// Call returns call idx.
func Call(idx uint32) wasm.Instruction {
	return wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: idx}}
}

// I32 returns i32.const v.
func I32(v int32) wasm.Instruction {
	return wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: v}}
}

// I64 returns i64.const v.
func I64(v int64) wasm.Instruction {
	return wasm.Instruction{Opcode: wasm.OpI64Const, Imm: wasm.I64Imm{Value: v}}
}

// Body encodes instrs followed by end.
func Body(instrs ...wasm.Instruction) []byte {
	return wasm.EncodeInstructions(append(instrs, Op(wasm.OpEnd)))
}

// Func indices of Phantom.
const (
	PhantomInputIdx   = 0 // env.wasm_input
	PhantomRequireIdx = 1 // env.require
	PhantomGetI64Idx  = 2 // get_i64: phantom returning i64
	PhantomGetI32Idx  = 3 // get_i32: phantom returning i32
	PhantomCheckIdx   = 4 // check: phantom without result
	PhantomRunIdx     = 5 // run: calls the three phantoms
	PhantomInitIdx    = 6 // start function
)

// Phantom returns a module whose phantom candidates read public inputs:
//
//	get_i64() -> i64   wasm_input(1)
//	get_i32() -> i32   i32.wrap_i64(wasm_input(1))
//	check(i32)         require(arg)
//	run() -> i64       get_i64() + extend(get_i32()), after check(1)
//
// It has one page of memory holding "trace" at offset 8, a mutable i32
// global initialized to 7, and a start function storing nothing.
func Phantom() *wasm.Module {
	start := uint32(PhantomInitIdx)
	return &wasm.Module{
		Types: []wasm.FuncType{Input, I32ToVoid, RetI64, RetI32, Void},
		Imports: []wasm.Import{
			{Module: "env", Name: "wasm_input", Desc: wasm.ImportDesc{Kind: wasm.KindFunc, TypeIdx: 0}},
			{Module: "env", Name: "require", Desc: wasm.ImportDesc{Kind: wasm.KindFunc, TypeIdx: 1}},
		},
		Funcs: []uint32{2, 3, 1, 2, 4},
		Code: []wasm.FuncBody{
			{Code: Body(I32(1), Call(PhantomInputIdx))},
			{Code: Body(I32(1), Call(PhantomInputIdx), Op(wasm.OpI32WrapI64))},
			{Code: Body(wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{}}, Call(PhantomRequireIdx))},
			{Code: Body(
				I32(1), Call(PhantomCheckIdx),
				Call(PhantomGetI64Idx),
				Call(PhantomGetI32Idx), Op(wasm.OpI64ExtendI32U),
				Op(wasm.OpI64Add),
			)},
			{Code: Body(Op(wasm.OpNop))},
		},
		Memories: []wasm.MemoryType{{Limits: wasm.Limits{Min: 1}}},
		Globals: []wasm.Global{
			{Type: wasm.GlobalType{ValType: wasm.ValI32, Mutable: true}, Init: Body(I32(7))},
		},
		Data: []wasm.DataSegment{{Offset: Body(I32(8)), Init: []byte("trace")}},
		Exports: []wasm.Export{
			{Name: "get_i64", Kind: wasm.KindFunc, Idx: PhantomGetI64Idx},
			{Name: "get_i32", Kind: wasm.KindFunc, Idx: PhantomGetI32Idx},
			{Name: "check", Kind: wasm.KindFunc, Idx: PhantomCheckIdx},
			{Name: "run", Kind: wasm.KindFunc, Idx: PhantomRunIdx},
			{Name: "memory", Kind: wasm.KindMemory, Idx: 0},
		},
		Start: &start,
	}
}

// PhantomPatterns selects the phantom candidates of Phantom.
var PhantomPatterns = []string{"^get_", "^check$"}

// Trap returns a module exporting "boom", which executes unreachable.
func Trap() *wasm.Module {
	return &wasm.Module{
		Types:   []wasm.FuncType{Void},
		Funcs:   []uint32{0},
		Code:    []wasm.FuncBody{{Code: Body(Op(wasm.OpUnreachable))}},
		Exports: []wasm.Export{{Name: "boom", Kind: wasm.KindFunc, Idx: 0}},
	}
}
