// Package wasm provides WebAssembly 1.0 binary format parsing and encoding
// for the tracer.
//
// The decoder covers the core module sections, the "name" custom section,
// and the instruction set the tracer catalogues: the MVP opcodes, sign
// extension, reference types, and the 0xFC prefixed saturating truncation
// and bulk memory instructions. Other proposals are rejected with an
// "unsupported opcode" error.
//
// # Parsing
//
//	data, _ := os.ReadFile("module.wasm")
//	module, err := wasm.ParseModule(data)
//
// Function bodies stay as raw bytes in module.Code. DecodeInstructions
// turns a body into a slice indexed by program counter, so instruction n
// of the slice is the instruction at pc n:
//
//	body, err := wasm.DecodeInstructions(module.Code[0].Code)
//
// DecodeInstructionAt decodes a single instruction at a byte offset.
//
// # Encoding
//
// Modules and instructions encode back to binary. Tests use this to build
// modules without a text-format toolchain:
//
//	m := &wasm.Module{
//	    Types: []wasm.FuncType{{Results: []wasm.ValType{wasm.ValI32}}},
//	    Funcs: []uint32{0},
//	    Code: []wasm.FuncBody{{Code: wasm.EncodeInstructions([]wasm.Instruction{
//	        {Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 7}},
//	        {Opcode: wasm.OpEnd},
//	    })}},
//	}
//	bin := m.Encode()
package wasm
